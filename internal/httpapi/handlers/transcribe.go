package handlers

import (
	"net/http"

	"captionstudio/internal/httpkit"
	"captionstudio/internal/pkg/errors"
)

type transcribeRequest struct {
	VideoURL string `json:"videoUrl"`
}

// Transcribe turns a video URL into captions.
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) error {
	var req transcribeRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		return errors.Validation("invalid json body")
	}
	if req.VideoURL == "" {
		return errors.ValidationField("videoUrl", "videoUrl is required")
	}

	res, err := h.transcriber.Transcribe(r.Context(), req.VideoURL)
	if err != nil {
		return err
	}

	httpkit.WriteJSON(w, http.StatusOK, res)
	return nil
}
