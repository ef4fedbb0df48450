package handlers

import (
	"encoding/json"
	"net/http"

	"captionstudio/internal/captions"
	"captionstudio/internal/httpkit"
	"captionstudio/internal/pkg/errors"
	"captionstudio/internal/render"
)

type lambdaRenderRequest struct {
	ID         string          `json:"id"`
	InputProps json.RawMessage `json:"inputProps"`
}

type lambdaRenderResponse struct {
	RenderID   string `json:"renderId"`
	BucketName string `json:"bucketName"`
}

type lambdaProgressRequest struct {
	ID         string `json:"id"`
	BucketName string `json:"bucketName"`
}

// progressResponse is one of {type:"progress",progress},
// {type:"done",url,size} or {type:"error",message}.
type progressResponse struct {
	Type     string   `json:"type"`
	Progress *float64 `json:"progress,omitempty"`
	URL      string   `json:"url,omitempty"`
	Size     *int64   `json:"size,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// LambdaRender starts a render for the client to poll itself.
func (h *Handler) LambdaRender(w http.ResponseWriter, r *http.Request) error {
	var req lambdaRenderRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		return errors.Validation("invalid json body")
	}
	if req.ID == "" {
		return errors.ValidationField("id", "composition id is required")
	}

	props, err := captions.PrepareProps(req.ID, req.InputProps)
	if err != nil {
		return errors.ValidationField("inputProps", err.Error())
	}

	handle, err := h.submitter.Submit(r.Context(), req.ID, props)
	if err != nil {
		return err
	}

	httpkit.WriteJSON(w, http.StatusOK, lambdaRenderResponse{
		RenderID:   handle.RenderID,
		BucketName: handle.BucketName,
	})
	return nil
}

// LambdaProgress reports one progress query for a render started through
// LambdaRender.
func (h *Handler) LambdaProgress(w http.ResponseWriter, r *http.Request) error {
	var req lambdaProgressRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		return errors.Validation("invalid json body")
	}
	if req.ID == "" {
		return errors.ValidationField("id", "render id is required")
	}
	if req.BucketName == "" {
		return errors.ValidationField("bucketName", "bucketName is required")
	}

	out, err := h.poller.Poll(r.Context(), render.JobHandle{RenderID: req.ID, BucketName: req.BucketName})
	if err != nil {
		return err
	}

	httpkit.WriteJSON(w, http.StatusOK, progressResponseOf(out))
	return nil
}

func progressResponseOf(out render.Outcome) progressResponse {
	switch o := out.(type) {
	case render.OutcomeError:
		return progressResponse{Type: "error", Message: o.Message}
	case render.OutcomeDone:
		size := o.SizeBytes
		return progressResponse{Type: "done", URL: o.URL, Size: &size}
	case render.OutcomeProgress:
		p := o.Value
		return progressResponse{Type: "progress", Progress: &p}
	default:
		return progressResponse{Type: "error", Message: "Unknown error occurred"}
	}
}
