package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"captionstudio/internal/captions"
	"captionstudio/internal/httpkit"
	"captionstudio/internal/models"
	"captionstudio/internal/pkg/errors"
	"captionstudio/internal/render"
	"captionstudio/internal/repositories"
	"captionstudio/internal/util"
)

type createRenderRequest struct {
	ID         string          `json:"id"`
	InputProps json.RawMessage `json:"inputProps"`
}

// PostRender creates a render session and queues it for the worker.
func (h *Handler) PostRender(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var req createRenderRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		return errors.Validation("invalid json body")
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		return errors.ValidationField("id", "composition id is required")
	}
	if _, err := captions.PrepareProps(req.ID, req.InputProps); err != nil {
		return errors.ValidationField("inputProps", err.Error())
	}

	s := &models.RenderSession{
		ID:            util.NewID("ses"),
		CompositionID: req.ID,
		InputProps:    json.RawMessage(bytes.TrimSpace(req.InputProps)),
		State:         render.SnapshotOf(render.Init{}),
	}
	if err := h.sessions.Create(ctx, s); err != nil {
		if errors.Is(err, repositories.ErrSessionExists) {
			return errors.AlreadyExists("render session", s.ID)
		}
		return errors.Wrap(err, "sessions.create", "db insert failed")
	}

	if err := h.queue.Push(ctx, models.RenderJob{SessionID: s.ID, Generation: s.Generation}); err != nil {
		return errors.Wrap(err, "queue.push", "queue push failed")
	}

	h.log.FromContext(ctx).WithSessionID(s.ID).Info("render session queued", "composition", s.CompositionID)

	httpkit.WriteJSON(w, http.StatusCreated, map[string]any{"session": s})
	return nil
}

// ListRenders returns the most recent sessions, newest first.
func (h *Handler) ListRenders(w http.ResponseWriter, r *http.Request) error {
	limit := 50
	if v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("limit"))); err == nil && v > 0 && v <= 200 {
		limit = v
	}

	sessions, err := h.sessions.List(r.Context(), limit)
	if err != nil {
		return errors.Wrap(err, "sessions.list", "db query failed")
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
	return nil
}

// GetRender returns a session with its current state snapshot.
func (h *Handler) GetRender(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "sessionId")

	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		return sessionErr(err, id, "sessions.get")
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"session": s})
	return nil
}

// UndoRender puts a session back to init. Any render the worker is running
// for it is canceled and its later updates are discarded.
func (h *Handler) UndoRender(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	id := chi.URLParam(r, "sessionId")
	log := h.log.FromContext(ctx).WithSessionID(id)

	gen, err := h.sessions.Reset(ctx, id)
	if err != nil {
		return sessionErr(err, id, "sessions.reset")
	}

	if err := h.queue.PublishState(ctx, id, render.SnapshotOf(render.Init{})); err != nil {
		log.Warn("publish reset state failed", "error", err.Error())
	}
	if err := h.queue.PublishCancel(ctx, id); err != nil {
		log.Warn("publish cancel failed", "error", err.Error())
	}
	log.Info("render session reset", "generation", gen)

	s, err := h.sessions.Get(ctx, id)
	if err != nil {
		return sessionErr(err, id, "sessions.get")
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"session": s})
	return nil
}

// RenderCaptions exports the session's captions as WebVTT.
func (h *Handler) RenderCaptions(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "sessionId")

	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		return sessionErr(err, id, "sessions.get")
	}

	var props struct {
		Captions []captions.Segment `json:"captions"`
	}
	if len(s.InputProps) > 0 {
		if err := json.Unmarshal(s.InputProps, &props); err != nil {
			return errors.Validationf("session %s has no readable captions", id)
		}
	}

	var buf bytes.Buffer
	if err := captions.WriteVTT(&buf, props.Captions); err != nil {
		return errors.Wrap(err, "captions.vtt", "vtt export failed")
	}

	w.Header().Set("Content-Type", "text/vtt; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.vtt"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
	return nil
}

func sessionErr(err error, id, op string) error {
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return errors.NotFound("render session", id)
	}
	return errors.Wrap(err, op, "db query failed")
}
