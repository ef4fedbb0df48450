package handlers

import (
	"context"

	"captionstudio/internal/models"
	"captionstudio/internal/pkg/logger"
	"captionstudio/internal/ports"
	"captionstudio/internal/render"
	"captionstudio/internal/transcribe"

	"github.com/gorilla/websocket"
)

// SessionStore persists server-side render sessions.
type SessionStore interface {
	Create(ctx context.Context, s *models.RenderSession) error
	Get(ctx context.Context, id string) (*models.RenderSession, error)
	List(ctx context.Context, limit int) ([]models.RenderSession, error)
	Reset(ctx context.Context, id string) (int64, error)
	Ping(ctx context.Context) error
}

// JobQueue hands render jobs to the worker and carries state and undo
// signals between the api and the worker.
type JobQueue interface {
	Push(ctx context.Context, job models.RenderJob) error
	PublishState(ctx context.Context, sessionID string, snap render.Snapshot) error
	SubscribeState(ctx context.Context, sessionID string) (<-chan render.Snapshot, error)
	PublishCancel(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, videoURL string) (transcribe.Result, error)
}

type RenderSubmitter interface {
	Submit(ctx context.Context, compositionID string, inputProps any) (render.JobHandle, error)
}

type RenderPoller interface {
	Poll(ctx context.Context, h render.JobHandle) (render.Outcome, error)
}

// VideoRoot resolves byte-server paths inside the upload directory.
type VideoRoot interface {
	Resolve(p string) (string, error)
}

type Deps struct {
	Sessions    SessionStore
	Queue       JobQueue
	Storage     ports.StorageProvider
	Videos      VideoRoot
	Transcriber Transcriber
	Submitter   RenderSubmitter
	Poller      RenderPoller
	Log         *logger.Logger

	// CheckOrigin gates websocket upgrades; nil accepts same-origin only.
	CheckOrigin func(origin string) bool
}

type Handler struct {
	sessions    SessionStore
	queue       JobQueue
	sp          ports.StorageProvider
	videos      VideoRoot
	transcriber Transcriber
	submitter   RenderSubmitter
	poller      RenderPoller
	log         *logger.Logger
	upgrader    websocket.Upgrader
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	h := &Handler{
		sessions:    d.Sessions,
		queue:       d.Queue,
		sp:          d.Storage,
		videos:      d.Videos,
		transcriber: d.Transcriber,
		submitter:   d.Submitter,
		poller:      d.Poller,
		log:         log.WithComponent("httpapi"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if d.CheckOrigin != nil {
		h.upgrader.CheckOrigin = originChecker(d.CheckOrigin)
	}
	return h
}

// Log returns the handler's logger for the router's error wrapper.
func (h *Handler) Log() *logger.Logger {
	return h.log
}
