package models

import (
	"encoding/json"
	"time"

	"captionstudio/internal/render"
)

// RenderSession is one user's render of a composition, tracked server side.
// Generation is bumped on every undo; state written by an older generation
// is discarded.
type RenderSession struct {
	ID            string          `json:"id"`
	CompositionID string          `json:"compositionId"`
	InputProps    json.RawMessage `json:"inputProps,omitempty"`
	State         render.Snapshot `json:"state"`
	Generation    int64           `json:"generation"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// RenderJob is the queue message asking the worker to render a session.
type RenderJob struct {
	SessionID  string `json:"session_id"`
	Generation int64  `json:"generation"`
}
