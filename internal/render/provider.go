package render

import (
	"context"

	"captionstudio/internal/contracts/renderer/v1"
)

// Provider is the serverless renderer as seen by the submitter and poller.
type Provider interface {
	Start(ctx context.Context, req v1.StartRequest) (v1.StartResponse, error)
	Progress(ctx context.Context, req v1.ProgressRequest) (v1.ProgressResponse, error)
}

// JobHandle identifies a submitted render. It is created once per
// submission and discarded on undo.
type JobHandle struct {
	RenderID   string `json:"renderId"`
	BucketName string `json:"bucketName"`
}
