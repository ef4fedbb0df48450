package ports

import (
	"context"
	"io"
)

type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type PutObjectOutput struct {
	// localfs: the object key. gdrive: the Drive file id.
	ObjectKey string
	Size      int64
}

// StorageProvider stores uploaded videos and hands out URLs the renderer
// and the transcription service can fetch them from.
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	DeleteObject(ctx context.Context, objectKey string) error

	// PublicURL returns a URL serving the object without credentials.
	PublicURL(ctx context.Context, objectKey string) (string, error)

	// Ping checks the backend is usable.
	Ping(ctx context.Context) error
}
