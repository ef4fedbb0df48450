package handlers

import (
	"io/fs"
	"net/http"
	"os"

	"captionstudio/internal/adapters/storage/localfs"
	"captionstudio/internal/pkg/errors"
)

// Video serves an uploaded file by its absolute path. Only files under the
// upload directory are served; range requests are honored.
func (h *Handler) Video(w http.ResponseWriter, r *http.Request) error {
	p := r.URL.Query().Get("path")
	if p == "" {
		return errors.ValidationField("path", "Path parameter required")
	}

	if h.videos == nil {
		return errors.New(errors.CodeForbidden, "Invalid path")
	}
	resolved, err := h.videos.Resolve(p)
	if err != nil {
		return errors.New(errors.CodeForbidden, "Invalid path").WithField("path", p)
	}

	f, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.New(errors.CodeNotFound, "File not found").WithField("path", p)
		}
		return errors.Wrap(err, "video.open", "Failed to serve video")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "video.stat", "Failed to serve video")
	}
	if info.IsDir() {
		return errors.New(errors.CodeNotFound, "File not found").WithField("path", p)
	}

	w.Header().Set("Content-Type", localfs.ContentType(resolved))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return nil
}
