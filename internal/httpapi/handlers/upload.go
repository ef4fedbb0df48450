package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"captionstudio/internal/httpkit"
	"captionstudio/internal/pkg/errors"
	"captionstudio/internal/ports"
	"captionstudio/internal/util"
)

const (
	maxUploadMemory = 64 << 20
	uploadPrefix    = "uploads"
	mp4ContentType  = "video/mp4"
)

// Upload stores a multipart "file" field and returns a URL the renderer and
// the transcription service can fetch it from.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return errors.Validation("invalid multipart form")
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return errors.ValidationField("file", "No file provided")
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != mp4ContentType {
		return errors.ValidationField("file", "Only MP4 files are supported").
			WithField("content_type", contentType)
	}

	objectKey := uploadKey(header.Filename, time.Now())

	out, err := h.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: contentType,
		Reader:      file,
		Size:        header.Size,
	})
	if err != nil {
		return errors.Wrap(err, "upload.put", "Failed to upload file")
	}

	url, err := h.sp.PublicURL(ctx, out.ObjectKey)
	if err != nil {
		// Nothing references the object without a URL.
		if delErr := h.sp.DeleteObject(ctx, out.ObjectKey); delErr != nil {
			h.log.FromContext(ctx).Error("failed to remove unshared upload",
				"object_key", out.ObjectKey,
				"error", delErr.Error(),
			)
		}
		return errors.Wrap(err, "upload.public_url", "Failed to upload file")
	}

	h.log.FromContext(ctx).Info("video uploaded",
		"provider", h.sp.Provider(),
		"object_key", out.ObjectKey,
		"size_bytes", out.Size,
	)

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"url":      url,
		"fileName": header.Filename,
	})
	return nil
}

// uploadKey names an upload uploads/<unix-ms>-<random>.<ext>, keeping the
// client's extension and defaulting to .mp4.
func uploadKey(filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".mp4"
	}
	suffix := strings.TrimPrefix(util.NewID("u"), "u_")[:12]
	return fmt.Sprintf("%s/%d-%s%s", uploadPrefix, now.UnixMilli(), suffix, ext)
}
