package gdrive

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"captionstudio/internal/ports"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type fakeDrive struct {
	mu          sync.Mutex
	uploads     int
	permissions []drive.Permission
}

func (f *fakeDrive) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/upload/drive/v3/files"):
			f.uploads++
			_, _ = io.Copy(io.Discard, r.Body)
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "file-123", "size": "42"})
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/files/file-123/permissions"):
			var p drive.Permission
			if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
				t.Errorf("decode permission: %v", err)
			}
			f.permissions = append(f.permissions, p)
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "perm-1"})
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/about"):
			_ = json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{"displayName": "studio"}})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestClient(t *testing.T, fake *fakeDrive) *Client {
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	svc, err := drive.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	if err != nil {
		t.Fatalf("drive.NewService: %v", err)
	}
	return NewClient(svc, "folder-1")
}

func TestPutObjectAndShare(t *testing.T) {
	fake := &fakeDrive{}
	c := newTestClient(t, fake)
	ctx := context.Background()

	out, err := c.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   "uploads/clip.mp4",
		ContentType: "video/mp4",
		Reader:      strings.NewReader("video-bytes"),
		Size:        11,
	})
	if err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	if out.ObjectKey != "file-123" || out.Size != 42 {
		t.Errorf("PutObject = %+v", out)
	}

	u, err := c.PublicURL(ctx, out.ObjectKey)
	if err != nil {
		t.Fatalf("PublicURL: %v", err)
	}
	if u != "https://drive.google.com/uc?export=download&id=file-123" {
		t.Errorf("PublicURL = %s", u)
	}
	if len(fake.permissions) != 1 || fake.permissions[0].Type != "anyone" || fake.permissions[0].Role != "reader" {
		t.Errorf("permissions = %+v", fake.permissions)
	}
}

func TestPing(t *testing.T) {
	c := newTestClient(t, &fakeDrive{})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
