package localfs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"captionstudio/internal/ports"
)

// LocalFS implements ports.StorageProvider on the local filesystem, under a
// root directory. Objects are published through the api's /api/video route.
type LocalFS struct {
	root          string
	publicBaseURL string
}

func New(root, publicBaseURL string) *LocalFS {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &LocalFS{root: filepath.Clean(root), publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (l *LocalFS) Provider() string { return "localfs" }

// Root is the directory objects are stored under.
func (l *LocalFS) Root() string { return l.root }

func (l *LocalFS) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	if in.ObjectKey == "" {
		return ports.PutObjectOutput{}, fmt.Errorf("object_key is required")
	}

	dst, err := l.path(in.ObjectKey)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return ports.PutObjectOutput{}, err
	}

	outF, err := os.Create(dst)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}
	defer outF.Close()

	n, err := io.Copy(outF, in.Reader)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}

	return ports.PutObjectOutput{ObjectKey: in.ObjectKey, Size: n}, nil
}

func (l *LocalFS) DeleteObject(ctx context.Context, objectKey string) error {
	p, err := l.path(objectKey)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

// PublicURL points at the api's byte server for the object's absolute path.
func (l *LocalFS) PublicURL(ctx context.Context, objectKey string) (string, error) {
	p, err := l.path(objectKey)
	if err != nil {
		return "", err
	}
	return l.publicBaseURL + "/api/video?path=" + url.QueryEscape(p), nil
}

func (l *LocalFS) Ping(ctx context.Context) error {
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(l.root, ".ping-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// Resolve maps an absolute path from a video URL to a file inside the root.
// It fails with ErrOutsideRoot for anything that escapes it.
func (l *LocalFS) Resolve(p string) (string, error) {
	if p == "" {
		return "", ErrOutsideRoot
	}
	clean := filepath.Clean(p)
	if !filepath.IsAbs(clean) {
		clean = filepath.Join(l.root, clean)
	}
	if !within(l.root, clean) {
		return "", ErrOutsideRoot
	}
	return clean, nil
}

// ErrOutsideRoot is returned for paths that resolve outside the root.
var ErrOutsideRoot = fmt.Errorf("path is outside the upload directory")

func (l *LocalFS) path(objectKey string) (string, error) {
	p := filepath.Join(l.root, filepath.FromSlash(objectKey))
	if !within(l.root, p) || p == l.root {
		return "", ErrOutsideRoot
	}
	return p, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ContentType maps the video extensions the studio serves.
func ContentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}
