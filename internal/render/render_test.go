package render

import (
	"bytes"
	"context"
	"sync"
	"time"

	"captionstudio/internal/contracts/renderer/v1"
	"captionstudio/internal/pkg/logger"
)

func newTestLogger() *logger.Logger {
	var buf bytes.Buffer
	return logger.New(logger.Config{Level: "debug", Format: "json", Output: &buf})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AccessKeyID = "AKIATEST"
	cfg.SecretAccessKey = "secret"
	cfg.GatewayURL = "http://render.invalid"
	return cfg
}

// fakeProvider replays scripted start and progress results.
type fakeProvider struct {
	mu          sync.Mutex
	startErrs   []error
	start       v1.StartResponse
	progress    []v1.ProgressResponse
	progressErr error
	starts      []v1.StartRequest
	polls       int
}

func (f *fakeProvider) Start(ctx context.Context, req v1.StartRequest) (v1.StartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, req)
	if len(f.startErrs) > 0 {
		err := f.startErrs[0]
		f.startErrs = f.startErrs[1:]
		return v1.StartResponse{}, err
	}
	return f.start, nil
}

func (f *fakeProvider) Progress(ctx context.Context, req v1.ProgressRequest) (v1.ProgressResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.progressErr != nil {
		return v1.ProgressResponse{}, f.progressErr
	}
	if len(f.progress) == 0 {
		return v1.ProgressResponse{OverallProgress: 0.5}, nil
	}
	res := f.progress[0]
	if len(f.progress) > 1 {
		f.progress = f.progress[1:]
	}
	return res, nil
}

func (f *fakeProvider) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

// recordSleep records waits without blocking.
type recordSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}
