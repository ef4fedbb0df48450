package render

import (
	"context"
	"strings"

	"captionstudio/internal/contracts/renderer/v1"
	"captionstudio/internal/pkg/logger"
)

// MinProgress is the lowest progress ever reported, so a just-started
// render shows movement.
const MinProgress = 0.03

// Outcome is the classification of one progress query: OutcomeError,
// OutcomeDone or OutcomeProgress.
type Outcome interface {
	outcome()
}

// OutcomeError means the renderer hit a fatal error.
type OutcomeError struct {
	Message string
}

// OutcomeDone means the output is ready.
type OutcomeDone struct {
	URL       string
	SizeBytes int64
}

// OutcomeProgress carries the overall progress in [MinProgress, 1].
type OutcomeProgress struct {
	Value float64
}

func (OutcomeError) outcome()    {}
func (OutcomeDone) outcome()     {}
func (OutcomeProgress) outcome() {}

// Poller queries the renderer for the progress of a single render.
type Poller struct {
	cfg      Config
	provider Provider
	log      *logger.Logger
}

func NewPoller(cfg Config, provider Provider, log *logger.Logger) *Poller {
	return &Poller{cfg: cfg, provider: provider, log: log.WithComponent("render.poll")}
}

// Poll performs one progress query. A returned error means the query itself
// failed; renderer-side failures come back as OutcomeError.
func (p *Poller) Poll(ctx context.Context, h JobHandle) (Outcome, error) {
	res, err := p.provider.Progress(ctx, v1.ProgressRequest{
		RenderID:     h.RenderID,
		BucketName:   h.BucketName,
		FunctionName: p.cfg.FunctionName(),
		Region:       p.cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	return p.classify(h, res), nil
}

func (p *Poller) classify(h JobHandle, res v1.ProgressResponse) Outcome {
	log := p.log.WithRenderID(h.RenderID, h.BucketName)

	if res.FatalErrorEncountered {
		msg := "Unknown error occurred"
		if len(res.Errors) > 0 && res.Errors[0].Message != "" {
			msg = res.Errors[0].Message
		}
		log.Error("fatal error in render", "error", msg)
		return OutcomeError{Message: msg}
	}

	if len(res.Errors) > 0 {
		msgs := make([]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			msgs = append(msgs, e.Message)
		}
		log.Warn("non-fatal errors in render", "errors", strings.Join(msgs, "; "))
	}

	if res.Done {
		return OutcomeDone{URL: res.OutputFile, SizeBytes: res.OutputSizeInBytes}
	}

	progress := max(MinProgress, res.OverallProgress)
	log.Debug("render progress", "progress", progress)
	return OutcomeProgress{Value: progress}
}
