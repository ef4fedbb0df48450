package render

import (
	"context"
	"encoding/json"
	"time"

	"captionstudio/internal/contracts/renderer/v1"
	"captionstudio/internal/pkg/errors"
	"captionstudio/internal/pkg/logger"
	"captionstudio/internal/retry"
)

const (
	codec            = "h264"
	downloadFileName = "video.mp4"
)

const concurrencyHelp = "renderer concurrency limit reached. This usually happens when too many videos are being rendered simultaneously.\n\n" +
	"Solutions:\n" +
	"1. Wait a few moments and try again\n" +
	"2. Request a concurrency limit increase: npx remotion lambda quotas increase\n" +
	"3. Check your current limits: npx remotion lambda quotas\n" +
	"4. See troubleshooting guide: https://www.remotion.dev/docs/lambda/troubleshooting/rate-limit\n\n" +
	"Original error"

// Submitter starts renders with the configured resources, retrying on
// provider throttling.
type Submitter struct {
	cfg      Config
	provider Provider
	policy   retry.Policy
	log      *logger.Logger
}

func NewSubmitter(cfg Config, provider Provider, log *logger.Logger) *Submitter {
	s := &Submitter{
		cfg:      cfg,
		provider: provider,
		policy:   retry.DefaultPolicy(),
		log:      log.WithComponent("render.submit"),
	}
	s.policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		s.log.Warn("retryable render error, backing off",
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
			"retries_left", s.policy.MaxRetries-attempt,
			"error", err.Error(),
		)
	}
	return s
}

// WithSleep replaces the wait used between retries.
func (s *Submitter) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Submitter {
	s.policy.Sleep = sleep
	return s
}

// Submit starts rendering compositionID with inputProps and returns the
// render handle. Credentials are checked before the provider is called.
func (s *Submitter) Submit(ctx context.Context, compositionID string, inputProps any) (JobHandle, error) {
	if s.cfg.AccessKeyID == "" {
		return JobHandle{}, errors.Configuration("REMOTION_AWS_ACCESS_KEY_ID",
			"Set up Remotion Lambda to render videos. REMOTION_AWS_ACCESS_KEY_ID is missing, add it to your .env file.")
	}
	if s.cfg.SecretAccessKey == "" {
		return JobHandle{}, errors.Configuration("REMOTION_AWS_SECRET_ACCESS_KEY",
			"The environment variable REMOTION_AWS_SECRET_ACCESS_KEY is missing. Add it to your .env file.")
	}
	if compositionID == "" {
		return JobHandle{}, errors.ValidationField("id", "composition id is required")
	}

	props, err := json.Marshal(inputProps)
	if err != nil {
		return JobHandle{}, errors.Wrap(err, "render.submit", "encode input props")
	}

	req := v1.StartRequest{
		FunctionName:          s.cfg.FunctionName(),
		Region:                s.cfg.Region,
		ServeURL:              s.cfg.SiteName,
		Composition:           compositionID,
		InputProps:            props,
		Codec:                 codec,
		Concurrency:           s.cfg.MaxConcurrency,
		TimeoutInMilliseconds: int(s.cfg.RenderTimeout.Milliseconds()),
		DownloadBehavior:      v1.DownloadBehavior{Type: "download", FileName: downloadFileName},
	}

	res, err := retry.Do(ctx, s.policy, func(ctx context.Context) (v1.StartResponse, error) {
		return s.provider.Start(ctx, req)
	})
	if err != nil {
		if retry.IsRetryable(err) {
			return JobHandle{}, errors.Transient(err, "render.submit", concurrencyHelp)
		}
		return JobHandle{}, err
	}

	h := JobHandle{RenderID: res.RenderID, BucketName: res.BucketName}
	s.log.WithRenderID(h.RenderID, h.BucketName).Info("render started",
		"composition", compositionID,
		"function", req.FunctionName,
	)
	return h, nil
}
