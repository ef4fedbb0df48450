package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"captionstudio/internal/contracts/renderer/v1"
	"captionstudio/internal/pkg/errors"
)

// HTTPProvider talks to the render gateway over HTTP using the v1 contract.
type HTTPProvider struct {
	baseURL string
	keyID   string
	secret  string
	client  *http.Client
}

func NewHTTPProvider(cfg Config) *HTTPProvider {
	return &HTTPProvider{
		baseURL: cfg.GatewayURL,
		keyID:   cfg.AccessKeyID,
		secret:  cfg.SecretAccessKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// WithHTTPClient replaces the underlying client.
func (p *HTTPProvider) WithHTTPClient(c *http.Client) *HTTPProvider {
	p.client = c
	return p
}

func (p *HTTPProvider) Start(ctx context.Context, req v1.StartRequest) (v1.StartResponse, error) {
	var out v1.StartResponse
	err := p.post(ctx, v1.PathRender, req, &out)
	return out, err
}

func (p *HTTPProvider) Progress(ctx context.Context, req v1.ProgressRequest) (v1.ProgressResponse, error) {
	var out v1.ProgressResponse
	err := p.post(ctx, v1.PathProgress, req, &out)
	return out, err
}

func (p *HTTPProvider) post(ctx context.Context, path string, in, out any) error {
	if p.baseURL == "" {
		return errors.Configuration("RENDER_GATEWAY_URL", "RENDER_GATEWAY_URL is not set")
	}

	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(p.keyID, p.secret)

	res, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Transport(err, "render"+path, "render gateway unreachable")
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return errors.Transport(err, "render"+path, "reading render gateway response")
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var e v1.ErrorResponse
		_ = json.Unmarshal(raw, &e)
		// the status text keeps 429s recognizable to the retrier
		return fmt.Errorf("render gateway %d %s: %s", res.StatusCode, http.StatusText(res.StatusCode), e.Message)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode render gateway response: %w", err)
	}
	return nil
}
