// Package transcribe turns a publicly reachable video URL into word-timed
// captions using an AssemblyAI-compatible transcription API.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"captionstudio/internal/pkg/errors"
)

const DefaultBaseURL = "https://api.assemblyai.com"

// Status values reported for a transcript.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Word is a transcribed word with millisecond timings.
type Word struct {
	Text       string  `json:"text"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Transcript is the provider's view of a transcription job. AudioDuration is
// in seconds.
type Transcript struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	Text          string   `json:"text"`
	Words         []Word   `json:"words"`
	AudioDuration *float64 `json:"audio_duration"`
	Error         string   `json:"error"`
}

// Pending reports whether the provider is still working on t.
func (t Transcript) Pending() bool {
	return t.Status == StatusQueued || t.Status == StatusProcessing
}

type submitRequest struct {
	AudioURL          string `json:"audio_url"`
	LanguageDetection bool   `json:"language_detection"`
}

// Provider is the subset of the transcription API the Service needs.
type Provider interface {
	Submit(ctx context.Context, audioURL string) (Transcript, error)
	Get(ctx context.Context, id string) (Transcript, error)
}

// Client is an HTTP client for the AssemblyAI v2 transcript API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: time.Minute},
	}
}

// Submit starts transcribing audioURL with language detection.
func (c *Client) Submit(ctx context.Context, audioURL string) (Transcript, error) {
	body, err := json.Marshal(submitRequest{AudioURL: audioURL, LanguageDetection: true})
	if err != nil {
		return Transcript{}, err
	}
	return c.do(ctx, http.MethodPost, "/v2/transcript", body)
}

// Get fetches the current state of a transcript.
func (c *Client) Get(ctx context.Context, id string) (Transcript, error) {
	return c.do(ctx, http.MethodGet, "/v2/transcript/"+id, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (Transcript, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return Transcript{}, err
	}
	req.Header.Set("Authorization", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return Transcript{}, errors.Transport(err, "transcribe"+path, "transcription service request failed")
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 16<<20))
	if err != nil {
		return Transcript{}, errors.Transport(err, "transcribe"+path, "reading transcription response")
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return Transcript{}, fmt.Errorf("transcription api %d: %s", res.StatusCode, e.Error)
	}

	var t Transcript
	if err := json.Unmarshal(raw, &t); err != nil {
		return Transcript{}, fmt.Errorf("decode transcript: %w", err)
	}
	return t, nil
}
