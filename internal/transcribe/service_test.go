package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"captionstudio/internal/captions"
	"captionstudio/internal/pkg/errors"
	"captionstudio/internal/pkg/logger"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestLogger() *logger.Logger {
	var buf bytes.Buffer
	return logger.New(logger.Config{Level: "debug", Format: "json", Output: &buf})
}

// fakeAssembly serves a transcript that stays queued for a number of polls.
type fakeAssembly struct {
	mu        sync.Mutex
	pending   int
	final     Transcript
	submitted submitRequest
	gets      int
}

func (f *fakeAssembly) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != testKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid API key"}`))
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if err := json.NewDecoder(r.Body).Decode(&f.submitted); err != nil {
			t.Errorf("decode submit: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Transcript{ID: "tr_1", Status: StatusQueued})
	})
	mux.HandleFunc("GET /v2/transcript/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.gets++
		if f.gets <= f.pending {
			_ = json.NewEncoder(w).Encode(Transcript{ID: r.PathValue("id"), Status: StatusProcessing})
			return
		}
		_ = json.NewEncoder(w).Encode(f.final)
	})
	return mux
}

func newTestService(t *testing.T, fake *fakeAssembly) (*Service, *[]time.Duration) {
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	svc := NewService(NewClient(srv.URL, testKey), testKey, "https://studio.example.com", newTestLogger())
	var waits []time.Duration
	svc.Sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return svc, &waits
}

func TestTranscribeWordTimings(t *testing.T) {
	fake := &fakeAssembly{
		pending: 2,
		final: Transcript{
			ID:     "tr_1",
			Status: StatusCompleted,
			Text:   "I am fine today! Thanks",
			Words: []Word{
				{Text: "I", Start: 0, End: 200},
				{Text: "am", Start: 250, End: 450},
				{Text: "fine", Start: 500, End: 700},
				{Text: "today!", Start: 750, End: 1150},
				{Text: "Thanks", Start: 1400, End: 1800},
			},
		},
	}
	svc, waits := newTestService(t, fake)

	res, err := svc.Transcribe(context.Background(), "https://cdn.example.com/in.mp4")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	want := []captions.Segment{
		{Text: "I am fine today!", Start: 0, End: 1.15},
		{Text: "Thanks", Start: 1.4, End: 1.8},
	}
	if len(res.Captions) != len(want) {
		t.Fatalf("captions = %+v", res.Captions)
	}
	for i := range want {
		if res.Captions[i] != want[i] {
			t.Errorf("caption %d = %+v, want %+v", i, res.Captions[i], want[i])
		}
	}
	if res.Text != fake.final.Text || res.FullText != res.Text {
		t.Errorf("text = %q / %q", res.Text, res.FullText)
	}
	if fake.submitted.AudioURL != "https://cdn.example.com/in.mp4" || !fake.submitted.LanguageDetection {
		t.Errorf("submitted = %+v", fake.submitted)
	}
	if len(*waits) != 3 || (*waits)[0] != 2*time.Second {
		t.Errorf("waits = %v, want three 2s waits", *waits)
	}
}

func TestTranscribeFallbackCaption(t *testing.T) {
	duration := 12.5
	fake := &fakeAssembly{final: Transcript{ID: "tr_1", Status: StatusCompleted, Text: "hello world", AudioDuration: &duration}}
	svc, _ := newTestService(t, fake)

	res, err := svc.Transcribe(context.Background(), "https://cdn.example.com/in.mp4")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(res.Captions) != 1 || res.Captions[0] != (captions.Segment{Text: "hello world", Start: 0, End: 12.5}) {
		t.Errorf("captions = %+v", res.Captions)
	}
}

func TestTranscribeEmptyTranscript(t *testing.T) {
	fake := &fakeAssembly{final: Transcript{ID: "tr_1", Status: StatusCompleted}}
	svc, _ := newTestService(t, fake)

	res, err := svc.Transcribe(context.Background(), "https://cdn.example.com/silence.mp4")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	b, _ := json.Marshal(res)
	if !strings.Contains(string(b), `"captions":[]`) {
		t.Errorf("expected empty caption list, got %s", b)
	}
}

func TestTranscribeProviderError(t *testing.T) {
	fake := &fakeAssembly{final: Transcript{ID: "tr_1", Status: StatusError, Error: "File does not appear to contain audio."}}
	svc, _ := newTestService(t, fake)

	_, err := svc.Transcribe(context.Background(), "https://cdn.example.com/in.mp4")
	if errors.GetCode(err) != errors.CodeTranscription {
		t.Fatalf("code = %s, err = %v", errors.GetCode(err), err)
	}
	if errors.GetHTTPStatus(err) != 502 {
		t.Errorf("status = %d", errors.GetHTTPStatus(err))
	}
	if got := errors.GetFields(err)["details"]; got != "File does not appear to contain audio." {
		t.Errorf("details = %v", got)
	}
	if !strings.HasPrefix(errors.PublicMessage(err), "Transcription failed") {
		t.Errorf("message = %q", errors.PublicMessage(err))
	}
}

func TestTranscribeMissingKey(t *testing.T) {
	svc := NewService(NewClient("http://unused.invalid", ""), "", "https://studio.example.com", newTestLogger())
	_, err := svc.Transcribe(context.Background(), "https://cdn.example.com/in.mp4")
	if !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTranscribeUnreachableProvider(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	svc := NewService(NewClient(base, testKey), testKey, "https://studio.example.com", newTestLogger())
	_, err := svc.Transcribe(context.Background(), "https://cdn.example.com/in.mp4")
	if errors.GetCode(err) != errors.CodeTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !strings.Contains(errors.PublicMessage(err), "Unable to connect to AssemblyAI") {
		t.Errorf("missing guidance: %q", errors.PublicMessage(err))
	}
	if errors.GetHTTPStatus(err) != http.StatusServiceUnavailable {
		t.Errorf("status = %d", errors.GetHTTPStatus(err))
	}
}

func TestTranscribeSubmitTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	svc := NewService(NewClient(srv.URL, testKey), testKey, "https://studio.example.com", newTestLogger())
	svc.SubmitTimeout = 50 * time.Millisecond

	_, err := svc.Transcribe(context.Background(), "https://cdn.example.com/in.mp4")
	if errors.GetCode(err) != errors.CodeTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestAudioURL(t *testing.T) {
	svc := NewService(nil, testKey, "https://studio.example.com/", newTestLogger())

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"public url unchanged", "https://cdn.example.com/a.mp4", "https://cdn.example.com/a.mp4", false},
		{"file url rewritten", "file:///tmp/remotion-uploads/a b.mp4", "https://studio.example.com/api/video?path=%2Ftmp%2Fremotion-uploads%2Fa+b.mp4", false},
		{"relative video url", "/api/video?path=x.mp4", "https://studio.example.com/api/video?path=x.mp4", false},
		{"localhost rejected", "http://localhost:3000/a.mp4", "", true},
		{"loopback rejected", "http://127.0.0.1/a.mp4", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.AudioURL(tt.in)
			if tt.wantErr {
				if !errors.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AudioURL: %v", err)
			}
			if got != tt.want {
				t.Errorf("AudioURL = %q, want %q", got, tt.want)
			}
		})
	}

	local := NewService(nil, testKey, "http://localhost:8080", newTestLogger())
	if _, err := local.AudioURL("file:///tmp/a.mp4"); !errors.IsValidation(err) {
		t.Errorf("expected rewritten localhost url to be rejected, got %v", err)
	}
}
