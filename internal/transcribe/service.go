package transcribe

import (
	"context"
	stderrors "errors"
	"net/url"
	"strings"
	"time"

	"captionstudio/internal/captions"
	"captionstudio/internal/pkg/errors"
	"captionstudio/internal/pkg/logger"
	"captionstudio/internal/retry"
)

const (
	DefaultPollInterval  = 2 * time.Second
	DefaultSubmitTimeout = 30 * time.Second
)

const unreachableHelp = "Unable to connect to AssemblyAI transcription service.\n\n" +
	"Possible causes:\n" +
	"1. Firewall or network blocking outbound HTTPS connections to AssemblyAI servers\n" +
	"2. Corporate network restrictions or proxy settings required\n" +
	"3. Internet connectivity issues\n" +
	"4. AssemblyAI service temporarily unavailable\n\n" +
	"Solutions:\n" +
	"- Check your firewall/antivirus settings and allow connections to api.assemblyai.com\n" +
	"- If behind a corporate firewall, contact IT to whitelist AssemblyAI domains\n" +
	"- Verify internet connectivity: try accessing https://api.assemblyai.com in your browser\n" +
	"- Check if a proxy is required and configure it in your environment\n" +
	"- Ensure the video URL is publicly accessible (not localhost)"

// Result is what the transcribe endpoint returns. FullText mirrors Text for
// older clients.
type Result struct {
	Text     string             `json:"text"`
	FullText string             `json:"fullText"`
	Captions []captions.Segment `json:"captions"`
}

// Service transcribes videos and segments the words into captions.
type Service struct {
	provider      Provider
	apiKey        string
	publicBaseURL string
	segmenter     captions.Segmenter
	log           *logger.Logger

	PollInterval  time.Duration
	SubmitTimeout time.Duration
	Sleep         func(ctx context.Context, d time.Duration) error
}

func NewService(provider Provider, apiKey, publicBaseURL string, log *logger.Logger) *Service {
	return &Service{
		provider:      provider,
		apiKey:        apiKey,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		segmenter:     captions.DefaultSegmenter(),
		log:           log.WithComponent("transcribe"),
		PollInterval:  DefaultPollInterval,
		SubmitTimeout: DefaultSubmitTimeout,
		Sleep:         retry.Sleep,
	}
}

// Transcribe submits videoURL, waits for the transcript and returns its
// captions.
func (s *Service) Transcribe(ctx context.Context, videoURL string) (Result, error) {
	if s.apiKey == "" {
		return Result{}, errors.Configuration("ASSEMBLYAI_API_KEY",
			"AssemblyAI API key not configured. Please set ASSEMBLYAI_API_KEY in your .env.local file.")
	}
	if len(s.apiKey) < 20 {
		s.log.Warn("AssemblyAI API key appears to be invalid (too short)")
	}
	if strings.TrimSpace(videoURL) == "" {
		return Result{}, errors.ValidationField("videoUrl", "videoUrl is required")
	}

	audioURL, err := s.AudioURL(videoURL)
	if err != nil {
		return Result{}, err
	}
	log := s.log.WithFields(map[string]any{"audio_url": audioURL})
	log.Info("transcribing video")

	t, err := s.submit(ctx, audioURL)
	if err != nil {
		log.Error("transcription submit failed", "error", err.Error())
		return Result{}, err
	}

	for t.Pending() {
		if err := s.Sleep(ctx, s.PollInterval); err != nil {
			return Result{}, err
		}
		if t, err = s.provider.Get(ctx, t.ID); err != nil {
			return Result{}, err
		}
	}

	if t.Status == StatusError {
		log.Error("transcription failed", "transcript_id", t.ID, "details", t.Error)
		return Result{}, errors.TranscriptionFailed("Transcription failed: "+t.Error).
			WithField("details", t.Error)
	}

	res := Result{Text: t.Text, FullText: t.Text, Captions: s.captionsFor(t)}
	log.Info("transcription completed", "transcript_id", t.ID, "captions", len(res.Captions))
	return res, nil
}

// AudioURL makes videoURL reachable by the provider: file:// paths and
// relative /api/video links are rewritten against the public base URL, and
// loopback hosts are rejected.
func (s *Service) AudioURL(videoURL string) (string, error) {
	audioURL := videoURL
	switch {
	case strings.HasPrefix(videoURL, "file://"):
		path := strings.TrimPrefix(videoURL, "file://")
		audioURL = s.publicBaseURL + "/api/video?path=" + url.QueryEscape(path)
	case strings.HasPrefix(videoURL, "/api/video"):
		audioURL = s.publicBaseURL + videoURL
	}

	if strings.Contains(audioURL, "localhost") || strings.Contains(audioURL, "127.0.0.1") {
		return "", errors.ValidationField("videoUrl",
			"Localhost URLs are not accessible to transcription services. "+
				"Configure Google Drive storage (STORAGE_PROVIDER=gdrive) or set PUBLIC_BASE_URL "+
				"to a publicly accessible address for transcription to work.")
	}
	return audioURL, nil
}

func (s *Service) submit(ctx context.Context, audioURL string) (Transcript, error) {
	sctx, cancel := context.WithTimeout(ctx, s.SubmitTimeout)
	defer cancel()

	t, err := s.provider.Submit(sctx, audioURL)
	if err == nil {
		return t, nil
	}
	if ctx.Err() != nil {
		return Transcript{}, ctx.Err()
	}
	if stderrors.Is(err, context.DeadlineExceeded) || errors.IsCode(err, errors.CodeTransport) {
		return Transcript{}, errors.Transport(err, "transcribe.submit", unreachableHelp)
	}
	return Transcript{}, err
}

func (s *Service) captionsFor(t Transcript) []captions.Segment {
	var segs []captions.Segment
	if len(t.Words) > 0 {
		words := make([]captions.TimedWord, len(t.Words))
		for i, w := range t.Words {
			words[i] = captions.TimedWord{Text: w.Text, StartMs: w.Start, EndMs: w.End}
		}
		segs = s.segmenter.Segment(words)
	} else {
		var d time.Duration
		if t.AudioDuration != nil {
			d = time.Duration(*t.AudioDuration * float64(time.Second))
		}
		segs = captions.Fallback(t.Text, d)
	}
	if segs == nil {
		segs = []captions.Segment{}
	}
	return segs
}
