// Package captions turns transcribed, word-timed speech into caption cards.
package captions

import (
	"strings"
	"time"
)

// TimedWord is one transcribed word with millisecond boundaries. Words are
// expected in start order and non-overlapping; neither is validated.
type TimedWord struct {
	Text    string `json:"text"`
	StartMs int64  `json:"start"`
	EndMs   int64  `json:"end"`
}

// Segment is a caption card displayed from Start to End (seconds).
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

const (
	DefaultMinWords = 4
	DefaultMaxWords = 7
	DefaultMaxPause = 1200 * time.Millisecond
)

// Segmenter groups words into cards of MinWords..MaxWords. A card closes
// early on a pause longer than MaxPause or on sentence-ending punctuation,
// but only once it holds MinWords.
type Segmenter struct {
	MinWords int
	MaxWords int
	MaxPause time.Duration
}

// DefaultSegmenter returns the 4 to 7 word, 1.2s pause segmenter.
func DefaultSegmenter() Segmenter {
	return Segmenter{
		MinWords: DefaultMinWords,
		MaxWords: DefaultMaxWords,
		MaxPause: DefaultMaxPause,
	}
}

// Segment groups words into caption segments. Boundaries come straight from
// word boundaries; empty input yields nil.
func (s Segmenter) Segment(words []TimedWord) []Segment {
	if len(words) == 0 {
		return nil
	}

	maxPause := msToSeconds(s.maxPause().Milliseconds())
	out := make([]Segment, 0, len(words)/s.maxWords()+1)

	var (
		parts []string
		start int64
	)
	for i, w := range words {
		if len(parts) == 0 {
			start = w.StartMs
		}
		parts = append(parts, w.Text)

		last := i == len(words)-1
		var pause float64
		if !last {
			pause = msToSeconds(words[i+1].StartMs - w.EndMs)
		}

		n := len(parts)
		closeNow := n >= s.maxWords() ||
			(n >= s.minWords() && pause > maxPause) ||
			(n >= s.minWords() && endsSentence(w.Text)) ||
			last
		if !closeNow {
			continue
		}

		out = append(out, Segment{
			Text:  strings.TrimSpace(strings.Join(parts, " ")),
			Start: msToSeconds(start),
			End:   msToSeconds(w.EndMs),
		})
		parts = parts[:0]
	}
	return out
}

// SegmentWords groups words with the default segmenter.
func SegmentWords(words []TimedWord) []Segment {
	return DefaultSegmenter().Segment(words)
}

// Fallback covers a transcript without word timings with one card spanning
// the known duration, or [0,0] when the duration is unknown. Blank text
// yields nil.
func Fallback(text string, duration time.Duration) []Segment {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	end := 0.0
	if duration > 0 {
		end = duration.Seconds()
	}
	return []Segment{{Text: text, Start: 0, End: end}}
}

func (s Segmenter) minWords() int {
	if s.MinWords <= 0 {
		return DefaultMinWords
	}
	return s.MinWords
}

func (s Segmenter) maxWords() int {
	if s.MaxWords <= 0 {
		return DefaultMaxWords
	}
	return s.MaxWords
}

func (s Segmenter) maxPause() time.Duration {
	if s.MaxPause <= 0 {
		return DefaultMaxPause
	}
	return s.MaxPause
}

func endsSentence(text string) bool {
	return strings.HasSuffix(text, ".") ||
		strings.HasSuffix(text, "!") ||
		strings.HasSuffix(text, "?")
}

func msToSeconds(ms int64) float64 {
	return float64(ms) / 1000
}
