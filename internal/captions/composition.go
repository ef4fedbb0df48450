package captions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// CompositionID is the render composition that burns captions into a video.
const CompositionID = "CaptionedVideo"

const (
	VideoFPS    = 30
	VideoWidth  = 1280
	VideoHeight = 720

	// trailing time kept after the last card
	tailSeconds = 2.0
	// used when there are no captions at all
	defaultSeconds = 60.0
)

// Style selects the caption overlay renderer.
type Style string

const (
	StyleBottomCentered Style = "bottom-centered"
	StyleTopBar         Style = "top-bar"
	StyleKaraoke        Style = "karaoke"
)

// Valid reports whether s names a known overlay.
func (s Style) Valid() bool {
	switch s {
	case StyleBottomCentered, StyleTopBar, StyleKaraoke:
		return true
	}
	return false
}

// VideoProps are the input properties of the CaptionedVideo composition.
type VideoProps struct {
	VideoURL    string    `json:"videoUrl"`
	Captions    []Segment `json:"captions"`
	Style       Style     `json:"style"`
	VideoWidth  int       `json:"videoWidth,omitempty"`
	VideoHeight int       `json:"videoHeight,omitempty"`

	// Filled by Normalize from the captions.
	DurationInFrames int `json:"durationInFrames,omitempty"`
	FPS              int `json:"fps,omitempty"`
}

// Normalize fills defaults and composition metadata and validates the props.
func (p *VideoProps) Normalize() error {
	if p.VideoURL == "" {
		return fmt.Errorf("videoUrl is required")
	}
	if p.Style == "" {
		p.Style = StyleBottomCentered
	}
	if !p.Style.Valid() {
		return fmt.Errorf("unknown caption style %q", p.Style)
	}
	if p.VideoWidth <= 0 {
		p.VideoWidth = VideoWidth
	}
	if p.VideoHeight <= 0 {
		p.VideoHeight = VideoHeight
	}
	if p.Captions == nil {
		p.Captions = []Segment{}
	}
	for i, c := range p.Captions {
		if c.End < c.Start {
			return fmt.Errorf("caption %d ends before it starts", i)
		}
	}
	p.FPS = VideoFPS
	p.DurationInFrames = DurationInFrames(p.Captions, p.FPS)
	return nil
}

// DurationSeconds is the composition length: the last card's end plus a
// two second tail, or sixty seconds when there are no cards.
func DurationSeconds(segments []Segment) float64 {
	if len(segments) == 0 {
		return defaultSeconds
	}
	return segments[len(segments)-1].End + tailSeconds
}

// DurationInFrames converts DurationSeconds to whole frames at fps.
func DurationInFrames(segments []Segment, fps int) int {
	if fps <= 0 {
		fps = VideoFPS
	}
	return int(math.Ceil(DurationSeconds(segments) * float64(fps)))
}

// PrepareProps validates raw input props for compositionID. Props of the
// captioned video are normalized; other compositions only need a JSON
// object.
func PrepareProps(compositionID string, raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("inputProps must be a JSON object")
	}
	if compositionID != CompositionID {
		return trimmed, nil
	}

	var p VideoProps
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, fmt.Errorf("invalid inputProps: %w", err)
	}
	if err := p.Normalize(); err != nil {
		return nil, err
	}
	return json.Marshal(p)
}
