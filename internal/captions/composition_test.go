package captions

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestDurationInFrames(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		fps      int
		want     int
	}{
		{"no captions", nil, 30, 1800},
		{"last caption plus tail", []Segment{{Text: "a", Start: 0, End: 1}, {Text: "b", Start: 1, End: 8.5}}, 30, 315},
		{"partial frame rounds up", []Segment{{Text: "a", Start: 0, End: 0.01}}, 30, 61},
		{"zero fps uses default", []Segment{{Text: "a", Start: 0, End: 1}}, 0, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DurationInFrames(tt.segments, tt.fps); got != tt.want {
				t.Errorf("DurationInFrames = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVideoPropsNormalize(t *testing.T) {
	p := VideoProps{VideoURL: "https://cdn.example.com/v.mp4"}
	if err := p.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.Style != StyleBottomCentered || p.VideoWidth != VideoWidth || p.VideoHeight != VideoHeight {
		t.Errorf("defaults not applied: %+v", p)
	}
	if p.Captions == nil {
		t.Error("expected empty caption slice, not nil")
	}
	if p.FPS != 30 || p.DurationInFrames != 1800 {
		t.Errorf("metadata = %d frames at %d fps, want 1800 at 30", p.DurationInFrames, p.FPS)
	}

	bad := []VideoProps{
		{},
		{VideoURL: "x", Style: "comic-sans"},
		{VideoURL: "x", Captions: []Segment{{Text: "a", Start: 2, End: 1}}},
	}
	for i, p := range bad {
		if err := p.Normalize(); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestWriteVTT(t *testing.T) {
	var buf bytes.Buffer
	err := WriteVTT(&buf, []Segment{
		{Text: "I am fine today !", Start: 0, End: 1.15},
		{Text: "see you in an hour", Start: 3599.5, End: 3661.25},
	})
	if err != nil {
		t.Fatalf("WriteVTT: %v", err)
	}

	want := "WEBVTT\n" +
		"\n1\n00:00:00.000 --> 00:00:01.150\nI am fine today !\n" +
		"\n2\n00:59:59.500 --> 01:01:01.250\nsee you in an hour\n"
	if buf.String() != want {
		t.Errorf("WriteVTT output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteVTTKeepsTextInsideItsCue(t *testing.T) {
	var buf bytes.Buffer
	err := WriteVTT(&buf, []Segment{
		{Text: "hello\n\n99\n00:00:00.000 --> 09:00:00.000\ninjected", Start: 0, End: 1},
		{Text: "line one\r\nline two ---> end", Start: 1, End: 2},
	})
	if err != nil {
		t.Fatalf("WriteVTT: %v", err)
	}

	want := "WEBVTT\n" +
		"\n1\n00:00:00.000 --> 00:00:01.000\nhello 99 00:00:00.000 -> 09:00:00.000 injected\n" +
		"\n2\n00:00:01.000 --> 00:00:02.000\nline one line two -> end\n"
	if buf.String() != want {
		t.Errorf("WriteVTT output:\n%s\nwant:\n%s", buf.String(), want)
	}
	if n := strings.Count(buf.String(), "-->"); n != 2 {
		t.Errorf("expected 2 timing lines, found %d", n)
	}
}

func TestPrepareProps(t *testing.T) {
	raw := json.RawMessage(`{"videoUrl":"https://cdn.example.com/v.mp4","captions":[{"text":"hi","start":0,"end":1}],"style":"karaoke"}`)
	out, err := PrepareProps(CompositionID, raw)
	if err != nil {
		t.Fatalf("PrepareProps: %v", err)
	}
	var p VideoProps
	if err := json.Unmarshal(out, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Style != StyleKaraoke || p.DurationInFrames != 90 || p.VideoWidth != 1280 {
		t.Errorf("props = %+v", p)
	}

	if _, err := PrepareProps(CompositionID, json.RawMessage(`{"videoUrl":"x","style":"neon"}`)); err == nil {
		t.Error("expected unknown style to be rejected")
	}
	if _, err := PrepareProps("HelloWorld", json.RawMessage(`[1,2]`)); err == nil {
		t.Error("expected non-object props to be rejected")
	}
	other, err := PrepareProps("HelloWorld", json.RawMessage(` {"title":"hi"}`))
	if err != nil || string(other) != `{"title":"hi"}` {
		t.Errorf("PrepareProps passthrough = %s, %v", other, err)
	}
}
