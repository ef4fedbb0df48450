package captions

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"
)

// WriteVTT writes segments as a WebVTT document.
func WriteVTT(w io.Writer, segments []Segment) error {
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "WEBVTT\n")
	for i, s := range segments {
		fmt.Fprintf(bw, "\n%d\n%s --> %s\n%s\n", i+1, vttTimestamp(s.Start), vttTimestamp(s.End), cueText(s.Text))
	}
	return bw.Flush()
}

func vttTimestamp(sec float64) string {
	ms := int64(math.Round(sec * 1000))
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}

// cueText keeps a caption on one cue line: line breaks would end the cue
// and an arrow would start a timing line.
func cueText(text string) string {
	text = strings.Join(strings.FieldsFunc(text, func(r rune) bool { return r == '\r' || r == '\n' }), " ")
	for strings.Contains(text, "-->") {
		text = strings.ReplaceAll(text, "-->", "->")
	}
	return text
}
