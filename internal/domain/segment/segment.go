// Package segment provides the flattened, globally-indexed segment list.
package segment

import (
	"github.com/hmuro/playalong/internal/domain/chord"
	"github.com/hmuro/playalong/internal/domain/song"
)

// Segment is one playable (chord, text) unit derived from a section.
// GlobalIndex values are contiguous 0..N-1 in document order across the
// whole song.
type Segment struct {
	SectionIndex int    `json:"sectionIndex"`
	GlobalIndex  int    `json:"globalIndex"`
	Chord        string `json:"chord"`
	Text         string `json:"text"`
	StartTime    string `json:"startTime,omitempty"`
}

// Flatten walks the record's sections in order and produces the ordered
// segment list. It is a pure function of the record: flattening the
// same record twice yields identical output.
func Flatten(rec *song.Record) []Segment {
	segments := make([]Segment, 0)
	global := 0
	for si, sec := range rec.Sections {
		for _, tok := range chord.Tokenize(sec.Content) {
			segments = append(segments, Segment{
				SectionIndex: si,
				GlobalIndex:  global,
				Chord:        tok.Chord,
				Text:         tok.Text,
				StartTime:    sec.StartTime,
			})
			global++
		}
	}
	return segments
}
