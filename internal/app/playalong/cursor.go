// Package playalong provides the play-along cursor state machine.
//
// The cursor tracks how far a listener has progressed through a song's
// flattened segments, driven by chord labels detected from a live
// transcription stream. It has a single writer: detection fragments
// must be applied strictly in arrival order.
package playalong

import (
	"github.com/hmuro/playalong/internal/domain/chord"
	"github.com/hmuro/playalong/internal/domain/segment"
)

// Cursor advances through a fixed segment list as chord detections
// arrive. Position is monotonically non-decreasing and never exceeds
// the segment count; position == Len() is the terminal song-complete
// state.
type Cursor struct {
	segments []segment.Segment
	position int
}

// New creates a cursor at position 0 over the given segment list. The
// slice is referenced, not copied; it must not be mutated afterwards.
func New(segments []segment.Segment) *Cursor {
	return &Cursor{segments: segments}
}

// Position returns the current cursor position.
func (c *Cursor) Position() int {
	return c.position
}

// Len returns the number of segments the cursor ranges over.
func (c *Cursor) Len() int {
	return len(c.segments)
}

// Done reports whether the cursor has reached the terminal state.
func (c *Cursor) Done() bool {
	return c.position >= len(c.segments)
}

// Current returns the segment the cursor is waiting on, or nil in the
// terminal state.
func (c *Cursor) Current() *segment.Segment {
	if c.Done() {
		return nil
	}
	return &c.segments[c.position]
}

// Advance applies one detected chord label and reports whether the
// cursor moved. The terminal state absorbs further input. A segment
// with no chord is not gated on detection and advances unconditionally;
// otherwise the detection must match the expected chord.
func (c *Cursor) Advance(detected string) bool {
	if c.Done() {
		return false
	}
	expected := c.segments[c.position]
	if expected.Chord == "" {
		c.position++
		return true
	}
	if chord.Matches(detected, expected.Chord) {
		c.position++
		return true
	}
	return false
}

// Feed tokenizes a raw detection fragment and applies each discovered
// chord label through Advance in order of appearance. One fragment may
// move the cursor by several positions, or by none. It returns the
// number of positions moved.
func (c *Cursor) Feed(fragment string) int {
	moved := 0
	for _, tok := range chord.Tokenize(fragment) {
		if tok.Chord == "" {
			continue
		}
		if c.Advance(tok.Chord) {
			moved++
		}
	}
	return moved
}
