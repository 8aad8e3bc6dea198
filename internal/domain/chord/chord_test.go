package chord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []Token
	}{
		{
			name:     "no brackets",
			content:  "just plain lyrics",
			expected: []Token{{Text: "just plain lyrics"}},
		},
		{
			name:     "empty string",
			content:  "",
			expected: []Token{{Text: ""}},
		},
		{
			name:    "alternating chords and text",
			content: "[C] Hello [G] world",
			expected: []Token{
				{Chord: "C", Text: "Hello"},
				{Chord: "G", Text: "world"},
			},
		},
		{
			name:    "leading text before first tag",
			content: "Oh [Am] darling",
			expected: []Token{
				{Text: "Oh"},
				{Chord: "Am", Text: "darling"},
			},
		},
		{
			name:    "chord with no following text",
			content: "[C] la la [G7]",
			expected: []Token{
				{Chord: "C", Text: "la la"},
				{Chord: "G7", Text: ""},
			},
		},
		{
			name:    "chord label is trimmed",
			content: "[ Bb ] steady",
			expected: []Token{
				{Chord: "Bb", Text: "steady"},
			},
		},
		{
			name:    "unterminated bracket is literal text",
			content: "[C] start [G of something",
			expected: []Token{
				{Chord: "C", Text: "start [G of something"},
			},
		},
		{
			name:     "only an unterminated bracket",
			content:  "[Gm",
			expected: []Token{{Text: "[Gm"}},
		},
		{
			name:    "adjacent tags",
			content: "[C][G] go",
			expected: []Token{
				{Chord: "C", Text: ""},
				{Chord: "G", Text: "go"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tokenize(tt.content))
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		label    string
		expected string
	}{
		{"C", "C"},
		{"Am", "A"},
		{"Am7", "A"},
		{"Gmaj7", "G"},
		{"F#m", "F#"},
		{"Bb", "Bb"},
		{"Ebm7", "Eb"},
		{"Dsus4", "D"},
		{"Csus2", "C"},
		{"Bdim", "B"},
		{"Dmin", "D"},
		{"G7", "G"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.label))
		})
	}
}

func TestNormalize_Equivalence(t *testing.T) {
	assert.Equal(t, Normalize("Am7"), Normalize("Am"))
	assert.NotEqual(t, Normalize("C"), Normalize("G"))
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		detected string
		expected string
		want     bool
	}{
		{"exact match", "Am7", "Am7", true},
		{"same root different quality", "Am7", "Am", true},
		{"major seventh vs plain", "Cmaj7", "C", true},
		{"different roots", "C", "G", false},
		{"accidental preserved", "Bb", "B", false},
		{"sharp roots", "F#m", "F#", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.detected, tt.expected))
		})
	}
}
