// Package song provides the canonical song representation.
package song

// Section type vocabulary. Score imports may additionally carry
// free-form rehearsal labels as section types.
const (
	SectionVerse   = "Verse"
	SectionChorus  = "Chorus"
	SectionBridge  = "Bridge"
	SectionRiff    = "Riff"
	SectionIntro   = "Intro"
	SectionOutro   = "Outro"
	SectionGeneral = "General"
)

// Section represents a named structural block of a song. Content is
// literal text interleaved with zero or more [CHORD] tags.
type Section struct {
	Type      string `json:"type" mapstructure:"type"`
	Content   string `json:"content" mapstructure:"content"`
	StartTime string `json:"startTime,omitempty" mapstructure:"startTime"`
}

// Record is the canonical song representation produced by the score
// parser or the AI-payload importer.
type Record struct {
	Title           string    `json:"title" mapstructure:"title"`
	Artist          string    `json:"artist" mapstructure:"artist"`
	Key             string    `json:"key" mapstructure:"key"`
	ChordVocabulary []string  `json:"chords" mapstructure:"chords"`
	Sections        []Section `json:"sections" mapstructure:"sections"`

	// External media identifiers, attached by the importer when the
	// source query matches a known link pattern.
	VideoID        string `json:"videoId,omitempty" mapstructure:"videoId"`
	AudioServiceID string `json:"audioServiceId,omitempty" mapstructure:"audioServiceId"`
	ScoreEmbedURL  string `json:"scoreEmbedUrl,omitempty" mapstructure:"scoreEmbedUrl"`

	// Legacy payloads carry a single lyrics blob instead of sections.
	PlainLyrics string `json:"plainLyrics,omitempty" mapstructure:"plainLyrics"`
}

// AddChord adds a chord label to the vocabulary, preserving first-seen
// order and skipping duplicates and empty labels.
func (r *Record) AddChord(label string) {
	if label == "" {
		return
	}
	for _, c := range r.ChordVocabulary {
		if c == label {
			return
		}
	}
	r.ChordVocabulary = append(r.ChordVocabulary, label)
}

// HasContent reports whether the record satisfies the content
// invariant: sections non-empty or plain lyrics non-empty.
func (r *Record) HasContent() bool {
	return len(r.Sections) > 0 || r.PlainLyrics != ""
}
