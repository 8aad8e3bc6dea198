// Package score imports structured score documents (MusicXML) into the
// canonical song representation.
package score

import (
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/hmuro/playalong/internal/domain/song"
)

// ErrMalformedScore indicates the document could not be read as XML at
// all. Structural oddities inside a well-formed document never fail;
// they degrade to a placeholder section.
var ErrMalformedScore = errors.New("malformed score document")

const (
	defaultTitle    = "Untitled Score"
	defaultComposer = "Unknown Composer"
	defaultKey      = "C Major"

	placeholderContent = "No musical content found in this score."
)

// circleOfFifths maps a signed sharps/flats count to a key name.
var circleOfFifths = map[int]string{
	-7: "Cb Major",
	-6: "Gb Major",
	-5: "Db Major",
	-4: "Ab Major",
	-3: "Eb Major",
	-2: "Bb Major",
	-1: "F Major",
	0:  "C Major",
	1:  "G Major",
	2:  "D Major",
	3:  "A Major",
	4:  "E Major",
	5:  "B Major",
	6:  "F# Major",
	7:  "C# Major",
}

// chordKindSuffix maps MusicXML harmony kind strings to chord label
// suffixes. Unknown kinds fall back to the bare root.
var chordKindSuffix = map[string]string{
	"major":          "",
	"minor":          "m",
	"minor-seventh":  "m7",
	"major-seventh":  "maj7",
	"dominant":       "7",
	"7":              "7",
	"dominant-ninth": "9",
	"diminished":     "dim",
	"augmented":      "aug",
}

// Parse converts a MusicXML document into a song record. Only the first
// part is read; measures and their children are processed in document
// order. A document with no harmony or lyric content yields a single
// General section with placeholder content rather than an error.
func Parse(r io.Reader) (*song.Record, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, errors.Wrapf(ErrMalformedScore, "xml read failed: %v", err)
	}

	rec := &song.Record{
		Title:           scoreTitle(doc),
		Artist:          scoreComposer(doc),
		Key:             scoreKey(doc),
		ChordVocabulary: []string{},
	}

	part := doc.FindElement("//part")
	if part != nil {
		walkPart(part, rec)
	}

	if len(rec.Sections) == 0 {
		zlog.Debug().Str("title", rec.Title).Msg("score has no content, emitting placeholder section")
		rec.Sections = []song.Section{{
			Type:    song.SectionGeneral,
			Content: placeholderContent,
		}}
	}

	return rec, nil
}

// walkPart accumulates sections from the measures of a single part.
func walkPart(part *etree.Element, rec *song.Record) {
	sectionType := song.SectionGeneral
	var content strings.Builder

	push := func() {
		if strings.TrimSpace(content.String()) == "" {
			return
		}
		rec.Sections = append(rec.Sections, song.Section{
			Type:    sectionType,
			Content: strings.TrimSpace(content.String()),
		})
		content.Reset()
	}

	for _, measure := range part.SelectElements("measure") {
		for _, child := range measure.ChildElements() {
			switch child.Tag {
			case "direction":
				label := rehearsalLabel(child)
				if label == "" {
					continue
				}
				// A rehearsal mark closes the running section and
				// names the next one.
				push()
				content.Reset()
				sectionType = label
			case "harmony":
				label := harmonyLabel(child)
				if label == "" {
					continue
				}
				content.WriteString(" [" + label + "] ")
				rec.AddChord(label)
			case "note":
				appendLyric(child, &content)
			}
		}
	}
	push()
}

// rehearsalLabel extracts a rehearsal mark from a direction element,
// with surrounding bracket characters stripped.
func rehearsalLabel(direction *etree.Element) string {
	rehearsal := direction.FindElement(".//rehearsal")
	if rehearsal == nil {
		return ""
	}
	label := strings.NewReplacer("[", "", "]", "").Replace(rehearsal.Text())
	return strings.TrimSpace(label)
}

// harmonyLabel builds a chord label from a harmony element: root letter
// plus accidental plus the kind suffix.
func harmonyLabel(harmony *etree.Element) string {
	root := harmony.SelectElement("root")
	if root == nil {
		return ""
	}
	step := root.SelectElement("root-step")
	if step == nil {
		return ""
	}
	label := strings.TrimSpace(step.Text())
	if label == "" {
		return ""
	}

	if alter := root.SelectElement("root-alter"); alter != nil {
		switch strings.TrimSpace(alter.Text()) {
		case "1":
			label += "#"
		case "-1":
			label += "b"
		}
	}

	if kind := harmony.SelectElement("kind"); kind != nil {
		if suffix, ok := chordKindSuffix[strings.TrimSpace(kind.Text())]; ok {
			label += suffix
		}
	}

	return label
}

// appendLyric appends a note's lyric text to the section content. A
// trailing space is inserted only when the syllable completes a word,
// so multi-syllable lyrics split across notes join correctly.
func appendLyric(note *etree.Element, content *strings.Builder) {
	lyric := note.SelectElement("lyric")
	if lyric == nil {
		return
	}
	textEl := lyric.SelectElement("text")
	if textEl == nil {
		return
	}
	text := strings.TrimSpace(textEl.Text())
	if text == "" {
		return
	}

	content.WriteString(text)

	syllabic := "single"
	if syl := lyric.SelectElement("syllabic"); syl != nil {
		syllabic = strings.TrimSpace(syl.Text())
	}
	if syllabic == "single" || syllabic == "end" {
		content.WriteString(" ")
	}
}

func scoreTitle(doc *etree.Document) string {
	for _, path := range []string{"//work/work-title", "//movement-title"} {
		if el := doc.FindElement(path); el != nil {
			if title := strings.TrimSpace(el.Text()); title != "" {
				return title
			}
		}
	}
	return defaultTitle
}

func scoreComposer(doc *etree.Document) string {
	for _, creator := range doc.FindElements("//identification/creator") {
		if creator.SelectAttrValue("type", "") != "composer" {
			continue
		}
		if name := strings.TrimSpace(creator.Text()); name != "" {
			return name
		}
	}
	return defaultComposer
}

func scoreKey(doc *etree.Document) string {
	fifthsEl := doc.FindElement("//attributes/key/fifths")
	if fifthsEl == nil {
		return defaultKey
	}
	fifths, err := strconv.Atoi(strings.TrimSpace(fifthsEl.Text()))
	if err != nil {
		return defaultKey
	}
	key, ok := circleOfFifths[fifths]
	if !ok {
		return defaultKey
	}
	return key
}
