// Package chord provides chord tag tokenization and chord label comparison.
package chord

import "strings"

// Token represents one unit of chord-tagged text: a chord label
// (possibly empty) followed by the literal text run that belongs to it.
type Token struct {
	Chord string // Chord label, "" for pure-lyric runs
	Text  string // Literal text following the tag
}

// Tokenize splits content into alternating chord/text tokens using the
// bracket grammar: a tag is "[label]" and owns the text up to the next
// tag or end of string. Malformed input never fails:
//   - no opening bracket at all: one token carrying the whole string
//   - literal text before the first tag: emitted as an empty-chord token
//   - an unterminated "[": the remainder is literal text
func Tokenize(content string) []Token {
	if strings.IndexByte(content, '[') < 0 {
		return []Token{{Text: content}}
	}

	var tokens []Token
	emit := func(chord, text string) {
		text = strings.TrimSpace(text)
		// Drop only the empty leading run before the first tag.
		if chord == "" && text == "" {
			return
		}
		tokens = append(tokens, Token{Chord: chord, Text: text})
	}

	chordLabel := ""
	textStart := 0
	i := 0
	for i < len(content) {
		if content[i] != '[' {
			i++
			continue
		}
		end := strings.IndexByte(content[i:], ']')
		if end < 0 {
			// Unterminated bracket: the rest is literal text.
			break
		}
		emit(chordLabel, content[textStart:i])
		chordLabel = strings.TrimSpace(content[i+1 : i+end])
		i += end + 1
		textStart = i
	}
	emit(chordLabel, content[textStart:])

	if tokens == nil {
		return []Token{{Text: strings.TrimSpace(content)}}
	}
	return tokens
}

// qualityStripper removes quality/extension markers from a chord label.
// Longer markers are listed first so "maj" wins over "m". The bare "m"
// replacement can over-strip inside larger tokens; that behavior is
// intentional and matched by the comparison on both sides.
var qualityStripper = strings.NewReplacer(
	"maj", "",
	"min", "",
	"dim", "",
	"sus", "",
	"m", "",
	"7", "",
	"2", "",
	"4", "",
)

// Normalize reduces a chord label to its comparable root form: quality
// and extension markers are stripped, root letters and #/b accidentals
// are preserved. Normalize("Am7") == Normalize("Am") == "A".
func Normalize(label string) string {
	return strings.TrimSpace(qualityStripper.Replace(label))
}

// Matches reports whether a detected chord label is accepted for an
// expected one: byte-identical labels always match, otherwise the
// normalized root forms must be equal.
func Matches(detected, expected string) bool {
	if detected == expected {
		return true
	}
	return Normalize(detected) == Normalize(expected)
}
