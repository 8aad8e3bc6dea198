// Package importer normalizes raw AI-returned payloads into canonical
// song records.
package importer

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/kaptinlin/jsonrepair"
	"github.com/mitchellh/mapstructure"

	"github.com/hmuro/playalong/internal/domain/song"
)

// Validation errors. ErrInvalidSong covers payloads that parse but are
// missing required fields; callers surface it to the user and never
// retry internally.
var (
	ErrNoJSON      = errors.New("payload contains no JSON object")
	ErrInvalidSong = errors.New("song is missing required fields")
)

const defaultUnknown = "Unknown"

// Normalize validates and repairs a raw analysis payload into a song
// record. The payload is expected to contain a JSON object, bare or
// fenced in a code block, possibly surrounded by prose and possibly
// malformed. sourceQuery is the original user query; when it matches a
// known media link pattern the corresponding identifier is attached to
// the record.
func Normalize(payload, sourceQuery string) (*song.Record, error) {
	raw, ok := extractJSON(payload)
	if !ok {
		return nil, ErrNoJSON
	}

	blob, err := unmarshalLoose(raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse song payload")
	}

	var rec song.Record
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &rec,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build decoder")
	}
	if err := decoder.Decode(blob); err != nil {
		return nil, errors.Wrap(err, "failed to decode song payload")
	}

	if strings.TrimSpace(rec.Title) == "" {
		return nil, errors.Wrap(ErrInvalidSong, "title is required")
	}
	if !rec.HasContent() {
		return nil, errors.Wrap(ErrInvalidSong, "sections or plainLyrics is required")
	}

	if rec.Artist == "" {
		rec.Artist = defaultUnknown
	}
	if rec.Key == "" {
		rec.Key = defaultUnknown
	}
	if rec.ChordVocabulary == nil {
		rec.ChordVocabulary = []string{}
	}

	attachMediaLinks(&rec, sourceQuery)

	return &rec, nil
}

// extractJSON locates the JSON object inside a prose-wrapped payload:
// a fenced code block wins if present, otherwise the span from the
// first '{' to the last '}'.
func extractJSON(payload string) (string, bool) {
	if fenced, ok := extractFencedBlock(payload); ok {
		payload = fenced
	}

	start := strings.IndexByte(payload, '{')
	end := strings.LastIndexByte(payload, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return payload[start : end+1], true
}

// extractFencedBlock returns the contents of the first ``` fenced block
// if the payload contains one.
func extractFencedBlock(payload string) (string, bool) {
	open := strings.Index(payload, "```")
	if open < 0 {
		return "", false
	}
	rest := payload[open+3:]
	// Skip the language hint up to the end of the opening line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	closing := strings.Index(rest, "```")
	if closing < 0 {
		return "", false
	}
	return rest[:closing], true
}

// unmarshalLoose unmarshals possibly-malformed JSON into a generic map,
// attempting a jsonrepair pass when plain unmarshaling hits a syntax
// error.
func unmarshalLoose(raw string) (map[string]any, error) {
	var blob map[string]any
	err := json.Unmarshal([]byte(raw), &blob)
	if err == nil {
		return blob, nil
	}
	fixed, repairErr := jsonrepair.JSONRepair(raw)
	if repairErr != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fixed), &blob); err != nil {
		return nil, err
	}
	return blob, nil
}
