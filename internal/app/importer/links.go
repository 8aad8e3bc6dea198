package importer

import (
	"strings"

	"github.com/hmuro/playalong/internal/domain/song"
)

// attachMediaLinks enriches a record with external media identifiers
// derived from the source query. Pure string matching, no network.
func attachMediaLinks(rec *song.Record, query string) {
	if id := extractVideoID(query); id != "" {
		rec.VideoID = id
	}
	if id := extractAudioServiceID(query); id != "" {
		rec.AudioServiceID = id
	}
	if url := extractScoreEmbedURL(query); url != "" {
		rec.ScoreEmbedURL = url
	}
}

// extractVideoID extracts a video ID from a YouTube watch or short URL.
func extractVideoID(input string) string {
	input = strings.TrimSpace(input)

	if strings.Contains(input, "youtube.com") && strings.Contains(input, "v=") {
		parts := strings.Split(input, "v=")
		if len(parts) >= 2 {
			id := strings.Split(parts[len(parts)-1], "&")[0]
			return strings.TrimRight(id, "/")
		}
	}

	if strings.Contains(input, "youtu.be/") {
		parts := strings.Split(input, "youtu.be/")
		if len(parts) >= 2 {
			id := strings.Split(parts[len(parts)-1], "?")[0]
			return strings.TrimRight(id, "/")
		}
	}

	return ""
}

// extractAudioServiceID extracts a track ID from a streaming-audio URL
// or URI.
func extractAudioServiceID(input string) string {
	input = strings.TrimSpace(input)

	// URI format: spotify:track:TRACK_ID
	if strings.HasPrefix(input, "spotify:track:") {
		return strings.TrimPrefix(input, "spotify:track:")
	}

	// URL format: https://open.spotify.com/track/TRACK_ID
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/") {
		parts := strings.Split(input, "/track/")
		if len(parts) >= 2 {
			id := strings.Split(parts[len(parts)-1], "?")[0]
			return strings.TrimRight(id, "/")
		}
	}

	return ""
}

// extractScoreEmbedURL returns the query itself when it points at a
// known score-hosting site; embeds take the full URL rather than an ID.
func extractScoreEmbedURL(input string) string {
	input = strings.TrimSpace(input)
	if !strings.Contains(input, "musescore.com") {
		return ""
	}
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return ""
	}
	return strings.Split(input, "?")[0]
}
