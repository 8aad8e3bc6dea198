// Package timecode parses human time labels into seconds.
package timecode

import (
	"strconv"
	"strings"
)

// ParseSeconds converts a time label in M:SS or H:MM:SS form into total
// seconds. It returns false for an empty or malformed label; callers
// treat that as "no seek".
func ParseSeconds(label string) (int, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, false
	}

	parts := strings.Split(label, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	total := 0
	for i, part := range parts {
		if part == "" || len(part) > 2 {
			return 0, false
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, false
		}
		// Trailing minute/second fields must stay below 60.
		if i > 0 && n > 59 {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}
