package shared

import (
	"strings"
	"unicode/utf8"
)

// MatchKeyWidth is the storage width of the match_key columns. Keys longer
// than this are clipped so equality joins behave the same in Go and SQL.
const MatchKeyWidth = 500

// Normalize canonicalizes free-text artist and title strings for
// cross-source matching: lowercase, strip every character outside
// [a-z0-9 ], collapse whitespace runs, and drop one leading "the ".
// Empty input yields an empty string. Normalize is idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}

	s = strings.Join(strings.Fields(b.String()), " ")
	s = strings.TrimPrefix(s, "the ")

	return s
}

// MatchKey builds the canonical "artist - title" correlation key used to
// join album rows across sources, clipped to [MatchKeyWidth].
func MatchKey(artist, title string) string {
	return Truncate(Normalize(artist)+" - "+Normalize(title), MatchKeyWidth)
}

// Truncate clips s to at most n bytes without splitting a multi-byte rune.
// Non-positive n leaves s unchanged. Matches the column widths enforced by
// the storage layer.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
