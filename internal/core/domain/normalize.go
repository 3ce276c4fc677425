package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// NormalizeName maps a raw title or query to its canonical search key:
// lowercased, with every character that is not a letter, digit or
// whitespace removed, whitespace runs collapsed to one space, and the
// result trimmed. Pure, total and idempotent; defined for every string
// including the empty one.
//
// The same function is applied when indexing a display name and when
// canonicalising a query, so substring matching is insensitive to case
// and punctuation on both sides.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	space := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
		// Everything else is punctuation and is dropped.
	}

	return b.String()
}

// StripExtension removes a trailing filename extension, if any.
func StripExtension(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// FormatSize renders a byte count as a human-readable string with one
// decimal place, e.g. "488.3 KB".
func FormatSize(sizeBytes int64) string {
	size := float64(sizeBytes)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024.0 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024.0
	}
	return fmt.Sprintf("%.1f TB", size)
}
