// Package facematch provides small pure helpers shared by enrollment and
// frame analysis: storage-name derivation and face region geometry.
package facematch

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultStorageName is used when a display name has no usable characters.
const DefaultStorageName = "person"

// MaxStorageNameLength caps the base name in bytes, leaving room for the
// collision suffix and extension within common filesystem name limits.
const MaxStorageNameLength = 100

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// StorageName derives a filesystem-safe base name from a display name.
// Only letters, digits, spaces, hyphens and underscores survive; trailing
// spaces are trimmed and the remaining spaces become underscores.
// Names longer than MaxStorageNameLength bytes are cut on a rune boundary.
// "Jiří Novák!" -> "Jiri_Novak".
func StorageName(displayName string) string {
	var b strings.Builder
	for _, r := range RemoveDiacritics(displayName) {
		switch {
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}

	name := strings.TrimRight(b.String(), " ")
	name = strings.ReplaceAll(name, " ", "_")
	name = truncateRunes(name, MaxStorageNameLength)
	// A name made only of separators would produce hidden or odd files.
	if strings.Trim(name, "_-") == "" {
		return DefaultStorageName
	}
	return name
}

// truncateRunes shortens s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
