// Package protocol canonicalizes imaging protocol descriptions into tokens
// that are safe inside path segments and glob patterns, the same way PPMI
// embeds them in archive file names.
package protocol

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	separators  = regexp.MustCompile(`[()/-]`)
	underscores = regexp.MustCompile(`_+`)
)

// isSpace covers Unicode white space plus the ASCII information separators
// (U+001C..U+001F) that Python string tooling also treats as space.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

func spaceToUnderscore(r rune) rune {
	if isSpace(r) {
		return '_'
	}
	return r
}

// Clean turns a free-text protocol description such as "3D T1 (MPRAGE)" into
// "3D_T1_MPRAGE". The result contains no white space (including NBSP and
// other Unicode spaces), parentheses, slashes or hyphens, and
// Clean(Clean(s)) == Clean(s).
func Clean(desc string) string {
	s := strings.Map(spaceToUnderscore, desc)
	s = separators.ReplaceAllString(s, "_")
	s = underscores.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
