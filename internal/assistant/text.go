package assistant

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reBold     = regexp.MustCompile(`\*\*.*?\*\*`)
	reBullet   = regexp.MustCompile(`[*-] `)
	reMarkup   = regexp.MustCompile(`[#*_\[\]()]`)
	reNewlines = regexp.MustCompile(`\n+`)
)

// RemoveMarkdown drops bold spans entirely, bullet markers and the markup
// characters #*_[](), then collapses blank lines.
func RemoveMarkdown(s string) string {
	s = reBold.ReplaceAllString(s, "")
	s = reBullet.ReplaceAllString(s, "")
	s = reMarkup.ReplaceAllString(s, "")
	s = reNewlines.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// FormatParagraphs joins the non-empty trimmed lines of s with blank lines.
func FormatParagraphs(s string) string {
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "\n\n")
}

// RepairLatin1 fixes UTF-8 text that was decoded as Latin-1 ("Ã©" -> "é").
// Text that is not such mojibake is returned unchanged.
func RepairLatin1(s string) string {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return s
		}
		b = append(b, byte(r))
	}
	if !utf8.Valid(b) {
		return s
	}
	return string(b)
}
