package assistant

import (
	"strings"
	"unicode"
)

// scripts maps writing systems to the ISO 639-1 code assumed for them.
var scripts = []struct {
	table *unicode.RangeTable
	code  string
}{
	{unicode.Devanagari, "hi"},
	{unicode.Bengali, "bn"},
	{unicode.Gurmukhi, "pa"},
	{unicode.Gujarati, "gu"},
	{unicode.Oriya, "or"},
	{unicode.Tamil, "ta"},
	{unicode.Telugu, "te"},
	{unicode.Kannada, "kn"},
	{unicode.Malayalam, "ml"},
	{unicode.Arabic, "ar"},
	{unicode.Hebrew, "he"},
	{unicode.Hangul, "ko"},
	{unicode.Hiragana, "ja"},
	{unicode.Katakana, "ja"},
	{unicode.Han, "zh"},
	{unicode.Cyrillic, "ru"},
	{unicode.Greek, "el"},
	{unicode.Thai, "th"},
}

// latinHints are frequent function words of Latin-script languages.
var latinHints = map[string][]string{
	"es": {"el", "la", "los", "las", "que", "de", "y", "es", "por", "para", "tengo", "cómo", "qué", "dolor"},
	"fr": {"le", "la", "les", "des", "est", "et", "je", "que", "pour", "une", "avec", "j'ai", "comment"},
	"de": {"der", "die", "das", "und", "ist", "ich", "nicht", "mit", "habe", "ein", "eine", "wie"},
	"pt": {"o", "os", "as", "que", "de", "e", "é", "não", "para", "com", "tenho", "como", "uma"},
	"en": {"the", "a", "an", "and", "is", "i", "have", "what", "how", "my", "of", "to", "with", "for"},
}

// DetectLanguage guesses the ISO 639-1 language of s from its script, and
// for Latin script from common function words. It returns "en" when unsure.
func DetectLanguage(s string) string {
	counts := make(map[string]int)
	letters := 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		for _, sc := range scripts {
			if unicode.Is(sc.table, r) {
				counts[sc.code]++
				break
			}
		}
	}
	if letters == 0 {
		return "en"
	}
	// Kana mixed with Han is Japanese.
	if counts["ja"] > 0 {
		counts["ja"] += counts["zh"]
		delete(counts, "zh")
	}
	best, bestN := "", 0
	for code, n := range counts {
		if n > bestN || (n == bestN && code < best) {
			best, bestN = code, n
		}
	}
	if bestN*2 >= letters {
		return best
	}
	return detectLatin(s)
}

func detectLatin(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	best, bestN := "en", 0
	for _, code := range []string{"en", "es", "fr", "de", "pt"} {
		n := 0
		for _, w := range words {
			for _, h := range latinHints[code] {
				if w == h {
					n++
					break
				}
			}
		}
		if n > bestN {
			best, bestN = code, n
		}
	}
	return best
}
