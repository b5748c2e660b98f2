package extract

import (
	"regexp"
	"unicode/utf8"
)

// Locate finds the first case-insensitive occurrence of quote in text and
// returns its character (rune) offsets. ok is false for an empty quote or
// when quote does not occur in text.
func Locate(text, quote string) (start, end int, ok bool) {
	loc := locateBytes(text, quote)
	if loc == nil {
		return 0, 0, false
	}
	start = runeOffset(text, loc[0])
	return start, start + utf8.RuneCountInString(text[loc[0]:loc[1]]), true
}

// locateBytes is Locate returning byte offsets, or nil.
func locateBytes(text, quote string) []int {
	if quote == "" {
		return nil
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(quote))
	if err != nil {
		return nil
	}
	return re.FindStringIndex(text)
}

func runeOffset(text string, byteIdx int) int {
	return utf8.RuneCountInString(text[:byteIdx])
}
