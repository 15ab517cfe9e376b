package core

import (
	"regexp"
	"strings"
	"unicode"
)

// nonWordRegex matches every character that is neither a word character
// (Unicode letter, Unicode digit, underscore) nor whitespace. Whitespace
// includes the information separators \x1c-\x1f and NEL (\x85).
var nonWordRegex = regexp.MustCompile(`[^\p{L}\p{N}_\s\p{Z}\v\x{1c}-\x{1f}\x{85}]`)

// NormalizeValue strips punctuation and symbols from s and trims surrounding
// whitespace. The result is the canonical text used for both comparison and
// storage; "" is a legal result.
//
//	NormalizeValue("Hello, World!  ") == "Hello World"
//	NormalizeValue("!!!") == ""
func NormalizeValue(s string) string {
	return strings.TrimFunc(nonWordRegex.ReplaceAllString(s, ""), isSpace)
}

// isSpace extends unicode.IsSpace with the information separators.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// NormalizeRow normalizes every value of row in place, key columns included.
func NormalizeRow(row *Row) {
	for i, v := range row.Values {
		row.Values[i] = NormalizeValue(v)
	}
}

// NormalizeRows normalizes every row in place.
func NormalizeRows(rows []Row) {
	for i := range rows {
		NormalizeRow(&rows[i])
	}
}
