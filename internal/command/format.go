package command

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	blankRunRe     = regexp.MustCompile(`[ \t]+`)
	lineEdgeRe     = regexp.MustCompile(` *\n *`)
	spaceBeforeRe  = regexp.MustCompile(` +([,.!?])`)
	sentenceJoinRe = regexp.MustCompile(`([.!?]) *([a-z])`)
	sentenceCapRe  = regexp.MustCompile(`([.!?]\s+)([a-z])`)
	loneIRe        = regexp.MustCompile(`\bi\b`)
)

// Tidy cleans up dictated text: single spaces, no space before punctuation,
// a space and a capital letter after each sentence end, and a capital "I".
// Line breaks produced by layout commands are kept.
func Tidy(text string) string {
	text = blankRunRe.ReplaceAllString(text, " ")
	text = lineEdgeRe.ReplaceAllString(text, "\n")
	text = spaceBeforeRe.ReplaceAllString(text, "$1")
	text = sentenceJoinRe.ReplaceAllString(text, "$1 $2")
	text = capitalizeFirst(text)
	text = sentenceCapRe.ReplaceAllStringFunc(text, func(m string) string {
		r, size := utf8.DecodeLastRuneInString(m)
		return m[:len(m)-size] + string(unicode.ToUpper(r))
	})
	text = loneIRe.ReplaceAllString(text, "I")
	return strings.TrimRight(text, " \t\n")
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
