// Package command turns spoken formatting commands ("comma", "new line", ...)
// into punctuation and whitespace.
package command

import (
	"regexp"
	"strings"
)

// rule maps one spoken phrase pattern to its replacement.
type rule struct {
	re   *regexp.Regexp
	repl string
}

// Punctuation that closes a phrase swallows the whitespace in front of it so
// "hello comma world" becomes "hello, world"; an opening bracket swallows the
// whitespace after it. Layout commands swallow the whitespace on both sides.
// Line breaks are never swallowed.
func attach(phrase, repl string) rule {
	return rule{re: regexp.MustCompile(`(?i)[ \t]*\b(?:` + phrase + `)\b`), repl: repl}
}

func layout(phrase, repl string) rule {
	return rule{re: regexp.MustCompile(`(?i)[ \t]*\b(?:` + phrase + `)\b[ \t]*`), repl: repl}
}

func lead(phrase, repl string) rule {
	return rule{re: regexp.MustCompile(`(?i)\b(?:` + phrase + `)\b[ \t]*`), repl: repl}
}

func plain(phrase, repl string) rule {
	return rule{re: regexp.MustCompile(`(?i)\b(?:` + phrase + `)\b`), repl: repl}
}

// Order matters: longer phrases come before any shorter phrase they contain.
var rules = []rule{
	attach(`full stop|period`, "."),
	attach(`question mark`, "?"),
	attach(`exclamation mark|exclamation`, "!"),
	layout(`new paragraph`, "\n\n"),
	layout(`new line`, "\n"),
	layout(`heading`, "\n\n# "),
	layout(`bullet point`, "\n• "),
	attach(`semicolon`, ";"),
	attach(`colon`, ":"),
	attach(`comma`, ","),
	lead(`open bracket`, "("),
	attach(`close bracket`, ")"),
	plain(`quote`, `"`),
	plain(`dash`, "-"),
	plain(`indent`, "\t"),
}

var capitalRe = regexp.MustCompile(`(?i)\bcapital\s+([a-z])`)

// Normalize applies the command rules to text. When enabled is false the text
// is returned unchanged.
func Normalize(text string, enabled bool) string {
	if !enabled || text == "" {
		return text
	}
	for _, r := range rules {
		text = r.re.ReplaceAllLiteralString(text, r.repl)
	}
	return capitalRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := capitalRe.FindStringSubmatch(m)
		return strings.ToUpper(sub[1])
	})
}

// Phrases lists the spoken commands in the order they are applied, for help
// screens.
func Phrases() []string {
	return []string{
		"full stop", "period", "question mark", "exclamation mark",
		"new paragraph", "new line", "heading", "bullet point",
		"semicolon", "colon", "comma", "open bracket", "close bracket",
		"quote", "dash", "indent", "capital <letter>",
	}
}
