package core

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// A greeting or header line, then everything up to the first MIME boundary
	// or the end of the text. Group 2 is the body.
	preamblePattern = regexp.MustCompile(`(?s)(Dear [^\n]+|From: [^\n]+|Subject: [^\n]+)(.*?)(--===============|$)`)

	tagPattern = regexp.MustCompile(`<[^>]+>`)

	// Anything that is neither a word rune nor whitespace. Word runes are
	// Unicode letters, numbers and underscore.
	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s\v\p{Z}\x{1c}-\x{1f}\x{85}]`)

	whitespacePattern = regexp.MustCompile(`[\s\v\p{Z}\x{1c}-\x{1f}\x{85}]+`)
)

// Normalize maps raw email text to the cleaned form both models were trained on.
// It is total over strings and idempotent.
func Normalize(raw string) string {
	content := raw
	if m := preamblePattern.FindStringSubmatch(raw); m != nil {
		content = m[2]
	}
	content = strings.TrimSpace(content)
	content = tagPattern.ReplaceAllString(content, "")
	content = punctuationPattern.ReplaceAllString(content, " ")
	content = whitespacePattern.ReplaceAllString(content, " ")
	content = Lower(content)
	return strings.TrimSpace(content)
}


// Lower applies full Unicode lowercasing, including the final sigma rule and
// one-to-many mappings such as U+0130. A Caser is stateful, so each call
// builds its own.
func Lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
