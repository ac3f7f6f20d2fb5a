package tfidf

import (
	"fmt"
	"regexp"
	"strings"
)

// Python's str patterns are Unicode-aware by default while RE2's \w, \d, \s
// and \b are ASCII only. The class bodies below spell out the Unicode sets.
const (
	wordClass  = `\p{L}\p{N}_`
	digitClass = `\p{Nd}`
	spaceClass = `\s\v\p{Z}\x{1c}-\x{1f}\x{85}`
)

var (
	// A leading \b is redundant before a run of \w ending in an unbounded
	// repetition; leftmost matching already starts at the word start.
	leadingWordRun = regexp.MustCompile(`^(\\w)*\\w(\+|\*|\{\d+,\})`)
	// A trailing \b is redundant after a greedy unbounded \w repetition.
	trailingWordRun = regexp.MustCompile(`\\w(\+|\*|\{\d+,\})$`)
)

// compileTokenPattern turns a scikit-learn token_pattern into an RE2 regexp
// with Python's Unicode semantics. It also returns the submatch index that
// yields the token: 0 for the whole match or 1 when the pattern has a single
// capture group.
func compileTokenPattern(pattern string) (*regexp.Regexp, int, error) {
	body := strings.TrimPrefix(pattern, "(?u)")

	if strings.HasPrefix(body, `\b`) {
		rest := body[2:]
		if !leadingWordRun.MatchString(rest) {
			return nil, 0, fmt.Errorf("token pattern %q: \\b is only supported before a \\w run", pattern)
		}
		body = rest
	}
	if strings.HasSuffix(body, `\b`) && !strings.HasSuffix(body, `\\b`) {
		rest := body[:len(body)-2]
		if !trailingWordRun.MatchString(rest) {
			return nil, 0, fmt.Errorf("token pattern %q: \\b is only supported after a \\w run", pattern)
		}
		body = rest
	}

	translated, err := translateClasses(body)
	if err != nil {
		return nil, 0, fmt.Errorf("token pattern %q: %w", pattern, err)
	}
	re, err := regexp.Compile(translated)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid token pattern: %w", err)
	}

	switch re.NumSubexp() {
	case 0:
		return re, 0, nil
	case 1:
		return re, 1, nil
	default:
		return nil, 0, fmt.Errorf("token pattern %q has more than one capturing group", pattern)
	}
}

// translateClasses rewrites the shorthand classes into Unicode ones, both
// inside and outside bracket expressions.
func translateClasses(p string) (string, error) {
	var b strings.Builder
	inClass := false
	classStart := 0

	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c == '\\' && i+1 < len(p):
			i++
			esc := p[i]
			switch esc {
			case 'w', 'd', 's':
				body := map[byte]string{'w': wordClass, 'd': digitClass, 's': spaceClass}[esc]
				if inClass {
					b.WriteString(body)
				} else {
					b.WriteString("[" + body + "]")
				}
			case 'W', 'D', 'S':
				if inClass {
					return "", fmt.Errorf("negated class \\%c inside brackets is not supported", esc)
				}
				body := map[byte]string{'W': wordClass, 'D': digitClass, 'S': spaceClass}[esc]
				b.WriteString("[^" + body + "]")
			case 'b', 'B':
				if inClass {
					// \b is a backspace inside Python brackets
					b.WriteString(`\x08`)
					continue
				}
				return "", fmt.Errorf("word boundary \\%c is only supported at the pattern edges", esc)
			default:
				b.WriteByte('\\')
				b.WriteByte(esc)
			}
			continue
		case c == '[' && !inClass:
			inClass = true
			b.WriteByte(c)
			if i+1 < len(p) && p[i+1] == '^' {
				i++
				b.WriteByte('^')
			}
			classStart = i + 1
			continue
		case c == ']' && inClass && i > classStart:
			inClass = false
		}
		b.WriteByte(c)
	}

	return b.String(), nil
}
