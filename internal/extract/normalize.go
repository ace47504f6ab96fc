// Package extract turns raw provider text into validated records.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Mode selects how Normalize treats the text.
type Mode int

const (
	// ModeJSON isolates a JSON object or array.
	ModeJSON Mode = iota
	// ModeProse cleans text meant for humans; no JSON extraction.
	ModeProse
)

var (
	thinkBlock = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)
	// Fences are only recognized on their own line so backticks inside
	// string values survive.
	fenceMarker = regexp.MustCompile("(?m)^[ \t]*```[A-Za-z0-9_+.-]*[ \t]*\r?$")
	headingMark = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+`)
	boldMark    = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	// __x__ only counts as emphasis at word boundaries (a__b@x.com is kept).
	underlineMark  = regexp.MustCompile(`(^|[^\w])__([^_\n]+?)__([^\w]|$)`)
	codeMark       = regexp.MustCompile("`([^`\n]+)`")
	wrappingQuotes = map[string]string{`"`: `"`, "'": "'", "“": "”", "‘": "’"}
)

// Normalize strips reasoning blocks, code fences and stray formatting from
// text. In ModeJSON, if the cleaned text is not bare JSON, the first balanced
// object or array is returned instead; if none is found the cleaned text is
// returned and decoding will fail on it.
func Normalize(text string, mode Mode) string {
	text = thinkBlock.ReplaceAllString(text, "")
	text = fenceMarker.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if mode == ModeProse {
		return cleanProse(text)
	}

	text = strings.Trim(text, " \t\r\n`*_")
	if json.Valid([]byte(text)) {
		return text
	}
	if found, ok := firstJSON(text); ok {
		return found
	}
	return text
}

func cleanProse(text string) string {
	text = headingMark.ReplaceAllString(text, "")
	text = boldMark.ReplaceAllString(text, "$1")
	text = strings.ReplaceAll(text, "**", "")
	text = underlineMark.ReplaceAllString(text, "${1}${2}${3}")
	text = codeMark.ReplaceAllString(text, "$1")
	text = strings.TrimSpace(text)
	for open, closing := range wrappingQuotes {
		if len(text) >= len(open)+len(closing) && strings.HasPrefix(text, open) && strings.HasSuffix(text, closing) {
			text = strings.TrimSpace(text[len(open) : len(text)-len(closing)])
			break
		}
	}
	return text
}

// firstJSON returns the first balanced, valid object or array in s. Openers
// are tried left to right, so an invalid candidate such as "{the profile}"
// does not hide valid JSON after it.
func firstJSON(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		var closing byte
		switch s[i] {
		case '{':
			closing = '}'
		case '[':
			closing = ']'
		default:
			continue
		}
		if found, ok := balancedFrom(s, i, closing); ok && json.Valid([]byte(found)) {
			return found, true
		}
	}
	return "", false
}

// balanced scans from the first open byte to its matching close, ignoring
// brackets inside JSON strings.
func balanced(s string, open, closing byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}
	return balancedFrom(s, start, closing)
}

func balancedFrom(s string, start int, closing byte) (string, bool) {
	open := s[start]
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closing:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
