package sanitize

import (
	"strings"
	"unicode"
)

const bom = "\uFEFF"

// Sanitize prepares raw model output for JSON decoding. Models routinely wrap
// the payload in a fenced code block, prefix a byte-order mark, or emit a
// trailing comma before a closing bracket; all three are repaired here. The
// result is not guaranteed to parse — callers treat a decode failure as a
// recoverable outcome one layer up.
func Sanitize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, bom)
	s = stripFences(s)
	s = strings.TrimPrefix(s, bom)
	s = stripTrailingCommas(s)
	return strings.TrimSpace(s)
}

// stripFences removes a leading ``` fence, optionally carrying a language tag
// such as ```json or ```JSON, and the matching trailing fence.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	rest := s[3:]
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return s
	}
	if !isFenceTag(strings.TrimSpace(rest[:nl])) {
		return s
	}
	s = strings.TrimSpace(rest[nl+1:])
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// isFenceTag accepts an empty tag or a bare language identifier like "json".
func isFenceTag(tag string) bool {
	for _, r := range tag {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// stripTrailingCommas drops any comma whose next non-whitespace byte closes an
// object or array. Commas inside string literals are left alone.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && isJSONSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
