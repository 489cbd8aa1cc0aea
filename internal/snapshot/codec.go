package snapshot

import (
	"fmt"
	"strconv"
	"strings"
)

// Sentinel prefixes for special string-serialized values. They sit in the
// Unicode private use area.
const (
	UndefinedPrefix = "\uE000"
	DocumentPrefix  = "\uE001"
	ClosurePrefix   = "\uE002"
)

// Id syntax.
const (
	ElementIDPrefix = "#"
	ProxySuffix     = "!"
)

// IntToStr encodes a non-negative index in base 36.
func IntToStr(i int) string {
	return strconv.FormatInt(int64(i), 36)
}

// StrToInt decodes a base-36 index.
func StrToInt(s string) (int, error) {
	n, err := strconv.ParseInt(s, 36, 0)
	if err != nil {
		return 0, fmt.Errorf("invalid base-36 id %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid base-36 id %q: negative", s)
	}
	return int(n), nil
}

// HasSentinelPrefix reports whether s starts with one of the sentinel
// prefixes.
func HasSentinelPrefix(s string) bool {
	return strings.HasPrefix(s, UndefinedPrefix) ||
		strings.HasPrefix(s, DocumentPrefix) ||
		strings.HasPrefix(s, ClosurePrefix)
}

const (
	escapedLT        = `\x3C`
	escapedBackslash = `\x5C`
)

// EscapeText makes s safe to embed in a <script> element: no "<script" or
// "</script" (any letter case) survives. A '<' opening such a tag becomes
// \x3C, and a backslash that would read as the start of \x3C or \x5C becomes
// \x5C, which keeps UnescapeText an exact inverse for every input.
func EscapeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && (strings.HasPrefix(s[i:], escapedLT) || strings.HasPrefix(s[i:], escapedBackslash)):
			b.WriteString(escapedBackslash)
		case s[i] == '<' && opensScriptTag(s[i+1:]):
			b.WriteString(escapedLT)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// UnescapeText reverses EscapeText.
func UnescapeText(s string) string {
	if !strings.Contains(s, `\x`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], escapedBackslash):
			b.WriteByte('\\')
			i += len(escapedBackslash)
		case strings.HasPrefix(s[i:], escapedLT):
			b.WriteByte('<')
			i += len(escapedLT)
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}

// opensScriptTag reports whether rest (the text after a '<') starts with
// "script" or "/script", ignoring case.
func opensScriptTag(rest string) bool {
	rest = strings.TrimPrefix(rest, "/")
	return len(rest) >= len("script") && strings.EqualFold(rest[:len("script")], "script")
}
