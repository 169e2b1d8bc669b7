// Package sqltext provides helpers for SQL text: line normalization and
// bind-marker scanning that skips quoted strings and comments.
package sqltext

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Marker is a single :name bind marker found in SQL text.
type Marker struct {
	Name  string // including the leading colon
	Start int
	End   int
}

// Normalize converts CRLF line endings to LF and drops blank lines.
func Normalize(sql string) string {
	sql = strings.ReplaceAll(sql, "\r\n", "\n")
	lines := strings.Split(sql, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// CanonicalName returns name with exactly one leading colon, or "" when
// nothing is left after trimming.
func CanonicalName(name string) string {
	name = strings.TrimLeft(strings.TrimSpace(name), ":")
	if name == "" {
		return ""
	}
	return ":" + name
}

// Markers returns the bind markers of sql in order of appearance.
// Markers inside string literals, quoted identifiers and comments are
// ignored, as are "::" casts and ":=" assignments.
func Markers(sql string) []Marker {
	var out []Marker
	i := 0
	for i < len(sql) {
		r, w := utf8.DecodeRuneInString(sql[i:])
		switch r {
		case '\'':
			i = skipQuoted(sql, i+w, '\'')
			continue
		case '"':
			i = skipQuoted(sql, i+w, '"')
			continue
		case '-':
			if strings.HasPrefix(sql[i:], "--") {
				i = skipLineComment(sql, i+2)
				continue
			}
		case '/':
			if strings.HasPrefix(sql[i:], "/*") {
				i = skipBlockComment(sql, i+2)
				continue
			}
		case ':':
			if strings.HasPrefix(sql[i:], "::") {
				i += 2
				continue
			}
			end := parseIdent(sql, i+1)
			if end > i+1 {
				out = append(out, Marker{Name: sql[i:end], Start: i, End: end})
				i = end
				continue
			}
		}
		i += w
	}
	return out
}

// HasMarker reports whether name occurs in sql as a whole bind marker.
// The comparison is case-insensitive, so :reseller never matches
// :resellersoort.
func HasMarker(sql, name string) bool {
	name = CanonicalName(name)
	if name == "" {
		return false
	}
	for _, m := range Markers(sql) {
		if strings.EqualFold(m.Name, name) {
			return true
		}
	}
	return false
}

// ReplaceMarker replaces every whole occurrence of the marker name with
// replacement.
func ReplaceMarker(sql, name, replacement string) string {
	name = CanonicalName(name)
	return rewrite(sql, func(m Marker) (string, bool) {
		if strings.EqualFold(m.Name, name) {
			return replacement, true
		}
		return "", false
	})
}

// Positional rewrites every marker to "?" and returns the marker names in
// the order the driver expects their values.
func Positional(sql string) (string, []string) {
	var names []string
	out := rewrite(sql, func(m Marker) (string, bool) {
		names = append(names, m.Name)
		return "?", true
	})
	return out, names
}

// Nulled replaces every marker with the NULL literal. Used for plans of
// statements whose values are not bound yet.
func Nulled(sql string) string {
	return rewrite(sql, func(Marker) (string, bool) { return "NULL", true })
}

func rewrite(sql string, fn func(Marker) (string, bool)) string {
	markers := Markers(sql)
	if len(markers) == 0 {
		return sql
	}
	var b strings.Builder
	b.Grow(len(sql))
	last := 0
	for _, m := range markers {
		repl, ok := fn(m)
		if !ok {
			continue
		}
		b.WriteString(sql[last:m.Start])
		b.WriteString(repl)
		last = m.End
	}
	b.WriteString(sql[last:])
	return b.String()
}

func parseIdent(s string, i int) int {
	for i < len(s) {
		r, w := utf8.DecodeRuneInString(s[i:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		i += w
	}
	return i
}

// skipQuoted returns the index after the closing quote. Doubled quotes are
// escapes. An unterminated literal runs to the end of the text.
func skipQuoted(s string, i int, quote byte) int {
	for i < len(s) {
		c := s[i]
		i++
		if c == quote {
			if i < len(s) && s[i] == quote {
				i++
				continue
			}
			return i
		}
	}
	return len(s)
}

func skipLineComment(s string, i int) int {
	if j := strings.IndexByte(s[i:], '\n'); j >= 0 {
		return i + j + 1
	}
	return len(s)
}

func skipBlockComment(s string, i int) int {
	if j := strings.Index(s[i:], "*/"); j >= 0 {
		return i + j + 2
	}
	return len(s)
}
