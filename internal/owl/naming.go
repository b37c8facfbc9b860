package owl

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Unnamed is the identifier produced for input that sanitizes to nothing.
const Unnamed = "unnamed"

// Sanitize turns arbitrary text into a URI-fragment-safe identifier.
//
// Whitespace and template braces are dropped, path separators become
// underscores, and every character outside [A-Za-z0-9_-] that is not already
// part of a %XX escape is percent-encoded. Runs of '_' and '-' collapse to
// their first character and are trimmed from both ends. The function is
// idempotent and never returns an empty string.
func Sanitize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c < 0x80 && unicode.IsSpace(rune(c)):
			i++
		case c == '{' || c == '}':
			i++
		case c == '/' || c == '\\':
			writeSeparator(&b, '_')
			i++
		case c == '_' || c == '-':
			writeSeparator(&b, c)
			i++
		case isUnreserved(c):
			b.WriteByte(c)
			i++
		case c == '%' && i+2 < len(text) && isHex(text[i+1]) && isHex(text[i+2]):
			b.WriteString(text[i : i+3])
			i += 3
		default:
			r, size := utf8.DecodeRuneInString(text[i:])
			if r != utf8.RuneError && unicode.IsSpace(r) {
				i += size
				continue
			}
			for _, x := range []byte(text[i : i+size]) {
				fmt.Fprintf(&b, "%%%02X", x)
			}
			i += size
		}
	}

	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return Unnamed
	}
	return out
}

// writeSeparator appends sep unless the builder already ends with a
// separator.
func writeSeparator(b *strings.Builder, sep byte) {
	s := b.String()
	if n := len(s); n > 0 && (s[n-1] == '_' || s[n-1] == '-') {
		return
	}
	b.WriteByte(sep)
}

func isUnreserved(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// PascalCase joins the words of s, capitalising each one.
func PascalCase(s string) string {
	var result strings.Builder
	for _, word := range splitWords(s) {
		result.WriteString(capitalize(word))
	}
	return result.String()
}

func splitWords(s string) []string {
	var words []string
	var current strings.Builder

	for i, r := range s {
		if r == '_' || r == '-' || r == ' ' || r == '.' || r == '/' {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
			continue
		}

		if unicode.IsUpper(r) && i > 0 {
			prev := rune(s[i-1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				if current.Len() > 0 {
					words = append(words, current.String())
					current.Reset()
				}
			}
		}

		current.WriteRune(r)
	}

	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	for i := 1; i < len(runes); i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}
