package templates

import (
	"fmt"
	"strings"
	"text/template"
)

var (
	turtleEscaper = strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	xmlEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
)

// EscapeTurtle escapes text for a double-quoted Turtle literal.
func EscapeTurtle(s string) string {
	return turtleEscaper.Replace(s)
}

// EscapeXML escapes text for XML character data and attribute values.
// Characters XML 1.0 cannot carry become U+FFFD.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(strings.Map(xmlChar, s))
}

func xmlChar(r rune) rune {
	switch {
	case r == '\t', r == '\n', r == '\r',
		r >= 0x20 && r <= 0xD7FF,
		r >= 0xE000 && r <= 0xFFFD,
		r >= 0x10000 && r <= 0x10FFFF:
		return r
	}
	return '\uFFFD'
}

// EscapeIRI percent-encodes the characters an IRI reference may not carry:
// controls, space and <>"{}|^`\.
func EscapeIRI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c <= 0x20 || c == 0x7f || strings.IndexByte("<>\"{}|^`\\", c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Funcs returns the functions available to the renderer templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"turtle": EscapeTurtle,
		"xml":    EscapeXML,
		"iri":    EscapeIRI,
		"join":   strings.Join,
	}
}
