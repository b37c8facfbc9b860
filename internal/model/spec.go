package model

import (
	"net/url"
	"strings"
)

type Spec struct {
	Version    string // value of the openapi or swagger field
	Info       Info
	Servers    []Server
	Tags       []Tag
	Operations []Operation
	Schemas    []Schema
	Security   []SecurityScheme
	// Global security requirements, each entry an alternative.
	Requirements []SecurityRequirement
}

// IsSwagger reports whether the document is a Swagger 2.0 description.
func (s *Spec) IsSwagger() bool {
	return strings.HasPrefix(s.Version, "2")
}

// ComponentName returns the component schema name a local reference points
// at, if the reference names a reusable schema of this document.
func (s *Spec) ComponentName(ref string) (string, bool) {
	var name string
	switch {
	case strings.HasPrefix(ref, "#/components/schemas/"):
		name = strings.TrimPrefix(ref, "#/components/schemas/")
	case strings.HasPrefix(ref, "#/definitions/"):
		name = strings.TrimPrefix(ref, "#/definitions/")
	default:
		return "", false
	}
	if strings.Contains(name, "/") {
		return "", false
	}
	name = UnescapePointerToken(name)
	if s.SchemaByName(name) == nil {
		return "", false
	}
	return name, true
}

// SchemaByName returns a component schema by name, or nil.
func (s *Spec) SchemaByName(name string) *Schema {
	for i := range s.Schemas {
		if s.Schemas[i].Name == name {
			return &s.Schemas[i]
		}
	}
	return nil
}

// SchemaRef returns the local reference of a component schema.
func (s *Spec) SchemaRef(name string) string {
	token := strings.NewReplacer("~", "~0", "/", "~1").Replace(name)
	if s.IsSwagger() {
		return "#/definitions/" + token
	}
	return "#/components/schemas/" + token
}

// UnescapePointerToken decodes a single JSON pointer reference token,
// including percent escapes from the URI fragment form.
func UnescapePointerToken(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		s = u
	}
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(s)
}

type Info struct {
	Title       string
	Description string
	Version     string
	License     string
}

type Server struct {
	URL         string
	Description string
}

type Tag struct {
	Name        string
	Description string
}
