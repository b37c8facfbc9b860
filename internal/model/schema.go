package model

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Kind is the closed set of schema shapes the builder distinguishes.
type Kind int

const (
	KindPrimitive Kind = iota
	KindObject
	KindArray
	KindReference
	KindComposition
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindReference:
		return "reference"
	case KindComposition:
		return "composition"
	default:
		return "primitive"
	}
}

type Schema struct {
	Kind        Kind
	Name        string // component name, empty for inline schemas
	Description string
	Type        SchemaType
	Format      string
	Deprecated  bool
	Example     any

	// KindObject, and the own properties of a KindComposition
	Properties []Property
	Required   []string

	// KindArray
	Items *Schema

	Enum []any

	// KindComposition
	AllOf []*Schema
	OneOf []*Schema
	AnyOf []*Schema

	// KindReference
	Ref string

	Minimum   *float64
	Maximum   *float64
	MinLength *int64
	MaxLength *int64
	Pattern   string
}

// EmptyObject returns the schema substituted for references that cannot be
// resolved.
func EmptyObject() *Schema {
	return &Schema{Kind: KindObject, Type: TypeObject}
}

// IsRequired reports whether a property name appears in the required list.
func (s *Schema) IsRequired(name string) bool {
	return slices.Contains(s.Required, name)
}

// HasProperties reports whether the schema declares object properties.
func (s *Schema) HasProperties() bool {
	return len(s.Properties) > 0
}

type SchemaType string

const (
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
	TypeArray   SchemaType = "array"
	TypeObject  SchemaType = "object"
	TypeNull    SchemaType = "null"
)

type Property struct {
	Name   string
	Schema *Schema
}

// Object is a decoded mapping value (examples, enum members) that keeps
// declaration order.
type Object []Field

type Field struct {
	Key   string
	Value any
}

type SecurityScheme struct {
	Name         string
	Type         SecuritySchemeType
	Description  string
	In           string
	ParamName    string
	Scheme       string
	BearerFormat string
}

type SecuritySchemeType string

const (
	SecurityTypeAPIKey        SecuritySchemeType = "apiKey"
	SecurityTypeHTTP          SecuritySchemeType = "http"
	SecurityTypeBasic         SecuritySchemeType = "basic" // Swagger 2.0
	SecurityTypeOAuth2        SecuritySchemeType = "oauth2"
	SecurityTypeOpenIDConnect SecuritySchemeType = "openIdConnect"
	SecurityTypeMutualTLS     SecuritySchemeType = "mutualTLS"
)

// MarshalJSON encodes the object with its keys in declaration order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the value of a key.
func (o Object) Get(key string) (any, bool) {
	for _, f := range o {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}
