package model

type Operation struct {
	ID          string // declared operationId, may be empty
	Method      Method
	Path        string
	Summary     string
	Description string
	Tags        []string
	Parameters  []Parameter
	RequestBody *RequestBody
	Responses   []Response
	Deprecated  bool
	Security    []SecurityRequirement
}

type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
	MethodTrace   Method = "TRACE"
)

// ParseMethod maps a path item key to a recognised method.
func ParseMethod(key string) (Method, bool) {
	switch key {
	case "get":
		return MethodGet, true
	case "post":
		return MethodPost, true
	case "put":
		return MethodPut, true
	case "delete":
		return MethodDelete, true
	case "patch":
		return MethodPatch, true
	case "head":
		return MethodHead, true
	case "options":
		return MethodOptions, true
	case "trace":
		return MethodTrace, true
	}
	return "", false
}

type ParameterLocation string

const (
	LocationPath     ParameterLocation = "path"
	LocationQuery    ParameterLocation = "query"
	LocationHeader   ParameterLocation = "header"
	LocationCookie   ParameterLocation = "cookie"
	LocationFormData ParameterLocation = "formData" // Swagger 2.0
)

type Parameter struct {
	Name        string
	In          ParameterLocation
	Description string
	Required    bool
	Deprecated  bool
	Schema      *Schema
	Example     any
}

type RequestBody struct {
	Description string
	Required    bool
	Content     []MediaTypeContent
}

type MediaTypeContent struct {
	MediaType string
	Schema    *Schema
	Examples  []Example
}

type Example struct {
	Name    string
	Summary string
	Value   any
}

type Response struct {
	StatusCode  string
	Description string
	Content     []MediaTypeContent
}

type SecurityRequirement struct {
	Name   string
	Scopes []string
}
