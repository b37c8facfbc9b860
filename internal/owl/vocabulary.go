package owl

// W3C and community vocabularies referenced by the generated ontologies.
const (
	NamespaceRDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NamespaceRDFS    = "http://www.w3.org/2000/01/rdf-schema#"
	NamespaceOWL     = "http://www.w3.org/2002/07/owl#"
	NamespaceXSD     = "http://www.w3.org/2001/XMLSchema#"
	NamespaceDC      = "http://purl.org/dc/elements/1.1/"
	NamespaceDCTerms = "http://purl.org/dc/terms/"
	NamespaceSKOS    = "http://www.w3.org/2004/02/skos/core#"
	NamespaceVANN    = "http://purl.org/vocab/vann/"
	NamespaceCC      = "http://creativecommons.org/ns#"
	NamespaceO2O     = "https://karlhammar.com/owl2oas/o2o.owl#"
)

// LicenseCCBY is the license attached to every generated ontology.
const LicenseCCBY = "https://creativecommons.org/licenses/by/4.0/"

// Prefix binds a short name to a namespace IRI.
type Prefix struct {
	Name string
	URI  string
}

// DefaultPrefixes returns the fixed prefix block followed by the api
// namespace of the document.
func DefaultPrefixes(namespace string) []Prefix {
	return []Prefix{
		{Name: "rdf", URI: NamespaceRDF},
		{Name: "rdfs", URI: NamespaceRDFS},
		{Name: "owl", URI: NamespaceOWL},
		{Name: "xsd", URI: NamespaceXSD},
		{Name: "dc", URI: NamespaceDC},
		{Name: "dcterms", URI: NamespaceDCTerms},
		{Name: "skos", URI: NamespaceSKOS},
		{Name: "vann", URI: NamespaceVANN},
		{Name: "cc", URI: NamespaceCC},
		{Name: "o2o", URI: NamespaceO2O},
		{Name: "api", URI: namespace},
	}
}

// AnnotationKey names an annotation property attached to classes and
// properties.
type AnnotationKey string

const (
	AnnotationMethod       AnnotationKey = "method"
	AnnotationPath         AnnotationKey = "path"
	AnnotationOperationID  AnnotationKey = "operationId"
	AnnotationEndpoint     AnnotationKey = "endpoint"
	AnnotationStatusCode   AnnotationKey = "statusCode"
	AnnotationMediaType    AnnotationKey = "mediaType"
	AnnotationParameterIn  AnnotationKey = "parameterIn"
	AnnotationRequired     AnnotationKey = "required"
	AnnotationDeprecated   AnnotationKey = "deprecated"
	AnnotationExample      AnnotationKey = "example"
	AnnotationFormat       AnnotationKey = "format"
	AnnotationPattern      AnnotationKey = "pattern"
	AnnotationAllowedValue AnnotationKey = "allowedValue"
	AnnotationMinimum      AnnotationKey = "minimum"
	AnnotationMaximum      AnnotationKey = "maximum"
	AnnotationMinLength    AnnotationKey = "minLength"
	AnnotationMaxLength    AnnotationKey = "maxLength"
	// AnnotationCollection marks properties whose values form a collection.
	AnnotationCollection   AnnotationKey = "isCollection"
)

// AnnotationKeys lists every annotation key in declaration order.
func AnnotationKeys() []AnnotationKey {
	return []AnnotationKey{
		AnnotationMethod, AnnotationPath, AnnotationOperationID, AnnotationEndpoint,
		AnnotationStatusCode, AnnotationMediaType, AnnotationParameterIn,
		AnnotationRequired, AnnotationDeprecated, AnnotationExample,
		AnnotationFormat, AnnotationPattern, AnnotationAllowedValue,
		AnnotationMinimum, AnnotationMaximum, AnnotationMinLength, AnnotationMaxLength,
		AnnotationCollection,
	}
}

func (k AnnotationKey) prefix() string {
	switch k {
	case AnnotationDeprecated:
		return "owl"
	case AnnotationEndpoint:
		return "o2o"
	case AnnotationAllowedValue, AnnotationMinimum, AnnotationMaximum,
		AnnotationMinLength, AnnotationMaxLength, AnnotationCollection:
		return "api"
	default:
		return "dc"
	}
}

// CURIE returns the prefixed name of the annotation property.
func (k AnnotationKey) CURIE() string {
	return k.prefix() + ":" + string(k)
}

// IRI returns the absolute annotation property IRI within a document whose
// api namespace is ns.
func (k AnnotationKey) IRI(ns string) string {
	switch k.prefix() {
	case "owl":
		return NamespaceOWL + string(k)
	case "o2o":
		return NamespaceO2O + string(k)
	case "api":
		return ns + string(k)
	default:
		return NamespaceDC + string(k)
	}
}
