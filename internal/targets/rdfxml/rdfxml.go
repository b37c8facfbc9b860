// Package rdfxml renders an owl.Document as RDF/XML.
package rdfxml

import (
	"github.com/kolah/ontogen/internal/owl"
	"github.com/kolah/ontogen/internal/templates"
)

const templateName = "rdfxml/ontology.rdf.tmpl"

type Target struct{}

func New() *Target {
	return &Target{}
}

func (t *Target) Name() string {
	return "rdfxml"
}

func (t *Target) MediaType() string {
	return "application/rdf+xml"
}

func (t *Target) Extension() string {
	return ".rdf"
}

// element is one property element of a node. Resource holds an absolute
// IRI; otherwise Text is the literal content.
type element struct {
	Name     string
	Resource string
	Datatype string
	Lang     string
	Text     string
}

type node struct {
	Tag      string
	About    string
	Elements []element
}

func (n *node) resource(name, iri string) {
	n.Elements = append(n.Elements, element{Name: name, Resource: iri})
}

func (n *node) lang(name, text string) {
	n.Elements = append(n.Elements, element{Name: name, Text: text, Lang: "en"})
}

func (n *node) plain(name, text string) {
	n.Elements = append(n.Elements, element{Name: name, Text: text})
}

func (n *node) typed(name, text string, dt owl.Datatype) {
	n.Elements = append(n.Elements, element{Name: name, Text: text, Datatype: dt.IRI()})
}

type section struct {
	Title string
	Nodes []node
}

type templateData struct {
	Namespace            string
	Base                 string
	Prefixes             []owl.Prefix
	Ontology             node
	AnnotationProperties []string
	Sections             []section
}

func (t *Target) Generate(engine templates.Engine, doc *owl.Document) (string, error) {
	data := templateData{
		Namespace: doc.Namespace(),
		Base:      doc.BaseURI,
		Prefixes:  doc.Prefixes,
		Ontology:  ontology(doc),
	}
	for _, key := range owl.AnnotationKeys() {
		data.AnnotationProperties = append(data.AnnotationProperties, key.IRI(doc.Namespace()))
	}

	add := func(title string, nodes []node) {
		if len(nodes) > 0 {
			data.Sections = append(data.Sections, section{Title: title, Nodes: nodes})
		}
	}

	var classes []node
	for _, c := range doc.Classes {
		classes = append(classes, classNode(doc, c))
	}
	add("Classes", classes)

	var objectProps []node
	for _, p := range doc.ObjectProperties {
		objectProps = append(objectProps, propertyNode(doc, p))
	}
	add("Object Properties", objectProps)

	var datatypeProps []node
	for _, p := range doc.DatatypeProperties {
		datatypeProps = append(datatypeProps, propertyNode(doc, p))
	}
	add("Data Properties", datatypeProps)

	var individuals []node
	for _, i := range doc.Individuals {
		individuals = append(individuals, individualNode(doc, i))
	}
	add("Individuals", individuals)

	return engine.Execute(templateName, data)
}

func ontology(doc *owl.Document) node {
	n := node{Tag: "owl:Ontology", About: doc.BaseURI}
	if doc.VersionURI != "" {
		n.resource("owl:versionIRI", doc.VersionURI)
	}
	if doc.Title != "" {
		n.lang("dc:title", doc.Title+" API Ontology")
	}
	if doc.Description != "" {
		n.lang("dc:description", doc.Description)
	}
	if !doc.Created.IsZero() {
		n.typed("dcterms:created", doc.Created.Format("2006-01-02"), owl.XSDDate)
	}
	n.plain("vann:preferredNamespacePrefix", "api")
	n.typed("vann:preferredNamespaceUri", doc.Namespace(), owl.XSDAnyURI)
	if doc.SeeAlso != "" {
		n.resource("rdfs:seeAlso", doc.SeeAlso)
	}
	if doc.Version != "" {
		n.typed("owl:versionInfo", doc.Version, owl.XSDString)
	}
	if doc.License != "" {
		n.resource("cc:license", doc.License)
	}
	return n
}

func classNode(doc *owl.Document, c *owl.Class) node {
	n := node{Tag: "owl:Class", About: doc.IRI(c.ID)}
	for _, sc := range c.SuperClasses {
		n.resource("rdfs:subClassOf", doc.IRI(sc))
	}
	n.lang("rdfs:label", c.Label)
	if c.Comment != "" {
		n.lang("rdfs:comment", c.Comment)
	}
	annotations(&n, c.Annotations)
	return n
}

func propertyNode(doc *owl.Document, p *owl.Property) node {
	n := node{Tag: "owl:DatatypeProperty", About: doc.IRI(p.ID)}
	if p.Kind == owl.ObjectProperty {
		n.Tag = "owl:ObjectProperty"
		if p.Functional {
			n.resource("rdf:type", owl.NamespaceOWL+"FunctionalProperty")
		}
	}

	n.lang("rdfs:label", p.Label)
	if p.Comment != "" {
		n.lang("rdfs:comment", p.Comment)
	}
	n.resource("rdfs:domain", doc.IRI(p.Domain))
	if p.Kind == owl.ObjectProperty {
		n.resource("rdfs:range", doc.IRI(p.RangeClass))
	} else {
		n.resource("rdfs:range", p.RangeType.IRI())
	}
	if p.InverseOf != "" {
		n.resource("owl:inverseOf", doc.IRI(p.InverseOf))
	}
	if p.Collection {
		n.typed(owl.AnnotationCollection.CURIE(), "true", owl.XSDBoolean)
	}
	if p.Required {
		n.Elements = append(n.Elements, element{
			Name:     "owl:minCardinality",
			Text:     "1",
			Datatype: owl.NamespaceXSD + "nonNegativeInteger",
		})
	}
	annotations(&n, p.Annotations)
	return n
}

// individualNode writes literal values and links as api: property elements.
// Property identifiers that cannot be written as an XML element name fall
// back to rdf:value for literals and rdfs:seeAlso for links.
func individualNode(doc *owl.Document, i *owl.Individual) node {
	n := node{Tag: "owl:NamedIndividual", About: doc.IRI(i.ID)}
	n.resource("rdf:type", doc.IRI(i.Type))
	if i.Label != "" {
		n.lang("rdfs:label", i.Label)
	}
	if i.Value != "" {
		n.plain("rdf:value", i.Value)
	}
	for _, v := range i.Values {
		name := "rdf:value"
		if isNCName(v.Property) {
			name = "api:" + v.Property
		}
		n.plain(name, v.Value)
	}
	for _, l := range i.Links {
		name := "rdfs:seeAlso"
		if isNCName(l.Property) {
			name = "api:" + l.Property
		}
		n.resource(name, doc.IRI(l.Target))
	}
	return n
}

func annotations(n *node, list []owl.Annotation) {
	for _, a := range list {
		if a.Key == owl.AnnotationDeprecated {
			n.typed(a.Key.CURIE(), a.Value, owl.XSDBoolean)
			continue
		}
		n.plain(a.Key.CURIE(), a.Value)
	}
}

// isNCName reports whether s is usable as the local part of an XML element
// name. Identifiers are ASCII after sanitizing, so only ASCII is accepted.
func isNCName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case i > 0 && (c >= '0' && c <= '9' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}
