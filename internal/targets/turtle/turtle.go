// Package turtle renders an owl.Document as Turtle.
package turtle

import (
	"github.com/kolah/ontogen/internal/owl"
	"github.com/kolah/ontogen/internal/templates"
)

const templateName = "turtle/ontology.ttl.tmpl"

type Target struct{}

func New() *Target {
	return &Target{}
}

func (t *Target) Name() string {
	return "turtle"
}

func (t *Target) MediaType() string {
	return "text/turtle"
}

func (t *Target) Extension() string {
	return ".ttl"
}

type term struct {
	Kind     string // iri, plain, lang or typed
	Value    string
	Datatype string
}

type statement struct {
	Predicate string
	Objects   []term
}

type stanza struct {
	Subject    string
	Statements []statement
}

func (s *stanza) add(predicate string, objects ...term) {
	s.Statements = append(s.Statements, statement{Predicate: predicate, Objects: objects})
}

type section struct {
	Title   string
	Stanzas []stanza
}

type templateData struct {
	Prefixes []owl.Prefix
	Ontology stanza
	Sections []section
}

func iri(value string) term {
	return term{Kind: "iri", Value: "<" + templates.EscapeIRI(value) + ">"}
}

func node(id string) term {
	return term{Kind: "iri", Value: "api:" + id}
}

func curie(value string) term {
	return term{Kind: "iri", Value: value}
}

func lang(value string) term {
	return term{Kind: "lang", Value: value}
}

func plain(value string) term {
	return term{Kind: "plain", Value: value}
}

func typed(value string, dt owl.Datatype) term {
	return term{Kind: "typed", Value: value, Datatype: dt.CURIE()}
}

func (t *Target) Generate(engine templates.Engine, doc *owl.Document) (string, error) {
	data := templateData{
		Prefixes: doc.Prefixes,
		Ontology: ontology(doc),
	}

	add := func(title string, stanzas []stanza) {
		if len(stanzas) > 0 {
			data.Sections = append(data.Sections, section{Title: title, Stanzas: stanzas})
		}
	}

	var classes []stanza
	for _, c := range doc.Classes {
		classes = append(classes, classStanza(c))
	}
	add("Classes", classes)

	var objectProps []stanza
	for _, p := range doc.ObjectProperties {
		objectProps = append(objectProps, propertyStanza(p))
	}
	add("Object Properties", objectProps)

	var datatypeProps []stanza
	for _, p := range doc.DatatypeProperties {
		datatypeProps = append(datatypeProps, propertyStanza(p))
	}
	add("Data Properties", datatypeProps)

	var individuals []stanza
	for _, i := range doc.Individuals {
		individuals = append(individuals, individualStanza(i))
	}
	add("Individuals", individuals)

	return engine.Execute(templateName, data)
}

func ontology(doc *owl.Document) stanza {
	s := stanza{Subject: "<" + templates.EscapeIRI(doc.BaseURI) + ">"}
	s.add("a", curie("owl:Ontology"))
	if doc.Title != "" {
		s.add("dc:title", lang(doc.Title+" API Ontology"))
	}
	if doc.Description != "" {
		s.add("dc:description", lang(doc.Description))
	}
	if doc.VersionURI != "" {
		s.add("owl:versionIRI", iri(doc.VersionURI))
	}
	if doc.Version != "" {
		s.add("owl:versionInfo", typed(doc.Version, owl.XSDString))
	}
	if !doc.Created.IsZero() {
		s.add("dcterms:created", typed(doc.Created.Format("2006-01-02"), owl.XSDDate))
	}
	s.add("vann:preferredNamespacePrefix", plain("api"))
	s.add("vann:preferredNamespaceUri", typed(doc.Namespace(), owl.XSDAnyURI))
	if doc.SeeAlso != "" {
		s.add("rdfs:seeAlso", iri(doc.SeeAlso))
	}
	if doc.License != "" {
		s.add("cc:license", iri(doc.License))
	}
	return s
}

func classStanza(c *owl.Class) stanza {
	s := stanza{Subject: "api:" + c.ID}
	s.add("a", curie("owl:Class"))
	if len(c.SuperClasses) > 0 {
		var supers []term
		for _, sc := range c.SuperClasses {
			supers = append(supers, node(sc))
		}
		s.add("rdfs:subClassOf", supers...)
	}
	s.add("rdfs:label", lang(c.Label))
	if c.Comment != "" {
		s.add("rdfs:comment", lang(c.Comment))
	}
	annotations(&s, c.Annotations)
	return s
}

func propertyStanza(p *owl.Property) stanza {
	s := stanza{Subject: "api:" + p.ID}
	if p.Kind == owl.ObjectProperty {
		kinds := []term{curie("owl:ObjectProperty")}
		if p.Functional {
			kinds = append(kinds, curie("owl:FunctionalProperty"))
		}
		s.add("a", kinds...)
	} else {
		s.add("a", curie("owl:DatatypeProperty"))
	}

	s.add("rdfs:label", lang(p.Label))
	if p.Comment != "" {
		s.add("rdfs:comment", lang(p.Comment))
	}
	s.add("rdfs:domain", node(p.Domain))
	if p.Kind == owl.ObjectProperty {
		s.add("rdfs:range", node(p.RangeClass))
	} else {
		s.add("rdfs:range", curie(p.RangeType.CURIE()))
	}
	if p.InverseOf != "" {
		s.add("owl:inverseOf", node(p.InverseOf))
	}
	if p.Collection {
		s.add(owl.AnnotationCollection.CURIE(), typed("true", owl.XSDBoolean))
	}
	if p.Required {
		s.add("owl:minCardinality", term{Kind: "typed", Value: "1", Datatype: "xsd:nonNegativeInteger"})
	}
	annotations(&s, p.Annotations)
	return s
}

func individualStanza(i *owl.Individual) stanza {
	s := stanza{Subject: "api:" + i.ID}
	s.add("a", curie("owl:NamedIndividual"), node(i.Type))
	if i.Label != "" {
		s.add("rdfs:label", lang(i.Label))
	}
	if i.Value != "" {
		s.add("rdf:value", plain(i.Value))
	}
	for _, v := range i.Values {
		s.add("api:"+v.Property, plain(v.Value))
	}
	for _, l := range i.Links {
		s.add("api:"+l.Property, node(l.Target))
	}
	return s
}

// annotations adds one statement per key, keeping repeated keys together.
func annotations(s *stanza, list []owl.Annotation) {
	index := make(map[owl.AnnotationKey]int)
	for _, a := range list {
		value := plain(a.Value)
		if a.Key == owl.AnnotationDeprecated {
			value = typed(a.Value, owl.XSDBoolean)
		}
		if i, ok := index[a.Key]; ok {
			s.Statements[i].Objects = append(s.Statements[i].Objects, value)
			continue
		}
		index[a.Key] = len(s.Statements)
		s.add(a.Key.CURIE(), value)
	}
}
