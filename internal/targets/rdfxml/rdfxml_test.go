package rdfxml_test

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kolah/ontogen/internal/owl"
	"github.com/kolah/ontogen/internal/targets/rdfxml"
	"github.com/kolah/ontogen/internal/templates"
	embedded "github.com/kolah/ontogen/templates"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) *owl.Document {
	t.Helper()
	doc := owl.NewDocument("http://example.org/api")
	doc.Title = "Pets & Co"
	doc.Description = "Says \"hi\" <loudly>"
	doc.Version = "1.0"
	doc.VersionURI = "http://example.org/api/1.0"
	doc.Created = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, doc.AddClass(&owl.Class{ID: "Pets", Label: "Pets"}))
	pet := &owl.Class{ID: "Pet", Label: "Pet", Comment: `A "pet"`, SuperClasses: []string{"Pets"}}
	pet.Annotate(owl.AnnotationExample, `{"name":"Rex"}`)
	require.NoError(t, doc.AddClass(pet))

	name := &owl.Property{
		ID: "Pet_name", Label: "name", Kind: owl.DatatypeProperty,
		Domain: "Pet", RangeType: owl.XSDString, Required: true,
	}
	name.Annotate(owl.AnnotationDeprecated, "true")
	require.NoError(t, doc.AddProperty(name))
	require.NoError(t, doc.AddProperty(&owl.Property{
		ID: "Pet_has_owner", Label: "has owner", Kind: owl.ObjectProperty,
		Domain: "Pet", RangeClass: "Pets", Functional: true,
	}))
	require.NoError(t, doc.AddProperty(&owl.Property{
		ID: "Pet_has_friends", Label: "has friends", Kind: owl.ObjectProperty,
		Domain: "Pet", RangeClass: "Pet", Collection: true, InverseOf: "belongsToPet",
	}))

	require.NoError(t, doc.AddIndividual(&owl.Individual{
		ID: "Pet_example", Type: "Pet", Label: "example",
		Values: []owl.Literal{
			{Property: "Pet_name", Value: "Rex & Co"},
			{Property: "Pet_caf%C3%A9", Value: "latte"},
		},
		Links: []owl.Link{{Property: "Pet_has_owner", Target: "Pets"}},
	}))
	return doc
}

func generate(t *testing.T, doc *owl.Document) string {
	t.Helper()
	engine, err := templates.NewEngine(embedded.FS, "", templates.Funcs())
	require.NoError(t, err)
	out, err := rdfxml.New().Generate(engine, doc)
	require.NoError(t, err)
	return out
}

func TestTarget(t *testing.T) {
	target := rdfxml.New()
	require.Equal(t, "rdfxml", target.Name())
	require.Equal(t, "application/rdf+xml", target.MediaType())
	require.Equal(t, ".rdf", target.Extension())
}

func TestGenerate(t *testing.T) {
	out := generate(t, fixture(t))

	require.True(t, strings.HasPrefix(out, `<?xml version="1.0"?>
<rdf:RDF xmlns="http://example.org/api#"
     xml:base="http://example.org/api"
     xmlns:xml="http://www.w3.org/XML/1998/namespace"
     xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
`))
	require.Contains(t, out, `     xmlns:api="http://example.org/api#">`)
	require.True(t, strings.HasSuffix(out, "</rdf:RDF>\n"))

	require.Contains(t, out, `    <owl:Ontology rdf:about="http://example.org/api">
        <owl:versionIRI rdf:resource="http://example.org/api/1.0"/>
        <dc:title xml:lang="en">Pets &amp; Co API Ontology</dc:title>
        <dc:description xml:lang="en">Says &quot;hi&quot; &lt;loudly&gt;</dc:description>
        <dcterms:created rdf:datatype="http://www.w3.org/2001/XMLSchema#date">2024-01-02</dcterms:created>
`)
	require.Contains(t, out, `    <owl:AnnotationProperty rdf:about="http://example.org/api#isCollection"/>`)
	require.Contains(t, out, `    <owl:AnnotationProperty rdf:about="http://www.w3.org/2002/07/owl#deprecated"/>`)

	require.Contains(t, out, `    <owl:Class rdf:about="http://example.org/api#Pet">
        <rdfs:subClassOf rdf:resource="http://example.org/api#Pets"/>
        <rdfs:label xml:lang="en">Pet</rdfs:label>
        <rdfs:comment xml:lang="en">A &quot;pet&quot;</rdfs:comment>
        <dc:example>{&quot;name&quot;:&quot;Rex&quot;}</dc:example>
    </owl:Class>
`)

	require.Contains(t, out, `    <owl:DatatypeProperty rdf:about="http://example.org/api#Pet_name">
        <rdfs:label xml:lang="en">name</rdfs:label>
        <rdfs:domain rdf:resource="http://example.org/api#Pet"/>
        <rdfs:range rdf:resource="http://www.w3.org/2001/XMLSchema#string"/>
        <owl:minCardinality rdf:datatype="http://www.w3.org/2001/XMLSchema#nonNegativeInteger">1</owl:minCardinality>
        <owl:deprecated rdf:datatype="http://www.w3.org/2001/XMLSchema#boolean">true</owl:deprecated>
    </owl:DatatypeProperty>
`)
	require.Contains(t, out, `    <owl:ObjectProperty rdf:about="http://example.org/api#Pet_has_owner">
        <rdf:type rdf:resource="http://www.w3.org/2002/07/owl#FunctionalProperty"/>
`)
	require.Contains(t, out, `        <owl:inverseOf rdf:resource="http://example.org/api#belongsToPet"/>
        <api:isCollection rdf:datatype="http://www.w3.org/2001/XMLSchema#boolean">true</api:isCollection>
`)

	require.Contains(t, out, `    <owl:NamedIndividual rdf:about="http://example.org/api#Pet_example">
        <rdf:type rdf:resource="http://example.org/api#Pet"/>
        <rdfs:label xml:lang="en">example</rdfs:label>
        <api:Pet_name>Rex &amp; Co</api:Pet_name>
        <rdf:value>latte</rdf:value>
        <api:Pet_has_owner rdf:resource="http://example.org/api#Pets"/>
    </owl:NamedIndividual>
`)
}

func TestWellFormed(t *testing.T) {
	decoder := xml.NewDecoder(strings.NewReader(generate(t, fixture(t))))
	elements := 0
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if _, ok := tok.(xml.StartElement); ok {
			elements++
		}
	}
	require.Greater(t, elements, 10)
}

func TestControlCharactersStayWellFormed(t *testing.T) {
	doc := fixture(t)
	doc.Description = "bell\u0007here"
	require.NoError(t, doc.AddClass(&owl.Class{ID: "Alarm", Label: "alarm\x1b", Comment: "ring\u0007ring"}))

	texts := map[string][]string{}
	var current string
	decoder := xml.NewDecoder(strings.NewReader(generate(t, doc)))
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		switch tok := tok.(type) {
		case xml.StartElement:
			current = tok.Name.Local
		case xml.EndElement:
			current = ""
		case xml.CharData:
			if current != "" {
				texts[current] = append(texts[current], string(tok))
			}
		}
	}
	require.Contains(t, texts["description"], "bell\uFFFDhere")
	require.Contains(t, texts["comment"], "ring\uFFFDring")
	require.Contains(t, texts["label"], "alarm\uFFFD")
}

func TestSections(t *testing.T) {
	out := generate(t, fixture(t))

	last := strings.Index(out, "// Annotation properties")
	require.GreaterOrEqual(t, last, 0)
	for _, title := range []string{"Classes", "Object Properties", "Data Properties", "Individuals"} {
		i := strings.Index(out, "    // "+title+"\n")
		require.Greater(t, i, last, title)
		last = i
	}

	bare := owl.NewDocument("http://example.org/api/")
	require.NoError(t, bare.AddClass(&owl.Class{ID: "Bare", Label: "Bare"}))
	out = generate(t, bare)
	require.Contains(t, out, `<owl:Class rdf:about="http://example.org/api/Bare">`)
	require.NotContains(t, out, "// Individuals")
	require.NotContains(t, out, "dcterms:created")
}

func TestDeterministic(t *testing.T) {
	require.Equal(t, generate(t, fixture(t)), generate(t, fixture(t)))
}
