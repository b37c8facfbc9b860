// Package builder turns a model.Spec into an owl.Document.
//
// Operations are modeled first, then every component schema not reached
// through an operation is expanded under the API root class, and finally the
// security schemes are recorded as individuals. The builder never renders;
// both output formats walk the document it produces.
package builder

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kolah/ontogen/internal/diag"
	"github.com/kolah/ontogen/internal/model"
	"github.com/kolah/ontogen/internal/owl"
)

// Resolver returns the schema a reference points at. Failures are expected
// to degrade to an empty object schema.
type Resolver interface {
	Resolve(ctx context.Context, ref string) *model.Schema
}

// Options tune how far and how eagerly schemas are expanded.
type Options struct {
	MaxDepth int
	Dedup    DedupMode
}

// Builder models one specification. It is not safe for concurrent use.
type Builder struct {
	spec     *model.Spec
	doc      *owl.Document
	resolver Resolver
	guard    *Guard
	diag     *diag.Collector

	root string
}

// New returns a builder that writes spec into doc, reporting recoverable
// problems to warnings.
func New(spec *model.Spec, doc *owl.Document, resolver Resolver, warnings *diag.Collector, opts Options) *Builder {
	if warnings == nil {
		warnings = diag.NewCollector(nil)
	}
	return &Builder{
		spec:     spec,
		doc:      doc,
		resolver: resolver,
		guard:    NewGuard(opts.MaxDepth, opts.Dedup),
		diag:     warnings,
	}
}

// Current names the class being processed, for error context.
func (b *Builder) Current() string {
	return b.guard.Current()
}

// Build populates the document. It stops at the first structural error.
func (b *Builder) Build(ctx context.Context) error {
	b.describe()

	if err := b.addRoot(); err != nil {
		return err
	}
	// component schemas keep their own names over operations and tags
	for _, s := range b.spec.Schemas {
		b.doc.UniqueID(s.Name, "schema:"+b.spec.SchemaRef(s.Name))
	}
	if err := b.modelOperations(ctx); err != nil {
		return err
	}
	for _, s := range b.spec.Schemas {
		if _, err := b.componentClass(ctx, s.Name); err != nil {
			return fmt.Errorf("schema %s: %w", s.Name, err)
		}
	}
	if err := b.modelSecurity(); err != nil {
		return fmt.Errorf("security: %w", err)
	}
	return nil
}

func (b *Builder) describe() {
	info := b.spec.Info
	b.doc.Title = info.Title
	b.doc.Description = info.Description
	b.doc.Version = info.Version
	if info.Version != "" {
		b.doc.VersionURI = strings.TrimRight(b.doc.BaseURI, "/") + "/" + url.PathEscape(info.Version)
	}
	if info.License != "" {
		b.doc.License = info.License
	}
	if len(b.spec.Servers) > 0 {
		b.doc.SeeAlso = b.spec.Servers[0].URL
	}
}

func (b *Builder) addRoot() error {
	label := b.spec.Info.Title
	if label == "" {
		label = "API"
	}
	b.root = b.doc.UniqueID(label, "root")
	return b.doc.AddClass(&owl.Class{
		ID:      b.root,
		Label:   label,
		Comment: b.spec.Info.Description,
	})
}

// taxonomyClass returns a fixed vocabulary class, creating it and its
// parent on first use.
func (b *Builder) taxonomyClass(name, parent string) (string, error) {
	owner := "taxonomy:" + name
	if id, ok := b.doc.LookupID(owner); ok {
		return id, nil
	}

	var supers []string
	if parent != "" && parent != name {
		parentID, err := b.taxonomyClass(parent, "")
		if err != nil {
			return "", err
		}
		supers = append(supers, parentID)
	}

	id := b.doc.UniqueID(name, owner)
	if err := b.doc.AddClass(&owl.Class{ID: id, Label: name, SuperClasses: supers}); err != nil {
		return "", err
	}
	return id, nil
}

// datatypeProperty declares a plain datatype property once and returns its
// identifier.
func (b *Builder) datatypeProperty(domain, name string, typ owl.Datatype) (string, error) {
	owner := "property:" + domain + "/" + name
	id := b.doc.UniqueID(domain+"_"+name, owner)
	if _, ok := b.doc.Property(id); ok {
		return id, nil
	}
	return id, b.doc.AddProperty(&owl.Property{
		ID:        id,
		Label:     name,
		Kind:      owl.DatatypeProperty,
		Domain:    domain,
		RangeType: typ,
	})
}
