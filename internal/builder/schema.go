package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kolah/ontogen/internal/diag"
	"github.com/kolah/ontogen/internal/model"
	"github.com/kolah/ontogen/internal/owl"
)

// maxRefHops bounds chains of references that point at other references.
const maxRefHops = 16

// componentClass returns the class of a component schema, expanding it under
// the root class on first use. A component is always expanded from depth 0
// in its own frame, so how it was first reached never truncates it.
func (b *Builder) componentClass(ctx context.Context, name string) (string, error) {
	ref := b.spec.SchemaRef(name)
	id := b.doc.UniqueID(name, "schema:"+ref)
	if !b.guard.MarkExpanded(name) {
		return id, nil
	}

	schema := b.spec.SchemaByName(name)
	class := &owl.Class{
		ID:           id,
		Label:        name,
		Comment:      schema.Description,
		SuperClasses: []string{b.root},
	}
	annotateClass(class, schema)
	if err := b.doc.AddClass(class); err != nil {
		return "", err
	}

	if err := b.Expand(ctx, id, schema, 0); err != nil {
		return "", err
	}
	if err := b.schemaIndividuals(id, schema); err != nil {
		return "", err
	}
	return id, nil
}

// Expand adds the properties of schema to the existing class classID.
func (b *Builder) Expand(ctx context.Context, classID string, schema *model.Schema, depth int) error {
	if schema == nil {
		return nil
	}
	if b.guard.Exceeded(depth) {
		b.diag.Add(diag.KindDepth, classID, "maximum depth %d reached, properties not expanded", b.guard.MaxDepth())
		return nil
	}

	b.guard.Push(classID)
	if schema.Kind == model.KindArray {
		if err := b.arrayProperty(ctx, classID, model.Property{Name: "items", Schema: schema}, false, depth); err != nil {
			return err
		}
	}
	props, required := b.flatten(ctx, schema, map[string]bool{})
	for _, p := range props {
		if err := b.property(ctx, classID, p, required[p.Name], depth); err != nil {
			return err
		}
	}
	b.guard.Pop()
	return nil
}

// flatten collects the properties of an object schema, merging allOf parts
// and the first object-valued oneOf/anyOf branch. Later parts override
// earlier properties of the same name; required lists are unioned.
func (b *Builder) flatten(ctx context.Context, s *model.Schema, visiting map[string]bool) ([]model.Property, map[string]bool) {
	var props []model.Property
	required := make(map[string]bool)

	merge := func(more []model.Property, req map[string]bool) {
		for _, p := range more {
			replaced := false
			for i := range props {
				if props[i].Name == p.Name {
					props[i] = p
					replaced = true
					break
				}
			}
			if !replaced {
				props = append(props, p)
			}
		}
		for name := range req {
			required[name] = true
		}
	}

	switch s.Kind {
	case model.KindReference:
		if visiting[s.Ref] {
			return nil, required
		}
		visiting[s.Ref] = true
		merge(b.flatten(ctx, b.resolve(ctx, s), visiting))
		return props, required

	case model.KindComposition:
		for _, part := range s.AllOf {
			if part != nil {
				merge(b.flatten(ctx, part, visiting))
			}
		}
		for _, branches := range [][]*model.Schema{s.OneOf, s.AnyOf} {
			if branch := firstObjectBranch(branches); branch != nil {
				merge(b.flatten(ctx, branch, visiting))
				break
			}
		}
	}

	own := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		own[name] = true
	}
	merge(s.Properties, own)
	return props, required
}

// resolve follows a reference until a non-reference schema is reached.
func (b *Builder) resolve(ctx context.Context, s *model.Schema) *model.Schema {
	for range maxRefHops {
		if s == nil || s.Kind != model.KindReference {
			return s
		}
		if name, ok := b.spec.ComponentName(s.Ref); ok {
			s = b.spec.SchemaByName(name)
			continue
		}
		s = b.resolver.Resolve(ctx, s.Ref)
	}
	b.diag.Add(diag.KindReference, s.Ref, "reference chain longer than %d hops", maxRefHops)
	return model.EmptyObject()
}

func firstObjectBranch(branches []*model.Schema) *model.Schema {
	for _, br := range branches {
		if isObjectValued(br) {
			return br
		}
	}
	return nil
}

func isObjectValued(s *model.Schema) bool {
	if s == nil {
		return false
	}
	switch s.Kind {
	case model.KindReference, model.KindComposition:
		return true
	case model.KindObject:
		return s.HasProperties()
	}
	return false
}

func (b *Builder) property(ctx context.Context, owner string, p model.Property, required bool, depth int) error {
	s := p.Schema
	if s == nil {
		s = &model.Schema{Kind: model.KindPrimitive}
	}

	switch s.Kind {
	case model.KindReference:
		rangeID, err := b.referenceClass(ctx, owner, p.Name, s.Ref, depth)
		if err != nil {
			return err
		}
		return b.objectProperty(owner, p.Name, "has_"+p.Name, rangeID, s, required, false)

	case model.KindObject:
		if !s.HasProperties() {
			return b.schemaProperty(owner, p.Name, s, s, required, false)
		}
		nested, err := b.nestedClass(ctx, owner, p.Name, s, depth)
		if err != nil {
			return err
		}
		return b.objectProperty(owner, p.Name, "has_"+p.Name, nested, s, required, false)

	case model.KindArray:
		return b.arrayProperty(ctx, owner, p, required, depth)

	case model.KindComposition:
		rangeID, typed, err := b.compositionRange(ctx, owner, p.Name, s, depth)
		if err != nil {
			return err
		}
		if rangeID == "" {
			return b.schemaProperty(owner, p.Name, s, typed, required, false)
		}
		return b.objectProperty(owner, p.Name, "has_"+p.Name, rangeID, s, required, false)
	}

	return b.schemaProperty(owner, p.Name, s, s, required, false)
}

func (b *Builder) arrayProperty(ctx context.Context, owner string, p model.Property, required bool, depth int) error {
	s := p.Schema
	items := s.Items

	switch {
	case items == nil:
		return b.schemaProperty(owner, p.Name, s, &model.Schema{}, required, true)

	case items.Kind == model.KindReference:
		rangeID, err := b.referenceClass(ctx, owner, p.Name+"_Item", items.Ref, depth)
		if err != nil {
			return err
		}
		return b.objectProperty(owner, p.Name, "has_"+p.Name, rangeID, s, required, true)

	case items.Kind == model.KindComposition:
		rangeID, typed, err := b.compositionRange(ctx, owner, p.Name+"_Item", items, depth)
		if err != nil {
			return err
		}
		if rangeID == "" {
			return b.schemaProperty(owner, p.Name, s, typed, required, true)
		}
		return b.objectProperty(owner, p.Name, "has_"+p.Name, rangeID, s, required, true)

	case items.Kind == model.KindObject && items.HasProperties():
		nested, err := b.nestedClass(ctx, owner, p.Name+"_Item", items, depth)
		if err != nil {
			return err
		}
		return b.objectProperty(owner, p.Name, "has_"+p.Name, nested, s, required, true)
	}

	return b.schemaProperty(owner, p.Name, s, items, required, true)
}

// compositionRange picks the class a composed property points at. A lone
// allOf reference is the referenced class; other allOf forms become a nested
// class; otherwise the first object-valued oneOf/anyOf branch wins. With no
// object-valued branch the returned schema types a datatype property.
func (b *Builder) compositionRange(ctx context.Context, owner, local string, s *model.Schema, depth int) (string, *model.Schema, error) {
	if len(s.AllOf) > 0 {
		if len(s.AllOf) == 1 && s.AllOf[0] != nil && s.AllOf[0].Kind == model.KindReference && !s.HasProperties() {
			id, err := b.referenceClass(ctx, owner, local, s.AllOf[0].Ref, depth)
			return id, nil, err
		}
		id, err := b.nestedClass(ctx, owner, local, s, depth)
		return id, nil, err
	}
	if s.HasProperties() {
		id, err := b.nestedClass(ctx, owner, local, s, depth)
		return id, nil, err
	}

	for _, branches := range [][]*model.Schema{s.OneOf, s.AnyOf} {
		branch := firstObjectBranch(branches)
		if branch == nil {
			continue
		}
		if branch.Kind == model.KindReference {
			id, err := b.referenceClass(ctx, owner, local, branch.Ref, depth)
			return id, nil, err
		}
		id, err := b.nestedClass(ctx, owner, local, branch, depth)
		return id, nil, err
	}

	for _, branches := range [][]*model.Schema{s.OneOf, s.AnyOf} {
		for _, br := range branches {
			if br != nil && br.Type != model.TypeNull {
				return "", br, nil
			}
		}
	}
	return "", &model.Schema{}, nil
}

// referenceClass returns the range class of a reference. Component schemas
// are their own class; any other reference gets a class synthesized from the
// owning class and property name, shared per dedup key.
func (b *Builder) referenceClass(ctx context.Context, owner, local, ref string, depth int) (string, error) {
	if name, ok := b.spec.ComponentName(ref); ok {
		return b.componentClass(ctx, name)
	}
	if id, ok := b.guard.Lookup(ref, depth); ok {
		return id, nil
	}

	resolved := b.resolve(ctx, b.resolver.Resolve(ctx, ref))
	id := b.doc.UniqueID(owner+"_"+local, "class:"+owner+"/"+local)
	b.guard.Record(ref, depth, id)

	class := &owl.Class{
		ID:           id,
		Label:        owner + "_" + local,
		Comment:      resolved.Description,
		SuperClasses: []string{owner},
	}
	annotateClass(class, resolved)
	if err := b.doc.AddClass(class); err != nil {
		return "", err
	}
	if err := b.Expand(ctx, id, resolved, depth+1); err != nil {
		return "", err
	}
	return id, nil
}

// nestedClass synthesizes the class of an inline object schema.
func (b *Builder) nestedClass(ctx context.Context, owner, local string, s *model.Schema, depth int) (string, error) {
	id := b.doc.UniqueID(owner+"_"+local, "class:"+owner+"/"+local)
	if _, ok := b.doc.Class(id); ok {
		return id, nil
	}

	class := &owl.Class{
		ID:           id,
		Label:        owner + "_" + local,
		Comment:      s.Description,
		SuperClasses: []string{owner},
	}
	annotateClass(class, s)
	if err := b.doc.AddClass(class); err != nil {
		return "", err
	}
	if err := b.Expand(ctx, id, s, depth+1); err != nil {
		return "", err
	}
	return id, nil
}

// objectProperty links domain to rangeID. Collection properties get an
// inverse; the others are functional.
func (b *Builder) objectProperty(domain, name, local, rangeID string, s *model.Schema, required, collection bool) error {
	id := b.doc.UniqueID(domain+"_"+local, "property:"+domain+"/"+name)
	if _, ok := b.doc.Property(id); ok {
		return nil
	}

	p := &owl.Property{
		ID:         id,
		Label:      name,
		Kind:       owl.ObjectProperty,
		Domain:     domain,
		RangeClass: rangeID,
		Required:   required,
		Collection: collection,
		Functional: !collection,
	}
	if s != nil {
		p.Comment = s.Description
		if s.Deprecated {
			p.Annotate(owl.AnnotationDeprecated, "true")
		}
	}
	if err := b.doc.AddProperty(p); err != nil {
		return err
	}
	if !collection {
		return nil
	}

	inverse := &owl.Property{
		ID:         b.doc.UniqueID("belongsTo"+domain, "inverse:"+id),
		Label:      "belongs to " + domain,
		Comment:    fmt.Sprintf("Inverse of %s", id),
		Kind:       owl.ObjectProperty,
		Domain:     rangeID,
		RangeClass: domain,
		InverseOf:  id,
	}
	return b.doc.AddProperty(inverse)
}

// schemaProperty declares a datatype property typed by typed and annotated
// from s.
func (b *Builder) schemaProperty(domain, name string, s, typed *model.Schema, required, collection bool) error {
	id := b.doc.UniqueID(domain+"_"+name, "property:"+domain+"/"+name)
	if _, ok := b.doc.Property(id); ok {
		return nil
	}

	p := &owl.Property{
		ID:         id,
		Label:      name,
		Comment:    s.Description,
		Kind:       owl.DatatypeProperty,
		Domain:     domain,
		RangeType:  owl.MapType(string(typed.Type), typed.Format),
		Required:   required,
		Collection: collection,
	}
	annotateProperty(p, s)
	if typed != s {
		annotateProperty(p, typed)
	}
	return b.doc.AddProperty(p)
}

func annotateClass(c *owl.Class, s *model.Schema) {
	if s == nil {
		return
	}
	if s.Deprecated {
		c.Annotate(owl.AnnotationDeprecated, "true")
	}
	if s.Example != nil {
		c.Annotate(owl.AnnotationExample, literal(s.Example))
	}
}

func annotateProperty(p *owl.Property, s *model.Schema) {
	if s.Deprecated {
		p.Annotate(owl.AnnotationDeprecated, "true")
	}
	p.Annotate(owl.AnnotationFormat, s.Format)
	p.Annotate(owl.AnnotationPattern, s.Pattern)
	if s.Example != nil {
		p.Annotate(owl.AnnotationExample, literal(s.Example))
	}
	for _, v := range s.Enum {
		p.Annotate(owl.AnnotationAllowedValue, literal(v))
	}
	if s.Minimum != nil {
		p.Annotate(owl.AnnotationMinimum, formatFloat(*s.Minimum))
	}
	if s.Maximum != nil {
		p.Annotate(owl.AnnotationMaximum, formatFloat(*s.Maximum))
	}
	if s.MinLength != nil {
		p.Annotate(owl.AnnotationMinLength, strconv.FormatInt(*s.MinLength, 10))
	}
	if s.MaxLength != nil {
		p.Annotate(owl.AnnotationMaxLength, strconv.FormatInt(*s.MaxLength, 10))
	}
}

// literal renders a decoded example or enum value as literal text. Scalars
// keep their plain form; structured values become compact JSON.
func literal(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		return formatFloat(v)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
