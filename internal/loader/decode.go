package loader

import (
	"strconv"

	"github.com/kolah/ontogen/internal/model"
	"github.com/pb33f/libopenapi/datamodel/high/base"
	"go.yaml.in/yaml/v4"
)

// Decoder turns schema nodes into the closed model.Schema variant.
type Decoder struct {
	// Rewrite, when set, maps every $ref value met while decoding. External
	// documents use it to make their references absolute.
	Rewrite func(ref string) string
}

// DecodeSchema decodes a schema node of the root document.
func DecodeSchema(node *yaml.Node) *model.Schema {
	var d Decoder
	return d.Decode(node)
}

// Decode returns nil for a missing node.
func (d *Decoder) Decode(node *yaml.Node) *model.Schema {
	node = resolveAlias(node)
	if node == nil {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		// boolean schemas and other non-object forms carry no structure
		return &model.Schema{Kind: model.KindPrimitive}
	}

	s := &model.Schema{
		Description: scalarString(mappingValue(node, "description")),
	}

	if ref := scalarString(mappingValue(node, "$ref")); ref != "" {
		if d.Rewrite != nil {
			ref = d.Rewrite(ref)
		}
		s.Kind = model.KindReference
		s.Ref = ref
		return s
	}

	s.Type = schemaType(mappingValue(node, "type"))
	s.Format = scalarString(mappingValue(node, "format"))
	s.Deprecated = scalarBool(mappingValue(node, "deprecated"))
	s.Pattern = scalarString(mappingValue(node, "pattern"))
	s.Required = stringList(mappingValue(node, "required"))
	s.Minimum = floatValue(mappingValue(node, "minimum"))
	s.Maximum = floatValue(mappingValue(node, "maximum"))
	s.MinLength = intValue(mappingValue(node, "minLength"))
	s.MaxLength = intValue(mappingValue(node, "maxLength"))

	if ex := mappingValue(node, "example"); ex != nil {
		s.Example = NodeValue(ex)
	} else if exs := sequence(mappingValue(node, "examples")); len(exs) > 0 {
		s.Example = NodeValue(exs[0])
	}
	for _, v := range sequence(mappingValue(node, "enum")) {
		s.Enum = append(s.Enum, NodeValue(v))
	}

	for name, prop := range pairs(mappingValue(node, "properties")) {
		s.Properties = append(s.Properties, model.Property{Name: name, Schema: d.Decode(prop)})
	}
	s.Items = d.Decode(mappingValue(node, "items"))
	s.AllOf = d.decodeList(mappingValue(node, "allOf"))
	s.OneOf = d.decodeList(mappingValue(node, "oneOf"))
	s.AnyOf = d.decodeList(mappingValue(node, "anyOf"))

	classify(s)
	return s
}

// classify sets the kind from the decoded structure. Properties without a
// type make an object, items without a type make an array.
func classify(s *model.Schema) {
	switch {
	case len(s.AllOf)+len(s.OneOf)+len(s.AnyOf) > 0:
		s.Kind = model.KindComposition
	case s.Type == model.TypeArray || s.Items != nil:
		s.Kind = model.KindArray
		s.Type = model.TypeArray
	case s.Type == model.TypeObject || len(s.Properties) > 0:
		s.Kind = model.KindObject
		s.Type = model.TypeObject
	default:
		s.Kind = model.KindPrimitive
	}
}

func (d *Decoder) decodeList(n *yaml.Node) []*model.Schema {
	var out []*model.Schema
	for _, item := range sequence(n) {
		if s := d.Decode(item); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// schemaType accepts both the scalar form and the 3.1 list form.
func schemaType(n *yaml.Node) model.SchemaType {
	if n == nil {
		return ""
	}
	if n.Kind == yaml.ScalarNode {
		return model.SchemaType(n.Value)
	}
	return firstType(stringList(n))
}

func floatValue(n *yaml.Node) *float64 {
	if n == nil || n.Kind != yaml.ScalarNode {
		return nil
	}
	f, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return nil
	}
	return &f
}

func intValue(n *yaml.Node) *int64 {
	if n == nil || n.Kind != yaml.ScalarNode {
		return nil
	}
	i, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return nil
	}
	return &i
}

// schemaFromProxy decodes a libopenapi schema. References are kept by their
// $ref and never built, so cyclic components decode in one pass.
func schemaFromProxy(proxy *base.SchemaProxy) *model.Schema {
	if proxy == nil {
		return nil
	}
	if proxy.IsReference() {
		return &model.Schema{
			Kind:        model.KindReference,
			Ref:         proxy.GetReference(),
			Description: scalarString(mappingValue(proxy.GetReferenceNode(), "description")),
		}
	}

	s := proxy.Schema()
	if s == nil {
		// libopenapi refuses a schema when a $ref inside it cannot be located.
		// External references are the resolver's, so decode the node as is.
		return DecodeSchema(proxy.GetValueNode())
	}

	out := &model.Schema{
		Description: s.Description,
		Type:        firstType(s.Type),
		Format:      s.Format,
		Deprecated:  s.Deprecated != nil && *s.Deprecated,
		Pattern:     s.Pattern,
		Required:    s.Required,
		Minimum:     s.Minimum,
		Maximum:     s.Maximum,
		MinLength:   s.MinLength,
		MaxLength:   s.MaxLength,
	}

	switch {
	case s.Example != nil:
		out.Example = NodeValue(s.Example)
	case len(s.Examples) > 0:
		out.Example = NodeValue(s.Examples[0])
	}
	for _, v := range s.Enum {
		out.Enum = append(out.Enum, NodeValue(v))
	}

	for name, prop := range s.Properties.FromOldest() {
		out.Properties = append(out.Properties, model.Property{Name: name, Schema: schemaFromProxy(prop)})
	}
	if s.Items != nil && s.Items.IsA() {
		out.Items = schemaFromProxy(s.Items.A)
	}
	out.AllOf = schemasFromProxies(s.AllOf)
	out.OneOf = schemasFromProxies(s.OneOf)
	out.AnyOf = schemasFromProxies(s.AnyOf)

	classify(out)
	return out
}

func schemasFromProxies(proxies []*base.SchemaProxy) []*model.Schema {
	var out []*model.Schema
	for _, p := range proxies {
		if s := schemaFromProxy(p); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// firstType picks the first non-null entry of a type list.
func firstType(types []string) model.SchemaType {
	for _, typ := range types {
		if typ != string(model.TypeNull) {
			return model.SchemaType(typ)
		}
	}
	return ""
}
