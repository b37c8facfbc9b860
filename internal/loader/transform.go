package loader

import (
	"fmt"
	"strings"

	"github.com/kolah/ontogen/internal/model"
	"github.com/pb33f/libopenapi/datamodel/high/base"
	v2 "github.com/pb33f/libopenapi/datamodel/high/v2"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/pb33f/libopenapi/orderedmap"
	"go.yaml.in/yaml/v4"
)

const defaultMediaType = "application/json"

type transformer struct {
	root     *yaml.Node
	swagger  bool
	consumes []string
	produces []string
	warnings []string
}

// Transform converts the loaded document into the format-agnostic model.
// Document metadata, component schemas and security come from the libopenapi
// model. Paths are walked on the raw document so that one broken $ref drops
// only the entry it sits on; local $refs on parameters, request bodies and
// responses are followed there. Schema references are kept for the builder.
// Problems with individual entries are appended to the result warnings.
func Transform(result *Result) (*model.Spec, error) {
	if result.Root == nil || (result.OpenAPI == nil && result.Swagger == nil) {
		return nil, &InputError{Reason: "document not loaded"}
	}

	t := &transformer{
		root:    result.Root,
		swagger: result.Swagger != nil,
	}

	spec := &model.Spec{Version: result.Version}
	if doc := result.OpenAPI; doc != nil {
		spec.Info = transformInfo(doc.Info)
		spec.Servers = transformServers(doc.Servers)
		spec.Tags = transformTags(doc.Tags)
		spec.Requirements = transformSecurityRequirements(doc.Security)
		if c := doc.Components; c != nil {
			spec.Schemas = transformSchemas(c.Schemas)
			for name, scheme := range c.SecuritySchemes.FromOldest() {
				spec.Security = append(spec.Security, transformSecurityScheme(name, scheme))
			}
		}
	} else {
		sw := result.Swagger
		t.consumes = sw.Consumes
		t.produces = sw.Produces
		spec.Info = transformInfo(sw.Info)
		spec.Servers = swaggerServers(sw)
		spec.Tags = transformTags(sw.Tags)
		spec.Requirements = transformSecurityRequirements(sw.Security)
		if sw.Definitions != nil {
			spec.Schemas = transformSchemas(sw.Definitions.Definitions)
		}
		if sw.SecurityDefinitions != nil {
			for name, scheme := range sw.SecurityDefinitions.Definitions.FromOldest() {
				spec.Security = append(spec.Security, swaggerSecurityScheme(name, scheme))
			}
		}
	}

	for path, item := range pairs(mappingValue(t.root, "paths")) {
		spec.Operations = append(spec.Operations, t.transformPath(path, item)...)
	}

	result.Warnings = append(result.Warnings, t.warnings...)
	return spec, nil
}

func transformSchemas(schemas *orderedmap.Map[string, *base.SchemaProxy]) []model.Schema {
	var out []model.Schema
	for name, proxy := range schemas.FromOldest() {
		schema := schemaFromProxy(proxy)
		if schema == nil {
			schema = &model.Schema{Kind: model.KindPrimitive}
		}
		schema.Name = name
		out = append(out, *schema)
	}
	return out
}

func transformInfo(info *base.Info) model.Info {
	if info == nil {
		return model.Info{}
	}
	var license string
	if info.License != nil {
		license = info.License.URL
		if license == "" {
			license = info.License.Name
		}
	}
	return model.Info{
		Title:       info.Title,
		Description: info.Description,
		Version:     info.Version,
		License:     license,
	}
}

func transformServers(servers []*v3.Server) []model.Server {
	var result []model.Server
	for _, s := range servers {
		result = append(result, model.Server{
			URL:         s.URL,
			Description: s.Description,
		})
	}
	return result
}

// swaggerServers assembles the single 2.0 server from host, basePath and the
// first scheme.
func swaggerServers(doc *v2.Swagger) []model.Server {
	if doc.Host == "" {
		return nil
	}
	scheme := "https"
	if len(doc.Schemes) > 0 {
		scheme = doc.Schemes[0]
	}
	return []model.Server{{URL: scheme + "://" + doc.Host + doc.BasePath}}
}

func transformTags(tags []*base.Tag) []model.Tag {
	var result []model.Tag
	for _, tag := range tags {
		result = append(result, model.Tag{
			Name:        tag.Name,
			Description: tag.Description,
		})
	}
	return result
}

// follow resolves a local $ref on a non-schema object.
func (t *transformer) follow(n *yaml.Node) *yaml.Node {
	for range 8 {
		ref := scalarString(mappingValue(n, "$ref"))
		if ref == "" {
			return n
		}
		if !strings.HasPrefix(ref, "#") {
			t.warnings = append(t.warnings, fmt.Sprintf("external reference %s on a non-schema object is not followed", ref))
			return nil
		}
		target, err := Pointer(t.root, ref)
		if err != nil {
			t.warnings = append(t.warnings, fmt.Sprintf("resolving %s: %v", ref, err))
			return nil
		}
		n = target
	}
	return n
}

func (t *transformer) transformPath(path string, item *yaml.Node) []model.Operation {
	item = t.follow(item)
	pathParams := t.transformParameters(mappingValue(item, "parameters"))

	var ops []model.Operation
	for key, opNode := range pairs(item) {
		method, ok := model.ParseMethod(key)
		if !ok {
			continue
		}
		ops = append(ops, t.transformOperation(path, method, opNode, pathParams))
	}
	return ops
}

func (t *transformer) transformOperation(path string, method model.Method, n *yaml.Node, pathParams []model.Parameter) model.Operation {
	op := model.Operation{
		ID:          scalarString(mappingValue(n, "operationId")),
		Method:      method,
		Path:        path,
		Summary:     scalarString(mappingValue(n, "summary")),
		Description: scalarString(mappingValue(n, "description")),
		Tags:        stringList(mappingValue(n, "tags")),
		Deprecated:  scalarBool(mappingValue(n, "deprecated")),
		Security:    operationSecurity(mappingValue(n, "security")),
	}

	op.Parameters = mergeParameters(pathParams, t.transformParameters(mappingValue(n, "parameters")))

	if t.swagger {
		op.Parameters, op.RequestBody = t.extractBodyParameter(n, op.Parameters)
	} else if rb := t.follow(mappingValue(n, "requestBody")); rb != nil {
		op.RequestBody = &model.RequestBody{
			Description: scalarString(mappingValue(rb, "description")),
			Required:    scalarBool(mappingValue(rb, "required")),
			Content:     t.transformContent(mappingValue(rb, "content")),
		}
	}

	for code, resp := range pairs(mappingValue(n, "responses")) {
		if strings.HasPrefix(code, "x-") {
			continue
		}
		op.Responses = append(op.Responses, t.transformResponse(code, n, t.follow(resp)))
	}

	return op
}

func (t *transformer) transformParameters(n *yaml.Node) []model.Parameter {
	var params []model.Parameter
	for _, raw := range sequence(n) {
		p := t.follow(raw)
		if p == nil {
			continue
		}
		param := model.Parameter{
			Name:        scalarString(mappingValue(p, "name")),
			In:          model.ParameterLocation(scalarString(mappingValue(p, "in"))),
			Description: scalarString(mappingValue(p, "description")),
			Required:    scalarBool(mappingValue(p, "required")),
			Deprecated:  scalarBool(mappingValue(p, "deprecated")),
		}
		if ex := mappingValue(p, "example"); ex != nil {
			param.Example = NodeValue(ex)
		}

		switch {
		case mappingValue(p, "schema") != nil:
			param.Schema = DecodeSchema(mappingValue(p, "schema"))
		case mappingValue(p, "content") != nil:
			if content := t.transformContent(mappingValue(p, "content")); len(content) > 0 {
				param.Schema = content[0].Schema
			}
		case t.swagger && mappingValue(p, "type") != nil:
			// Swagger 2.0 non-body parameters carry type/format/items inline
			param.Schema = DecodeSchema(p)
			param.Schema.Description = ""
		}
		params = append(params, param)
	}
	return params
}

// mergeParameters overlays operation parameters on path-level ones, keyed by
// name and location.
func mergeParameters(pathParams, opParams []model.Parameter) []model.Parameter {
	merged := make([]model.Parameter, 0, len(pathParams)+len(opParams))
	for _, pp := range pathParams {
		overridden := false
		for _, op := range opParams {
			if op.Name == pp.Name && op.In == pp.In {
				overridden = true
				break
			}
		}
		if !overridden {
			merged = append(merged, pp)
		}
	}
	return append(merged, opParams...)
}

// extractBodyParameter turns a Swagger 2.0 in: body parameter into a
// request body.
func (t *transformer) extractBodyParameter(op *yaml.Node, params []model.Parameter) ([]model.Parameter, *model.RequestBody) {
	var rest []model.Parameter
	var body *model.RequestBody
	for _, p := range params {
		if p.In != "body" {
			rest = append(rest, p)
			continue
		}
		body = &model.RequestBody{Description: p.Description, Required: p.Required}
		for _, mt := range mediaTypes(stringList(mappingValue(op, "consumes")), t.consumes) {
			body.Content = append(body.Content, model.MediaTypeContent{MediaType: mt, Schema: p.Schema})
		}
	}
	return rest, body
}

func (t *transformer) transformResponse(code string, op, resp *yaml.Node) model.Response {
	r := model.Response{
		StatusCode:  code,
		Description: scalarString(mappingValue(resp, "description")),
	}
	if !t.swagger {
		r.Content = t.transformContent(mappingValue(resp, "content"))
		return r
	}

	schema := mappingValue(resp, "schema")
	if schema == nil {
		return r
	}
	examples := mappingValue(resp, "examples")
	for _, mt := range mediaTypes(stringList(mappingValue(op, "produces")), t.produces) {
		c := model.MediaTypeContent{MediaType: mt, Schema: DecodeSchema(schema)}
		if ex := mappingValue(examples, mt); ex != nil {
			c.Examples = append(c.Examples, model.Example{Name: "example", Value: NodeValue(ex)})
		}
		r.Content = append(r.Content, c)
	}
	return r
}

func (t *transformer) transformContent(n *yaml.Node) []model.MediaTypeContent {
	var content []model.MediaTypeContent
	for mt, media := range pairs(n) {
		c := model.MediaTypeContent{
			MediaType: mt,
			Schema:    DecodeSchema(mappingValue(media, "schema")),
		}
		if ex := mappingValue(media, "example"); ex != nil {
			c.Examples = append(c.Examples, model.Example{Name: "example", Value: NodeValue(ex)})
		}
		for name, raw := range pairs(mappingValue(media, "examples")) {
			ex := t.follow(raw)
			if ex == nil {
				continue
			}
			c.Examples = append(c.Examples, model.Example{
				Name:    name,
				Summary: scalarString(mappingValue(ex, "summary")),
				Value:   NodeValue(mappingValue(ex, "value")),
			})
		}
		content = append(content, c)
	}
	return content
}

func mediaTypes(local, global []string) []string {
	if len(local) > 0 {
		return local
	}
	if len(global) > 0 {
		return global
	}
	return []string{defaultMediaType}
}

func transformSecurityScheme(name string, scheme *v3.SecurityScheme) model.SecurityScheme {
	return model.SecurityScheme{
		Name:         name,
		Type:         model.SecuritySchemeType(scheme.Type),
		Description:  scheme.Description,
		In:           scheme.In,
		ParamName:    scheme.Name,
		Scheme:       scheme.Scheme,
		BearerFormat: scheme.BearerFormat,
	}
}

func swaggerSecurityScheme(name string, scheme *v2.SecurityScheme) model.SecurityScheme {
	return model.SecurityScheme{
		Name:        name,
		Type:        model.SecuritySchemeType(scheme.Type),
		Description: scheme.Description,
		In:          scheme.In,
		ParamName:   scheme.Name,
	}
}

func transformSecurityRequirements(reqs []*base.SecurityRequirement) []model.SecurityRequirement {
	var out []model.SecurityRequirement
	for _, alt := range reqs {
		if alt.Requirements == nil {
			continue
		}
		for name, scopes := range alt.Requirements.FromOldest() {
			out = append(out, model.SecurityRequirement{Name: name, Scopes: nonEmpty(scopes)})
		}
	}
	return out
}

// operationSecurity reads an operation-level security list from the raw
// document.
func operationSecurity(n *yaml.Node) []model.SecurityRequirement {
	var reqs []model.SecurityRequirement
	for _, alt := range sequence(n) {
		for name, scopes := range pairs(alt) {
			reqs = append(reqs, model.SecurityRequirement{Name: name, Scopes: stringList(scopes)})
		}
	}
	return reqs
}

func nonEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
