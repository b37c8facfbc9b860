package builder

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kolah/ontogen/internal/model"
	"github.com/kolah/ontogen/internal/owl"
)

var pathTemplate = regexp.MustCompile(`\{([^{}]+)\}`)

func (b *Builder) modelOperations(ctx context.Context) error {
	for _, tag := range b.spec.Tags {
		if _, err := b.tagClass(tag.Name, tag.Description); err != nil {
			return fmt.Errorf("tag %s: %w", tag.Name, err)
		}
	}
	for i := range b.spec.Operations {
		op := &b.spec.Operations[i]
		if err := b.modelOperation(ctx, op); err != nil {
			return fmt.Errorf("operation %s %s: %w", op.Method, op.Path, err)
		}
	}
	return nil
}

// tagClass returns the controller class of a tag, declaring it under the
// root class on first use.
func (b *Builder) tagClass(name, description string) (string, error) {
	id := b.doc.UniqueID(name, "tag:"+name)
	if _, ok := b.doc.Class(id); ok {
		return id, nil
	}
	return id, b.doc.AddClass(&owl.Class{
		ID:           id,
		Label:        name,
		Comment:      description,
		SuperClasses: []string{b.root},
	})
}

func (b *Builder) modelOperation(ctx context.Context, op *model.Operation) error {
	base := op.ID
	if base == "" {
		base = strings.ToLower(string(op.Method)) + "_" + op.Path
	}
	id := b.doc.UniqueID(base, "operation:"+string(op.Method)+" "+op.Path)

	class := &owl.Class{
		ID:      id,
		Label:   base,
		Comment: op.Description,
	}
	if op.Summary != "" {
		class.Label = op.Summary
	}
	for _, tag := range op.Tags {
		tagID, err := b.tagClass(tag, "")
		if err != nil {
			return err
		}
		class.AddSuperClass(tagID)
	}
	if len(op.Tags) == 0 {
		class.AddSuperClass(b.root)
	}
	methodID, err := b.taxonomyClass(owl.PascalCase(strings.ToLower(string(op.Method)))+"Method", "HttpMethod")
	if err != nil {
		return err
	}
	class.AddSuperClass(methodID)

	class.Annotate(owl.AnnotationMethod, string(op.Method))
	class.Annotate(owl.AnnotationPath, op.Path)
	class.Annotate(owl.AnnotationOperationID, op.ID)
	if len(b.spec.Servers) > 0 {
		class.Annotate(owl.AnnotationEndpoint, strings.TrimRight(b.spec.Servers[0].URL, "/")+op.Path)
	}
	if op.Deprecated {
		class.Annotate(owl.AnnotationDeprecated, "true")
	}
	if err := b.doc.AddClass(class); err != nil {
		return err
	}

	b.guard.Push(id)
	for _, p := range withPathParameters(op.Path, op.Parameters) {
		if err := b.modelParameter(ctx, id, p); err != nil {
			return err
		}
	}
	if op.RequestBody != nil {
		if err := b.modelRequestBody(ctx, id, op.RequestBody); err != nil {
			return err
		}
	}
	for _, resp := range op.Responses {
		if err := b.modelResponse(ctx, id, resp); err != nil {
			return err
		}
	}
	b.guard.Pop()
	return nil
}

// withPathParameters appends a required string parameter for every path
// template variable the operation does not declare.
func withPathParameters(path string, params []model.Parameter) []model.Parameter {
	result := params
	for _, m := range pathTemplate.FindAllStringSubmatch(path, -1) {
		name := m[1]
		declared := false
		for _, p := range params {
			if p.In == model.LocationPath && p.Name == name {
				declared = true
				break
			}
		}
		if !declared {
			result = append(result, model.Parameter{
				Name:     name,
				In:       model.LocationPath,
				Required: true,
				Schema:   &model.Schema{Kind: model.KindPrimitive, Type: model.TypeString},
			})
		}
	}
	return result
}

func (b *Builder) modelParameter(ctx context.Context, opID string, p model.Parameter) error {
	id := b.doc.UniqueID(opID+"_param_"+p.Name, "parameter:"+opID+"/"+string(p.In)+"/"+p.Name)
	class := &owl.Class{
		ID:           id,
		Label:        p.Name,
		Comment:      p.Description,
		SuperClasses: []string{opID},
	}
	if p.In != "" {
		locID, err := b.taxonomyClass(owl.PascalCase(string(p.In))+"Parameter", "Parameter")
		if err != nil {
			return err
		}
		class.AddSuperClass(locID)
	}
	class.Annotate(owl.AnnotationParameterIn, string(p.In))
	class.Annotate(owl.AnnotationRequired, strconv.FormatBool(p.Required))
	if p.Deprecated {
		class.Annotate(owl.AnnotationDeprecated, "true")
	}
	if p.Example != nil {
		class.Annotate(owl.AnnotationExample, literal(p.Example))
	}
	if err := b.doc.AddClass(class); err != nil {
		return err
	}
	return b.attachSchema(ctx, id, p.Schema)
}

func (b *Builder) modelRequestBody(ctx context.Context, opID string, rb *model.RequestBody) error {
	taxonomy, err := b.taxonomyClass("RequestBody", "")
	if err != nil {
		return err
	}
	id := b.doc.UniqueID(opID+"_Request", "request:"+opID)
	class := &owl.Class{
		ID:           id,
		Label:        opID + " request",
		Comment:      rb.Description,
		SuperClasses: []string{opID, taxonomy},
	}
	class.Annotate(owl.AnnotationRequired, strconv.FormatBool(rb.Required))
	for _, c := range rb.Content {
		class.Annotate(owl.AnnotationMediaType, c.MediaType)
	}
	if err := b.doc.AddClass(class); err != nil {
		return err
	}
	return b.attachContent(ctx, id, rb.Content)
}

func (b *Builder) modelResponse(ctx context.Context, opID string, resp model.Response) error {
	category, err := b.taxonomyClass(statusCategory(resp.StatusCode), "Response")
	if err != nil {
		return err
	}
	id := b.doc.UniqueID(opID+"_Response_"+resp.StatusCode, "response:"+opID+"/"+resp.StatusCode)
	class := &owl.Class{
		ID:           id,
		Label:        opID + " " + resp.StatusCode + " response",
		Comment:      resp.Description,
		SuperClasses: []string{opID, category},
	}
	class.Annotate(owl.AnnotationStatusCode, resp.StatusCode)
	for _, c := range resp.Content {
		class.Annotate(owl.AnnotationMediaType, c.MediaType)
	}
	if err := b.doc.AddClass(class); err != nil {
		return err
	}
	return b.attachContent(ctx, id, resp.Content)
}

// statusCategory maps a status code, or a range such as 4XX, to its
// taxonomy class. Unknown codes fall back to Response itself.
func statusCategory(code string) string {
	if len(code) == 3 {
		switch code[0] {
		case '1':
			return "InformationalResponse"
		case '2':
			return "SuccessResponse"
		case '3':
			return "RedirectResponse"
		case '4':
			return "ClientErrorResponse"
		case '5':
			return "ServerErrorResponse"
		}
	}
	return "Response"
}

func (b *Builder) attachContent(ctx context.Context, classID string, content []model.MediaTypeContent) error {
	for _, c := range content {
		if err := b.attachSchema(ctx, classID, c.Schema); err != nil {
			return err
		}
		if err := b.exampleIndividuals(classID, c.Examples); err != nil {
			return err
		}
	}
	return nil
}

// attachSchema connects a parameter, request or response class to its
// schema. Component schemas are linked through hasSchema; inline schemas are
// expanded into the class itself.
func (b *Builder) attachSchema(ctx context.Context, classID string, s *model.Schema) error {
	if s == nil {
		return nil
	}
	switch s.Kind {
	case model.KindReference:
		target, err := b.referenceClass(ctx, classID, "schema", s.Ref, 0)
		if err != nil {
			return err
		}
		return b.objectProperty(classID, "hasSchema", "hasSchema", target, nil, false, false)
	case model.KindPrimitive:
		return b.schemaProperty(classID, "value", s, s, false, false)
	}
	return b.Expand(ctx, classID, s, 0)
}
