package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pb33f/libopenapi"
	validator "github.com/pb33f/libopenapi-validator"
	validatorErrors "github.com/pb33f/libopenapi-validator/errors"
	"github.com/pb33f/libopenapi/datamodel"
	v2 "github.com/pb33f/libopenapi/datamodel/high/v2"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"go.yaml.in/yaml/v4"
)

type Result struct {
	// Root is the top-level mapping of the document. Paths and every
	// reference that is not a component schema are read from it.
	Root *yaml.Node
	// OpenAPI is the libopenapi model of a 3.x document.
	OpenAPI *v3.Document
	// Swagger is the libopenapi model of a 2.0 document.
	Swagger *v2.Swagger
	// Version is the value of the openapi or swagger field.
	Version string
	// BaseDir is where relative external references are resolved from.
	BaseDir  string
	Warnings []string
	RawData  []byte
}

type Options struct {
	BaseDir string
	// Strict validates OpenAPI 3.x documents and fails on any violation.
	Strict bool
}

// ReadFile returns the document at path and the absolute directory its
// relative references resolve from.
func ReadFile(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading spec file: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("resolving absolute path: %w", err)
	}

	return data, filepath.Dir(absPath), nil
}

func Load(data []byte, opts Options) (*Result, error) {
	root, err := ParseDocument(data)
	if err != nil {
		return nil, &InputError{Reason: "malformed document", Err: err}
	}
	if root.Kind != yaml.MappingNode {
		return nil, &InputError{Reason: "document root must be an object"}
	}

	version := scalarString(mappingValue(root, "openapi"))
	if version == "" {
		version = scalarString(mappingValue(root, "swagger"))
	}
	if version == "" {
		return nil, &InputError{Reason: "missing openapi or swagger version field"}
	}
	if !isMapping(mappingValue(root, "info")) {
		return nil, &InputError{Reason: "missing info object"}
	}
	if !isMapping(mappingValue(root, "paths")) {
		return nil, &InputError{Reason: "missing paths object"}
	}

	result := &Result{
		Root:    root,
		Version: version,
		BaseDir: opts.BaseDir,
		RawData: data,
	}

	if err := result.inspect(opts.Strict); err != nil {
		return nil, err
	}

	return result, nil
}

// modelConfig keeps libopenapi inside the document. External references
// are left to the resolver, and cycles are bounded by the builder.
func modelConfig() *datamodel.DocumentConfiguration {
	return &datamodel.DocumentConfiguration{
		SkipCircularReferenceCheck: true,
		Logger:                     slog.New(slog.DiscardHandler),
	}
}

// inspect builds the libopenapi model of the document and, in strict mode,
// validates 3.x documents against the OpenAPI schema.
func (r *Result) inspect(strict bool) error {
	doc, err := libopenapi.NewDocumentWithConfiguration(r.RawData, modelConfig())
	if err != nil {
		return &InputError{Reason: "unsupported OpenAPI document", Err: err}
	}

	if v := doc.GetVersion(); v != "" && v != r.Version {
		r.Warnings = append(r.Warnings, fmt.Sprintf("declared version %s read as %s", r.Version, v))
	}

	// Unresolved references are reported by the resolver once the builder
	// reaches them, so only a missing model is fatal here.
	if strings.HasPrefix(r.Version, "2") {
		m, err := doc.BuildV2Model()
		if m == nil {
			return &InputError{Reason: "building Swagger model", Err: err}
		}
		r.Swagger = &m.Model
	} else {
		m, err := doc.BuildV3Model()
		if m == nil {
			return &InputError{Reason: "building OpenAPI model", Err: err}
		}
		r.OpenAPI = &m.Model
	}

	if !strict {
		return nil
	}
	if !strings.HasPrefix(r.Version, "3.") {
		r.Warnings = append(r.Warnings, fmt.Sprintf("strict validation skipped: OpenAPI %s is not 3.x", r.Version))
		return nil
	}

	v, errs := validator.NewValidator(doc)
	if len(errs) > 0 {
		return &InputError{Reason: "building validator", Err: errors.Join(errs...)}
	}
	if valid, verrs := v.ValidateDocument(); !valid {
		return &InputError{Reason: "document failed validation", Err: joinValidationErrors(verrs)}
	}
	return nil
}

func joinValidationErrors(verrs []*validatorErrors.ValidationError) error {
	errs := make([]error, 0, len(verrs))
	for _, e := range verrs {
		if e.Reason != "" {
			errs = append(errs, fmt.Errorf("%s: %s", e.Message, e.Reason))
			continue
		}
		errs = append(errs, errors.New(e.Message))
	}
	return errors.Join(errs...)
}
