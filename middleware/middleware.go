// Package middleware checks incoming requests against the OpenAPI
// description of the service that receives them: parameters and bodies are
// validated with libopenapi-validator and the operation's security
// requirements are enforced through registered scheme handlers.
package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pb33f/libopenapi"
	validator "github.com/pb33f/libopenapi-validator"
	validatorErrors "github.com/pb33f/libopenapi-validator/errors"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

// Middleware validates requests against an OpenAPI description.
type Middleware struct {
	validator validator.Validator
	model     *libopenapi.DocumentModel[v3.Document]
	options   *Options
	logger    *slog.Logger
}

// New creates middleware from an OpenAPI 3 description.
func New(spec []byte, opts *Options) (*Middleware, error) {
	doc, err := libopenapi.NewDocument(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing service description: %w", err)
	}

	v, errs := validator.NewValidator(doc)
	if len(errs) > 0 {
		return nil, fmt.Errorf("building request validator: %w", errs[0])
	}

	model, err := doc.BuildV3Model()
	if err != nil {
		return nil, fmt.Errorf("building service model: %w", err)
	}

	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Security == nil {
		opts.Security = NewSecurityRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Middleware{
		validator: v,
		model:     model,
		options:   opts,
		logger:    logger,
	}, nil
}

// Handler returns an http.Handler middleware. Credentials are checked
// before the request is validated, so a missing token is a 401 rather than
// a validation failure.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, err := m.authenticate(r)
		if err != nil {
			m.handleAuthError(w, r, err)
			return
		}

		if m.options.ValidateRequest {
			valid, errs := m.validator.ValidateHttpRequestSync(r)
			if !valid {
				m.handleValidationError(w, r, errs)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// authenticate applies the operation's security requirements, falling back
// to the document-wide ones. Requirements are alternatives; the schemes of
// one requirement must all pass.
func (m *Middleware) authenticate(r *http.Request) (*http.Request, error) {
	op := m.findOperation(r.URL.Path, r.Method)
	if op == nil {
		return r, nil
	}

	secReqs := op.Security
	if secReqs == nil {
		secReqs = m.model.Model.Security
	}
	if len(secReqs) == 0 {
		return r, nil
	}

	var lastErr error
	for _, req := range secReqs {
		if req.Requirements == nil || req.Requirements.Len() == 0 {
			return r, nil
		}

		secCtx := &SecurityContext{}
		allPassed := true
		for pair := req.Requirements.Oldest(); pair != nil; pair = pair.Next() {
			handler := m.options.Security.Get(pair.Key)
			if handler == nil {
				lastErr = NewUnauthorizedError(pair.Key, "security scheme not configured")
				allPassed = false
				break
			}

			result, err := handler.Handle(r, pair.Value)
			if err != nil {
				lastErr = err
				allPassed = false
				break
			}
			MergeSecurityContext(secCtx, result)
		}

		if allPassed {
			return r.WithContext(WithSecurityContext(r.Context(), secCtx)), nil
		}
	}
	return r, lastErr
}

func (m *Middleware) findOperation(path, method string) *v3.Operation {
	if m.model.Model.Paths == nil || m.model.Model.Paths.PathItems == nil {
		return nil
	}

	for pair := m.model.Model.Paths.PathItems.Oldest(); pair != nil; pair = pair.Next() {
		if matchPath(pair.Key, path) {
			return getOperation(pair.Value, method)
		}
	}
	return nil
}

func matchPath(pattern, path string) bool {
	patternParts := splitPath(pattern)
	pathParts := splitPath(path)

	if len(patternParts) != len(pathParts) {
		return false
	}

	for i, pp := range patternParts {
		if strings.HasPrefix(pp, "{") && strings.HasSuffix(pp, "}") {
			continue
		}
		if pp != pathParts[i] {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func getOperation(pathItem *v3.PathItem, method string) *v3.Operation {
	switch method {
	case http.MethodGet:
		return pathItem.Get
	case http.MethodPost:
		return pathItem.Post
	case http.MethodPut:
		return pathItem.Put
	case http.MethodDelete:
		return pathItem.Delete
	case http.MethodPatch:
		return pathItem.Patch
	case http.MethodHead:
		return pathItem.Head
	case http.MethodOptions:
		return pathItem.Options
	case http.MethodTrace:
		return pathItem.Trace
	}
	return nil
}

func (m *Middleware) handleValidationError(w http.ResponseWriter, r *http.Request, errs []*validatorErrors.ValidationError) {
	err := &ValidationError{
		StatusCode: http.StatusBadRequest,
		Message:    "request validation failed",
		Errors:     errs,
	}
	m.logger.Debug("request rejected", "path", r.URL.Path, "errors", len(errs))

	if m.options.ErrorHandler != nil {
		m.options.ErrorHandler(w, r, err)
		return
	}

	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":   "validation_error",
		"message": err.Message,
		"details": formatValidationErrors(errs),
	})
}

func (m *Middleware) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	authErr, ok := err.(*AuthError)
	if !ok {
		authErr = NewUnauthorizedError("", err.Error())
	}
	m.logger.Debug("request unauthenticated", "path", r.URL.Path, "scheme", authErr.Scheme)

	if m.options.ErrorHandler != nil {
		m.options.ErrorHandler(w, r, authErr)
		return
	}

	if authErr.IsUnauthorized() {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, authErr.StatusCode, map[string]any{
		"error":   "authentication_error",
		"message": authErr.Message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func formatValidationErrors(errs []*validatorErrors.ValidationError) []map[string]any {
	var result []map[string]any
	for _, e := range errs {
		item := map[string]any{
			"message": e.Message,
		}
		if e.Reason != "" {
			item["reason"] = e.Reason
		}
		if e.HowToFix != "" {
			item["howToFix"] = e.HowToFix
		}
		result = append(result, item)
	}
	return result
}
