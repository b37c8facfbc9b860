package middleware

import (
	"context"
	"net/http"
	"strings"
)

// SecurityHandler validates credentials for a specific security scheme.
type SecurityHandler interface {
	Handle(r *http.Request, scopes []string) (*SecurityContext, error)
}

// BearerHandler validates HTTP Bearer authentication.
type BearerHandler func(ctx context.Context, token string) (*BearerAuth, error)

// Handle implements SecurityHandler.
func (h BearerHandler) Handle(r *http.Request, _ []string) (*SecurityContext, error) {
	token := ExtractBearerToken(r)
	if token == "" {
		return nil, NewUnauthorizedError("bearer", "missing bearer token")
	}
	auth, err := h(r.Context(), token)
	if err != nil {
		return nil, err
	}
	return &SecurityContext{Bearer: auth}, nil
}

// PassThroughBearer accepts any non-empty token. Services that forward the
// credential to an upstream which checks it use this handler.
func PassThroughBearer(_ context.Context, token string) (*BearerAuth, error) {
	return &BearerAuth{Token: token}, nil
}

// SecurityRegistry holds handlers for named security schemes.
type SecurityRegistry struct {
	handlers map[string]SecurityHandler
}

// NewSecurityRegistry creates a new security registry.
func NewSecurityRegistry() *SecurityRegistry {
	return &SecurityRegistry{handlers: make(map[string]SecurityHandler)}
}

// Register adds a handler for a named security scheme.
func (r *SecurityRegistry) Register(name string, handler SecurityHandler) {
	r.handlers[name] = handler
}

// RegisterBearer registers a bearer token handler.
func (r *SecurityRegistry) RegisterBearer(name string, handler BearerHandler) {
	r.handlers[name] = handler
}

// Get returns the handler for a scheme, or nil if not registered.
func (r *SecurityRegistry) Get(name string) SecurityHandler {
	return r.handlers[name]
}

// ExtractBearerToken extracts the bearer token from the Authorization header.
func ExtractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// MergeSecurityContext merges src into dst, populating non-nil fields.
func MergeSecurityContext(dst, src *SecurityContext) {
	if src.Bearer != nil {
		dst.Bearer = src.Bearer
	}
}
