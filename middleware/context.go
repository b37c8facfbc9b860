package middleware

import "context"

type contextKey string

const securityContextKey contextKey = "ontogen:security"

// SecurityContext holds the validated credentials of a request.
type SecurityContext struct {
	// HTTP Bearer authentication (type: http, scheme: bearer)
	Bearer *BearerAuth
}

// BearerAuth contains a validated HTTP bearer token.
type BearerAuth struct {
	Token string
}

// WithSecurityContext stores security context in the request context.
func WithSecurityContext(ctx context.Context, sec *SecurityContext) context.Context {
	return context.WithValue(ctx, securityContextKey, sec)
}

// GetSecurityContext retrieves security context from the request context.
func GetSecurityContext(ctx context.Context) *SecurityContext {
	if v := ctx.Value(securityContextKey); v != nil {
		return v.(*SecurityContext)
	}
	return nil
}

// BearerToken returns the bearer token validated for the request, if any.
func BearerToken(ctx context.Context) string {
	sec := GetSecurityContext(ctx)
	if sec == nil || sec.Bearer == nil {
		return ""
	}
	return sec.Bearer.Token
}
