package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const testSpec = `
openapi: "3.0.0"
info:
  title: Test API
  version: "1.0"
paths:
  /:
    get:
      operationId: health
      responses:
        "200":
          description: OK
  /convert/{format}:
    post:
      operationId: convert
      parameters:
        - name: format
          in: path
          required: true
          schema:
            type: string
            enum: [turtle, rdfxml]
        - name: max_depth
          in: query
          schema:
            type: integer
            minimum: 1
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required:
                - openapi
              properties:
                openapi:
                  type: string
      responses:
        "200":
          description: OK
  /convert/{format}/upload:
    post:
      operationId: convertAndUpload
      security:
        - bearerAuth: []
      parameters:
        - name: format
          in: path
          required: true
          schema:
            type: string
      responses:
        "200":
          description: OK
  /locked:
    get:
      operationId: locked
      security:
        - apiKey: []
      responses:
        "200":
          description: OK
  /either:
    get:
      operationId: either
      security:
        - apiKey: []
        - bearerAuth: []
      responses:
        "200":
          description: OK
components:
  securitySchemes:
    bearerAuth:
      type: http
      scheme: bearer
    apiKey:
      type: apiKey
      in: header
      name: X-API-Key
`

func newMiddleware(t *testing.T, opts *Options) *Middleware {
	t.Helper()
	mw, err := New([]byte(testSpec), opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return mw
}

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

func TestNew(t *testing.T) {
	newMiddleware(t, nil)

	if _, err := New([]byte("openapi: [broken"), nil); err == nil {
		t.Fatal("expected error for malformed description")
	}
}

func TestSecurityRegistry(t *testing.T) {
	reg := NewSecurityRegistry()
	if reg.Get("bearerAuth") != nil {
		t.Fatal("expected empty registry")
	}

	reg.RegisterBearer("bearerAuth", PassThroughBearer)
	if reg.Get("bearerAuth") == nil {
		t.Fatal("expected bearer handler to be registered")
	}

	reg.Register("custom", BearerHandler(PassThroughBearer))
	if reg.Get("custom") == nil {
		t.Fatal("expected custom handler to be registered")
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"surrounding space", "Bearer  abc123 ", "abc123"},
		{"basic scheme", "Basic dXNlcjpwYXNz", ""},
		{"scheme only", "Bearer", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := ExtractBearerToken(req); got != tt.want {
				t.Errorf("ExtractBearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddleware_NoSecurityEndpoint(t *testing.T) {
	handler := newMiddleware(t, nil).Handler(okHandler(http.StatusOK))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMiddleware_BearerAuth(t *testing.T) {
	opts := DefaultOptions()
	opts.Security.RegisterBearer("bearerAuth", func(ctx context.Context, token string) (*BearerAuth, error) {
		if token == "valid-token" {
			return &BearerAuth{Token: token}, nil
		}
		return nil, NewUnauthorizedError("bearerAuth", "invalid token")
	})

	var seen string
	handler := newMiddleware(t, opts).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = BearerToken(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/convert/turtle/upload", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if seen != "valid-token" {
			t.Errorf("expected token in context, got %q", seen)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/convert/turtle/upload", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d: %s", rec.Code, rec.Body.String())
		}
		if rec.Header().Get("WWW-Authenticate") != "Bearer" {
			t.Errorf("expected WWW-Authenticate challenge, got %q", rec.Header().Get("WWW-Authenticate"))
		}

		var body map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body["error"] != "authentication_error" || body["message"] != "missing bearer token" {
			t.Errorf("unexpected body %v", body)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/convert/turtle/upload", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})
}

func TestMiddleware_UnconfiguredScheme(t *testing.T) {
	opts := DefaultOptions()
	opts.ValidateRequest = false
	handler := newMiddleware(t, opts).Handler(okHandler(http.StatusOK))

	req := httptest.NewRequest(http.MethodGet, "/locked", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

func TestMiddleware_ORSecurity(t *testing.T) {
	opts := DefaultOptions()
	opts.ValidateRequest = false
	opts.Security.RegisterBearer("bearerAuth", PassThroughBearer)
	handler := newMiddleware(t, opts).Handler(okHandler(http.StatusOK))

	t.Run("second alternative passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/either", nil)
		req.Header.Set("Authorization", "Bearer token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("no alternative passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/either", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})
}

func TestMiddleware_RequestValidation(t *testing.T) {
	handler := newMiddleware(t, nil).Handler(okHandler(http.StatusOK))

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"valid", "/convert/turtle", `{"openapi":"3.0.0"}`, http.StatusOK},
		{"valid query", "/convert/rdfxml?max_depth=4", `{"openapi":"3.0.0"}`, http.StatusOK},
		{"unknown format", "/convert/jsonld", `{"openapi":"3.0.0"}`, http.StatusBadRequest},
		{"depth below minimum", "/convert/turtle?max_depth=0", `{"openapi":"3.0.0"}`, http.StatusBadRequest},
		{"missing required field", "/convert/turtle", `{}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestMiddleware_ErrorHandler(t *testing.T) {
	var got error
	opts := DefaultOptions()
	opts.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	}
	handler := newMiddleware(t, opts).Handler(okHandler(http.StatusOK))

	req := httptest.NewRequest(http.MethodPost, "/convert/jsonld", strings.NewReader(`{"openapi":"3.0.0"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("expected custom status, got %d", rec.Code)
	}
	var verr *ValidationError
	if !errors.As(got, &verr) || len(verr.Errors) == 0 {
		t.Errorf("expected ValidationError with details, got %v", got)
	}
}

func TestAuthError(t *testing.T) {
	err := NewUnauthorizedError("bearer", "invalid token")
	if !err.IsUnauthorized() {
		t.Error("expected IsUnauthorized() to be true")
	}
	if err.Error() != "invalid token" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestSecurityContext(t *testing.T) {
	ctx := context.Background()

	if GetSecurityContext(ctx) != nil {
		t.Error("expected nil for empty context")
	}
	if BearerToken(ctx) != "" {
		t.Error("expected no token for empty context")
	}

	ctx = WithSecurityContext(ctx, &SecurityContext{Bearer: &BearerAuth{Token: "token123"}})
	got := GetSecurityContext(ctx)
	if got == nil || got.Bearer == nil || got.Bearer.Token != "token123" {
		t.Errorf("expected Bearer with token 'token123', got %+v", got)
	}
	if BearerToken(ctx) != "token123" {
		t.Errorf("BearerToken() = %q", BearerToken(ctx))
	}
}

func TestMergeSecurityContext(t *testing.T) {
	dst := &SecurityContext{}
	MergeSecurityContext(dst, &SecurityContext{Bearer: &BearerAuth{Token: "token"}})
	if dst.Bearer == nil || dst.Bearer.Token != "token" {
		t.Error("expected Bearer to be merged")
	}

	MergeSecurityContext(dst, &SecurityContext{})
	if dst.Bearer == nil {
		t.Error("empty source must not clear credentials")
	}
}

func TestMatchPath(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/", "/", true},
		{"/convert/{format}", "/convert/turtle", true},
		{"/convert/{format}/upload", "/convert/rdfxml/upload", true},
		{"/convert/{format}", "/convert/turtle/upload", false},
		{"/convert/{format}/upload", "/convert/turtle", false},
		{"/extract", "/convert", false},
		{"/", "/extract", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.path, func(t *testing.T) {
			got := matchPath(tt.pattern, tt.path)
			if got != tt.want {
				t.Errorf("matchPath(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}
