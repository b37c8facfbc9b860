package middleware

import (
	"log/slog"
	"net/http"
)

// ErrorHandler is called when validation fails.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Options configures middleware behavior.
type Options struct {
	Security        *SecurityRegistry
	ValidateRequest bool
	ErrorHandler    ErrorHandler
	// Logger receives rejected requests at debug level.
	Logger *slog.Logger
}

// DefaultOptions returns options with request validation enabled.
func DefaultOptions() *Options {
	return &Options{
		Security:        NewSecurityRegistry(),
		ValidateRequest: true,
	}
}
