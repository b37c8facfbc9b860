// Package server exposes the converter over HTTP.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kolah/ontogen/internal/builder"
	"github.com/kolah/ontogen/internal/convert"
	"github.com/kolah/ontogen/internal/upload"
	"github.com/kolah/ontogen/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed openapi.yaml
var openapiSpec []byte

// OpenAPI returns the description requests are validated against.
func OpenAPI() []byte {
	return openapiSpec
}

const (
	DefaultMaxUploadBytes = 10 << 20
	shutdownTimeout       = 10 * time.Second
)

// Uploader stores a rendered ontology and reports where it lives.
type Uploader interface {
	Upload(ctx context.Context, body io.Reader, filename, contentType, token string) (*upload.Asset, error)
}

// Config holds the conversion defaults of the service. Query parameters
// override BaseURI, MaxDepth and Dedup per request.
type Config struct {
	Addr           string
	MaxUploadBytes int64
	BaseURI        string
	MaxDepth       int
	Dedup          builder.DedupMode
	Strict         bool
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithUploader enables the convert-and-upload endpoint.
func WithUploader(u Uploader) Option {
	return func(s *Server) {
		s.uploader = u
	}
}

// WithRegistry sets the registry metrics are registered with and served from.
func WithRegistry(r *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = r
	}
}

type Server struct {
	cfg       Config
	converter *convert.Converter
	uploader  Uploader
	logger    *slog.Logger
	registry  *prometheus.Registry
	metrics   *Metrics
	handler   http.Handler
}

func New(conv *convert.Converter, cfg Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		converter: conv,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.MaxUploadBytes <= 0 {
		s.cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}

	metrics, err := NewMetrics(s.registry)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	s.metrics = metrics

	security := middleware.NewSecurityRegistry()
	security.RegisterBearer("bearerAuth", middleware.PassThroughBearer)
	validation, err := middleware.New(openapiSpec, &middleware.Options{
		Security:        security,
		ValidateRequest: true,
		Logger:          s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating request middleware: %w", err)
	}

	s.handler = s.routes(validation)
	return s, nil
}

func (s *Server) routes(validation *middleware.Middleware) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))

	r.Group(func(r chi.Router) {
		r.Use(s.limitBody)
		r.Use(validation.Handler)

		r.Get("/", s.handleHealth)
		r.Post("/convert/{format}", s.handleConvert)
		r.Post("/convert/{format}/upload", s.handleConvertUpload)
		r.Post("/extract", s.handleExtract)
	})
	return r
}

// Handler returns the routed service.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// limitBody rejects bodies larger than the configured maximum.
func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > s.cfg.MaxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large",
				fmt.Sprintf("request body exceeds %d bytes", s.cfg.MaxUploadBytes))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
		next.ServeHTTP(w, r)
	})
}
