// Package convert runs one API document through the whole pipeline: load,
// build the ontology graph, render every requested format.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/kolah/ontogen/internal/builder"
	"github.com/kolah/ontogen/internal/diag"
	"github.com/kolah/ontogen/internal/loader"
	"github.com/kolah/ontogen/internal/owl"
	"github.com/kolah/ontogen/internal/resolver"
	"github.com/kolah/ontogen/internal/targets/rdfxml"
	"github.com/kolah/ontogen/internal/targets/turtle"
	"github.com/kolah/ontogen/internal/templates"
	embeddedtmpl "github.com/kolah/ontogen/templates"
)

const DefaultBaseURI = "http://example.org/api"

// FormatAll selects every registered format.
const FormatAll = "all"

var ErrUnknownFormat = errors.New("unknown format")

// Target renders a built document in one serialization.
type Target interface {
	Name() string
	MediaType() string
	Extension() string
	Generate(engine templates.Engine, doc *owl.Document) (string, error)
}

// ResolverFunc creates the reference resolver of one conversion.
type ResolverFunc func(result *loader.Result, warnings *diag.Collector) builder.Resolver

type Options struct {
	// TemplatesDir holds templates overriding the embedded ones.
	TemplatesDir string
	Logger       *slog.Logger
	// Now stamps the creation date of every ontology.
	Now          func() time.Time
	HTTPClient   *http.Client
	FetchTimeout time.Duration
	// DisableFileReferences refuses $refs to the local filesystem, for
	// documents received from untrusted callers.
	DisableFileReferences bool
	// NewResolver replaces the default local/file/HTTP resolver.
	NewResolver ResolverFunc
}

// Converter is safe for concurrent use; every call to Convert owns its own
// document, traversal guard, reference cache and warning collector.
type Converter struct {
	engine      templates.Engine
	targets     []Target
	logger      *slog.Logger
	now         func() time.Time
	newResolver ResolverFunc
}

type Input struct {
	Data []byte
	// BaseDir resolves relative external references.
	BaseDir  string
	BaseURI  string
	Formats  []string
	MaxDepth int
	Dedup    builder.DedupMode
	Strict   bool
	// Logger overrides the converter logger for this conversion.
	Logger *slog.Logger
}

type Output struct {
	Format    string
	MediaType string
	Extension string
	Content   string
}

type Result struct {
	Outputs  []Output
	Warnings []diag.Warning
}

// Output returns the rendering for format.
func (r *Result) Output(format string) (Output, bool) {
	for _, o := range r.Outputs {
		if o.Format == format {
			return o, true
		}
	}
	return Output{}, false
}

func New(opts Options) (*Converter, error) {
	engine, err := templates.NewEngine(embeddedtmpl.FS, opts.TemplatesDir, templates.Funcs())
	if err != nil {
		return nil, fmt.Errorf("creating template engine: %w", err)
	}

	c := &Converter{
		engine:      engine,
		targets:     []Target{turtle.New(), rdfxml.New()},
		logger:      opts.Logger,
		now:         opts.Now,
		newResolver: opts.NewResolver,
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newResolver == nil {
		var ropts []resolver.Option
		if opts.HTTPClient != nil {
			ropts = append(ropts, resolver.WithHTTPClient(opts.HTTPClient))
		}
		if opts.FetchTimeout > 0 {
			ropts = append(ropts, resolver.WithTimeout(opts.FetchTimeout))
		}
		if opts.DisableFileReferences {
			ropts = append(ropts, resolver.WithoutFileReferences())
		}
		c.newResolver = func(result *loader.Result, warnings *diag.Collector) builder.Resolver {
			return resolver.New(result.Root, result.BaseDir, warnings, ropts...)
		}
	}
	return c, nil
}

// Formats lists the registered format names in rendering order.
func (c *Converter) Formats() []string {
	names := make([]string, 0, len(c.targets))
	for _, t := range c.targets {
		names = append(names, t.Name())
	}
	return names
}

// Target returns the target registered under name.
func (c *Converter) Target(name string) (Target, bool) {
	for _, t := range c.targets {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// selectTargets expands "all", drops repeats and keeps rendering order.
// No formats selects every target.
func (c *Converter) selectTargets(formats []string) ([]Target, error) {
	if len(formats) == 0 || slices.Contains(formats, FormatAll) {
		return c.targets, nil
	}
	for _, f := range formats {
		if _, ok := c.Target(f); !ok {
			return nil, fmt.Errorf("%w: %s (valid: %s, all)", ErrUnknownFormat, f, c.Formats())
		}
	}
	var selected []Target
	for _, t := range c.targets {
		if slices.Contains(formats, t.Name()) {
			selected = append(selected, t)
		}
	}
	return selected, nil
}

// Convert loads in.Data and renders it in every requested format. Input
// problems surface as *loader.InputError. Failures while building or
// rendering, panics included, surface as *Error naming the class or schema
// being processed; nothing of the partial document is returned.
func (c *Converter) Convert(ctx context.Context, in Input) (res *Result, err error) {
	targets, err := c.selectTargets(in.Formats)
	if err != nil {
		return nil, err
	}

	logger := in.Logger
	if logger == nil {
		logger = c.logger
	}
	warnings := diag.NewCollector(logger)

	var b *builder.Builder
	defer func() {
		if r := recover(); r != nil {
			subject := ""
			if b != nil {
				subject = b.Current()
			}
			logger.Error("conversion panicked", "subject", subject, "panic", r)
			res, err = nil, &Error{Subject: subject, Err: fmt.Errorf("%w: %v", ErrInternal, r)}
		}
	}()

	loaded, err := loader.Load(in.Data, loader.Options{BaseDir: in.BaseDir, Strict: in.Strict})
	if err != nil {
		return nil, err
	}
	for _, w := range loaded.Warnings {
		warnings.Add(diag.KindInput, "", "%s", w)
	}

	spec, err := loader.Transform(loaded)
	if err != nil {
		return nil, fmt.Errorf("transforming document: %w", err)
	}

	baseURI := in.BaseURI
	if baseURI == "" {
		baseURI = DefaultBaseURI
	}
	doc := owl.NewDocument(baseURI)
	doc.Created = c.now().UTC()

	b = builder.New(spec, doc, c.newResolver(loaded, warnings), warnings, builder.Options{
		MaxDepth: in.MaxDepth,
		Dedup:    in.Dedup,
	})
	if err := b.Build(ctx); err != nil {
		return nil, &Error{Subject: b.Current(), Err: err}
	}

	res = &Result{}
	for _, t := range targets {
		content, err := t.Generate(c.engine, doc)
		if err != nil {
			return nil, &Error{Subject: t.Name(), Err: fmt.Errorf("rendering: %w", err)}
		}
		res.Outputs = append(res.Outputs, Output{
			Format:    t.Name(),
			MediaType: t.MediaType(),
			Extension: t.Extension(),
			Content:   content,
		})
	}
	res.Warnings = warnings.Warnings()

	logger.Info("conversion finished",
		"title", doc.Title,
		"classes", len(doc.Classes),
		"properties", len(doc.ObjectProperties)+len(doc.DatatypeProperties),
		"individuals", len(doc.Individuals),
		"warnings", len(res.Warnings),
	)
	return res, nil
}
