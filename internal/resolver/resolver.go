// Package resolver resolves schema references for one conversion.
//
// Local references are walked against the root document. External
// references are fetched over HTTP or read from disk, relative to the
// document that contains them, and cached for the lifetime of the Resolver.
// Files are only read when the root document has a base directory and file
// references are not disabled. Every failure degrades to an empty object
// schema plus a reference warning.
package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kolah/ontogen/internal/diag"
	"github.com/kolah/ontogen/internal/loader"
	"github.com/kolah/ontogen/internal/model"
	"go.yaml.in/yaml/v4"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxBytes = 16 << 20
)

type Option func(*Resolver)

func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithTimeout bounds every external fetch.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxBytes bounds the size of external documents.
func WithMaxBytes(n int64) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxBytes = n
		}
	}
}

// WithoutFileReferences refuses every reference to the local filesystem.
func WithoutFileReferences() Option {
	return func(r *Resolver) { r.noFiles = true }
}

type document struct {
	root *yaml.Node
	err  error
}

// Resolver is the per-conversion reference cache. It is not safe for
// concurrent use.
type Resolver struct {
	root     *yaml.Node
	baseDir  string
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	noFiles  bool
	diag     *diag.Collector

	cache map[string]*model.Schema
	docs  map[string]*document
}

func New(root *yaml.Node, baseDir string, warnings *diag.Collector, opts ...Option) *Resolver {
	r := &Resolver{
		root:     root,
		baseDir:  baseDir,
		client:   http.DefaultClient,
		timeout:  DefaultTimeout,
		maxBytes: DefaultMaxBytes,
		diag:     warnings,
		cache:    make(map[string]*model.Schema),
		docs:     make(map[string]*document),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the schema a reference points at, or an empty object
// schema when it cannot be resolved.
func (r *Resolver) Resolve(ctx context.Context, ref string) *model.Schema {
	key := r.normalize(ref)
	if s, ok := r.cache[key]; ok {
		return s
	}

	s, err := r.resolve(ctx, key)
	if err != nil {
		r.diag.Add(diag.KindReference, ref, "%v", err)
		s = model.EmptyObject()
	}
	r.cache[key] = s
	return s
}

// Cached reports whether a reference has already been resolved.
func (r *Resolver) Cached(ref string) bool {
	_, ok := r.cache[r.normalize(ref)]
	return ok
}

// normalize makes file references absolute so that spellings of the same
// target share a cache entry.
func (r *Resolver) normalize(ref string) string {
	location, fragment, _ := strings.Cut(ref, "#")
	if location == "" || isURL(location) {
		return ref
	}
	path := location
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, path)
	}
	return filepath.Clean(path) + "#" + fragment
}

func (r *Resolver) resolve(ctx context.Context, ref string) (*model.Schema, error) {
	location, fragment, _ := strings.Cut(ref, "#")

	if location == "" {
		node, err := loader.Pointer(r.root, fragment)
		if err != nil {
			return nil, err
		}
		return loader.DecodeSchema(node), nil
	}

	root, err := r.document(ctx, location)
	if err != nil {
		return nil, err
	}
	node, err := loader.Pointer(root, fragment)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}

	d := loader.Decoder{Rewrite: func(inner string) string { return rebase(location, inner) }}
	return d.Decode(node), nil
}

// document returns the parsed external document, fetching it once.
func (r *Resolver) document(ctx context.Context, location string) (*yaml.Node, error) {
	if doc, ok := r.docs[location]; ok {
		return doc.root, doc.err
	}

	var data []byte
	var err error
	switch {
	case isURL(location):
		data, err = r.fetch(ctx, location)
	case r.noFiles:
		err = fmt.Errorf("file reference %s: file references are disabled", location)
	case r.baseDir == "":
		err = fmt.Errorf("file reference %s: document has no base directory", location)
	default:
		data, err = r.read(location)
	}

	doc := &document{}
	if err != nil {
		doc.err = err
	} else if root, perr := loader.ParseDocument(data); perr != nil {
		doc.err = fmt.Errorf("parsing %s: %w", location, perr)
	} else {
		doc.root = root
	}
	r.docs[location] = doc
	return doc.root, doc.err
}

func (r *Resolver) fetch(ctx context.Context, location string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", location, err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", location, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", location, err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("fetching %s: document exceeds %d bytes", location, r.maxBytes)
	}
	return data, nil
}

func (r *Resolver) read(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if info.Size() > r.maxBytes {
		return nil, fmt.Errorf("reading %s: document exceeds %d bytes", path, r.maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// rebase makes a reference found inside the external document at location
// absolute.
func rebase(location, ref string) string {
	target, fragment, hasFragment := strings.Cut(ref, "#")
	suffix := ""
	if hasFragment {
		suffix = "#" + fragment
	}

	switch {
	case target == "":
		return location + suffix
	case isURL(target):
		return ref
	case isURL(location):
		base, err := url.Parse(location)
		if err != nil {
			return ref
		}
		rel, err := url.Parse(target)
		if err != nil {
			return ref
		}
		return base.ResolveReference(rel).String() + suffix
	case filepath.IsAbs(target):
		return ref
	default:
		return filepath.Join(filepath.Dir(location), target) + suffix
	}
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
