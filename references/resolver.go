package references

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/speakeasy-api/refbundle/errors"
	"github.com/speakeasy-api/refbundle/internal/utils"
	"github.com/speakeasy-api/refbundle/sequencedmap"
	"github.com/speakeasy-api/refbundle/system"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// DefaultMaxDocumentSize caps the size of a single fetched document.
const DefaultMaxDocumentSize = 64 << 20

// Options configure a Resolver.
type Options struct {
	// VirtualFS is used for any file based references. If not provided normal file system operations will be used.
	VirtualFS system.VirtualFS
	// HTTPClient is used for any HTTP based references. If not provided http.DefaultClient will be used.
	HTTPClient system.Client
	// Headers are added to requests whose URL matches their pattern.
	Headers []HTTPHeader
	// RateLimiter, when set, throttles remote fetches.
	RateLimiter *rate.Limiter
	Logger      *slog.Logger
	// MaxDocumentSize is the largest body accepted, in bytes. Zero means DefaultMaxDocumentSize.
	MaxDocumentSize int64
}

type Option func(o *Options)

func WithVirtualFS(fs system.VirtualFS) Option {
	return func(o *Options) {
		o.VirtualFS = fs
	}
}

func WithHTTPClient(client system.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}

func WithHTTPHeaders(headers []HTTPHeader) Option {
	return func(o *Options) {
		o.Headers = append(o.Headers, headers...)
	}
}

func WithFetchRateLimit(limiter *rate.Limiter) Option {
	return func(o *Options) {
		o.RateLimiter = limiter
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithMaxDocumentSize(size int64) Option {
	return func(o *Options) {
		o.MaxDocumentSize = size
	}
}

type cacheEntry struct {
	doc *Document
	err error
}

// Resolver fetches, parses and caches documents by absolute locator.
// Failures are cached too, so a broken document is fetched at most once per Resolver.
// A Resolver is safe for concurrent use.
type Resolver struct {
	fs              system.VirtualFS
	client          system.Client
	headers         []compiledHeader
	limiter         *rate.Limiter
	logger          *slog.Logger
	maxDocumentSize int64

	mu    sync.Mutex
	cache map[string]cacheEntry
	files *sequencedmap.Map[string, struct{}]
	group singleflight.Group
}

// NewResolver returns a Resolver configured by opts.
func NewResolver(opts ...Option) (*Resolver, error) {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.VirtualFS == nil {
		o.VirtualFS = &system.FileSystem{}
	}
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.MaxDocumentSize <= 0 {
		o.MaxDocumentSize = DefaultMaxDocumentSize
	}

	headers, err := compileHeaders(o.Headers)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		fs:              o.VirtualFS,
		client:          o.HTTPClient,
		headers:         headers,
		limiter:         o.RateLimiter,
		logger:          o.Logger,
		maxDocumentSize: o.MaxDocumentSize,
		cache:           map[string]cacheEntry{},
		files:           sequencedmap.New[string, struct{}](),
	}, nil
}

// ResolveExternalRef returns the absolute locator of the document part of ref, resolved against base.
// Absolute URLs are returned as is, URL bases use RFC 3986 resolution and paths are joined with the
// directory of base (or the working directory when base is empty).
func (r *Resolver) ResolveExternalRef(base, ref string) string {
	uri, _ := utils.SplitReference(ref)
	if uri == "" {
		return base
	}
	if utils.IsAbsoluteURL(uri) || strings.HasPrefix(uri, "file://") {
		return uri
	}

	if base == "" {
		return absPath(uri)
	}

	joined, err := utils.JoinReference(base, uri)
	if err != nil {
		return absPath(uri)
	}
	if utils.IsURL(joined) {
		return joined
	}
	return absPath(joined)
}

func absPath(p string) string {
	if strings.HasPrefix(p, "/") {
		return filepath.ToSlash(filepath.Clean(p))
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.ToSlash(filepath.Clean(p))
	}
	return filepath.ToSlash(abs)
}

// ResolveDocument returns the Document the document part of ref points at, resolved against base.
// Each locator is fetched and parsed at most once. isRoot forces YAML/JSON parsing regardless of extension.
func (r *Resolver) ResolveDocument(ctx context.Context, base, ref string, isRoot bool) (*Document, error) {
	absRef := r.ResolveExternalRef(base, ref)

	if entry, ok := r.cached(absRef); ok {
		r.logger.Debug("document cache hit", "locator", absRef, "failed", entry.err != nil)
		return entry.doc, entry.err
	}

	v, err, _ := r.group.Do(absRef, func() (any, error) {
		if entry, ok := r.cached(absRef); ok {
			return entry.doc, entry.err
		}

		doc, err := r.load(ctx, absRef, isRoot)
		if err != nil && ctx.Err() != nil {
			// cancellation is not a property of the document, so it is not cached
			return nil, err
		}

		r.mu.Lock()
		r.cache[absRef] = cacheEntry{doc: doc, err: err}
		r.mu.Unlock()

		return doc, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*Document), nil
}

func (r *Resolver) cached(absRef string) (cacheEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache[absRef]
	return entry, ok
}

func (r *Resolver) load(ctx context.Context, absRef string, isRoot bool) (*Document, error) {
	src, err := r.LoadExternalRef(ctx, absRef)
	if err != nil {
		r.logger.Debug("failed to fetch document", "locator", absRef, "error", err)
		return nil, err
	}

	r.mu.Lock()
	r.files.Set(absRef, struct{}{})
	r.mu.Unlock()

	doc, err := parseSource(src, isRoot)
	if err != nil {
		r.logger.Debug("failed to parse document", "locator", absRef, "error", err)
		return nil, err
	}

	r.logger.Debug("loaded document", "locator", absRef, "bytes", len(src.Body))
	return doc, nil
}

// LoadExternalRef reads the raw body behind an absolute locator, over HTTP for URLs and through the
// VirtualFS otherwise.
func (r *Resolver) LoadExternalRef(ctx context.Context, absRef string) (*Source, error) {
	if utils.IsAbsoluteURL(absRef) {
		return r.fetchURL(ctx, absRef)
	}

	p := strings.TrimPrefix(absRef, "file://")
	f, err := r.fs.Open(p)
	if err != nil {
		return nil, errors.NewFetchError(absRef, err)
	}
	defer f.Close()

	body, err := r.readAll(f)
	if err != nil {
		return nil, errors.NewFetchError(absRef, err)
	}

	return &Source{AbsoluteRef: absRef, Body: body}, nil
}

func (r *Resolver) fetchURL(ctx context.Context, absRef string) (*Source, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, errors.NewFetchError(absRef, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, absRef, nil)
	if err != nil {
		return nil, errors.NewFetchError(absRef, err)
	}
	for _, h := range r.headers {
		if h.matches(absRef) {
			req.Header.Set(h.name, h.value)
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.NewFetchError(absRef, err)
	}
	if resp == nil {
		return nil, errors.NewFetchError(absRef, errors.New("no response"))
	}
	defer resp.Body.Close()

	// Check if the response was successful
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewFetchError(absRef, fmt.Errorf("HTTP request failed with status %d", resp.StatusCode))
	}

	body, err := r.readAll(resp.Body)
	if err != nil {
		return nil, errors.NewFetchError(absRef, err)
	}

	return &Source{AbsoluteRef: absRef, Body: body, MimeType: resp.Header.Get("Content-Type")}, nil
}

func (r *Resolver) readAll(reader io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(reader, r.maxDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > r.maxDocumentSize {
		return nil, fmt.Errorf("document exceeds maximum size of %d bytes", r.maxDocumentSize)
	}
	return body, nil
}

// FileDependencies returns every locator that was successfully opened, in first-open order.
func (r *Resolver) FileDependencies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	files := make([]string, 0, r.files.Len())
	for file := range r.files.Keys() {
		files = append(files, file)
	}
	return files
}
