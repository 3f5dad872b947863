package tool

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTimeout bounds a single adapter run.
const DefaultTimeout = 30 * time.Second

// CatalogIDs lists the built-in adapters in registration order. Reports,
// summaries, and tables follow this order.
var CatalogIDs = []string{
	"strings",
	"exif",
	"exiftool",
	"binwalk",
	"steghide",
	"zsteg",
	"pngcheck",
	"stegdetect",
	"foremost",
	"stegano",
}

// Catalog returns every built-in adapter in registration order.
// options maps an adapter ID to extra options for process adapters, such as
// a configured binary path; it may be nil.
func Catalog(runner Runner, options func(id string) []CommandOption) []Adapter {
	if options == nil {
		options = func(string) []CommandOption { return nil }
	}
	return []Adapter{
		NewStrings(runner, options("strings")...),
		NewExif(),
		NewExiftool(runner, options("exiftool")...),
		NewBinwalk(runner, options("binwalk")...),
		NewSteghide(runner, options("steghide")...),
		NewZsteg(runner, options("zsteg")...),
		NewPngcheck(runner, options("pngcheck")...),
		NewStegdetect(runner, options("stegdetect")...),
		NewForemost(runner, options("foremost")...),
		NewStegano(runner, options("stegano")...),
	}
}

// Registry is the ordered, immutable set of adapters used for every run.
type Registry struct {
	adapters       []Adapter
	timeouts       map[string]time.Duration
	defaultTimeout time.Duration
	logger         *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDefaultTimeout sets the timeout of adapters without an override.
func WithDefaultTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.defaultTimeout = d
		}
	}
}

// WithTimeout overrides the timeout of one adapter.
func WithTimeout(id string, d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.timeouts[id] = d
		}
	}
}

// WithRegistryLogger sets the logger.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a registry of adapters in the given order.
func NewRegistry(adapters []Adapter, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		timeouts:       map[string]time.Duration{},
		defaultTimeout: DefaultTimeout,
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}

	seen := make(map[string]bool, len(adapters))
	for _, a := range adapters {
		if seen[a.ID()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAdapter, a.ID())
		}
		seen[a.ID()] = true
		r.adapters = append(r.adapters, a)
	}
	for id := range r.timeouts {
		if !seen[id] {
			r.logger.Warn("timeout configured for unregistered adapter", "adapter", id)
		}
	}
	return r, nil
}

// Adapters returns the adapters in registration order.
func (r *Registry) Adapters() []Adapter {
	out := make([]Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

// IDs returns the adapter IDs in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.adapters))
	for i, a := range r.adapters {
		ids[i] = a.ID()
	}
	return ids
}

// Len returns the number of adapters.
func (r *Registry) Len() int { return len(r.adapters) }

// Timeout returns the run timeout of an adapter.
func (r *Registry) Timeout(id string) time.Duration {
	if d, ok := r.timeouts[id]; ok {
		return d
	}
	return r.defaultTimeout
}

// Availability describes whether an adapter can run on this host.
type Availability struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	Binary      string `json:"binary,omitempty"`
	Path        string `json:"path,omitempty"`
	Installed   bool   `json:"installed"`
	Timeout     string `json:"timeout"`
}

// Availability resolves every adapter's executable.
func (r *Registry) Availability(ctx context.Context) []Availability {
	out := make([]Availability, 0, len(r.adapters))
	for _, a := range r.adapters {
		if ctx.Err() != nil {
			break
		}
		av := Availability{
			ID:          a.ID(),
			Description: a.Description(),
			Kind:        a.Kind().String(),
			Installed:   true,
			Timeout:     r.Timeout(a.ID()).String(),
		}
		if l, ok := a.(Locator); ok {
			av.Binary = l.Binary()
			path, err := l.Locate()
			av.Path = path
			av.Installed = err == nil
		}
		out = append(out, av)
	}
	return out
}
