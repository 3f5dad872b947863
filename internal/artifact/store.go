package artifact

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"time"

	"github.com/nao1215/deepvision/internal/bitplane"
	"github.com/nao1215/deepvision/internal/model"
)

// DefaultURLPrefix is the URL path under which artifacts are served.
const DefaultURLPrefix = "/static/bitplanes"

// DefaultRetention is how long run directories are kept.
const DefaultRetention = time.Hour

// ErrInvalidRunID is returned when a run ID could escape the store root.
var ErrInvalidRunID = errors.New("invalid run id")

var runIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// Store writes artifacts below a root directory.
type Store struct {
	root      string
	urlPrefix string
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithURLPrefix sets the URL prefix used in returned plane references.
func WithURLPrefix(prefix string) Option {
	return func(s *Store) {
		s.urlPrefix = prefix
	}
}

// WithRetention sets how long run directories survive. Zero keeps them
// until they are removed explicitly.
func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		s.retention = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates the root directory if needed and returns a Store.
func New(root string, opts ...Option) (*Store, error) {
	s := &Store{
		root:      root,
		urlPrefix: DefaultURLPrefix,
		retention: DefaultRetention,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return s, nil
}

// Root returns the directory artifacts are written to.
func (s *Store) Root() string { return s.root }

// URLPrefix returns the URL path prefix of served artifacts.
func (s *Store) URLPrefix() string { return s.urlPrefix }

// Save encodes planes as PNG files in the run's directory and returns
// their references in the same order. It checks ctx before each plane;
// once ctx is done the run directory is removed and ctx.Err() returned.
func (s *Store) Save(ctx context.Context, runID string, planes []bitplane.Plane) ([]model.PlaneRef, error) {
	if !runIDPattern.MatchString(runID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}
	dir := filepath.Join(s.root, runID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	refs := make([]model.PlaneRef, 0, len(planes))
	for _, p := range planes {
		if err := ctx.Err(); err != nil {
			_ = os.RemoveAll(dir)
			return nil, err
		}
		name := p.FileName()
		if err := writePNG(filepath.Join(dir, name), p); err != nil {
			_ = os.RemoveAll(dir)
			return nil, err
		}
		refs = append(refs, model.PlaneRef{
			Name: p.Name(),
			Path: path.Join(s.urlPrefix, runID, name),
		})
	}
	return refs, nil
}

func writePNG(file string, p bitplane.Plane) (err error) {
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(file), err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err := png.Encode(f, p.Image); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(file), err)
	}
	return nil
}

// Remove deletes every artifact of a run. Removing an unknown run is not
// an error.
func (s *Store) Remove(runID string) error {
	if !runIDPattern.MatchString(runID) {
		return fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}
	if err := os.RemoveAll(filepath.Join(s.root, runID)); err != nil {
		return fmt.Errorf("failed to remove artifacts of run %s: %w", runID, err)
	}
	return nil
}

// Sweep removes run directories older than the retention period and
// returns how many were removed.
func (s *Store) Sweep() (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("failed to list artifact directory: %w", err)
	}

	cutoff := s.now().Add(-s.retention)
	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.IsDir() || !runIDPattern.MatchString(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// RunJanitor sweeps every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if s.retention <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep()
			if err != nil {
				s.logger.Warn("artifact sweep failed", "error", err)
			}
			if n > 0 {
				s.logger.Debug("expired artifacts removed", "runs", n)
			}
		}
	}
}
