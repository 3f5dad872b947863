package artifact

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/deepvision/internal/bitplane"
	"github.com/nao1215/deepvision/internal/testimage"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "planes"), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

// TestSave tests that planes are written and referenced in order.
func TestSave(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	planes := bitplane.Slice(testimage.Checkerboard(4, 4, 127, 128), bitplane.DefaultOptions())

	refs, err := s.Save(context.Background(), "run-1", planes)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(refs) != len(planes) {
		t.Fatalf("got %d refs, expected %d", len(refs), len(planes))
	}
	if refs[0].Path != "/static/bitplanes/run-1/Red_Bit0.png" {
		t.Errorf("Path = %q", refs[0].Path)
	}
	if refs[0].Name != "Red Channel - Bit 0 (LSB)" {
		t.Errorf("Name = %q", refs[0].Name)
	}

	f, err := os.Open(filepath.Join(s.Root(), "run-1", "Blue_Bit1.png"))
	if err != nil {
		t.Fatalf("plane file missing: %v", err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("plane file is not a PNG: %v", err)
	}
}

// TestSaveCancelled tests that a cancelled save leaves no run directory.
func TestSaveCancelled(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	planes := bitplane.Slice(testimage.Checkerboard(4, 4, 127, 128), bitplane.DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	refs, err := s.Save(ctx, "run-cancelled", planes)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Save() error = %v, expected context.Canceled", err)
	}
	if refs != nil {
		t.Errorf("expected no refs, got %v", refs)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "run-cancelled")); !os.IsNotExist(err) {
		t.Errorf("run directory left behind: %v", err)
	}
}

// TestSaveRejectsTraversal tests run ID validation.
func TestSaveRejectsTraversal(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	for _, id := range []string{"../escape", "", "a/b", ".hidden"} {
		if _, err := s.Save(context.Background(), id, nil); !errors.Is(err, ErrInvalidRunID) {
			t.Errorf("Save(%q) error = %v, expected ErrInvalidRunID", id, err)
		}
		if err := s.Remove(id); !errors.Is(err, ErrInvalidRunID) {
			t.Errorf("Remove(%q) error = %v, expected ErrInvalidRunID", id, err)
		}
	}
}

// TestRemove tests that a run's directory disappears.
func TestRemove(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	planes := bitplane.Slice(testimage.Checkerboard(2, 2, 0, 1), bitplane.DefaultOptions())
	if _, err := s.Save(context.Background(), "gone", planes); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("gone"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "gone")); !os.IsNotExist(err) {
		t.Errorf("run directory still exists: %v", err)
	}
	if err := s.Remove("never-existed"); err != nil {
		t.Errorf("Remove() of unknown run = %v", err)
	}
}

// TestSweep tests retention-based cleanup.
func TestSweep(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, WithRetention(time.Hour))
	for _, id := range []string{"old", "fresh"} {
		if err := os.MkdirAll(filepath.Join(s.Root(), id), 0o750); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(filepath.Join(s.Root(), "old"), past, past); err != nil {
		t.Fatal(err)
	}

	n, err := s.Sweep()
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Sweep() removed %d, expected 1", n)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "fresh")); err != nil {
		t.Errorf("fresh run removed: %v", err)
	}

	keep := newTestStore(t, WithRetention(0))
	if n, _ := keep.Sweep(); n != 0 {
		t.Errorf("Sweep() with zero retention removed %d", n)
	}
}
