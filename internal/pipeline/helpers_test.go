package pipeline

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/nao1215/deepvision/internal/artifact"
	"github.com/nao1215/deepvision/internal/imaging"
	"github.com/nao1215/deepvision/internal/model"
	"github.com/nao1215/deepvision/internal/testimage"
	"github.com/nao1215/deepvision/internal/tool"
)

var discardLogger = slog.New(slog.DiscardHandler)

// fakeAdapter is a tool.Adapter whose behavior is set per test.
type fakeAdapter struct {
	id   string
	kind tool.Kind
	run  func(ctx context.Context, in tool.Input) model.ToolResult
}

var _ tool.Adapter = (*fakeAdapter)(nil)

func (f *fakeAdapter) ID() string          { return f.id }
func (f *fakeAdapter) Description() string { return "fake " + f.id }
func (f *fakeAdapter) Kind() tool.Kind     { return f.kind }

func (f *fakeAdapter) Run(ctx context.Context, in tool.Input) model.ToolResult {
	if f.run == nil {
		return model.LinesResult(nil)
	}
	return f.run(ctx, in)
}

// emptyAdapters returns process adapters with the catalog IDs that all
// succeed without findings.
func emptyAdapters() []tool.Adapter {
	adapters := make([]tool.Adapter, 0, len(tool.CatalogIDs))
	for _, id := range tool.CatalogIDs {
		adapters = append(adapters, &fakeAdapter{id: id})
	}
	return adapters
}

func newRegistry(t *testing.T, adapters []tool.Adapter, timeout time.Duration) *tool.Registry {
	t.Helper()
	reg, err := tool.NewRegistry(adapters,
		tool.WithDefaultTimeout(timeout),
		tool.WithRegistryLogger(discardLogger),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return reg
}

func newStore(t *testing.T) *artifact.Store {
	t.Helper()
	store, err := artifact.New(t.TempDir(), artifact.WithLogger(discardLogger))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return store
}

// grayPNG is a 100x100 mid-gray PNG dithered by one level, so half of the
// channel LSBs are set.
func grayPNG(t *testing.T) []byte {
	t.Helper()
	return testimage.PNG(t, testimage.Checkerboard(100, 100, 127, 128))
}

func ingestGray(t *testing.T) *imaging.Handle {
	t.Helper()
	h, err := imaging.Ingest("gray.png", grayPNG(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return h
}
