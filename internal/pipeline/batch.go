package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/deepvision/internal/report"
	"golang.org/x/sync/errgroup"
)

// Analyzer analyzes one upload. *Engine implements it.
type Analyzer interface {
	Analyze(ctx context.Context, filename string, data []byte) (*report.Document, error)
}

var _ Analyzer = (*Engine)(nil)

// BatchResult is the outcome for one file of a batch.
type BatchResult struct {
	// Path is the file as given.
	Path string
	// Document is nil when Err is set.
	Document *report.Document
	Err      error
}

// BatchProcessor handles concurrent analysis of multiple files.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// The external process pool is shared through the Engine's Orchestrator, so
// the batch concurrency bounds files in flight, not tool processes.
type BatchProcessor struct {
	analyzer Analyzer

	// concurrency is the maximum number of files analyzed at once.
	concurrency int

	// readFile loads a file. It defaults to os.ReadFile.
	readFile func(string) ([]byte, error)

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent analyses.
// Default is 2 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithFileReader replaces os.ReadFile.
func WithFileReader(read func(string) ([]byte, error)) BatchOption {
	return func(b *BatchProcessor) {
		if read != nil {
			b.readFile = read
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(analyzer Analyzer, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		analyzer:    analyzer,
		concurrency: 2,
		readFile:    os.ReadFile,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch analyzes multiple files concurrently.
// Results are in input order. A failed file is recorded in its result and
// does not stop the others; the error return is the context error if the
// batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, paths []string) ([]BatchResult, error) {
	results := make([]BatchResult, len(paths))
	err := bp.ProcessBatchWithCallback(ctx, paths, func(r BatchResult, i int) {
		results[i] = r
	})
	return results, err
}

// ProcessBatchWithCallback analyzes multiple files and calls callback for
// each completed one. This is useful for streaming results.
//
// The callback receives the result and the index of the path in the
// original slice. Files skipped because the batch was cancelled are
// reported with the context error. It is called from the goroutine that completed the file,
// so it must be safe for concurrent use if it touches shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	paths []string,
	callback func(result BatchResult, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_files", len(paths),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				callback(BatchResult{Path: path, Err: err}, i)
				return err
			}

			result := BatchResult{Path: path}
			data, err := bp.readFile(path)
			if err == nil {
				result.Document, err = bp.analyzer.Analyze(ctx, filepath.Base(path), data)
			}
			result.Err = err

			if err != nil {
				bp.logger.Warn("analysis failed", "file", path, "error", err)
			}
			callback(result, i)
			// A cancelled analysis cancels the batch; anything else does not.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch processing complete",
		"total_files", len(paths),
		"elapsed", time.Since(startTime),
	)
	return err
}
