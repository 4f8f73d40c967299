// Package extraction fans document chunks out to the field-extraction
// collaborator and folds the partial results into one document-level field
// map.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jrennert/insurancedocflow/internal/models"
)

// ChunkExtractor is the field-extraction collaborator: it turns one chunk of
// combined page text into a partial field map. Implementations are expected
// to be safe for concurrent use.
type ChunkExtractor interface {
	ExtractFields(ctx context.Context, chunk models.Chunk, totalChunks int) (map[string]models.ExtractedField, error)
}

// ChunkResult is the outcome of one chunk's extraction call. Exactly one of
// Fields or Err is meaningful.
type ChunkResult struct {
	Index  int
	Fields map[string]models.ExtractedField
	Err    error
}

// Dispatcher runs chunk extractions concurrently through a bounded worker
// pool. A failing chunk never aborts its siblings; failures surface as
// per-chunk errors in the collected results.
type Dispatcher struct {
	extractor ChunkExtractor
	workers   int
}

// NewDispatcher creates a Dispatcher. workers <= 0 sizes the pool to the
// available parallelism; the work is I/O-bound on network calls, so the pool
// bound exists to cap in-flight requests, not CPU.
func NewDispatcher(extractor ChunkExtractor, workers int) *Dispatcher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Dispatcher{extractor: extractor, workers: workers}
}

// Run dispatches every chunk and collects one ChunkResult per chunk, indexed
// by chunk order. Each worker writes only its own result slot, so no locking
// is needed; Run returns after all workers finish. Malformed or empty
// collaborator output is recorded as a failed chunk rather than raised.
func (d *Dispatcher) Run(ctx context.Context, chunks []models.Chunk) []ChunkResult {
	results := make([]ChunkResult, len(chunks))

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, chunk := range chunks {
		g.Go(func() error {
			results[i] = d.runOne(ctx, chunk, len(chunks))
			return nil
		})
	}
	// Workers never return errors; failures live in the result slots.
	_ = g.Wait()
	return results
}

func (d *Dispatcher) runOne(ctx context.Context, chunk models.Chunk, total int) ChunkResult {
	fields, err := d.extractor.ExtractFields(ctx, chunk, total)
	if err != nil {
		slog.Warn("Chunk extraction failed; continuing with remaining chunks.",
			"chunkIndex", chunk.Index, "error", err)
		return ChunkResult{Index: chunk.Index, Err: err}
	}
	if len(fields) == 0 {
		err := fmt.Errorf("extractor returned no fields for chunk %d", chunk.Index)
		slog.Warn("Chunk extraction returned empty output; marking chunk failed.",
			"chunkIndex", chunk.Index)
		return ChunkResult{Index: chunk.Index, Err: err}
	}
	return ChunkResult{Index: chunk.Index, Fields: fields}
}
