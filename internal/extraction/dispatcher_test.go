package extraction

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrennert/insurancedocflow/internal/models"
)

// mockExtractor implements ChunkExtractor with a configurable function.
type mockExtractor struct {
	extract func(ctx context.Context, chunk models.Chunk, total int) (map[string]models.ExtractedField, error)
}

func (m *mockExtractor) ExtractFields(ctx context.Context, chunk models.Chunk, total int) (map[string]models.ExtractedField, error) {
	return m.extract(ctx, chunk, total)
}

func strPtr(s string) *string { return &s }

func makeChunks(n int) []models.Chunk {
	chunks := make([]models.Chunk, n)
	for i := range chunks {
		chunks[i] = models.Chunk{Index: i, Text: fmt.Sprintf("chunk %d text", i)}
	}
	return chunks
}

func TestDispatcher_AllChunksSucceed(t *testing.T) {
	extractor := &mockExtractor{
		extract: func(ctx context.Context, chunk models.Chunk, total int) (map[string]models.ExtractedField, error) {
			return map[string]models.ExtractedField{
				"PolicyNumber": {Value: strPtr(fmt.Sprintf("CPP-%d", chunk.Index))},
			}, nil
		},
	}

	results := NewDispatcher(extractor, 4).Run(context.Background(), makeChunks(5))
	require.Len(t, results, 5)
	for i, res := range results {
		assert.Equal(t, i, res.Index)
		assert.NoError(t, res.Err)
		assert.Equal(t, fmt.Sprintf("CPP-%d", i), *res.Fields["PolicyNumber"].Value)
	}
}

func TestDispatcher_FailingChunkDoesNotAbortSiblings(t *testing.T) {
	extractor := &mockExtractor{
		extract: func(ctx context.Context, chunk models.Chunk, total int) (map[string]models.ExtractedField, error) {
			if chunk.Index == 1 {
				return nil, errors.New("model timeout")
			}
			return map[string]models.ExtractedField{"Carrier": {Value: strPtr("Hartford")}}, nil
		},
	}

	results := NewDispatcher(extractor, 4).Run(context.Background(), makeChunks(4))
	require.Len(t, results, 4)

	assert.Error(t, results[1].Err)
	assert.Nil(t, results[1].Fields)
	for _, i := range []int{0, 2, 3} {
		assert.NoError(t, results[i].Err, "chunk %d should be unaffected", i)
		assert.NotNil(t, results[i].Fields)
	}
}

func TestDispatcher_EmptyOutputMarksChunkFailed(t *testing.T) {
	extractor := &mockExtractor{
		extract: func(ctx context.Context, chunk models.Chunk, total int) (map[string]models.ExtractedField, error) {
			return map[string]models.ExtractedField{}, nil
		},
	}

	results := NewDispatcher(extractor, 2).Run(context.Background(), makeChunks(2))
	for _, res := range results {
		assert.Error(t, res.Err)
	}
}

func TestDispatcher_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32

	extractor := &mockExtractor{
		extract: func(ctx context.Context, chunk models.Chunk, total int) (map[string]models.ExtractedField, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return map[string]models.ExtractedField{"Deductible": {Value: strPtr("$5,000")}}, nil
		},
	}

	NewDispatcher(extractor, 2).Run(context.Background(), makeChunks(8))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestDispatcher_ResultsIndexedByChunkOrder(t *testing.T) {
	// Completion order is scrambled by sleeping longer on earlier chunks;
	// result slots must still line up with chunk indexes.
	extractor := &mockExtractor{
		extract: func(ctx context.Context, chunk models.Chunk, total int) (map[string]models.ExtractedField, error) {
			time.Sleep(time.Duration(10-chunk.Index) * time.Millisecond)
			return map[string]models.ExtractedField{
				"NamedInsured": {Value: strPtr(fmt.Sprintf("insured-%d", chunk.Index))},
			}, nil
		},
	}

	results := NewDispatcher(extractor, 8).Run(context.Background(), makeChunks(6))
	for i, res := range results {
		require.Equal(t, i, res.Index)
		assert.Equal(t, fmt.Sprintf("insured-%d", i), *res.Fields["NamedInsured"].Value)
	}
}
