package chunker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrennert/insurancedocflow/internal/models"
)

func alignedPages(n int) []models.AlignedPage {
	pages := make([]models.AlignedPage, 0, n)
	for i := 1; i <= n; i++ {
		pages = append(pages, models.AlignedPage{
			PageNumber: i,
			Sources: []models.SourcedPage{
				{PageNumber: i, Source: models.SourceDocAI, Text: fmt.Sprintf("docai page %d", i)},
				{PageNumber: i, Source: models.SourceTesseract, Text: fmt.Sprintf("tess page %d", i)},
			},
		})
	}
	return pages
}

func TestSplit_WindowsPreserveOrder(t *testing.T) {
	chunks := Split(alignedPages(10), 4)
	require.Len(t, chunks, 3)

	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, []int{1, 2, 3, 4}, chunks[0].PageNumbers)
	assert.Equal(t, 1, chunks[1].Index)
	assert.Equal(t, []int{5, 6, 7, 8}, chunks[1].PageNumbers)
	assert.Equal(t, 2, chunks[2].Index)
	assert.Equal(t, []int{9, 10}, chunks[2].PageNumbers)
}

func TestSplit_TextIsSourceLabeled(t *testing.T) {
	chunks := Split(alignedPages(1), 4)
	require.Len(t, chunks, 1)

	text := chunks[0].Text
	assert.Contains(t, text, "===== PAGE 1 =====")
	assert.Contains(t, text, "--- source: docai ---")
	assert.Contains(t, text, "--- source: tesseract ---")
	assert.Contains(t, text, "docai page 1")
	assert.Equal(t, len(text), chunks[0].CharCount)
}

func TestSplit_EmptyInputProducesZeroChunks(t *testing.T) {
	assert.Empty(t, Split(nil, 4))
}

func TestSplit_DefaultWindow(t *testing.T) {
	chunks := Split(alignedPages(9), 0)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Pages, DefaultPageWindow)
	assert.Len(t, chunks[2].Pages, 1)
}

func TestSplit_ExactMultiple(t *testing.T) {
	chunks := Split(alignedPages(8), 4)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[1].Pages, 4)
}
