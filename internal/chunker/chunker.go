// Package chunker groups aligned pages into bounded windows for the
// field-extraction collaborator.
package chunker

import (
	"fmt"
	"strings"

	"github.com/jrennert/insurancedocflow/internal/models"
)

// DefaultPageWindow is the number of pages per chunk when the caller does not
// specify one.
const DefaultPageWindow = 4

// Split groups aligned pages into chunks of at most window pages each,
// preserving page order. Each chunk carries the concatenated, source-labeled
// text of its pages and the set of page numbers it covers. Split is a pure
// function of its inputs; empty input produces zero chunks.
func Split(aligned []models.AlignedPage, window int) []models.Chunk {
	if window <= 0 {
		window = DefaultPageWindow
	}
	if len(aligned) == 0 {
		return nil
	}

	chunks := make([]models.Chunk, 0, (len(aligned)+window-1)/window)
	for start := 0; start < len(aligned); start += window {
		end := start + window
		if end > len(aligned) {
			end = len(aligned)
		}
		pagesWindow := aligned[start:end]

		var (
			text    strings.Builder
			numbers = make([]int, 0, len(pagesWindow))
		)
		for _, page := range pagesWindow {
			numbers = append(numbers, page.PageNumber)
			fmt.Fprintf(&text, "===== PAGE %d =====\n", page.PageNumber)
			for _, src := range page.Sources {
				fmt.Fprintf(&text, "--- source: %s ---\n%s\n", src.Source, src.Text)
			}
			text.WriteByte('\n')
		}

		body := text.String()
		chunks = append(chunks, models.Chunk{
			Index:       len(chunks),
			Pages:       pagesWindow,
			PageNumbers: numbers,
			Text:        body,
			CharCount:   len(body),
		})
	}
	return chunks
}
