package pages

import (
	"sort"

	"github.com/jrennert/insurancedocflow/internal/models"
)

// MissingPageText marks a page a source failed to produce. Downstream
// consumers treat it as ordinary page text; it exists so every aligned page
// carries an entry for every source.
const MissingPageText = "[NO TEXT EXTRACTED]"

// SourceStream is one OCR source's parsed page sequence. The order of
// streams passed to Align fixes the source order inside every AlignedPage.
type SourceStream struct {
	Source models.SourceTag
	Pages  []models.SourcedPage
}

// Align merges independently produced per-page streams into one ordered
// sequence of per-page bundles. Page numbers are unioned across sources and
// sorted ascending; a source lacking a page contributes a MissingPageText
// placeholder instead. Differing page sets between sources are expected
// (per-page OCR failures) and never an error. If a stream itself contains
// the same page twice, the first occurrence wins.
func Align(streams []SourceStream) []models.AlignedPage {
	bydoc := make(map[int]map[models.SourceTag]string)
	for _, stream := range streams {
		for _, p := range stream.Pages {
			pageTexts, ok := bydoc[p.PageNumber]
			if !ok {
				pageTexts = make(map[models.SourceTag]string, len(streams))
				bydoc[p.PageNumber] = pageTexts
			}
			if _, dup := pageTexts[p.Source]; !dup {
				pageTexts[p.Source] = p.Text
			}
		}
	}

	numbers := make([]int, 0, len(bydoc))
	for n := range bydoc {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	aligned := make([]models.AlignedPage, 0, len(numbers))
	for _, n := range numbers {
		bundle := models.AlignedPage{
			PageNumber: n,
			Sources:    make([]models.SourcedPage, 0, len(streams)),
		}
		for _, stream := range streams {
			text, ok := bydoc[n][stream.Source]
			if !ok {
				text = MissingPageText
			}
			bundle.Sources = append(bundle.Sources, models.SourcedPage{
				PageNumber: n,
				Source:     stream.Source,
				Text:       text,
			})
		}
		aligned = append(aligned, bundle)
	}
	return aligned
}
