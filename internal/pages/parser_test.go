package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrennert/insurancedocflow/internal/models"
)

func TestParseStream_TwoPages(t *testing.T) {
	raw := "----------\n" +
		"PAGE 1\n" +
		"----------\n" +
		"COMMERCIAL PROPERTY COVERAGE PART\n" +
		"Named Insured: Acme Holdings LLC\n" +
		"----------\n" +
		"PAGE 2\n" +
		"----------\n" +
		"Building Limit: $500,000\n"

	pages := ParseStream(models.SourceDocAI, raw)
	require.Len(t, pages, 2)

	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, models.SourceDocAI, pages[0].Source)
	assert.Equal(t, "COMMERCIAL PROPERTY COVERAGE PART\nNamed Insured: Acme Holdings LLC", pages[0].Text)

	assert.Equal(t, 2, pages[1].PageNumber)
	assert.Equal(t, "Building Limit: $500,000", pages[1].Text)
}

func TestParseStream_DuplicateMarkerKeepsFirst(t *testing.T) {
	raw := "---\n" +
		"PAGE 4\n" +
		"---\n" +
		"first occurrence\n" +
		"---\n" +
		"PAGE 4\n" +
		"---\n" +
		"second occurrence\n"

	pages := ParseStream(models.SourceTesseract, raw)
	require.Len(t, pages, 1)
	assert.Equal(t, 4, pages[0].PageNumber)
	assert.Equal(t, "first occurrence", pages[0].Text)
}

func TestParseStream_TextBeforeFirstMarkerIgnored(t *testing.T) {
	raw := "stray OCR preamble\n" +
		"----------\n" +
		"PAGE 1\n" +
		"----------\n" +
		"real content\n"

	pages := ParseStream(models.SourceVision, raw)
	require.Len(t, pages, 1)
	assert.Equal(t, "real content", pages[0].Text)
}

func TestParseStream_NoMarkersYieldsZeroPages(t *testing.T) {
	assert.Empty(t, ParseStream(models.SourceDocAI, "just some text\nwith no page structure"))
	assert.Empty(t, ParseStream(models.SourceDocAI, ""))
}

func TestParseStream_HorizontalRuleInsideBodyStaysInText(t *testing.T) {
	raw := "----------\n" +
		"PAGE 1\n" +
		"----------\n" +
		"above the rule\n" +
		"----------\n" +
		"below the rule\n"

	pages := ParseStream(models.SourceDocAI, raw)
	require.Len(t, pages, 1)
	assert.Equal(t, "above the rule\n----------\nbelow the rule", pages[0].Text)
}

func TestParseStream_NonNumericMarkerTreatedAsText(t *testing.T) {
	raw := "----------\n" +
		"PAGE 1\n" +
		"----------\n" +
		"body\n" +
		"----------\n" +
		"PAGE two\n" +
		"----------\n" +
		"more body\n"

	pages := ParseStream(models.SourceDocAI, raw)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0].Text, "PAGE two")
	assert.Contains(t, pages[0].Text, "more body")
}

func TestParseStream_EmptyPageBody(t *testing.T) {
	raw := "----------\n" +
		"PAGE 7\n" +
		"----------\n" +
		"----------\n" +
		"PAGE 8\n" +
		"----------\n" +
		"content\n"

	pages := ParseStream(models.SourceDocAI, raw)
	require.Len(t, pages, 2)
	assert.Equal(t, "", pages[0].Text)
	assert.Equal(t, "content", pages[1].Text)
}
