package models

// SourceTag identifies which OCR method produced a page's text. The set is
// closed: every combined-text object in the OCR bucket is keyed by one of
// these tags.
type SourceTag string

const (
	SourceDocAI     SourceTag = "docai"
	SourceTesseract SourceTag = "tesseract"
	SourceVision    SourceTag = "vision"
)

// DocType distinguishes the three document roles in a QC run.
type DocType string

const (
	DocTypeCertificate DocType = "certificate"
	DocTypePolicy      DocType = "policy"
	DocTypeAcord       DocType = "acord"
)

// SourcedPage is one page's text as produced by one OCR source. Instances are
// created once per OCR run and never mutated.
type SourcedPage struct {
	PageNumber int       `json:"pageNumber"`
	Source     SourceTag `json:"source"`
	Text       string    `json:"text"`
}

// AlignedPage bundles every source's text for a single page number. A source
// that did not produce this page is represented with a placeholder entry, so
// len(Sources) is the same for every page of a document.
type AlignedPage struct {
	PageNumber int           `json:"pageNumber"`
	Sources    []SourcedPage `json:"sources"`
}

// Chunk is a bounded window of consecutive aligned pages sent as one unit to
// the field-extraction collaborator. Chunks are transient; they exist only to
// drive one extraction call.
type Chunk struct {
	Index       int           `json:"index"`
	Pages       []AlignedPage `json:"-"`
	PageNumbers []int         `json:"pageNumbers"`
	Text        string        `json:"-"`
	CharCount   int           `json:"charCount"`
}

// Confidence is the extraction collaborator's self-assessment for one field.
type Confidence string

const (
	ConfidenceHigh    Confidence = "HIGH"
	ConfidenceMedium  Confidence = "MEDIUM"
	ConfidenceLow     Confidence = "LOW"
	ConfidenceUnknown Confidence = "UNKNOWN"
)

// ExtractedField is one field's value as reported by a single chunk
// extraction call, before merging.
type ExtractedField struct {
	Value        *string    `json:"value"`
	EvidencePage *int       `json:"evidencePage,omitempty"`
	Confidence   Confidence `json:"confidence,omitempty"`
}

// FieldRecord is the merged, document-level value for one schema field.
// Records are replaced wholesale during the merge, never mutated in place.
type FieldRecord struct {
	Name       string     `json:"name"`
	Value      *string    `json:"value"`
	SourcePage *int       `json:"sourcePage,omitempty"`
	Confidence Confidence `json:"confidence"`
}

// FieldConflict records a non-null value that lost the first-writer-wins
// merge to an earlier chunk.
type FieldConflict struct {
	Field              string `json:"field"`
	RejectedValue      string `json:"rejectedValue"`
	RejectedChunkIndex int    `json:"rejectedChunkIndex"`
}

// DocumentExtraction is the merged field map for one document, plus the
// bookkeeping needed downstream: merge conflicts and chunk failure counts.
// FieldOrder preserves the canonical schema ordering (plus any dynamically
// discovered fields, in order of first appearance) so tabular output stays
// stable across runs.
type DocumentExtraction struct {
	Fields       map[string]FieldRecord `json:"fields"`
	FieldOrder   []string               `json:"fieldOrder"`
	Conflicts    []FieldConflict        `json:"conflicts,omitempty"`
	ChunksTotal  int                    `json:"chunksTotal"`
	ChunksFailed int                    `json:"chunksFailed"`
}

// Value returns the merged value for a field, or nil if the field is absent
// or was never filled.
func (d *DocumentExtraction) Value(field string) *string {
	if d == nil {
		return nil
	}
	rec, ok := d.Fields[field]
	if !ok {
		return nil
	}
	return rec.Value
}
