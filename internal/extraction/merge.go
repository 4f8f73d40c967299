package extraction

import (
	"sort"
	"strings"

	"github.com/jrennert/insurancedocflow/internal/models"
	"github.com/jrennert/insurancedocflow/internal/schema"
)

// Merge folds chunk results into one DocumentExtraction. The field map is
// seeded from the canonical schema so output ordering is schema-defined, not
// extraction-order-defined. Chunks are processed in ascending chunk-index
// order regardless of completion order: the first non-null value for a field
// wins, and a later chunk's conflicting non-null value is appended to
// Conflicts, never silently adopted. Field names outside the schema are
// accepted and added after the canonical fields, so schema drift in the
// collaborator degrades ordering, not correctness.
func Merge(s *schema.Schema, results []ChunkResult) models.DocumentExtraction {
	doc := models.DocumentExtraction{
		Fields:      make(map[string]models.FieldRecord, len(s.Fields)),
		FieldOrder:  make([]string, 0, len(s.Fields)),
		ChunksTotal: len(results),
	}
	for _, name := range s.Fields {
		doc.Fields[name] = models.FieldRecord{Name: name, Confidence: models.ConfidenceUnknown}
		doc.FieldOrder = append(doc.FieldOrder, name)
	}

	ordered := make([]ChunkResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	for _, res := range ordered {
		if res.Err != nil {
			doc.ChunksFailed++
			continue
		}
		for _, name := range sortedFieldNames(res.Fields) {
			mergeField(&doc, name, res.Fields[name], res.Index)
		}
	}
	return doc
}

func mergeField(doc *models.DocumentExtraction, name string, field models.ExtractedField, chunkIndex int) {
	incoming := cleanValue(field.Value)

	existing, known := doc.Fields[name]
	if !known {
		existing = models.FieldRecord{Name: name, Confidence: models.ConfidenceUnknown}
		doc.Fields[name] = existing
		doc.FieldOrder = append(doc.FieldOrder, name)
	}
	if incoming == nil {
		return
	}

	if existing.Value == nil {
		confidence := field.Confidence
		if confidence == "" {
			confidence = models.ConfidenceUnknown
		}
		doc.Fields[name] = models.FieldRecord{
			Name:       name,
			Value:      incoming,
			SourcePage: field.EvidencePage,
			Confidence: confidence,
		}
		return
	}
	if *existing.Value != *incoming {
		doc.Conflicts = append(doc.Conflicts, models.FieldConflict{
			Field:              name,
			RejectedValue:      *incoming,
			RejectedChunkIndex: chunkIndex,
		})
	}
}

// cleanValue treats blank strings the same as absent values.
func cleanValue(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// sortedFieldNames gives a deterministic iteration order over one chunk's
// partial map; within a chunk no field appears twice, so any fixed order
// preserves merge determinism.
func sortedFieldNames(fields map[string]models.ExtractedField) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
