// Package reconcile resolves three-way field comparisons between a policy, a
// certificate, and an ACORD application form.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jrennert/insurancedocflow/internal/models"
	"github.com/jrennert/insurancedocflow/internal/schema"
	"github.com/jrennert/insurancedocflow/internal/summary"
)

// SemanticComparer is the optional equivalence collaborator consulted when
// the normalization cascade fails to equate all three values: it judges
// whether the original values denote the same real-world fact and returns a
// short rationale.
type SemanticComparer interface {
	SameFact(ctx context.Context, fieldName string, values []string) (bool, string, error)
}

// Engine reconciles field values across the three document sources. comparer
// may be nil, in which case a failed normalization comparison is final.
type Engine struct {
	comparer SemanticComparer
}

// NewEngine creates an Engine. Pass a nil comparer to disable the semantic
// fallback.
func NewEngine(comparer SemanticComparer) *Engine {
	return &Engine{comparer: comparer}
}

// ReconcileAll reconciles every canonical schema field across the three
// extractions and returns the assembled report. Fields are independent;
// record order follows the schema. Any of the extractions may be nil when
// that document was not supplied, which reads as every field absent.
func (e *Engine) ReconcileAll(ctx context.Context, s *schema.Schema, policy, cert, acord *models.DocumentExtraction) models.ReconciliationReport {
	records := make([]models.ReconciliationRecord, 0, len(s.Fields))
	for _, name := range s.Fields {
		records = append(records, e.Reconcile(ctx, name, policy.Value(name), cert.Value(name), acord.Value(name)))
	}
	return models.ReconciliationReport{
		RunID:   uuid.NewString(),
		Records: records,
		Summary: summary.Count(records),
	}
}

// Reconcile determines the status for one field given up to three source
// values.
//
// All three absent is NOT_FOUND. Any value present while another is absent
// is MISMATCH: partial presence is never a match, even when the present
// values agree. With all three present, values that normalize identically
// MATCH; otherwise the semantic comparer (when available) gets the original,
// non-normalized values and its judgment is final. Without a comparer the
// normalization failure is final.
func (e *Engine) Reconcile(ctx context.Context, fieldName string, policy, cert, acord *string) models.ReconciliationRecord {
	rec := models.ReconciliationRecord{
		FieldName:        fieldName,
		PolicyValue:      policy,
		CertificateValue: cert,
		AcordValue:       acord,
	}

	present := 0
	for _, v := range []*string{policy, cert, acord} {
		if !IsEmptyValue(v) {
			present++
		}
	}

	switch {
	case present == 0:
		rec.Status = models.StatusNotFound
		rec.Notes = "no source reported a value"
		return rec
	case present < 3:
		rec.Status = models.StatusMismatch
		rec.Notes = missingNotes(policy, cert, acord)
		return rec
	}

	np, nc, na := Normalize(*policy), Normalize(*cert), Normalize(*acord)
	if np == nc && nc == na {
		rec.Status = models.StatusMatch
		rec.Notes = "all sources agree"
		return rec
	}

	if e.comparer != nil {
		same, rationale, err := e.comparer.SameFact(ctx, fieldName, []string{*policy, *cert, *acord})
		if err != nil {
			slog.Warn("Semantic comparison failed; falling back to normalized comparison.",
				"field", fieldName, "error", err)
		} else if same {
			rec.Status = models.StatusMatch
			rec.Notes = fmt.Sprintf("values judged equivalent: %s", rationale)
			return rec
		}
	}

	rec.Status = models.StatusMismatch
	rec.Notes = disagreementNotes(np, nc, na)
	return rec
}

func missingNotes(policy, cert, acord *string) string {
	var missing []string
	if IsEmptyValue(policy) {
		missing = append(missing, "policy")
	}
	if IsEmptyValue(cert) {
		missing = append(missing, "certificate")
	}
	if IsEmptyValue(acord) {
		missing = append(missing, "ACORD form")
	}
	return fmt.Sprintf("value missing from %s", strings.Join(missing, ", "))
}

// disagreementNotes names the pair(s) whose normalized values differ, for
// the human QC reviewer.
func disagreementNotes(np, nc, na string) string {
	var pairs []string
	if np != nc {
		pairs = append(pairs, "policy vs certificate")
	}
	if np != na {
		pairs = append(pairs, "policy vs ACORD form")
	}
	if nc != na {
		pairs = append(pairs, "certificate vs ACORD form")
	}
	return fmt.Sprintf("sources disagree: %s", strings.Join(pairs, "; "))
}
