package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrennert/insurancedocflow/internal/models"
	"github.com/jrennert/insurancedocflow/internal/schema"
)

// mockComparer implements SemanticComparer with a configurable function.
type mockComparer struct {
	sameFact func(ctx context.Context, fieldName string, values []string) (bool, string, error)
}

func (m *mockComparer) SameFact(ctx context.Context, fieldName string, values []string) (bool, string, error) {
	return m.sameFact(ctx, fieldName, values)
}

func TestReconcile_StrictThreeWayPresence(t *testing.T) {
	// Two agreeing sources plus a genuinely absent third is a MISMATCH, not
	// a MATCH: partial presence never matches.
	engine := NewEngine(nil)
	rec := engine.Reconcile(context.Background(), "BuildingLimit",
		strPtr("$1,000,000"), strPtr("$1,000,000"), nil)

	assert.Equal(t, models.StatusMismatch, rec.Status)
	assert.Contains(t, rec.Notes, "ACORD form")
}

func TestReconcile_DateNormalizationMatch(t *testing.T) {
	engine := NewEngine(nil)
	rec := engine.Reconcile(context.Background(), "EffectiveDate",
		strPtr("September 16, 2025"), strPtr("09/16/2025"), strPtr("09/16/2025"))

	assert.Equal(t, models.StatusMatch, rec.Status)
}

func TestReconcile_CurrencyNormalizationMatch(t *testing.T) {
	engine := NewEngine(nil)
	rec := engine.Reconcile(context.Background(), "BuildingLimit",
		strPtr("$100,000"), strPtr("100,000"), strPtr("$100,000.00"))

	assert.Equal(t, models.StatusMatch, rec.Status)
}

func TestReconcile_FullAbsenceIsNotFound(t *testing.T) {
	engine := NewEngine(nil)

	rec := engine.Reconcile(context.Background(), "FloodCoverage", nil, strPtr("N/A"), strPtr("NONE"))
	assert.Equal(t, models.StatusNotFound, rec.Status)

	rec = engine.Reconcile(context.Background(), "FloodCoverage", nil, nil, nil)
	assert.Equal(t, models.StatusNotFound, rec.Status)
}

func TestReconcile_SemanticFallbackAffirms(t *testing.T) {
	comparer := &mockComparer{
		sameFact: func(ctx context.Context, fieldName string, values []string) (bool, string, error) {
			require.Len(t, values, 3)
			// Originals, not normalized forms, go to the comparer.
			assert.Contains(t, values, "Limit $100,000 any one premises")
			return true, "both state a $100,000 per-premises limit", nil
		},
	}

	engine := NewEngine(comparer)
	rec := engine.Reconcile(context.Background(), "BuildingLimit",
		strPtr("Limit $100,000 any one premises"), strPtr("$100,000"), strPtr("$100,000"))

	assert.Equal(t, models.StatusMatch, rec.Status)
	assert.Contains(t, rec.Notes, "per-premises limit")
}

func TestReconcile_SemanticFallbackDenies(t *testing.T) {
	comparer := &mockComparer{
		sameFact: func(ctx context.Context, fieldName string, values []string) (bool, string, error) {
			return false, "different limits", nil
		},
	}

	engine := NewEngine(comparer)
	rec := engine.Reconcile(context.Background(), "BuildingLimit",
		strPtr("$100,000"), strPtr("$200,000"), strPtr("$100,000"))

	assert.Equal(t, models.StatusMismatch, rec.Status)
	assert.Contains(t, rec.Notes, "policy vs certificate")
	assert.Contains(t, rec.Notes, "certificate vs ACORD form")
}

func TestReconcile_NoComparerMakesNormalizationFinal(t *testing.T) {
	engine := NewEngine(nil)
	rec := engine.Reconcile(context.Background(), "CausesOfLoss",
		strPtr("Special"), strPtr("Special Form"), strPtr("Special"))

	assert.Equal(t, models.StatusMismatch, rec.Status)
}

func TestReconcile_ComparerErrorFallsBackToMismatch(t *testing.T) {
	comparer := &mockComparer{
		sameFact: func(ctx context.Context, fieldName string, values []string) (bool, string, error) {
			return false, "", errors.New("model unavailable")
		},
	}

	engine := NewEngine(comparer)
	rec := engine.Reconcile(context.Background(), "Deductible",
		strPtr("$5,000"), strPtr("$10,000"), strPtr("$5,000"))

	assert.Equal(t, models.StatusMismatch, rec.Status)
}

func TestReconcileAll_FollowsSchemaOrder(t *testing.T) {
	s := schema.Default()
	engine := NewEngine(nil)

	policy := &models.DocumentExtraction{Fields: map[string]models.FieldRecord{
		"PolicyNumber": {Name: "PolicyNumber", Value: strPtr("CPP-10001")},
	}}

	report := engine.ReconcileAll(context.Background(), s, policy, nil, nil)
	require.Len(t, report.Records, len(s.Fields))
	assert.NotEmpty(t, report.RunID)

	for i, rec := range report.Records {
		assert.Equal(t, s.Fields[i], rec.FieldName)
	}

	// One field has a single present source; everything else is absent.
	assert.Equal(t, 1, report.Summary.Mismatched)
	assert.Equal(t, len(s.Fields)-1, report.Summary.NotFound)
	assert.Equal(t, len(s.Fields), report.Summary.Total)
}

func TestReconcileAll_NilExtractionsReadAsAbsent(t *testing.T) {
	report := NewEngine(nil).ReconcileAll(context.Background(), schema.Default(), nil, nil, nil)
	assert.Equal(t, report.Summary.Total, report.Summary.NotFound)
}
