package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrennert/insurancedocflow/internal/models"
)

func strPtr(s string) *string { return &s }

func items(names ...string) []models.ValidationItem {
	out := make([]models.ValidationItem, 0, len(names))
	for _, name := range names {
		out = append(out, models.ValidationItem{FieldName: name, CertificateValue: strPtr("x")})
	}
	return out
}

func records(names ...string) []models.ValidationRecord {
	out := make([]models.ValidationRecord, 0, len(names))
	for _, name := range names {
		out = append(out, models.ValidationRecord{FieldName: name, Status: models.StatusMatch})
	}
	return out
}

func TestGuardResults_IdentityWhenNamesMatchExactly(t *testing.T) {
	requested := items("BuildingLimit", "ContentsLimit")
	returned := records("BuildingLimit", "ContentsLimit")

	got := GuardResults(requested, returned)
	assert.Equal(t, returned, got)
}

func TestGuardResults_NeverExceedsRequestedCount(t *testing.T) {
	requested := items("BuildingLimit")
	returned := records("BuildingLimit", "Building Limit ($)", "BUILDING_LIMIT", "SomethingElse")

	got := GuardResults(requested, returned)
	assert.LessOrEqual(t, len(got), len(requested))
}

func TestGuardResults_FuzzyLabelVariantsKept(t *testing.T) {
	requested := items("BuildingLimit", "WaiverOfSubrogation")
	returned := records("Building Limit ($)", "waiver_of_subrogation")

	got := GuardResults(requested, returned)
	require.Len(t, got, 2)
	assert.Equal(t, "Building Limit ($)", got[0].FieldName)
	assert.Equal(t, "waiver_of_subrogation", got[1].FieldName)
}

func TestGuardResults_HallucinatedFieldsDropped(t *testing.T) {
	requested := items("CrimeLimit", "EmployeeDishonestyLimit")
	returned := records("CrimeLimit", "CyberLiabilityLimit", "EmployeeDishonestyLimit")

	got := GuardResults(requested, returned)
	require.Len(t, got, 2)
	assert.Equal(t, "CrimeLimit", got[0].FieldName)
	assert.Equal(t, "EmployeeDishonestyLimit", got[1].FieldName)
}

func TestGuardResults_PositionalFallbackOnLabelDrift(t *testing.T) {
	requested := items("MortgageeName", "LossPayee")
	returned := records("Item 1", "Item 2", "Item 3")

	// No normalized overlap at all: keep the first N positionally rather
	// than discarding everything.
	got := GuardResults(requested, returned)
	require.Len(t, got, 2)
	assert.Equal(t, "Item 1", got[0].FieldName)
	assert.Equal(t, "Item 2", got[1].FieldName)
}

func TestGuardResults_EmptyReturn(t *testing.T) {
	assert.Empty(t, GuardResults(items("CrimeLimit"), nil))
}

func TestNormalizeFieldName(t *testing.T) {
	assert.Equal(t, "buildinglimit", normalizeFieldName("Building Limit ($)"))
	assert.Equal(t, "buildinglimit", normalizeFieldName("building_limit"))
	assert.Equal(t, "", normalizeFieldName("***"))
}
