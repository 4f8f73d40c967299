package validation

import (
	"regexp"
	"strings"

	"github.com/jrennert/insurancedocflow/internal/models"
)

var nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeFieldName reduces a field label to lowercase alphanumerics so that
// "Building Limit", "building_limit" and "BuildingLimit" all compare equal.
func normalizeFieldName(name string) string {
	return nonAlphanumericRe.ReplaceAllString(strings.ToLower(name), "")
}

// GuardResults constrains a validator's returned records back down to the
// set actually requested, suppressing extraneous or hallucinated entries.
//
// A returned record is kept when its normalized field name contains, or is
// contained in, some requested normalized name; the output is then truncated
// to at most len(requested) records. When normalization finds no matches at
// all (labeling drift), the first len(requested) returned records are kept
// positionally instead of discarding everything.
//
// Known limitation, accepted: two distinct but similarly-named fields (say
// "Deductible" and "WindHailDeductible") can cross-match under bidirectional
// containment. The truncation bound still holds.
func GuardResults(requested []models.ValidationItem, returned []models.ValidationRecord) []models.ValidationRecord {
	if len(returned) == 0 {
		return nil
	}

	wanted := make([]string, 0, len(requested))
	for _, item := range requested {
		if n := normalizeFieldName(item.FieldName); n != "" {
			wanted = append(wanted, n)
		}
	}

	var kept []models.ValidationRecord
	for _, rec := range returned {
		n := normalizeFieldName(rec.FieldName)
		for _, w := range wanted {
			if n != "" && (strings.Contains(n, w) || strings.Contains(w, n)) {
				kept = append(kept, rec)
				break
			}
		}
	}

	// Labeling drifted past recognition; fall back to positional truncation
	// rather than returning nothing.
	if len(kept) == 0 {
		kept = returned
	}

	if len(kept) > len(requested) {
		kept = kept[:len(requested)]
	}
	return kept
}
