package reconcile

import (
	"regexp"
	"strings"
	"time"
)

// Placeholder tokens that count as an absent value alongside nil and blank.
var placeholderTokens = map[string]bool{
	"N/A":  true,
	"NA":   true,
	"NONE": true,
	"NULL": true,
	"-":    true,
}

// IsEmptyValue reports whether a source value counts as absent: nil, blank,
// or a placeholder token.
func IsEmptyValue(v *string) bool {
	if v == nil {
		return true
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return true
	}
	return placeholderTokens[strings.ToUpper(trimmed)]
}

// Date layouts observed across carrier documents, tried in order.
var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006-01-02",
	"2 January 2006",
}

var amountRe = regexp.MustCompile(`^\$?\s*[\d,]+(\.\d+)?$`)

var punctuationRe = regexp.MustCompile(`[^A-Z0-9 ]+`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize runs the comparison cascade on one value: a recognizable date
// becomes canonical YYYYMMDD; a currency amount becomes a digits-only
// string; anything else is uppercased, whitespace-collapsed, and stripped of
// punctuation. Values normalize independently, so "September 16, 2025" and
// "09/16/2025" land on the same canonical form.
func Normalize(v string) string {
	trimmed := strings.TrimSpace(v)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("20060102")
		}
	}

	if amountRe.MatchString(trimmed) {
		return normalizeAmount(trimmed)
	}

	upper := strings.ToUpper(trimmed)
	upper = whitespaceRe.ReplaceAllString(upper, " ")
	upper = punctuationRe.ReplaceAllString(upper, "")
	return strings.TrimSpace(upper)
}

// normalizeAmount strips currency markup down to digits. A fractional part
// that is all zeros is dropped so "$100,000" and "$100,000.00" agree;
// non-zero cents keep their digits.
func normalizeAmount(v string) string {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(v)
	if dot := strings.IndexByte(cleaned, '.'); dot >= 0 {
		frac := cleaned[dot+1:]
		if strings.Trim(frac, "0") == "" {
			return cleaned[:dot]
		}
		return cleaned[:dot] + frac
	}
	return cleaned
}
