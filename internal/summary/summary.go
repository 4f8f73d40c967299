// Package summary recomputes status counts from record arrays. It is the
// single source of truth for every reported total in the pipeline; nothing
// downstream may read a collaborator-reported count instead.
package summary

import "github.com/jrennert/insurancedocflow/internal/models"

// StatusBearer is any record type carrying a match status.
type StatusBearer interface {
	MatchStatus() models.MatchStatus
}

// Count derives per-status totals by scanning records directly.
func Count[T StatusBearer](records []T) models.Summary {
	var s models.Summary
	for _, rec := range records {
		s.Total++
		switch rec.MatchStatus() {
		case models.StatusMatch:
			s.Matched++
		case models.StatusMismatch:
			s.Mismatched++
		case models.StatusNotFound:
			s.NotFound++
		}
	}
	return s
}

// Combine adds summaries together, for report-level totals across
// validators.
func Combine(summaries ...models.Summary) models.Summary {
	var out models.Summary
	for _, s := range summaries {
		out.Total += s.Total
		out.Matched += s.Matched
		out.Mismatched += s.Mismatched
		out.NotFound += s.NotFound
	}
	return out
}
