// Package validation runs the coverage validators concurrently against one
// certificate/policy pair, with per-validator fault isolation and
// hallucination guarding of collaborator output.
package validation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jrennert/insurancedocflow/internal/models"
	"github.com/jrennert/insurancedocflow/internal/schema"
	"github.com/jrennert/insurancedocflow/internal/summary"
)

// GroupValidator is the coverage-validation collaborator: given the items to
// check for one field group and the policy's extraction, it returns one
// ValidationRecord per item. Implementations must be safe for concurrent use.
type GroupValidator interface {
	Validate(ctx context.Context, group string, items []models.ValidationItem, policy *models.DocumentExtraction) ([]models.ValidationRecord, error)
}

// Orchestrator fans the schema's validator groups out concurrently. Each
// group runs in isolation: a failing or panicking validator yields a typed
// error result for that group only, and the combined report always completes.
type Orchestrator struct {
	schema    *schema.Schema
	validator GroupValidator
}

// NewOrchestrator creates an Orchestrator over the schema's validator
// groups.
func NewOrchestrator(s *schema.Schema, validator GroupValidator) *Orchestrator {
	return &Orchestrator{schema: s, validator: validator}
}

// Run validates a certificate against its policy and returns the combined
// report. There is no all-or-nothing failure mode: per-group failures are
// embedded in the report as error results alongside whatever succeeded.
func (o *Orchestrator) Run(ctx context.Context, cert, policy *models.DocumentExtraction) models.ValidationReport {
	groups := o.schema.GroupOrder
	results := make([]models.ValidatorResult, len(groups))

	// Plain errgroup, not WithContext: one group's failure must not cancel
	// its siblings. Each goroutine writes only its own result slot.
	var g errgroup.Group
	for i, group := range groups {
		g.Go(func() error {
			results[i] = o.runGroup(ctx, group, cert, policy)
			return nil
		})
	}
	_ = g.Wait()

	summaries := make([]models.Summary, 0, len(results))
	for _, res := range results {
		summaries = append(summaries, res.Summary)
	}
	return models.ValidationReport{
		RunID:   uuid.NewString(),
		Results: results,
		Summary: summary.Combine(summaries...),
	}
}

// runGroup executes one validator group end to end: build the requested
// items from the certificate, call the collaborator, guard its output, and
// recount the summary. Any failure, including a panic inside the
// collaborator, converts to a typed error result.
func (o *Orchestrator) runGroup(ctx context.Context, group string, cert, policy *models.DocumentExtraction) (res models.ValidatorResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Validator panicked; converting to error result.", "validator", group, "panic", r)
			res = errorResult(group, fmt.Errorf("validator panicked: %v", r))
		}
	}()

	items := buildItems(o.schema.GroupFields(group), cert)
	if len(items) == 0 {
		return models.ValidatorResult{Name: group, Records: nil}
	}

	records, err := o.validator.Validate(ctx, group, items, policy)
	if err != nil {
		slog.Warn("Validator failed; remaining validators unaffected.", "validator", group, "error", err)
		return errorResult(group, err)
	}

	records = GuardResults(items, records)
	return models.ValidatorResult{
		Name:    group,
		Records: records,
		Summary: summary.Count(records),
	}
}

// buildItems turns a group's schema fields into validation requests carrying
// the certificate's extracted values, in schema order.
func buildItems(fields []string, cert *models.DocumentExtraction) []models.ValidationItem {
	items := make([]models.ValidationItem, 0, len(fields))
	for _, name := range fields {
		items = append(items, models.ValidationItem{
			FieldName:        name,
			CertificateValue: cert.Value(name),
		})
	}
	return items
}

func errorResult(group string, err error) models.ValidatorResult {
	return models.ValidatorResult{
		Name:  group,
		Error: err.Error(),
	}
}
