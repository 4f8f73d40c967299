package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/vertexai/genai"

	"github.com/jrennert/insurancedocflow/internal/models"
)

// GeminiValidator is the coverage-validation collaborator backed by the
// Vertex AI validator model. It satisfies validation.GroupValidator.
type GeminiValidator struct {
	client *VertexClient
	retry  RetrySettings
}

// NewGeminiValidator creates a validator collaborator over the shared
// Vertex client.
func NewGeminiValidator(client *VertexClient) *GeminiValidator {
	return &GeminiValidator{client: client, retry: DefaultRetrySettings()}
}

// Validate asks the validator model to check one field group's certificate
// values against the policy extraction. The raw records are returned as
// parsed; the orchestrator's guardrail handles hallucinated entries.
func (v *GeminiValidator) Validate(ctx context.Context, group string, items []models.ValidationItem, policy *models.DocumentExtraction) ([]models.ValidationRecord, error) {
	itemsJSON, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal validation items: %w", err)
	}
	policyJSON, err := json.MarshalIndent(policyFieldValues(policy), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy fields: %w", err)
	}

	prompt := fmt.Sprintf(ValidatorUserPromptTemplate, group, itemsJSON, policyJSON)

	var resp *genai.GenerateContentResponse
	op := fmt.Sprintf("coverage validation (%s)", group)
	err = Call(ctx, op, v.retry, v.client.Reconnect, func(ctx context.Context) error {
		r, err := v.client.ValidatorModel().GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	content := TextContent(resp)
	if content == "" {
		return nil, fmt.Errorf("validator model returned an empty response for group %s", group)
	}
	if IsRefusal(content) {
		return nil, fmt.Errorf("validator model refused group %s: %q", group, content)
	}

	var records []models.ValidationRecord
	if err := json.Unmarshal([]byte(content), &records); err != nil {
		return nil, fmt.Errorf("failed to parse validator JSON for group %s: %w", group, err)
	}
	return records, nil
}

// policyFieldValues flattens a policy extraction to field name -> value for
// the prompt.
func policyFieldValues(policy *models.DocumentExtraction) map[string]*string {
	values := make(map[string]*string)
	if policy == nil {
		return values
	}
	for name, rec := range policy.Fields {
		values[name] = rec.Value
	}
	return values
}
