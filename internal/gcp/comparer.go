package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// GeminiComparer is the semantic-equivalence collaborator backed by the
// Vertex AI comparer model. It satisfies reconcile.SemanticComparer.
type GeminiComparer struct {
	client *VertexClient
	retry  RetrySettings
}

// NewGeminiComparer creates a comparer collaborator over the shared Vertex
// client.
func NewGeminiComparer(client *VertexClient) *GeminiComparer {
	return &GeminiComparer{client: client, retry: DefaultRetrySettings()}
}

type equivalenceVerdict struct {
	Equivalent bool   `json:"equivalent"`
	Rationale  string `json:"rationale"`
}

// SameFact asks the comparer model whether the candidate values denote the
// same real-world fact. The originals are sent untouched; normalization is
// the caller's concern and has already failed by the time this runs.
func (c *GeminiComparer) SameFact(ctx context.Context, fieldName string, values []string) (bool, string, error) {
	var candidates strings.Builder
	for i, v := range values {
		fmt.Fprintf(&candidates, "%d. %q\n", i+1, v)
	}
	prompt := fmt.Sprintf(ComparerUserPromptTemplate, fieldName, candidates.String())

	var resp *genai.GenerateContentResponse
	op := fmt.Sprintf("semantic comparison (%s)", fieldName)
	err := Call(ctx, op, c.retry, c.client.Reconnect, func(ctx context.Context) error {
		r, err := c.client.ComparerModel().GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return false, "", err
	}

	content := TextContent(resp)
	if content == "" || IsRefusal(content) {
		return false, "", fmt.Errorf("comparer model returned no usable verdict for field %s", fieldName)
	}

	var verdict equivalenceVerdict
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return false, "", fmt.Errorf("failed to parse comparer JSON for field %s: %w", fieldName, err)
	}
	return verdict.Equivalent, verdict.Rationale, nil
}
