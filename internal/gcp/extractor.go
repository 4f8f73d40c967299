package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/jrennert/insurancedocflow/internal/models"
)

// GeminiExtractor is the field-extraction collaborator backed by the Vertex
// AI extractor model. It satisfies extraction.ChunkExtractor.
type GeminiExtractor struct {
	client *VertexClient
	fields []string
	retry  RetrySettings
}

// NewGeminiExtractor creates an extractor that asks the model for the given
// canonical field names.
func NewGeminiExtractor(client *VertexClient, fieldNames []string) *GeminiExtractor {
	return &GeminiExtractor{
		client: client,
		fields: fieldNames,
		retry:  DefaultRetrySettings(),
	}
}

// ExtractFields sends one chunk's combined text to the extractor model and
// parses the returned field map. Unparseable or refused output is an error;
// the dispatcher turns it into a failed chunk.
func (e *GeminiExtractor) ExtractFields(ctx context.Context, chunk models.Chunk, totalChunks int) (map[string]models.ExtractedField, error) {
	prompt := fmt.Sprintf(ExtractorUserPromptTemplate,
		pageRange(chunk.PageNumbers), chunk.Index+1, totalChunks,
		strings.Join(e.fields, ", "), chunk.Text)

	var resp *genai.GenerateContentResponse
	op := fmt.Sprintf("field extraction (chunk %d/%d)", chunk.Index+1, totalChunks)
	err := Call(ctx, op, e.retry, e.client.Reconnect, func(ctx context.Context) error {
		r, err := e.client.ExtractorModel().GenerateContent(ctx, genai.Text(prompt))
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
		return nil, fmt.Errorf("extractor model returned an empty response for chunk %d", chunk.Index)
	}
	if IsRefusal(content) {
		return nil, fmt.Errorf("extractor model refused chunk %d: %q", chunk.Index, content)
	}

	var fields map[string]models.ExtractedField
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse extractor JSON for chunk %d: %w", chunk.Index, err)
	}
	return fields, nil
}

// pageRange formats a chunk's covered pages for the prompt, e.g. "3-6".
func pageRange(numbers []int) string {
	switch len(numbers) {
	case 0:
		return "?"
	case 1:
		return fmt.Sprintf("%d", numbers[0])
	default:
		return fmt.Sprintf("%d-%d", numbers[0], numbers[len(numbers)-1])
	}
}
