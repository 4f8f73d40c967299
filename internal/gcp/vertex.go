package gcp

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/vertexai/genai"
)

// --- Field Extractor Model Prompts ---
const ExtractorSystemPrompt = "You are an insurance document analyst. Your task is to extract structured coverage fields from OCR text of scanned insurance documents. Accuracy and faithfulness to the source text are of utmost importance. You must output your response as a valid JSON object."
const ExtractorUserPromptTemplate = `You will be provided with the OCR text of pages %s of an insurance document (chunk %d of %d). The same pages appear once per OCR source; the sources may disagree on unclear characters.

Extract every field you can find from this text. Respond with a single JSON object mapping field names to objects of the form:
  {"value": "<verbatim value or null>", "evidencePage": <page number or null>, "confidence": "HIGH" | "MEDIUM" | "LOW"}

Rules:
1. Use null for any field not present in this chunk. Never guess.
2. "value" must be quoted verbatim from the document, without rephrasing.
3. "evidencePage" is the page number the value was read from.
4. Output ONLY the JSON object, with no surrounding text.

Field names to look for: %s

Document text:
%s`

// --- Coverage Validator Model Prompts ---
const ValidatorSystemPrompt = "You are an insurance coverage QC reviewer. Your task is to verify certificate field values against the underlying policy. You must output your response as a valid JSON array."
const ValidatorUserPromptTemplate = `You are checking the %q coverage group. For each requested item below, compare the certificate value against the policy's extracted fields and decide MATCH, MISMATCH, or NOT_FOUND.

Requested items (JSON):
%s

Policy extracted fields (JSON):
%s

Respond with a JSON array with EXACTLY one object per requested item, each of the form:
  {"fieldName": "...", "certificateValue": "...", "status": "MATCH" | "MISMATCH" | "NOT_FOUND", "policyValue": "... or null", "evidence": ["verbatim excerpt", ...], "notes": "..."}

Rules:
1. Only report the requested items. Do not introduce new fields.
2. "evidence" quotes the policy text that justifies the status.
3. Treat a Causes of Loss tier of Special as including Basic and Broad perils.
4. Output ONLY the JSON array, with no surrounding text.`

// --- Semantic Comparer Model Prompts ---
const ComparerSystemPrompt = "You are an insurance terminology expert. Your task is to judge whether differently-worded field values denote the same real-world fact. You must output your response as a valid JSON object."
const ComparerUserPromptTemplate = `Field: %q

Candidate values:
%s

Do all of these values denote the same real-world fact? Wording, formatting, and abbreviation differences do not matter; the underlying fact does. For example, "Limit $100,000 any one premises" and "$100,000" denote the same limit.

Respond with ONLY a JSON object of the form:
  {"equivalent": true | false, "rationale": "<one short sentence>"}`

// VertexClient holds all pre-configured generative models for the QC
// pipeline. Reconnect builds a fresh underlying connection, which the retry
// layer uses between attempts; model handles are therefore fetched through
// accessors under the lock rather than stored by callers.
type VertexClient struct {
	mu             sync.Mutex
	baseClient     *genai.Client
	extractorModel *genai.GenerativeModel
	validatorModel *genai.GenerativeModel
	comparerModel  *genai.GenerativeModel
	projectID      string
	region         string
}

// ExtractorModel returns the current field-extraction model handle.
func (c *VertexClient) ExtractorModel() *genai.GenerativeModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extractorModel
}

// ValidatorModel returns the current coverage-validation model handle.
func (c *VertexClient) ValidatorModel() *genai.GenerativeModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validatorModel
}

// ComparerModel returns the current semantic-equivalence model handle.
func (c *VertexClient) ComparerModel() *genai.GenerativeModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.comparerModel
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	c := &VertexClient{projectID: projectID, region: region}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// connect (re)creates the base client and the configured models.
func (c *VertexClient) connect(ctx context.Context) error {
	baseClient, err := genai.NewClient(ctx, c.projectID, c.region)
	if err != nil {
		return fmt.Errorf("genai.NewClient: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.baseClient != nil {
		_ = c.baseClient.Close()
	}
	c.baseClient = baseClient

	c.extractorModel = jsonModel(baseClient, ExtractorSystemPrompt)
	c.validatorModel = jsonModel(baseClient, ValidatorSystemPrompt)
	c.comparerModel = jsonModel(baseClient, ComparerSystemPrompt)
	return nil
}

// Reconnect tears down the current connection and dials a fresh one. Retries
// after transient failures go through here to avoid stale connections.
func (c *VertexClient) Reconnect(ctx context.Context) error {
	return c.connect(ctx)
}

// jsonModel configures a gemini model for deterministic JSON output.
func jsonModel(client *genai.Client, systemPrompt string) *genai.GenerativeModel {
	model := client.GenerativeModel("gemini-1.5-pro")
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		// Force JSON output. This is a critical setting for these models.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0), // Low temp for deterministic, structured output
	}
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}
	return model
}

func (c *VertexClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
