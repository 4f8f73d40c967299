package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"

	"github.com/jrennert/insurancedocflow/internal/chunker"
	"github.com/jrennert/insurancedocflow/internal/extraction"
	"github.com/jrennert/insurancedocflow/internal/gcp"
	"github.com/jrennert/insurancedocflow/internal/models"
	"github.com/jrennert/insurancedocflow/internal/pages"
	"github.com/jrennert/insurancedocflow/internal/schema"
)

// ocrSources is the fixed order in which OCR sources appear in aligned pages
// and chunk text.
var ocrSources = []models.SourceTag{
	models.SourceDocAI,
	models.SourceTesseract,
	models.SourceVision,
}

// ExtractorConfig holds configuration for the field-extractor service.
type ExtractorConfig struct {
	ProjectID         string
	VertexAIRegion    string
	OCRTextBucket     string
	ExtractionsBucket string
	CollectionName    string
	PagesPerChunk     int
	Workers           int
}

// ExtractorFunction turns a document's per-source OCR text into one merged
// DocumentExtraction artifact: align pages, chunk, fan out to the extraction
// model, merge with first-writer-wins conflict handling, persist.
type ExtractorFunction struct {
	storageClient   *storage.Client
	firestoreClient *firestore.Client
	vertexClient    *gcp.VertexClient
	schema          *schema.Schema
	dispatcher      *extraction.Dispatcher
	config          ExtractorConfig
}

// NewExtractor creates a new ExtractorFunction instance.
func NewExtractor(ctx context.Context) (*ExtractorFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := ExtractorConfig{
		ProjectID:         projectID,
		VertexAIRegion:    gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		OCRTextBucket:     gcp.GetEnv("OCR_TEXT_BUCKET", ""),
		ExtractionsBucket: gcp.GetEnv("EXTRACTIONS_BUCKET", ""),
		CollectionName:    gcp.GetEnv("FIRESTORE_COLLECTION", "documents"),
		PagesPerChunk:     envInt("PAGES_PER_CHUNK", chunker.DefaultPageWindow),
		Workers:           envInt("EXTRACTION_WORKERS", 0),
	}
	if config.OCRTextBucket == "" || config.ExtractionsBucket == "" {
		return nil, fmt.Errorf("OCR_TEXT_BUCKET and EXTRACTIONS_BUCKET must be set")
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	fieldSchema := schema.Default()
	extractor := gcp.NewGeminiExtractor(vertexClient, fieldSchema.Fields)

	return &ExtractorFunction{
		storageClient:   storageClient,
		firestoreClient: firestoreClient,
		vertexClient:    vertexClient,
		schema:          fieldSchema,
		dispatcher:      extraction.NewDispatcher(extractor, config.Workers),
		config:          config,
	}, nil
}

// envInt reads an integer environment variable, falling back on the default
// when the variable is unset or malformed.
func envInt(key string, fallback int) int {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Ignoring malformed integer environment variable.", "key", key, "value", raw)
		return fallback
	}
	return n
}

// Process handles the core logic of extracting one document's fields.
func (f *ExtractorFunction) Process(ctx context.Context, req *models.FieldExtractorRequest) (*models.FieldExtractorResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID, "docType", string(req.DocType), "executionId", req.ExecutionID)
	logCtx.Info("Starting field extraction.")

	// --- 1. Load and parse each OCR source's combined text ---
	streams, err := f.loadSourceStreams(ctx, logCtx, req.DocumentID)
	if err != nil {
		return nil, err
	}
	if len(streams) == 0 {
		err := fmt.Errorf("no OCR text found for document %s in any source", req.DocumentID)
		logCtx.Error("All OCR sources missing; aborting extraction.", "error", err)
		return nil, err
	}

	// --- 2. Align, chunk, and fan out to the extraction model ---
	aligned := pages.Align(streams)
	chunks := chunker.Split(aligned, f.config.PagesPerChunk)
	logCtx.Info("Document aligned and chunked.", "pageCount", len(aligned), "chunkCount", len(chunks))

	results := f.dispatcher.Run(ctx, chunks)

	// --- 3. Merge partial maps into one extraction ---
	doc := extraction.Merge(f.schema, results)
	if doc.ChunksFailed > 0 {
		logCtx.Warn("Some chunks failed extraction; proceeding with partial merge.",
			"chunksFailed", doc.ChunksFailed, "chunksTotal", doc.ChunksTotal)
	}

	// --- 4. Persist the extraction artifact ---
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extraction for document %s: %w", req.DocumentID, err)
	}
	objectName := fmt.Sprintf("%s/extraction.json", req.DocumentID)
	bucketHandle := f.storageClient.Bucket(f.config.ExtractionsBucket)
	if err := gcp.SaveToGCSAtomically(ctx, bucketHandle, objectName, string(payload)); err != nil {
		logCtx.Error("Failed to save extraction artifact", "error", err, "object", objectName)
		return nil, err
	}

	// --- 5. Record progress on the job ---
	f.recordExtraction(ctx, logCtx, req.DocumentID, doc.ChunksFailed)

	outputGCSUri := fmt.Sprintf("gs://%s/%s", f.config.ExtractionsBucket, objectName)
	logCtx.Info("Field extraction complete.", "extractionGcsUri", outputGCSUri,
		"chunksTotal", doc.ChunksTotal, "chunksFailed", doc.ChunksFailed, "conflicts", len(doc.Conflicts))
	return &models.FieldExtractorResponse{
		Status:           "success",
		ExtractionGCSUri: outputGCSUri,
		ChunksTotal:      doc.ChunksTotal,
		ChunksFailed:     doc.ChunksFailed,
	}, nil
}

// loadSourceStreams reads every OCR source's combined text object for the
// document. A missing source is a warning, not an error: per-source OCR
// failures must not sink the document.
func (f *ExtractorFunction) loadSourceStreams(ctx context.Context, logCtx *slog.Logger, documentID string) ([]pages.SourceStream, error) {
	var streams []pages.SourceStream
	for _, source := range ocrSources {
		objectName := fmt.Sprintf("%s/%s/combined.txt", documentID, source)
		raw, err := gcp.ReadObject(ctx, f.storageClient, f.config.OCRTextBucket, objectName)
		if err != nil {
			if gcp.IsNotExist(err) {
				logCtx.Warn("OCR source has no combined text for this document. Skipping source.",
					"source", string(source))
				continue
			}
			logCtx.Error("Failed to read OCR text object", "source", string(source), "error", err)
			return nil, err
		}
		parsed := pages.ParseStream(source, raw)
		if len(parsed) == 0 {
			logCtx.Warn("OCR source text contained no page markers. Skipping source.",
				"source", string(source))
			continue
		}
		streams = append(streams, pages.SourceStream{Source: source, Pages: parsed})
	}
	return streams, nil
}

// recordExtraction updates the Firestore job record; failures here are
// logged but do not fail the extraction, the artifact is already durable.
func (f *ExtractorFunction) recordExtraction(ctx context.Context, logCtx *slog.Logger, documentID string, chunksFailed int) {
	docRef := f.firestoreClient.Collection(f.config.CollectionName).Doc(documentID)
	updates := []firestore.Update{
		{Path: "status", Value: "EXTRACTED"},
		{Path: "chunksFailed", Value: chunksFailed},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		logCtx.Warn("Failed to update job record after extraction.", "error", err)
	}
}
