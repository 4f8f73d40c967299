package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"

	"github.com/jrennert/insurancedocflow/internal/gcp"
	"github.com/jrennert/insurancedocflow/internal/models"
	"github.com/jrennert/insurancedocflow/internal/reconcile"
	"github.com/jrennert/insurancedocflow/internal/schema"
)

// ReconcilerConfig holds configuration for the reconciler service.
type ReconcilerConfig struct {
	ProjectID      string
	VertexAIRegion string
	ReportsBucket  string
}

// ReconcilerFunction runs the three-way policy/certificate/ACORD
// reconciliation and persists the report.
type ReconcilerFunction struct {
	storageClient *storage.Client
	vertexClient  *gcp.VertexClient
	engine        *reconcile.Engine
	schema        *schema.Schema
	config        ReconcilerConfig
}

// NewReconciler creates a new ReconcilerFunction instance.
func NewReconciler(ctx context.Context) (*ReconcilerFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := ReconcilerConfig{
		ProjectID:      projectID,
		VertexAIRegion: gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		ReportsBucket:  gcp.GetEnv("REPORTS_BUCKET", ""),
	}
	if config.ReportsBucket == "" {
		return nil, fmt.Errorf("REPORTS_BUCKET must be set")
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	return &ReconcilerFunction{
		storageClient: storageClient,
		vertexClient:  vertexClient,
		engine:        reconcile.NewEngine(gcp.NewGeminiComparer(vertexClient)),
		schema:        schema.Default(),
		config:        config,
	}, nil
}

// Process reconciles up to three extractions field by field. A missing
// document reads as every field absent for that source; only the complete
// absence of all three aborts the run.
func (f *ReconcilerFunction) Process(ctx context.Context, req *models.ReconcilerRequest) (*models.ReconcilerResponse, error) {
	logCtx := slog.With("executionId", req.ExecutionID)
	logCtx.Info("Starting three-way reconciliation.")

	policy := f.loadOptionalExtraction(ctx, logCtx, req.PolicyGCSUri, "policy")
	cert := f.loadOptionalExtraction(ctx, logCtx, req.CertificateGCSUri, "certificate")
	acord := f.loadOptionalExtraction(ctx, logCtx, req.AcordGCSUri, "acord")

	if policy == nil && cert == nil && acord == nil {
		err := fmt.Errorf("no extractions available for reconciliation")
		logCtx.Error("All source documents missing; aborting.", "error", err)
		return nil, err
	}

	report := f.engine.ReconcileAll(ctx, f.schema, policy, cert, acord)

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reconciliation report: %w", err)
	}
	objectName := fmt.Sprintf("reconciliation/%s.json", report.RunID)
	bucketHandle := f.storageClient.Bucket(f.config.ReportsBucket)
	if err := gcp.SaveToGCSAtomically(ctx, bucketHandle, objectName, string(payload)); err != nil {
		logCtx.Error("Failed to save reconciliation report", "error", err, "object", objectName)
		return nil, err
	}

	reportGCSUri := fmt.Sprintf("gs://%s/%s", f.config.ReportsBucket, objectName)
	logCtx.Info("Reconciliation complete.", "reportGcsUri", reportGCSUri,
		"total", report.Summary.Total, "matched", report.Summary.Matched,
		"mismatched", report.Summary.Mismatched, "notFound", report.Summary.NotFound)
	return &models.ReconcilerResponse{
		Status:       "success",
		ReportGCSUri: reportGCSUri,
		Summary:      report.Summary,
	}, nil
}

// loadOptionalExtraction loads one source's extraction artifact. An empty
// URI or missing object degrades to nil with a warning; the reconciliation
// treats that source's fields as absent.
func (f *ReconcilerFunction) loadOptionalExtraction(ctx context.Context, logCtx *slog.Logger, uri, role string) *models.DocumentExtraction {
	if uri == "" {
		logCtx.Warn("No extraction supplied for source.", "role", role)
		return nil
	}
	doc, err := loadExtraction(ctx, f.storageClient, uri)
	if err != nil {
		logCtx.Warn("Failed to load extraction for source; treating as absent.", "role", role, "uri", uri, "error", err)
		return nil
	}
	return doc
}
