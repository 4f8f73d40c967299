package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"

	"github.com/jrennert/insurancedocflow/internal/gcp"
	"github.com/jrennert/insurancedocflow/internal/models"
	"github.com/jrennert/insurancedocflow/internal/schema"
	"github.com/jrennert/insurancedocflow/internal/validation"
)

// ValidatorConfig holds configuration for the certificate-validator service.
type ValidatorConfig struct {
	ProjectID      string
	VertexAIRegion string
	ReportsBucket  string
}

// ValidatorFunction runs the coverage validators over a certificate/policy
// extraction pair and persists the combined report.
type ValidatorFunction struct {
	storageClient *storage.Client
	vertexClient  *gcp.VertexClient
	orchestrator  *validation.Orchestrator
	config        ValidatorConfig
}

// NewValidator creates a new ValidatorFunction instance.
func NewValidator(ctx context.Context) (*ValidatorFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := ValidatorConfig{
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

	orchestrator := validation.NewOrchestrator(schema.Default(), gcp.NewGeminiValidator(vertexClient))

	return &ValidatorFunction{
		storageClient: storageClient,
		vertexClient:  vertexClient,
		orchestrator:  orchestrator,
		config:        config,
	}, nil
}

// Process validates one certificate against its policy.
func (f *ValidatorFunction) Process(ctx context.Context, req *models.CertificateValidatorRequest) (*models.CertificateValidatorResponse, error) {
	logCtx := slog.With("executionId", req.ExecutionID,
		"certificateUri", req.CertificateGCSUri, "policyUri", req.PolicyGCSUri)
	logCtx.Info("Starting certificate validation.")

	cert, err := loadExtraction(ctx, f.storageClient, req.CertificateGCSUri)
	if err != nil {
		logCtx.Error("Failed to load certificate extraction", "error", err)
		return nil, fmt.Errorf("failed to load certificate extraction: %w", err)
	}
	policy, err := loadExtraction(ctx, f.storageClient, req.PolicyGCSUri)
	if err != nil {
		logCtx.Error("Failed to load policy extraction", "error", err)
		return nil, fmt.Errorf("failed to load policy extraction: %w", err)
	}

	report := f.orchestrator.Run(ctx, cert, policy)
	for _, res := range report.Results {
		if res.Error != "" {
			logCtx.Warn("Validator completed with error.", "validator", res.Name, "validatorError", res.Error)
		}
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal validation report: %w", err)
	}
	objectName := fmt.Sprintf("validation/%s.json", report.RunID)
	bucketHandle := f.storageClient.Bucket(f.config.ReportsBucket)
	if err := gcp.SaveToGCSAtomically(ctx, bucketHandle, objectName, string(payload)); err != nil {
		logCtx.Error("Failed to save validation report", "error", err, "object", objectName)
		return nil, err
	}

	reportGCSUri := fmt.Sprintf("gs://%s/%s", f.config.ReportsBucket, objectName)
	logCtx.Info("Certificate validation complete.", "reportGcsUri", reportGCSUri,
		"total", report.Summary.Total, "mismatched", report.Summary.Mismatched)
	return &models.CertificateValidatorResponse{
		Status:       "success",
		ReportGCSUri: reportGCSUri,
		Summary:      report.Summary,
	}, nil
}

// loadExtraction fetches and parses a persisted DocumentExtraction artifact.
func loadExtraction(ctx context.Context, client *storage.Client, uri string) (*models.DocumentExtraction, error) {
	bucket, object, err := gcp.ParseGCSUri(uri)
	if err != nil {
		return nil, err
	}
	raw, err := gcp.ReadObject(ctx, client, bucket, object)
	if err != nil {
		return nil, err
	}
	var doc models.DocumentExtraction
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse extraction artifact %s: %w", uri, err)
	}
	return &doc, nil
}
