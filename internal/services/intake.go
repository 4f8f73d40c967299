package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"

	"github.com/jrennert/insurancedocflow/internal/gcp"
	"github.com/jrennert/insurancedocflow/internal/models"
)

// IntakeConfig holds configuration for the document-intake service.
type IntakeConfig struct {
	ProjectID        string
	PagesBucket      string
	CollectionName   string
	WorkflowID       string
	WorkflowLocation string
}

// IntakeFunction handles newly uploaded scanned documents: it validates and
// splits the PDF into per-page files for the OCR collaborators, records the
// job in Firestore, and hands off to the QC workflow.
type IntakeFunction struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	executionsClient *executions.Client
	config           IntakeConfig
}

// GCSEvent is the payload of a GCS object-finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// NewIntake creates a new IntakeFunction instance.
func NewIntake(ctx context.Context) (*IntakeFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := IntakeConfig{
		ProjectID:        projectID,
		PagesBucket:      gcp.GetEnv("SPLIT_PAGES_BUCKET", ""),
		CollectionName:   gcp.GetEnv("FIRESTORE_COLLECTION", "documents"),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", "certificate-qc-orchestrator"),
	}
	if config.PagesBucket == "" {
		return nil, fmt.Errorf("SPLIT_PAGES_BUCKET environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	executionsClient, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}

	f := &IntakeFunction{
		firestoreClient:  firestoreClient,
		storageClient:    storageClient,
		executionsClient: executionsClient,
		config:           config,
	}
	slog.Info("Intake logic initialized.", "workflowId", config.WorkflowID)
	return f, nil
}

// Process handles one uploaded document end to end.
func (f *IntakeFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new scanned document.")

	docType, err := docTypeFromObjectName(e.Name)
	if err != nil {
		// Misfiled uploads are skipped, not failed: the bucket also holds
		// unrelated exports.
		logCtx.Warn("Object path does not name a known document type. Skipping.", "error", err)
		return nil
	}
	logCtx = logCtx.With("docType", string(docType))

	tempDir, err := os.MkdirTemp("", "doc-intake-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePdfPath := filepath.Join(tempDir, "source.pdf")
	if err := f.downloadObject(ctx, e.Bucket, e.Name, sourcePdfPath); err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	fileHash, err := fileSHA256(sourcePdfPath)
	if err != nil {
		logCtx.Error("Failed to calculate file hash", "error", err)
		return fmt.Errorf("failed to calculate file hash: %w", err)
	}
	logCtx = logCtx.With("fileHash", fileHash)

	dupID, err := f.duplicateOf(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if dupID != "" {
		logCtx.Info("Duplicate file detected. Skipping.", "existingDocId", dupID)
		return nil // Clean exit for a duplicate
	}

	docRef, err := f.createJobRecord(ctx, fileHash, e.Name, docType)
	if err != nil {
		logCtx.Error("Failed to create job record in Firestore", "error", err)
		return err
	}
	logCtx = logCtx.With("documentId", docRef.ID)
	logCtx.Info("Created job record in Firestore.")

	optimizedPdfPath := filepath.Join(tempDir, "optimized.pdf")
	pageCount, err := f.optimizeAndSplit(ctx, logCtx, docRef, sourcePdfPath, optimizedPdfPath)
	if err != nil {
		return err
	}

	if err := f.uploadSplitPages(ctx, logCtx, docRef, optimizedPdfPath, pageCount); err != nil {
		return err
	}

	if err := f.triggerWorkflow(ctx, logCtx, docRef, docType, pageCount); err != nil {
		return err
	}

	logCtx.Info("Hand-off to QC workflow complete.")
	return nil
}

// docTypeFromObjectName maps the upload prefix to a document role:
// certificates/, policies/, and acord/ are the only recognized folders.
func docTypeFromObjectName(name string) (models.DocType, error) {
	prefix, _, found := strings.Cut(name, "/")
	if !found {
		return "", fmt.Errorf("object %q has no folder prefix", name)
	}
	switch prefix {
	case "certificates":
		return models.DocTypeCertificate, nil
	case "policies":
		return models.DocTypePolicy, nil
	case "acord":
		return models.DocTypeAcord, nil
	}
	return "", fmt.Errorf("unknown document folder %q", prefix)
}

func (f *IntakeFunction) duplicateOf(ctx context.Context, fileHash string) (string, error) {
	docs, err := f.firestoreClient.Collection(f.config.CollectionName).Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return docs[0].Ref.ID, nil
	}
	return "", nil
}

func (f *IntakeFunction) createJobRecord(ctx context.Context, fileHash, filename string, docType models.DocType) (*firestore.DocumentRef, error) {
	newDoc := models.Document{
		FileHash:         fileHash,
		OriginalFilename: filename,
		DocType:          docType,
		Status:           "VALIDATING",
		CreatedAt:        time.Now(),
	}
	docRef, _, err := f.firestoreClient.Collection(f.config.CollectionName).Add(ctx, newDoc)
	if err != nil {
		return nil, fmt.Errorf("failed to create job record: %w", err)
	}
	return docRef, nil
}

func (f *IntakeFunction) optimizeAndSplit(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, source, optimized string) (int, error) {
	if err := optimizePDF(source, optimized); err != nil {
		return 0, f.failJob(ctx, logCtx, docRef, "failed to validate/optimize PDF", err)
	}
	pageCount, err := api.PageCountFile(optimized)
	if err != nil {
		return 0, f.failJob(ctx, logCtx, docRef, "failed to get page count", err)
	}
	if err := api.SplitFile(optimized, filepath.Dir(optimized), 1, nil); err != nil {
		return 0, f.failJob(ctx, logCtx, docRef, "failed to split PDF", err)
	}
	updates := []firestore.Update{
		{Path: "status", Value: "SPLITTING"},
		{Path: "pageCount", Value: pageCount},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return 0, f.failJob(ctx, logCtx, docRef, "failed to update status to SPLITTING", err)
	}
	logCtx.Info("PDF optimized and split locally.", "pageCount", pageCount)
	return pageCount, nil
}

func (f *IntakeFunction) uploadSplitPages(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, optimizedPdfPath string, pageCount int) error {
	logCtx.Info("Starting concurrent upload of pages.", "pageCount", pageCount)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(10)

	splitFileBase := strings.TrimSuffix(optimizedPdfPath, filepath.Ext(optimizedPdfPath))

	for i := 1; i <= pageCount; i++ {
		pageNumber := i
		localSplitFilePath := fmt.Sprintf("%s_%d.pdf", splitFileBase, pageNumber)
		gcsDestObject := fmt.Sprintf("%s/%05d.pdf", docRef.ID, pageNumber)

		eg.Go(func() error {
			op := fmt.Sprintf("upload page %d", pageNumber)
			err := gcp.Call(gctx, op, gcp.DefaultRetrySettings(), nil, func(ctx context.Context) error {
				return f.uploadFile(ctx, localSplitFilePath, gcsDestObject)
			})
			if err != nil {
				return fmt.Errorf("page %d: %w", pageNumber, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return f.failJob(ctx, logCtx, docRef, "one or more pages failed to upload", err)
	}
	logCtx.Info("All pages uploaded successfully.")
	return nil
}

func (f *IntakeFunction) triggerWorkflow(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, docType models.DocType, pageCount int) error {
	logCtx.Info("Triggering QC workflow.")
	workflowPayload := map[string]interface{}{
		"documentId": docRef.ID,
		"docType":    string(docType),
		"pageCount":  pageCount,
	}
	payloadBytes, err := json.Marshal(workflowPayload)
	if err != nil {
		return f.failJob(ctx, logCtx, docRef, "failed to marshal workflow payload", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	_, err = f.executionsClient.CreateExecution(ctx, req)
	if err != nil {
		return f.failJob(ctx, logCtx, docRef, "failed to trigger workflow execution", err)
	}
	return nil
}

func (f *IntakeFunction) failJob(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := gcp.UpdateDocumentStatus(ctx, docRef, "FAILED", fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s", fullError)
}

func (f *IntakeFunction) downloadObject(ctx context.Context, bucket, object, destPath string) error {
	gcsReader, err := f.storageClient.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer gcsReader.Close()
	localFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file at %s: %w", destPath, err)
	}
	defer localFile.Close()
	if _, err := io.Copy(localFile, gcsReader); err != nil {
		return fmt.Errorf("failed to copy GCS object to local file: %w", err)
	}
	return nil
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}

func (f *IntakeFunction) uploadFile(ctx context.Context, localPath, destObject string) error {
	localFileReader, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("could not open local file %s: %w", localPath, err)
	}
	defer localFileReader.Close()

	writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
	defer cancel()

	gcsWriter := f.storageClient.Bucket(f.config.PagesBucket).Object(destObject).NewWriter(writeCtx)
	if _, err := io.Copy(gcsWriter, localFileReader); err != nil {
		_ = gcsWriter.Close()
		return fmt.Errorf("io.Copy to GCS failed: %w", err)
	}
	if err := gcsWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalize upload: %w", err)
	}
	return nil
}

func fileSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
