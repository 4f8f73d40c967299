package models

// These structs define the JSON payloads for HTTP requests and responses
// between the Cloud Workflow and the worker Cloud Functions.

// FieldExtractorRequest is the input for the field-extractor function.
type FieldExtractorRequest struct {
	DocumentID  string  `json:"documentId"`
	DocType     DocType `json:"docType"`
	ExecutionID string  `json:"executionId"`
}

// FieldExtractorResponse is the output of the field-extractor function.
type FieldExtractorResponse struct {
	Status           string `json:"status"`
	ExtractionGCSUri string `json:"extractionGcsUri"`
	ChunksTotal      int    `json:"chunksTotal"`
	ChunksFailed     int    `json:"chunksFailed"`
}

// CertificateValidatorRequest is the input for the certificate-validator
// function. The URIs point at persisted DocumentExtraction artifacts.
type CertificateValidatorRequest struct {
	CertificateGCSUri string `json:"certificateGcsUri"`
	PolicyGCSUri      string `json:"policyGcsUri"`
	ExecutionID       string `json:"executionId"`
}

// CertificateValidatorResponse is the output of the certificate-validator
// function.
type CertificateValidatorResponse struct {
	Status       string  `json:"status"`
	ReportGCSUri string  `json:"reportGcsUri"`
	Summary      Summary `json:"summary"`
}

// ReconcilerRequest is the input for the reconciler function. Any of the
// three URIs may be empty when that document was not supplied for the run.
type ReconcilerRequest struct {
	PolicyGCSUri      string `json:"policyGcsUri"`
	CertificateGCSUri string `json:"certificateGcsUri"`
	AcordGCSUri       string `json:"acordGcsUri"`
	ExecutionID       string `json:"executionId"`
}

// ReconcilerResponse is the output of the reconciler function.
type ReconcilerResponse struct {
	Status       string  `json:"status"`
	ReportGCSUri string  `json:"reportGcsUri"`
	Summary      Summary `json:"summary"`
}
