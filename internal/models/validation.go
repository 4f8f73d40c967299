package models

// MatchStatus is the outcome of comparing one field across documents.
type MatchStatus string

const (
	StatusMatch    MatchStatus = "MATCH"
	StatusMismatch MatchStatus = "MISMATCH"
	StatusNotFound MatchStatus = "NOT_FOUND"
)

// ValidationItem is one field the orchestrator asks a coverage validator to
// check: the certificate's value, to be verified against the policy.
type ValidationItem struct {
	FieldName        string  `json:"fieldName"`
	CertificateValue *string `json:"certificateValue"`
}

// ValidationRecord is a coverage validator's verdict for one requested field.
type ValidationRecord struct {
	FieldName        string      `json:"fieldName"`
	CertificateValue *string     `json:"certificateValue"`
	Status           MatchStatus `json:"status"`
	PolicyValue      *string     `json:"policyValue"`
	Evidence         []string    `json:"evidence,omitempty"`
	Notes            string      `json:"notes,omitempty"`
}

// MatchStatus implements summary.StatusBearer.
func (r ValidationRecord) MatchStatus() MatchStatus { return r.Status }

// Summary holds per-status counts for a set of records. Counts are always
// recomputed from the record arrays; collaborator-reported totals are never
// trusted.
type Summary struct {
	Total      int `json:"total"`
	Matched    int `json:"matched"`
	Mismatched int `json:"mismatched"`
	NotFound   int `json:"notFound"`
}

// ValidatorResult is the outcome of one coverage validator run. A non-empty
// Error means the validator failed as a unit; Records may then be empty, but
// the orchestrator's report still completes.
type ValidatorResult struct {
	Name    string             `json:"name"`
	Records []ValidationRecord `json:"records"`
	Summary Summary            `json:"summary"`
	Error   string             `json:"error,omitempty"`
}

// ValidationReport is the combined output of one certificate/policy QC run.
type ValidationReport struct {
	RunID   string            `json:"runId"`
	Results []ValidatorResult `json:"results"`
	Summary Summary           `json:"summary"`
}

// ReconciliationRecord is the three-way comparison outcome for one field.
type ReconciliationRecord struct {
	FieldName        string      `json:"fieldName"`
	PolicyValue      *string     `json:"policyValue"`
	CertificateValue *string     `json:"certificateValue"`
	AcordValue       *string     `json:"acordValue"`
	Status           MatchStatus `json:"status"`
	Notes            string      `json:"notes,omitempty"`
}

// MatchStatus implements summary.StatusBearer.
func (r ReconciliationRecord) MatchStatus() MatchStatus { return r.Status }

// ReconciliationReport is the combined output of one three-way QC run.
type ReconciliationReport struct {
	RunID   string                 `json:"runId"`
	Records []ReconciliationRecord `json:"records"`
	Summary Summary                `json:"summary"`
}
