package domain

import "time"

// Wizard steps, in order. A session may only move forward through them,
// except for the explicit re-crop and start-over transitions.
const (
	StepUpload   = "upload"
	StepCrop     = "crop"
	StepValidate = "validate"
	StepPayment  = "payment"
	StepDownload = "download"
)

// ComplianceCheckError marks a per-category verdict that could not be
// evaluated because the compliance collaborator failed.
const ComplianceCheckError = "Error"

// TechnicalResult is the verdict of the local technical validator over
// one encoded output. Immutable once computed.
type TechnicalResult struct {
	ByteSize        int    `json:"byte_size"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	Format          string `json:"format"`
	SizeValid       bool   `json:"size_valid"`
	DimensionsValid bool   `json:"dimensions_valid"`
	FormatValid     bool   `json:"format_valid"`
}

// ComplianceChecks holds the five named per-category verdicts returned
// by the compliance collaborator. Each value is "Pass", "Fail" or
// ComplianceCheckError.
type ComplianceChecks struct {
	Background   string `json:"background"`
	FacePosition string `json:"face_position"`
	Expression   string `json:"expression"`
	Lighting     string `json:"lighting"`
	Sharpness    string `json:"sharpness"`
}

// ComplianceResult is the opaque verdict of the AI evaluator. The
// workflow never recomputes it locally.
type ComplianceResult struct {
	Passed   bool             `json:"passed"`
	Score    int              `json:"score"`
	Checks   ComplianceChecks `json:"checks"`
	Feedback string           `json:"feedback"`
}

// DegradedComplianceResult is what the workflow substitutes when the
// compliance call fails: the Validate screen always has a result object
// to render, never an exception.
func DegradedComplianceResult(feedback string) ComplianceResult {
	return ComplianceResult{
		Passed: false,
		Score:  0,
		Checks: ComplianceChecks{
			Background:   ComplianceCheckError,
			FacePosition: ComplianceCheckError,
			Expression:   ComplianceCheckError,
			Lighting:     ComplianceCheckError,
			Sharpness:    ComplianceCheckError,
		},
		Feedback: feedback,
	}
}

// PaymentState is set once by the payment collaborator after capture.
// A failed verification is never retried automatically; the user must
// start a fresh payment attempt.
type PaymentState struct {
	Verified bool   `json:"verified"`
	OrderID  string `json:"order_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Order is the persisted record of a verified purchase, used by the
// delivery worker to re-verify payment server-side.
type Order struct {
	OrderID   string
	PhotoID   string
	Email     string
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
