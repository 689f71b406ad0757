package constants

// UploadStatus is the canonical lifecycle status for rows in upload.
type UploadStatus string

// Stable values (store these exact strings in DB).
const (
	StatusUploaded   UploadStatus = "uploaded"   // stored, waiting for a worker
	StatusProcessing UploadStatus = "processing" // analysis in progress
	StatusCompleted  UploadStatus = "completed"  // merged result persisted
	StatusFailed     UploadStatus = "failed"     // terminal failure, error_message set
)

// UploadStatuses holds the allowed values for the status field in Upload.
var UploadStatuses = []string{
	string(StatusUploaded),
	string(StatusProcessing),
	string(StatusCompleted),
	string(StatusFailed),
}

// AgreementLevel describes how well providers agreed on a disputed fact.
type AgreementLevel string

const (
	AgreementFull    AgreementLevel = "full"
	AgreementPartial AgreementLevel = "partial"
	AgreementNone    AgreementLevel = "none"
)

// ConfidenceTier buckets a provider's certainty about a detected grade.
type ConfidenceTier string

const (
	TierHigh     ConfidenceTier = "high"
	TierMedium   ConfidenceTier = "medium"
	TierLow      ConfidenceTier = "low"
	TierNotFound ConfidenceTier = "not_found"
)
