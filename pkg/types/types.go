package types

import (
	"time"
)

// DocumentStatus is the coarse processing state of a document record.
// It is derived from the per-step states and never regresses.
type DocumentStatus string

const (
	StatusPendingUpload    DocumentStatus = "pending_upload"
	StatusUploaded         DocumentStatus = "uploaded"
	StatusProcessing       DocumentStatus = "processing"
	StatusTextractComplete DocumentStatus = "textract_complete"
	StatusMacieComplete    DocumentStatus = "macie_complete"
	StatusInsightsComplete DocumentStatus = "insights_complete"
	StatusComplete         DocumentStatus = "complete"
	StatusError            DocumentStatus = "error"
)

// statusRank orders statuses for monotonicity checks. Error is terminal
// and outside the ordering.
var statusRank = map[DocumentStatus]int{
	StatusPendingUpload:    0,
	StatusUploaded:         1,
	StatusProcessing:       2,
	StatusTextractComplete: 3,
	StatusMacieComplete:    4,
	StatusInsightsComplete: 5,
	StatusComplete:         6,
}

// Before reports whether s orders strictly before other in the pipeline.
// Error compares before nothing and after everything non-terminal.
func (s DocumentStatus) Before(other DocumentStatus) bool {
	if s == StatusError || other == StatusError {
		return false
	}
	return statusRank[s] < statusRank[other]
}

// StepName identifies one stage of the pipeline.
type StepName string

const (
	StepUpload       StepName = "upload"
	StepValidation   StepName = "validation"
	StepOCR          StepName = "ocr"
	StepPIIDetection StepName = "pii_detection"
	StepRedaction    StepName = "redaction"
	StepInsights     StepName = "insights"
)

// PipelineSteps lists every step in execution order.
var PipelineSteps = []StepName{
	StepUpload,
	StepValidation,
	StepOCR,
	StepPIIDetection,
	StepRedaction,
	StepInsights,
}

// StepStatus is the state of a single pipeline step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepComplete   StepStatus = "complete"
	StepError      StepStatus = "error"
)

// StepState records the progress of one step on one document.
type StepState struct {
	State        StepStatus `json:"state"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	JobHandle    string     `json:"job_handle,omitempty"`
}

// BlobRef points at an object in the blob store.
type BlobRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// SourceRef describes the uploaded original.
type SourceRef struct {
	Bucket           string `json:"bucket"`
	Key              string `json:"key"`
	ContentType      string `json:"content_type"`
	SizeBytes        int64  `json:"size_bytes"`
	OriginalFilename string `json:"original_filename"`
}

// FindingKind classifies a PII finding.
type FindingKind string

const (
	FindingSSN           FindingKind = "SSN"
	FindingDODID         FindingKind = "DOD_ID"
	FindingDateOfBirth   FindingKind = "DATE_OF_BIRTH"
	FindingAddress       FindingKind = "ADDRESS"
	FindingName          FindingKind = "NAME"
	FindingEmail         FindingKind = "EMAIL"
	FindingPhone         FindingKind = "PHONE"
	FindingServiceNumber FindingKind = "SERVICE_NUMBER"
	FindingVAFileNumber  FindingKind = "VA_FILE_NUMBER"
	FindingOther         FindingKind = "OTHER"
)

// FindingSource says where a finding came from.
type FindingSource string

const (
	SourcePattern      FindingSource = "pattern"
	SourceClassifier   FindingSource = "classifier"
	SourceAlwaysRedact FindingSource = "always_redact"
)

// Span is a half-open [Start, End) byte range into the detection input.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Finding is one detected PII item. Immutable once recorded.
type Finding struct {
	Kind       FindingKind   `json:"kind"`
	Span       *Span         `json:"span,omitempty"`
	FieldName  string        `json:"field_name,omitempty"`
	Source     FindingSource `json:"source"`
	Confidence float64       `json:"confidence,omitempty"`
}

// DocumentRecord is the durable per-document row. It is the single
// source of truth for pipeline progress.
type DocumentRecord struct {
	DocumentID string         `json:"document_id"`
	OwnerID    string         `json:"owner_id"`
	OwnerEmail string         `json:"owner_email,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	SourceRef  *SourceRef     `json:"source_ref,omitempty"`
	Status     DocumentStatus `json:"status"`

	Steps map[StepName]*StepState `json:"steps"`

	ExtractedFields  map[string]string `json:"extracted_fields,omitempty"`
	ExtractedTextRef *BlobRef          `json:"extracted_text_ref,omitempty"`
	PIIFindings      []Finding         `json:"pii_findings,omitempty"`
	RedactedRef      *BlobRef          `json:"redacted_ref,omitempty"`
	InsightsRef      *BlobRef          `json:"insights_ref,omitempty"`

	ExecutionHandle     string     `json:"execution_handle,omitempty"`
	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`

	// NoPIIMarker is set when redaction ran but no findings applied.
	NoPIIMarker bool `json:"no_pii_marker,omitempty"`
	// FallbackInsights is set when the insight artifact was statically
	// constructed after LLM failure.
	FallbackInsights bool `json:"fallback_insights,omitempty"`
	// ClassifierDegraded is set when the external PII classifier timed
	// out or failed and default findings were substituted.
	ClassifierDegraded bool `json:"classifier_degraded,omitempty"`

	TTL time.Time `json:"ttl"`
}

// NewRecord builds the initial record for a provisioned upload. All
// steps start pending.
func NewRecord(documentID, ownerID string, ttl time.Duration) *DocumentRecord {
	now := time.Now().UTC()
	steps := make(map[StepName]*StepState, len(PipelineSteps))
	for _, name := range PipelineSteps {
		steps[name] = &StepState{State: StepPending}
	}
	return &DocumentRecord{
		DocumentID: documentID,
		OwnerID:    ownerID,
		CreatedAt:  now,
		UpdatedAt:  now,
		Status:     StatusPendingUpload,
		Steps:      steps,
		TTL:        now.Add(ttl),
	}
}

// Step returns the state for name, allocating a pending entry if the
// record predates the step.
func (r *DocumentRecord) Step(name StepName) *StepState {
	if r.Steps == nil {
		r.Steps = make(map[StepName]*StepState)
	}
	st, ok := r.Steps[name]
	if !ok {
		st = &StepState{State: StepPending}
		r.Steps[name] = st
	}
	return st
}

// DeriveStatus recomputes the coarse status from the step map. Error
// wins; otherwise the furthest complete step decides.
func (r *DocumentRecord) DeriveStatus() DocumentStatus {
	for _, st := range r.Steps {
		if st.State == StepError {
			return StatusError
		}
	}
	done := func(name StepName) bool {
		st, ok := r.Steps[name]
		return ok && st.State == StepComplete
	}
	switch {
	case done(StepInsights) && r.CompletedAt != nil:
		return StatusComplete
	case done(StepInsights):
		return StatusInsightsComplete
	case done(StepRedaction):
		return StatusMacieComplete
	case done(StepOCR):
		// pii_detection finishing does not advance the status; the next
		// milestone is redaction.
		return StatusTextractComplete
	case done(StepValidation):
		return StatusProcessing
	case done(StepUpload):
		return StatusUploaded
	default:
		return r.Status
	}
}

// Block is one OCR result element.
type Block struct {
	Type       BlockType `json:"BlockType"`
	Text       string    `json:"Text,omitempty"`
	Confidence float64   `json:"Confidence,omitempty"`
	Page       int32     `json:"Page,omitempty"`
	ID         string    `json:"Id,omitempty"`
}

// BlockType classifies an OCR block.
type BlockType string

const (
	BlockPage BlockType = "PAGE"
	BlockLine BlockType = "LINE"
	BlockWord BlockType = "WORD"
)
