package domain

import "time"

type DocumentStatus string

const (
	StatusProcessing       DocumentStatus = "processing"
	StatusAutoApproved     DocumentStatus = "auto_approved"
	StatusUnderReview      DocumentStatus = "under_review"
	StatusApproved         DocumentStatus = "approved"
	StatusRejected         DocumentStatus = "rejected"
	StatusAdminPassNeeded  DocumentStatus = "admin_pass_needed"
	StatusProcessingFailed DocumentStatus = "processing_failed"
)

// Protected reports whether the status forbids delete and reprocess.
// Only approved documents are locked; every other status stays recoverable.
func (s DocumentStatus) Protected() bool {
	return s == StatusApproved
}

// Recoverable reports whether a batch sweep may reset the document back
// to processing.
func (s DocumentStatus) Recoverable() bool {
	return s == StatusProcessingFailed || s == StatusAdminPassNeeded
}

type Document struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenant_id"`
	UploadedBy string `json:"uploaded_by,omitempty"`

	StorageKey string `json:"storage_key"`
	Filename   string `json:"filename"`

	Status DocumentStatus `json:"status"`

	VendorName     string           `json:"vendor_name,omitempty"`
	DocumentNumber string           `json:"document_number,omitempty"`
	TotalAmount    *float64         `json:"total_amount,omitempty"`
	Confidence     *float64         `json:"confidence_score,omitempty"`
	Extracted      *ExtractedRecord `json:"extracted,omitempty"`

	DuplicateFlag bool     `json:"duplicate_flag"`
	FraudFlag     bool     `json:"fraud_flag"`
	FraudScore    *float64 `json:"fraud_score,omitempty"`
	TextHash      string   `json:"text_hash,omitempty"`

	ProcessingSeconds *float64 `json:"processing_seconds,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Signals is the derived output of one pipeline run. It is applied to a
// document in a single write so a racing run overwrites all of it or none
// of it, never a mix of two runs.
type Signals struct {
	VendorName        string
	DocumentNumber    string
	TotalAmount       float64
	Confidence        float64
	Extracted         *ExtractedRecord
	TextHash          string
	DuplicateFlag     bool
	FraudFlag         bool
	FraudScore        float64
	ProcessingSeconds float64
	Status            DocumentStatus
}
