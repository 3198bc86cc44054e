package entity

import "time"

// Document is a supporting file attached to a claim, with OCR results from
// the intake pipeline.
type Document struct {
	ID       int64  `json:"id"`
	TenantID string `json:"tenant_id"`
	ClaimID  int64  `json:"claim_id"`

	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	FileSize    int64  `json:"file_size"`
	StoragePath string `json:"storage_path"`

	DocumentType string `json:"document_type,omitempty"` // INVOICE, RECEIPT, CERTIFICATE, TICKET

	OCRText        string     `json:"ocr_text,omitempty"`
	OCRConfidence  *float64   `json:"ocr_confidence,omitempty"`
	OCRProcessed   bool       `json:"ocr_processed"`
	OCRProcessedAt *time.Time `json:"ocr_processed_at,omitempty"`

	UploadedAt time.Time `json:"uploaded_at"`
}
