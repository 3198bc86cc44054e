package service

import (
	"context"
	"fmt"
	"time"

	"github.com/clearledger/claimflow/internal/application/port"
	"github.com/clearledger/claimflow/internal/domain/entity"
)

// Receipts longer than this are truncated before extraction; page one
// carries the totals on every receipt format seen so far.
const maxReceiptPages = 3

// IntakeService runs the receipt pipeline: render the uploaded file to page
// images, extract claim fields with the vision model, and record the result
// against the claim. Extraction is best-effort; a claim with a failed
// extraction simply keeps its manual fields.
type IntakeService interface {
	ProcessReceipt(ctx context.Context, tenantID string, claimID int64, storagePath, filename string, fileSize int64) (*entity.Document, error)
}

type intakeServiceImpl struct {
	renderer  port.PageRenderer
	extractor port.ReceiptExtractor
	documents port.DocumentRepository
	claims    port.ClaimRepository
	txManager port.TransactionManager
	logger    Logger
	now       func() time.Time
}

// NewIntakeService creates a new IntakeService
func NewIntakeService(
	renderer port.PageRenderer,
	extractor port.ReceiptExtractor,
	documents port.DocumentRepository,
	claims port.ClaimRepository,
	txManager port.TransactionManager,
	logger Logger,
) IntakeService {
	return &intakeServiceImpl{
		renderer:  renderer,
		extractor: extractor,
		documents: documents,
		claims:    claims,
		txManager: txManager,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessReceipt registers the uploaded receipt and, for claims still in
// DRAFT, pre-fills empty claim fields from the extraction with "auto"
// provenance tags.
func (s *intakeServiceImpl) ProcessReceipt(ctx context.Context, tenantID string, claimID int64, storagePath, filename string, fileSize int64) (*entity.Document, error) {
	claim, err := s.claims.GetByID(ctx, tenantID, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, fmt.Errorf("%w: claim %d", port.ErrNotFound, claimID)
	}

	now := s.now()
	doc := &entity.Document{
		TenantID:     tenantID,
		ClaimID:      claimID,
		Filename:     filename,
		FileSize:     fileSize,
		StoragePath:  storagePath,
		DocumentType: "RECEIPT",
	}

	extraction := s.extract(ctx, storagePath)
	if extraction != nil {
		doc.OCRProcessed = true
		doc.OCRProcessedAt = &now
		doc.OCRConfidence = &extraction.Confidence
		doc.OCRText = extraction.Description
	}

	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.documents.Create(txCtx, doc); err != nil {
			return err
		}

		if extraction == nil || claim.Status != entity.StatusDraft {
			return nil
		}

		prefill(claim, extraction)
		return s.claims.Update(txCtx, claim)
	})
	if err != nil {
		s.logger.Error("Failed to record receipt", "claim_id", claimID, "error", err)
		return nil, fmt.Errorf("record receipt: %w", err)
	}

	s.logger.Info("Receipt processed",
		"claim_id", claimID, "filename", filename, "extracted", extraction != nil)
	return doc, nil
}

// extract runs the render-and-read pipeline, returning nil when any step
// fails so intake never blocks an upload.
func (s *intakeServiceImpl) extract(ctx context.Context, storagePath string) *port.ReceiptExtraction {
	pages, err := s.renderer.RenderPages(storagePath, maxReceiptPages)
	if err != nil {
		s.logger.Error("Failed to render receipt pages", "path", storagePath, "error", err)
		return nil
	}

	extraction, err := s.extractor.Extract(ctx, pages)
	if err != nil {
		s.logger.Error("Failed to extract receipt fields", "path", storagePath, "error", err)
		return nil
	}
	return extraction
}

func prefill(claim *entity.Claim, extraction *port.ReceiptExtraction) {
	if claim.FieldSources == nil {
		claim.FieldSources = make(map[string]string)
	}

	if claim.Amount <= 0 && extraction.Amount > 0 {
		claim.Amount = extraction.Amount
		claim.FieldSources["amount"] = entity.FieldSourceAuto
	}
	if claim.ClaimDate == nil && extraction.ClaimDate != nil {
		d := *extraction.ClaimDate
		claim.ClaimDate = &d
		claim.FieldSources["claim_date"] = entity.FieldSourceAuto
	}
	if claim.Description == "" && extraction.Description != "" {
		claim.Description = extraction.Description
		claim.FieldSources["description"] = entity.FieldSourceAuto
	}
	if claim.CategoryCode == "" && extraction.CategoryCode != "" {
		claim.CategoryCode = extraction.CategoryCode
		claim.FieldSources["category_code"] = entity.FieldSourceAuto
	}
	claim.AIConfidence = extraction.Confidence
}
