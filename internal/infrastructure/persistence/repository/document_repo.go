package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/clearledger/claimflow/internal/application/port"
	"github.com/clearledger/claimflow/internal/domain/entity"
)

// DocumentRepository implements port.DocumentRepository
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewDocumentRepository(db *sql.DB, logger *zap.Logger) port.DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

const documentColumns = `
	id, tenant_id, claim_id, filename, content_type, file_size, storage_path,
	document_type, ocr_text, ocr_confidence, ocr_processed, ocr_processed_at,
	uploaded_at`

// Create registers an uploaded document against a claim
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	query := `
		INSERT INTO documents (
			tenant_id, claim_id, filename, content_type, file_size,
			storage_path, document_type, ocr_text, ocr_confidence,
			ocr_processed, ocr_processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		doc.TenantID,
		doc.ClaimID,
		doc.Filename,
		nullString(doc.ContentType),
		doc.FileSize,
		doc.StoragePath,
		nullString(doc.DocumentType),
		nullString(doc.OCRText),
		nullFloat(doc.OCRConfidence),
		doc.OCRProcessed,
		nullTime(doc.OCRProcessedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create document", zap.Int64("claim_id", doc.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	doc.ID = id
	return nil
}

// GetByID retrieves a document by ID within the tenant
func (r *DocumentRepository) GetByID(ctx context.Context, tenantID string, id int64) (*entity.Document, error) {
	query := `SELECT` + documentColumns + ` FROM documents WHERE tenant_id = ? AND id = ?`

	doc, err := scanDocument(r.getExecutor(ctx).QueryRowContext(ctx, query, tenantID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get document", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListByClaim retrieves a claim's documents in upload order
func (r *DocumentRepository) ListByClaim(ctx context.Context, tenantID string, claimID int64) ([]*entity.Document, error) {
	query := `SELECT` + documentColumns + `
		FROM documents
		WHERE tenant_id = ? AND claim_id = ?
		ORDER BY uploaded_at`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, tenantID, claimID)
	if err != nil {
		r.logger.Error("Failed to list documents", zap.Int64("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CountByClaim counts a claim's attached documents, feeding the compliance
// document check
func (r *DocumentRepository) CountByClaim(ctx context.Context, tenantID string, claimID int64) (int, error) {
	var count int
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE tenant_id = ? AND claim_id = ?",
		tenantID, claimID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var doc entity.Document
	var contentType, documentType, ocrText sql.NullString
	var ocrConfidence sql.NullFloat64
	var ocrProcessedAt sql.NullTime

	err := row.Scan(
		&doc.ID,
		&doc.TenantID,
		&doc.ClaimID,
		&doc.Filename,
		&contentType,
		&doc.FileSize,
		&doc.StoragePath,
		&documentType,
		&ocrText,
		&ocrConfidence,
		&doc.OCRProcessed,
		&ocrProcessedAt,
		&doc.UploadedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.ContentType = contentType.String
	doc.DocumentType = documentType.String
	doc.OCRText = ocrText.String
	if ocrConfidence.Valid {
		doc.OCRConfidence = &ocrConfidence.Float64
	}
	if ocrProcessedAt.Valid {
		doc.OCRProcessedAt = &ocrProcessedAt.Time
	}
	return &doc, nil
}

// getExecutor returns appropriate executor based on context
func (r *DocumentRepository) getExecutor(ctx context.Context) executor {
	return executorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.DocumentRepository = (*DocumentRepository)(nil)
