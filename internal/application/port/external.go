package port

import (
	"context"
	"time"

	"github.com/clearledger/claimflow/internal/domain/entity"
)

// ReceiptExtraction is the structured result of reading a receipt. The
// confidence score is on a 0-100 scale; field sources tag which claim
// fields the extraction can pre-fill.
type ReceiptExtraction struct {
	Amount       float64
	Currency     string
	ClaimDate    *time.Time
	CategoryCode string
	Description  string
	Vendor       string
	Confidence   float64
}

// ReceiptExtractor reads receipt page images and proposes claim fields
type ReceiptExtractor interface {
	Extract(ctx context.Context, pages [][]byte) (*ReceiptExtraction, error)
}

// PageRenderer converts an uploaded document into page images suitable for
// extraction
type PageRenderer interface {
	RenderPages(path string, maxPages int) ([][]byte, error)
}

// Notifier delivers one outbox notification to its recipient
type Notifier interface {
	Send(ctx context.Context, n *entity.Notification) error
}
