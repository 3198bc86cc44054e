// Package export generates finance-facing workbook exports.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/clearledger/claimflow/internal/application/port"
	"github.com/clearledger/claimflow/internal/domain/entity"
)

const settlementSheet = "Settlements"

var settlementHeaders = []string{
	"Claim Number", "Employee", "Department", "Category", "Claim Type",
	"Amount", "Currency", "Amount Paid", "Payment Method",
	"Payment Reference", "Claim Date", "Settled At", "Settled By",
}

// SettlementReporter writes settled claims for a period into an Excel
// workbook for the finance team's payout reconciliation.
type SettlementReporter struct {
	claims port.ClaimRepository
	logger *zap.Logger
}

// NewSettlementReporter creates a new settlement reporter
func NewSettlementReporter(claims port.ClaimRepository, logger *zap.Logger) *SettlementReporter {
	return &SettlementReporter{claims: claims, logger: logger}
}

// Generate writes all claims settled in [from, to) for the tenant to
// outputPath and returns the number of rows written.
func (r *SettlementReporter) Generate(ctx context.Context, tenantID string, from, to time.Time, outputPath string) (int, error) {
	claims, err := r.claims.ListSettledBetween(ctx, tenantID, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to list settled claims: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(settlementSheet)
	if err != nil {
		return 0, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for col, header := range settlementHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		r.setCell(f, cell, header)
	}

	var total float64
	for i, claim := range claims {
		r.writeRow(f, i+2, claim)
		if claim.AmountPaid != nil {
			total += *claim.AmountPaid
		} else {
			total += claim.Amount
		}
	}

	totalRow := len(claims) + 3
	r.setCell(f, fmt.Sprintf("A%d", totalRow), "Total")
	r.setCell(f, fmt.Sprintf("H%d", totalRow), fmt.Sprintf("%.2f", total))

	if err := f.SaveAs(outputPath); err != nil {
		return 0, fmt.Errorf("failed to save workbook: %w", err)
	}

	r.logger.Info("Settlement report generated",
		zap.String("tenant_id", tenantID),
		zap.Int("claims", len(claims)),
		zap.String("output_path", outputPath))
	return len(claims), nil
}

func (r *SettlementReporter) writeRow(f *excelize.File, row int, claim *entity.Claim) {
	values := []interface{}{
		claim.ClaimNumber,
		claim.EmployeeName,
		claim.Department,
		claim.CategoryCode,
		claim.ClaimType,
		claim.Amount,
		claim.Currency,
		paidAmount(claim),
		claim.PaymentMethod,
		claim.PaymentReference,
		formatDate(claim.ClaimDate),
		formatDate(claim.SettledAt),
		claim.SettledBy,
	}
	for col, value := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		r.setCell(f, cell, value)
	}
}

func (r *SettlementReporter) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(settlementSheet, cell, value); err != nil {
		r.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func paidAmount(claim *entity.Claim) float64 {
	if claim.AmountPaid != nil {
		return *claim.AmountPaid
	}
	return claim.Amount
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
