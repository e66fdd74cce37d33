package drums

import (
	"context"
	"time"

	"github.com/drumtrack/drumtrack/internal/shared"
)

// PeriodResolver resolves the return period of a company.
type PeriodResolver interface {
	ResolveDays(ctx context.Context, taxID string) (int, error)
}

// ReferenceDate is the issue date when present, else the stock receipt date.
func ReferenceDate(d Drum) *time.Time {
	if d.IssueDate != nil {
		return d.IssueDate
	}
	return d.StockReceiptDate
}

// DueDate adds days calendar days to reference. A nil reference has no due date.
func DueDate(reference *time.Time, days int) *time.Time {
	if reference == nil {
		return nil
	}
	due := shared.DateOf(*reference).AddDate(0, 0, days)
	return &due
}

// Calculator computes supplier return due dates from resolved periods.
type Calculator struct {
	periods PeriodResolver
}

// NewCalculator constructs a Calculator.
func NewCalculator(periods PeriodResolver) *Calculator {
	return &Calculator{periods: periods}
}

// ComputeSupplierReturnDueDate returns reference plus the company's period.
// The period is resolved on every call.
func (c *Calculator) ComputeSupplierReturnDueDate(ctx context.Context, reference *time.Time, taxID string) (*time.Time, error) {
	if reference == nil {
		return nil, nil
	}
	days, err := c.periods.ResolveDays(ctx, taxID)
	if err != nil {
		return nil, err
	}
	return DueDate(reference, days), nil
}

// Enrich attaches the effective due date and classification to d. A stored
// supplier due date wins over the computed one.
func Enrich(d Drum, periodDays int, now time.Time) View {
	reference := ReferenceDate(d)
	due, source := d.SupplierReturnDueDate, DueDateStored
	if due == nil {
		due = DueDate(reference, periodDays)
		source = DueDateComputed
	}
	if due == nil {
		source = DueDateNone
	}
	return View{
		Code:                  d.Code,
		CompanyTaxID:          d.CompanyTaxID,
		Name:                  d.Name,
		Feature:               d.Feature,
		StockReceiptDate:      dateString(d.StockReceiptDate),
		IssueDate:             dateString(d.IssueDate),
		SupplierReturnDueDate: dateString(due),
		DueDateSource:         source,
		ReturnPeriodDays:      periodDays,
		Status:                d.Status,
		Classification:        Classify(reference, due, now),
	}
}
