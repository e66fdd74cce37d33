package drums

import (
	"time"

	"github.com/drumtrack/drumtrack/internal/shared"
)

// Drum is a container held by a company.
type Drum struct {
	Code                  string
	CompanyTaxID          string
	Name                  string
	Feature               string
	StockReceiptDate      *time.Time
	IssueDate             *time.Time
	SupplierReturnDueDate *time.Time
	Status                string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Category is the computed due-date classification of a drum.
type Category string

const (
	CategoryActive  Category = "Active"
	CategoryDueSoon Category = "DueSoon"
	CategoryOverdue Category = "Overdue"
)

// DueSoonWindowDays is the inclusive upper bound of the DueSoon window.
const DueSoonWindowDays = 7

// Classification is derived live and never stored.
type Classification struct {
	Category         Category `json:"category"`
	DaysUntilDue     *int     `json:"days_until_due"`
	DaysOverdue      int      `json:"days_overdue"`
	DaysInPossession *int     `json:"days_in_possession"`
}

// DueDateSource tells whether the due date was stored or derived.
type DueDateSource string

const (
	DueDateStored   DueDateSource = "stored"
	DueDateComputed DueDateSource = "computed"
	DueDateNone     DueDateSource = "none"
)

// View is a drum enriched with its due date and classification.
type View struct {
	Code                  string         `json:"code"`
	CompanyTaxID          string         `json:"company_tax_id"`
	Name                  string         `json:"name"`
	Feature               string         `json:"feature"`
	StockReceiptDate      *string        `json:"stock_receipt_date"`
	IssueDate             *string        `json:"issue_date"`
	SupplierReturnDueDate *string        `json:"supplier_return_due_date"`
	DueDateSource         DueDateSource  `json:"due_date_source"`
	ReturnPeriodDays      int            `json:"return_period_days"`
	Status                string         `json:"status"`
	Classification        Classification `json:"classification"`
}

func dateString(d *time.Time) *string {
	if d == nil {
		return nil
	}
	s := shared.FormatDate(d)
	return &s
}
