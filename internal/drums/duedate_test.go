package drums

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/drumtrack/drumtrack/internal/shared"
)

type fixedPeriods map[string]int

func (f fixedPeriods) ResolveDays(ctx context.Context, taxID string) (int, error) {
	if days, ok := f[taxID]; ok {
		return days, nil
	}
	return 85, nil
}

func TestComputeSupplierReturnDueDate(t *testing.T) {
	ctx := context.Background()
	calc := NewCalculator(fixedPeriods{"C90": 90})

	due, err := calc.ComputeSupplierReturnDueDate(ctx, nil, "C90")
	require.NoError(t, err)
	require.Nil(t, due)

	due, err = calc.ComputeSupplierReturnDueDate(ctx, datePtr(2025, time.January, 1), "C90")
	require.NoError(t, err)
	require.Equal(t, shared.Date(2025, time.April, 1), *due)

	due, err = calc.ComputeSupplierReturnDueDate(ctx, datePtr(2025, time.January, 1), "C1")
	require.NoError(t, err)
	require.Equal(t, shared.Date(2025, time.March, 27), *due)
}

func TestReferenceDatePrefersIssueDate(t *testing.T) {
	d := Drum{StockReceiptDate: datePtr(2025, time.January, 1), IssueDate: datePtr(2025, time.February, 1)}
	require.Equal(t, shared.Date(2025, time.February, 1), *ReferenceDate(d))

	d.IssueDate = nil
	require.Equal(t, shared.Date(2025, time.January, 1), *ReferenceDate(d))
}

func TestEnrichStoredDueDateWins(t *testing.T) {
	now := shared.Date(2025, time.March, 20)
	d := Drum{
		Code:                  "B11ELP/ELP",
		CompanyTaxID:          "C1",
		StockReceiptDate:      datePtr(2025, time.January, 1),
		SupplierReturnDueDate: datePtr(2025, time.March, 10),
	}
	v := Enrich(d, 85, now)
	require.Equal(t, DueDateStored, v.DueDateSource)
	require.Equal(t, "2025-03-10", *v.SupplierReturnDueDate)
	require.Equal(t, CategoryOverdue, v.Classification.Category)
	require.Equal(t, 10, v.Classification.DaysOverdue)

	d.SupplierReturnDueDate = nil
	v = Enrich(d, 85, now)
	require.Equal(t, DueDateComputed, v.DueDateSource)
	require.Equal(t, "2025-03-27", *v.SupplierReturnDueDate)
	require.Equal(t, CategoryDueSoon, v.Classification.Category)
	require.Equal(t, 7, *v.Classification.DaysUntilDue)

	d.StockReceiptDate = nil
	v = Enrich(d, 85, now)
	require.Equal(t, DueDateNone, v.DueDateSource)
	require.Nil(t, v.SupplierReturnDueDate)
	require.Equal(t, CategoryActive, v.Classification.Category)
}
