package drums

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drumtrack/drumtrack/internal/masterdata/companies"
	"github.com/drumtrack/drumtrack/internal/platform/db"
	"github.com/drumtrack/drumtrack/internal/shared"
)

// ListFilter narrows drum listings.
type ListFilter struct {
	CompanyTaxID string
	Status       string
	Search       string
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	Drums            int `json:"drums"`
	CompaniesCreated int `json:"companies_created"`
}

// Repository persists drums.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Drum, error)
	Get(ctx context.Context, code string) (Drum, error)
	FindOwned(ctx context.Context, taxID string, codes []string) ([]Drum, error)
	Create(ctx context.Context, drum Drum) (Drum, error)
	UpdateStatus(ctx context.Context, code, status string) (Drum, error)
	Import(ctx context.Context, rows []ImportRow) (ImportResult, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const drumColumns = `code, company_tax_id, name, feature, stock_receipt_date, issue_date, supplier_return_due_date, status, created_at, updated_at`

func (r *pgRepository) List(ctx context.Context, filter ListFilter) ([]Drum, error) {
	query := `SELECT ` + drumColumns + ` FROM drums WHERE 1=1`
	args := []any{}
	if filter.CompanyTaxID != "" {
		args = append(args, filter.CompanyTaxID)
		query += ` AND company_tax_id = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (code ILIKE $` + n + ` OR name ILIKE $` + n + `)`
	}
	query += ` ORDER BY company_tax_id, code`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("drums: list: %w", err)
	}
	return collectDrums(rows)
}

func (r *pgRepository) Get(ctx context.Context, code string) (Drum, error) {
	d, err := scanDrum(r.pool.QueryRow(ctx, `SELECT `+drumColumns+` FROM drums WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return Drum{}, shared.NotFound("drum", code)
	}
	if err != nil {
		return Drum{}, fmt.Errorf("drums: get: %w", err)
	}
	return d, nil
}

func (r *pgRepository) FindOwned(ctx context.Context, taxID string, codes []string) ([]Drum, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+drumColumns+` FROM drums WHERE company_tax_id = $1 AND code = ANY($2) ORDER BY code`, taxID, codes)
	if err != nil {
		return nil, fmt.Errorf("drums: find owned: %w", err)
	}
	return collectDrums(rows)
}

func (r *pgRepository) Create(ctx context.Context, d Drum) (Drum, error) {
	created, err := scanDrum(r.pool.QueryRow(ctx, `INSERT INTO drums (code, company_tax_id, name, feature, stock_receipt_date, issue_date, supplier_return_due_date, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+drumColumns,
		d.Code, d.CompanyTaxID, d.Name, d.Feature, dateParam(d.StockReceiptDate), dateParam(d.IssueDate), dateParam(d.SupplierReturnDueDate), d.Status))
	switch {
	case db.IsUniqueViolation(err):
		return Drum{}, shared.Validation("code", "drum %s already exists", d.Code)
	case db.IsForeignKeyViolation(err):
		return Drum{}, shared.NotFound("company", d.CompanyTaxID)
	case err != nil:
		return Drum{}, fmt.Errorf("drums: create: %w", err)
	}
	return created, nil
}

func (r *pgRepository) UpdateStatus(ctx context.Context, code, status string) (Drum, error) {
	d, err := scanDrum(r.pool.QueryRow(ctx, `UPDATE drums SET status = $2, updated_at = NOW() WHERE code = $1 RETURNING `+drumColumns, code, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return Drum{}, shared.NotFound("drum", code)
	}
	if err != nil {
		return Drum{}, fmt.Errorf("drums: update status: %w", err)
	}
	return d, nil
}

// Import creates missing companies and upserts drums in one transaction.
func (r *pgRepository) Import(ctx context.Context, rows []ImportRow) (ImportResult, error) {
	var result ImportResult
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		seen := make(map[string]struct{})
		for _, row := range rows {
			taxID := row.Drum.CompanyTaxID
			if _, ok := seen[taxID]; ok {
				continue
			}
			seen[taxID] = struct{}{}
			created, err := companies.Ensure(ctx, tx, taxID, row.CompanyName)
			if err != nil {
				return err
			}
			if created {
				result.CompaniesCreated++
			}
		}

		batch := &pgx.Batch{}
		for _, row := range rows {
			d := row.Drum
			batch.Queue(`INSERT INTO drums (code, company_tax_id, name, feature, stock_receipt_date, issue_date, supplier_return_due_date, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (code) DO UPDATE SET
	company_tax_id = EXCLUDED.company_tax_id,
	name = EXCLUDED.name,
	feature = EXCLUDED.feature,
	stock_receipt_date = EXCLUDED.stock_receipt_date,
	issue_date = EXCLUDED.issue_date,
	supplier_return_due_date = EXCLUDED.supplier_return_due_date,
	status = EXCLUDED.status,
	updated_at = NOW()`,
				d.Code, d.CompanyTaxID, d.Name, d.Feature, dateParam(d.StockReceiptDate), dateParam(d.IssueDate), dateParam(d.SupplierReturnDueDate), d.Status)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("drums: upsert batch: %w", err)
		}
		result.Drums = len(rows)
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return result, nil
}

func collectDrums(rows pgx.Rows) ([]Drum, error) {
	defer rows.Close()
	var out []Drum
	for rows.Next() {
		d, err := scanDrum(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDrum(row pgx.Row) (Drum, error) {
	var (
		d                      Drum
		receipt, issue, dueRaw pgtype.Date
	)
	if err := row.Scan(&d.Code, &d.CompanyTaxID, &d.Name, &d.Feature, &receipt, &issue, &dueRaw, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return Drum{}, err
	}
	d.StockReceiptDate = dateValue(receipt)
	d.IssueDate = dateValue(issue)
	d.SupplierReturnDueDate = dateValue(dueRaw)
	return d, nil
}

func dateValue(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	t := shared.DateOf(d.Time)
	return &t
}

func dateParam(d *time.Time) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: shared.DateOf(*d), Valid: true}
}
