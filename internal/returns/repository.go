package returns

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drumtrack/drumtrack/internal/masterdata/companies"
	"github.com/drumtrack/drumtrack/internal/platform/db"
	"github.com/drumtrack/drumtrack/internal/shared"
)

// Repository persists return requests.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Insert(ctx context.Context, request ReturnRequest) (ReturnRequest, error)
	Get(ctx context.Context, id int64) (ReturnRequest, error)
	List(ctx context.Context, filter ListFilter) ([]ReturnRequest, error)
	// UpdateStatusIf applies the transition only while the stored status still
	// equals from. Otherwise it fails with a conflict.
	UpdateStatusIf(ctx context.Context, id int64, from, to Status, at time.Time) (ReturnRequest, error)
	TouchCompany(ctx context.Context, taxID string, at time.Time) error
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
	if db.IsSerializationFailure(err) {
		return shared.Conflict("return request was modified concurrently, retry")
	}
	return err
}

const requestColumns = `id, company_tax_id, street, postal_code, city, contact_email, loading_hours, available_equipment, notes, collection_date, selected_drum_codes, status, priority, created_at, updated_at`

func (r *repository) Insert(ctx context.Context, req ReturnRequest) (ReturnRequest, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO return_requests (company_tax_id, street, postal_code, city, contact_email, loading_hours, available_equipment, notes, collection_date, selected_drum_codes, status, priority, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
RETURNING `+requestColumns,
		req.CompanyTaxID, req.Street, req.PostalCode, req.City, req.ContactEmail, req.LoadingHours,
		nullableText(req.AvailableEquipment), nullableText(req.Notes),
		pgtype.Date{Time: req.CollectionDate, Valid: true}, req.SelectedDrumCodes,
		string(req.Status), string(req.Priority), req.CreatedAt)
	created, err := scanRequest(row)
	if db.IsForeignKeyViolation(err) {
		return ReturnRequest{}, shared.NotFound("company", req.CompanyTaxID)
	}
	if err != nil {
		return ReturnRequest{}, fmt.Errorf("returns: insert: %w", err)
	}
	return created, nil
}

func (r *repository) Get(ctx context.Context, id int64) (ReturnRequest, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM return_requests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ReturnRequest{}, shared.NotFound("return request", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return ReturnRequest{}, fmt.Errorf("returns: get: %w", err)
	}
	return req, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]ReturnRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM return_requests WHERE 1=1`
	args := []any{}
	if filter.CompanyTaxID != "" {
		args = append(args, filter.CompanyTaxID)
		query += ` AND company_tax_id = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("returns: list: %w", err)
	}
	defer rows.Close()

	var out []ReturnRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("returns: scan: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *repository) UpdateStatusIf(ctx context.Context, id int64, from, to Status, at time.Time) (ReturnRequest, error) {
	row := r.db.QueryRow(ctx, `UPDATE return_requests SET status = $3, updated_at = $4
WHERE id = $1 AND status = $2
RETURNING `+requestColumns, id, string(from), string(to), at)
	updated, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) || db.IsSerializationFailure(err) {
		return ReturnRequest{}, shared.Conflict("return request %d is no longer %s, retry", id, from)
	}
	if err != nil {
		return ReturnRequest{}, fmt.Errorf("returns: update status: %w", err)
	}
	return updated, nil
}

func (r *repository) TouchCompany(ctx context.Context, taxID string, at time.Time) error {
	return companies.TouchActivity(ctx, r.db, taxID, at)
}

func scanRequest(row pgx.Row) (ReturnRequest, error) {
	var (
		req              ReturnRequest
		equipment, notes pgtype.Text
		collection       pgtype.Date
		status, priority string
	)
	err := row.Scan(&req.ID, &req.CompanyTaxID, &req.Street, &req.PostalCode, &req.City, &req.ContactEmail, &req.LoadingHours,
		&equipment, &notes, &collection, &req.SelectedDrumCodes, &status, &priority, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return ReturnRequest{}, err
	}
	req.AvailableEquipment = equipment.String
	req.Notes = notes.String
	if collection.Valid {
		req.CollectionDate = shared.DateOf(collection.Time)
	}
	req.Status = Status(status)
	req.Priority = Priority(priority)
	return req, nil
}

func nullableText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
