package companies

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

	mdshared "github.com/drumtrack/drumtrack/internal/masterdata/shared"
	"github.com/drumtrack/drumtrack/internal/platform/db"
	"github.com/drumtrack/drumtrack/internal/shared"
)

// Repository persists companies.
type Repository interface {
	List(ctx context.Context, filters mdshared.ListFilters) ([]Company, int, error)
	Get(ctx context.Context, taxID string) (Company, error)
	Exists(ctx context.Context, taxID string) (bool, error)
	Create(ctx context.Context, company Company) (Company, error)
	Update(ctx context.Context, company Company) (Company, error)
}

// Execer is satisfied by *pgxpool.Pool and pgx.Tx so helpers can join an
// enclosing transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const companyColumns = `tax_id, name, email, phone, address, status, last_activity_at, created_at, updated_at`

// List uses a dynamic query due to filter complexity.
func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Company, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (name ILIKE $` + n + ` OR tax_id ILIKE $` + n + `)`
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM companies`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("companies: count: %w", err)
	}

	query := `SELECT ` + companyColumns + ` FROM companies` + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	if filters.Limit > 0 {
		args = append(args, filters.Limit, filters.Offset())
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("companies: list: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, 0, err
		}
		companies = append(companies, c)
	}
	return companies, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, taxID string) (Company, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE tax_id = $1`, taxID)
	c, err := scanCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, shared.NotFound("company", taxID)
	}
	return c, err
}

func (r *repository) Exists(ctx context.Context, taxID string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM companies WHERE tax_id = $1)`, taxID).Scan(&exists); err != nil {
		return false, fmt.Errorf("companies: exists: %w", err)
	}
	return exists, nil
}

func (r *repository) Create(ctx context.Context, company Company) (Company, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO companies (tax_id, name, email, phone, address, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+companyColumns, company.TaxID, company.Name, company.Email, company.Phone, company.Address, company.Status)
	created, err := scanCompany(row)
	if db.IsUniqueViolation(err) {
		return Company{}, shared.Validation("tax_id", "company %s already exists", company.TaxID)
	}
	return created, err
}

func (r *repository) Update(ctx context.Context, company Company) (Company, error) {
	row := r.pool.QueryRow(ctx, `UPDATE companies SET name = $2, email = $3, phone = $4, address = $5, status = $6, updated_at = NOW()
WHERE tax_id = $1
RETURNING `+companyColumns, company.TaxID, company.Name, company.Email, company.Phone, company.Address, company.Status)
	updated, err := scanCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, shared.NotFound("company", company.TaxID)
	}
	return updated, err
}

// TouchActivity records activity on a company. It runs on q so callers can
// keep it inside their transaction.
func TouchActivity(ctx context.Context, q Execer, taxID string, at time.Time) error {
	tag, err := q.Exec(ctx, `UPDATE companies SET last_activity_at = $2 WHERE tax_id = $1`, taxID, at)
	if err != nil {
		return fmt.Errorf("companies: touch activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("company", taxID)
	}
	return nil
}

// Ensure creates a minimal company row when taxID is unknown. Existing rows
// are left untouched.
func Ensure(ctx context.Context, q Execer, taxID, name string) (bool, error) {
	if name == "" {
		name = taxID
	}
	tag, err := q.Exec(ctx, `INSERT INTO companies (tax_id, name, status) VALUES ($1, $2, $3) ON CONFLICT (tax_id) DO NOTHING`, taxID, name, mdshared.StatusActive)
	if err != nil {
		return false, fmt.Errorf("companies: ensure: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanCompany(row pgx.Row) (Company, error) {
	var (
		c            Company
		lastActivity pgtype.Timestamptz
	)
	if err := row.Scan(&c.TaxID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Status, &lastActivity, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Company{}, err
	}
	if lastActivity.Valid {
		at := lastActivity.Time
		c.LastActivityAt = &at
	}
	return c, nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == mdshared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "tax_id":
		return "tax_id " + dir
	case "last_activity_at":
		return "last_activity_at " + dir + " NULLS LAST, tax_id"
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir + ", tax_id"
	}
}
