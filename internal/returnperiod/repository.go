package returnperiod

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drumtrack/drumtrack/internal/platform/db"
	"github.com/drumtrack/drumtrack/internal/shared"
)

// PGStore stores overrides in return_period_overrides.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a PostgreSQL backed Store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) GetOverride(ctx context.Context, taxID string) (int, bool, error) {
	var days int
	err := s.pool.QueryRow(ctx, `SELECT days FROM return_period_overrides WHERE company_tax_id = $1`, taxID).Scan(&days)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("returnperiod: get override: %w", err)
	}
	return days, true, nil
}

func (s *PGStore) ListOverrides(ctx context.Context) ([]Override, error) {
	rows, err := s.pool.Query(ctx, `SELECT o.company_tax_id, COALESCE(c.name, ''), o.days, o.updated_at
FROM return_period_overrides o
LEFT JOIN companies c ON c.tax_id = o.company_tax_id
ORDER BY o.company_tax_id`)
	if err != nil {
		return nil, fmt.Errorf("returnperiod: list overrides: %w", err)
	}
	defer rows.Close()

	var out []Override
	for rows.Next() {
		var o Override
		if err := rows.Scan(&o.CompanyTaxID, &o.CompanyName, &o.Days, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("returnperiod: scan override: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// PutOverride upserts the override. Concurrent writers resolve last-write-wins.
func (s *PGStore) PutOverride(ctx context.Context, taxID string, days int) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO return_period_overrides (company_tax_id, days, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (company_tax_id) DO UPDATE SET days = EXCLUDED.days, updated_at = EXCLUDED.updated_at`, taxID, days)
	if db.IsForeignKeyViolation(err) {
		return shared.NotFound("company", taxID)
	}
	if err != nil {
		return fmt.Errorf("returnperiod: put override: %w", err)
	}
	return nil
}

// ClearOverride deletes the override. Missing rows are not an error.
func (s *PGStore) ClearOverride(ctx context.Context, taxID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM return_period_overrides WHERE company_tax_id = $1`, taxID); err != nil {
		return fmt.Errorf("returnperiod: clear override: %w", err)
	}
	return nil
}
