package companies

import (
	"context"
	"fmt"

	mdshared "github.com/drumtrack/drumtrack/internal/masterdata/shared"
	"github.com/drumtrack/drumtrack/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Company, int, error) {
	if filters.Limit > mdshared.MaxLimit {
		filters.Limit = mdshared.MaxLimit
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, taxID string) (Company, error) {
	taxID = NormalizeTaxID(taxID)
	if taxID == "" {
		return Company{}, shared.Validation("tax_id", "is required")
	}
	return s.repo.Get(ctx, taxID)
}

// Exists reports whether a company with taxID is registered.
func (s *Service) Exists(ctx context.Context, taxID string) (bool, error) {
	return s.repo.Exists(ctx, NormalizeTaxID(taxID))
}

func (s *Service) Create(ctx context.Context, form CompanyForm) (Company, error) {
	company, err := normalizeForm(form)
	if err != nil {
		return Company{}, err
	}
	created, err := s.repo.Create(ctx, company)
	if err != nil {
		return Company{}, fmt.Errorf("create company: %w", err)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, taxID string, form CompanyForm) (Company, error) {
	form.TaxID = taxID
	company, err := normalizeForm(form)
	if err != nil {
		return Company{}, err
	}
	updated, err := s.repo.Update(ctx, company)
	if err != nil {
		return Company{}, fmt.Errorf("update company: %w", err)
	}
	return updated, nil
}
