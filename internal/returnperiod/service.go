package returnperiod

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/drumtrack/drumtrack/internal/auth"
	"github.com/drumtrack/drumtrack/internal/shared"
)

// Store persists overrides as a key-value table keyed by company tax id.
type Store interface {
	OverrideReader
	PutOverride(ctx context.Context, taxID string, days int) error
	ClearOverride(ctx context.Context, taxID string) error
}

// CompanyChecker validates company existence on the write path.
type CompanyChecker interface {
	Exists(ctx context.Context, taxID string) (bool, error)
}

// AuditPort records administrative mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages per-company return periods.
type Service struct {
	store     Store
	resolver  *Resolver
	companies CompanyChecker
	audit     AuditPort
	logger    *slog.Logger
}

// NewService constructs the service. audit may be nil.
func NewService(store Store, resolver *Resolver, companies CompanyChecker, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, resolver: resolver, companies: companies, audit: audit, logger: logger}
}

// Resolver exposes the read side used for due-date computation.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// SetReturnPeriod stores days for the company. Setting the default removes the
// override instead of storing it.
func (s *Service) SetReturnPeriod(ctx context.Context, actor auth.Principal, taxID string, days int) (Result, error) {
	if !actor.IsAdministrative() {
		return Result{}, shared.Forbidden("only administrators may change return periods")
	}
	if !ValidDays(days) {
		return Result{}, shared.Validation("days", "must be an integer between %d and %d", MinDays, MaxDays)
	}
	if err := s.ensureCompany(ctx, taxID); err != nil {
		return Result{}, err
	}

	if days == s.resolver.DefaultDays() {
		if err := s.store.ClearOverride(ctx, taxID); err != nil {
			return Result{}, fmt.Errorf("clear return period: %w", err)
		}
		s.record(ctx, actor, "return_period.reset", taxID, days)
		return Result{CompanyTaxID: taxID, Days: days, IsDefault: true}, nil
	}

	if err := s.store.PutOverride(ctx, taxID, days); err != nil {
		return Result{}, fmt.Errorf("put return period: %w", err)
	}
	s.record(ctx, actor, "return_period.set", taxID, days)
	return Result{CompanyTaxID: taxID, Days: days, IsDefault: false}, nil
}

// ResetReturnPeriod restores the default for the company.
func (s *Service) ResetReturnPeriod(ctx context.Context, actor auth.Principal, taxID string) (Result, error) {
	return s.SetReturnPeriod(ctx, actor, taxID, s.resolver.DefaultDays())
}

// GetReturnPeriod returns the effective period of one company.
func (s *Service) GetReturnPeriod(ctx context.Context, actor auth.Principal, taxID string) (Result, error) {
	if !actor.IsAdministrative() {
		return Result{}, shared.Forbidden("only administrators may view return periods")
	}
	if err := s.ensureCompany(ctx, taxID); err != nil {
		return Result{}, err
	}
	days, found, err := s.store.GetOverride(ctx, taxID)
	if err != nil {
		return Result{}, fmt.Errorf("get return period: %w", err)
	}
	if !found {
		return Result{CompanyTaxID: taxID, Days: s.resolver.DefaultDays(), IsDefault: true}, nil
	}
	return Result{CompanyTaxID: taxID, Days: days}, nil
}

// ListOverrides returns every stored override.
func (s *Service) ListOverrides(ctx context.Context, actor auth.Principal) ([]Override, error) {
	if !actor.IsAdministrative() {
		return nil, shared.Forbidden("only administrators may view return periods")
	}
	overrides, err := s.store.ListOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("list return periods: %w", err)
	}
	return overrides, nil
}

func (s *Service) ensureCompany(ctx context.Context, taxID string) error {
	if taxID == "" {
		return shared.Validation("company_tax_id", "is required")
	}
	exists, err := s.companies.Exists(ctx, taxID)
	if err != nil {
		return fmt.Errorf("check company: %w", err)
	}
	if !exists {
		return shared.NotFound("company", taxID)
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor auth.Principal, action, taxID string, days int) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "company",
		EntityID: taxID,
		Meta:     map[string]any{"days": days},
	})
	if err != nil {
		s.logger.Warn("audit return period change", slog.String("company", taxID), slog.Int("days", days), slog.Any("error", err))
	}
}
