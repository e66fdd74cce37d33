package drums

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/drumtrack/drumtrack/internal/auth"
	"github.com/drumtrack/drumtrack/internal/masterdata/companies"
	mdshared "github.com/drumtrack/drumtrack/internal/masterdata/shared"
	"github.com/drumtrack/drumtrack/internal/returnperiod"
	"github.com/drumtrack/drumtrack/internal/shared"
)

// PeriodSnapshotter takes one read of all overrides for multi-company listings.
type PeriodSnapshotter interface {
	PeriodResolver
	Snapshot(ctx context.Context) (returnperiod.Periods, error)
}

// CompanyChecker validates company existence.
type CompanyChecker interface {
	Exists(ctx context.Context, taxID string) (bool, error)
}

// AuditPort records administrative mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Option customises the Service.
type Option func(*Service)

// WithClock overrides the wall clock used for classification.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service exposes drum listings and administration.
type Service struct {
	repo       Repository
	periods    PeriodSnapshotter
	calculator *Calculator
	companies  CompanyChecker
	audit      AuditPort
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs the service. audit may be nil.
func NewService(repo Repository, periods PeriodSnapshotter, companies CompanyChecker, audit AuditPort, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:       repo,
		periods:    periods,
		calculator: NewCalculator(periods),
		companies:  companies,
		audit:      audit,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DueDatePreview is the due date a drum handed over on Reference would get.
type DueDatePreview struct {
	CompanyTaxID string  `json:"company_tax_id"`
	Reference    string  `json:"reference_date"`
	DueDate      *string `json:"supplier_return_due_date"`
}

// PreviewDueDate computes the supplier return due date for a company and a
// reference date without touching any drum.
func (s *Service) PreviewDueDate(ctx context.Context, actor auth.Principal, taxID, reference string) (DueDatePreview, error) {
	if !actor.IsAdministrative() {
		return DueDatePreview{}, shared.Forbidden("only administrators may preview due dates")
	}
	taxID = companies.NormalizeTaxID(taxID)
	if taxID == "" {
		return DueDatePreview{}, shared.Validation("company_tax_id", "is required")
	}
	ref, err := parseDateField("reference_date", reference)
	if err != nil {
		return DueDatePreview{}, err
	}
	if ref == nil {
		return DueDatePreview{}, shared.Validation("reference_date", "is required")
	}
	due, err := s.calculator.ComputeSupplierReturnDueDate(ctx, ref, taxID)
	if err != nil {
		return DueDatePreview{}, fmt.Errorf("compute due date: %w", err)
	}
	return DueDatePreview{CompanyTaxID: taxID, Reference: shared.FormatDate(ref), DueDate: dateString(due)}, nil
}

// ListOwn returns the client's drums enriched with due dates.
func (s *Service) ListOwn(ctx context.Context, actor auth.Principal) ([]View, error) {
	if !actor.IsClient() || actor.CompanyTaxID == "" {
		return nil, shared.Forbidden("only client accounts own drums")
	}
	list, err := s.repo.List(ctx, ListFilter{CompanyTaxID: actor.CompanyTaxID})
	if err != nil {
		return nil, fmt.Errorf("list own drums: %w", err)
	}
	days, err := s.periods.ResolveDays(ctx, actor.CompanyTaxID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]View, 0, len(list))
	for _, d := range list {
		views = append(views, Enrich(d, days, now))
	}
	return views, nil
}

// ListAll returns drums across companies. Category narrows the result after
// classification.
func (s *Service) ListAll(ctx context.Context, actor auth.Principal, filter ListFilter, category Category) ([]View, error) {
	if !actor.IsAdministrative() {
		return nil, shared.Forbidden("only administrators may list all drums")
	}
	if category != "" && !category.IsValid() {
		return nil, shared.Validation("category", "must be one of Active DueSoon Overdue")
	}
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list drums: %w", err)
	}
	return s.enrichAll(ctx, list, category)
}

// EnrichAll classifies drums of any company against the service clock.
func (s *Service) EnrichAll(ctx context.Context, list []Drum) ([]View, error) {
	return s.enrichAll(ctx, list, "")
}

func (s *Service) enrichAll(ctx context.Context, list []Drum, category Category) ([]View, error) {
	periods, err := s.periods.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]View, 0, len(list))
	for _, d := range list {
		v := Enrich(d, periods.Days(d.CompanyTaxID), now)
		if category != "" && v.Classification.Category != category {
			continue
		}
		views = append(views, v)
	}
	return views, nil
}

// Create registers a drum manually. The company must exist.
func (s *Service) Create(ctx context.Context, actor auth.Principal, form DrumForm) (View, error) {
	if !actor.IsAdministrative() {
		return View{}, shared.Forbidden("only administrators may register drums")
	}
	d, err := form.toDrum()
	if err != nil {
		return View{}, err
	}
	exists, err := s.companies.Exists(ctx, d.CompanyTaxID)
	if err != nil {
		return View{}, fmt.Errorf("check company: %w", err)
	}
	if !exists {
		return View{}, shared.NotFound("company", d.CompanyTaxID)
	}
	created, err := s.repo.Create(ctx, d)
	if err != nil {
		return View{}, err
	}
	s.record(ctx, actor, "drum.create", created.Code, map[string]any{"company_tax_id": created.CompanyTaxID})
	days, err := s.periods.ResolveDays(ctx, created.CompanyTaxID)
	if err != nil {
		return View{}, err
	}
	return Enrich(created, days, s.now()), nil
}

// UpdateStatus changes the administrative status label of a drum.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Principal, code, status string) (View, error) {
	if !actor.IsAdministrative() {
		return View{}, shared.Forbidden("only administrators may change drum status")
	}
	status = strings.TrimSpace(status)
	if status == "" {
		return View{}, shared.Validation("status", "is required")
	}
	updated, err := s.repo.UpdateStatus(ctx, code, status)
	if err != nil {
		return View{}, err
	}
	s.record(ctx, actor, "drum.status", code, map[string]any{"status": status})
	days, err := s.periods.ResolveDays(ctx, updated.CompanyTaxID)
	if err != nil {
		return View{}, err
	}
	return Enrich(updated, days, s.now()), nil
}

// Import normalizes raw records and upserts them, creating unknown companies.
func (s *Service) Import(ctx context.Context, actor auth.Principal, records []map[string]any) (ImportResult, error) {
	if !actor.IsAdministrative() {
		return ImportResult{}, shared.Forbidden("only administrators may import drums")
	}
	rows, err := NormalizeImportRows(records)
	if err != nil {
		return ImportResult{}, err
	}
	result, err := s.repo.Import(ctx, rows)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import drums: %w", err)
	}
	s.record(ctx, actor, "drum.import", "batch", map[string]any{"drums": result.Drums, "companies_created": result.CompaniesCreated})
	return result, nil
}

func (s *Service) record(ctx context.Context, actor auth.Principal, action, code string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID, Action: action, Entity: "drum", EntityID: code, Meta: meta}); err != nil {
		s.logger.Warn("audit drum change", slog.String("action", action), slog.String("drum", code), slog.Any("error", err))
	}
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryActive, CategoryDueSoon, CategoryOverdue:
		return true
	}
	return false
}

// DrumForm is the manual registration payload.
type DrumForm struct {
	Code                  string `json:"code" validate:"required,max=64"`
	CompanyTaxID          string `json:"company_tax_id" validate:"required,max=32"`
	Name                  string `json:"name" validate:"max=255"`
	Feature               string `json:"feature" validate:"max=255"`
	StockReceiptDate      string `json:"stock_receipt_date"`
	IssueDate             string `json:"issue_date"`
	SupplierReturnDueDate string `json:"supplier_return_due_date"`
	Status                string `json:"status" validate:"max=64"`
}

func (f DrumForm) toDrum() (Drum, error) {
	f.Code = strings.TrimSpace(f.Code)
	f.CompanyTaxID = companies.NormalizeTaxID(f.CompanyTaxID)
	if err := shared.ValidateStruct(f); err != nil {
		return Drum{}, err
	}
	d := Drum{
		Code:         f.Code,
		CompanyTaxID: f.CompanyTaxID,
		Name:         strings.TrimSpace(f.Name),
		Feature:      strings.TrimSpace(f.Feature),
		Status:       strings.TrimSpace(f.Status),
	}
	if d.Status == "" {
		d.Status = mdshared.StatusActive
	}
	var err error
	if d.StockReceiptDate, err = parseDateField("stock_receipt_date", f.StockReceiptDate); err != nil {
		return Drum{}, err
	}
	if d.IssueDate, err = parseDateField("issue_date", f.IssueDate); err != nil {
		return Drum{}, err
	}
	if d.SupplierReturnDueDate, err = parseDateField("supplier_return_due_date", f.SupplierReturnDueDate); err != nil {
		return Drum{}, err
	}
	return d, nil
}

func parseDateField(field, raw string) (*time.Time, error) {
	d, err := shared.ParseDate(raw)
	if err != nil {
		return nil, shared.Validation(field, "%q is not a valid date", raw)
	}
	return d, nil
}
