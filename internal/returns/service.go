package returns

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/drumtrack/drumtrack/internal/auth"
	"github.com/drumtrack/drumtrack/internal/drums"
	"github.com/drumtrack/drumtrack/internal/shared"
)

// DrumFinder returns the subset of codes owned by a company.
type DrumFinder interface {
	FindOwned(ctx context.Context, taxID string, codes []string) ([]drums.Drum, error)
}

// AuditPort records administrative mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Metrics observes lifecycle events. A nil Metrics is ignored.
type Metrics interface {
	ReturnRequestCreated(priority string)
	ReturnRequestTransitioned(from, to string)
}

// Option customises the Service.
type Option func(*Service)

// WithClock overrides the wall clock used for priority and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics attaches lifecycle metrics.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service implements the return request lifecycle.
type Service struct {
	repo    Repository
	drums   DrumFinder
	periods drums.PeriodResolver
	audit   AuditPort
	metrics Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the lifecycle service. audit may be nil.
func NewService(repo Repository, finder DrumFinder, periods drums.PeriodResolver, audit AuditPort, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, drums: finder, periods: periods, audit: audit, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create files a Pending request for the requester's company. Every selected
// drum must belong to that company or nothing is stored.
func (s *Service) Create(ctx context.Context, requester auth.Principal, req CreateRequest) (ReturnRequest, error) {
	if !requester.IsClient() || requester.CompanyTaxID == "" {
		return ReturnRequest{}, shared.Forbidden("only client accounts may file return requests")
	}
	req = trimCreate(req)
	if err := shared.ValidateStruct(req); err != nil {
		return ReturnRequest{}, err
	}
	collection, err := shared.ParseDate(req.CollectionDate)
	if err != nil || collection == nil {
		return ReturnRequest{}, shared.Validation("collection_date", "%q is not a valid date", req.CollectionDate)
	}
	if dup := firstDuplicate(req.SelectedDrumCodes); dup != "" {
		return ReturnRequest{}, shared.Validation("selected_drum_codes", "drum %s is selected more than once", dup)
	}

	owned, err := s.drums.FindOwned(ctx, requester.CompanyTaxID, req.SelectedDrumCodes)
	if err != nil {
		return ReturnRequest{}, fmt.Errorf("find owned drums: %w", err)
	}
	if missing := missingCodes(req.SelectedDrumCodes, owned); len(missing) > 0 {
		return ReturnRequest{}, shared.Validation("selected_drum_codes", "drums not held by company %s: %s", requester.CompanyTaxID, strings.Join(missing, ", "))
	}

	now := s.now()
	priority, err := s.priority(ctx, requester.CompanyTaxID, owned, now)
	if err != nil {
		return ReturnRequest{}, err
	}

	request := ReturnRequest{
		CompanyTaxID:       requester.CompanyTaxID,
		Street:             req.Street,
		PostalCode:         req.PostalCode,
		City:               req.City,
		ContactEmail:       req.ContactEmail,
		LoadingHours:       req.LoadingHours,
		AvailableEquipment: req.AvailableEquipment,
		Notes:              req.Notes,
		CollectionDate:     *collection,
		SelectedDrumCodes:  req.SelectedDrumCodes,
		Status:             StatusPending,
		Priority:           priority,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		created, err := repo.Insert(ctx, request)
		if err != nil {
			return fmt.Errorf("insert return request: %w", err)
		}
		request = created
		return repo.TouchCompany(ctx, requester.CompanyTaxID, now)
	})
	if err != nil {
		return ReturnRequest{}, err
	}

	if s.metrics != nil {
		s.metrics.ReturnRequestCreated(string(request.Priority))
	}
	return request, nil
}

// UpdateStatus moves a request along the lifecycle. A concurrent transition
// of the same request makes the loser fail with a conflict.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Principal, id int64, next Status) (ReturnRequest, error) {
	if !actor.IsAdministrative() {
		return ReturnRequest{}, shared.Forbidden("only administrators may change request status")
	}

	var (
		updated ReturnRequest
		from    Status
	)
	now := s.now()
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		current, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !next.IsValid() {
			return shared.Validation("status", "must be one of Pending Approved Completed Rejected")
		}
		if !current.Status.CanTransitionTo(next) {
			return shared.InvalidTransition(string(current.Status), string(next))
		}
		from = current.Status
		updated, err = repo.UpdateStatusIf(ctx, id, current.Status, next, now)
		if err != nil {
			return err
		}
		return repo.TouchCompany(ctx, current.CompanyTaxID, now)
	})
	if err != nil {
		return ReturnRequest{}, err
	}

	if s.metrics != nil {
		s.metrics.ReturnRequestTransitioned(string(from), string(next))
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.UserID,
			Action:   "return_request.status",
			Entity:   "return_request",
			EntityID: fmt.Sprint(id),
			Meta:     map[string]any{"from": from, "to": next},
		})
		if err != nil {
			s.logger.Warn("audit return request status", slog.Int64("id", id), slog.Any("error", err))
		}
	}
	return updated, nil
}

// List returns requests newest first. Clients only ever see their own
// company, whatever filter they pass.
func (s *Service) List(ctx context.Context, requester auth.Principal, filter ListFilter) ([]ReturnRequest, error) {
	switch {
	case requester.IsClient():
		if requester.CompanyTaxID == "" {
			return nil, shared.Forbidden("client account has no company")
		}
		filter.CompanyTaxID = requester.CompanyTaxID
	case requester.IsAdministrative():
	default:
		return nil, shared.Forbidden("role %s may not list return requests", requester.Role)
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, shared.Validation("status", "must be one of Pending Approved Completed Rejected")
	}
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list return requests: %w", err)
	}
	return list, nil
}

// Get returns one request. Requests of other companies look absent to clients.
func (s *Service) Get(ctx context.Context, requester auth.Principal, id int64) (ReturnRequest, error) {
	if !requester.IsClient() && !requester.IsAdministrative() {
		return ReturnRequest{}, shared.Forbidden("role %s may not view return requests", requester.Role)
	}
	request, err := s.repo.Get(ctx, id)
	if err != nil {
		return ReturnRequest{}, err
	}
	if requester.IsClient() && request.CompanyTaxID != requester.CompanyTaxID {
		return ReturnRequest{}, shared.NotFound("return request", fmt.Sprint(id))
	}
	return request, nil
}

func (s *Service) priority(ctx context.Context, taxID string, owned []drums.Drum, now time.Time) (Priority, error) {
	days, err := s.periods.ResolveDays(ctx, taxID)
	if err != nil {
		return "", err
	}
	for _, d := range owned {
		if drums.Enrich(d, days, now).Classification.Category == drums.CategoryOverdue {
			return PriorityHigh, nil
		}
	}
	return PriorityNormal, nil
}

func trimCreate(req CreateRequest) CreateRequest {
	req.Street = strings.TrimSpace(req.Street)
	req.PostalCode = strings.TrimSpace(req.PostalCode)
	req.City = strings.TrimSpace(req.City)
	req.ContactEmail = strings.TrimSpace(req.ContactEmail)
	req.LoadingHours = strings.TrimSpace(req.LoadingHours)
	req.AvailableEquipment = strings.TrimSpace(req.AvailableEquipment)
	req.Notes = strings.TrimSpace(req.Notes)
	req.CollectionDate = strings.TrimSpace(req.CollectionDate)
	if req.SelectedDrumCodes != nil {
		codes := make([]string, len(req.SelectedDrumCodes))
		for i, code := range req.SelectedDrumCodes {
			codes[i] = strings.TrimSpace(code)
		}
		req.SelectedDrumCodes = codes
	}
	return req
}

func firstDuplicate(codes []string) string {
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if _, ok := seen[code]; ok {
			return code
		}
		seen[code] = struct{}{}
	}
	return ""
}

func missingCodes(requested []string, owned []drums.Drum) []string {
	held := make(map[string]struct{}, len(owned))
	for _, d := range owned {
		held[d.Code] = struct{}{}
	}
	var missing []string
	for _, code := range requested {
		if _, ok := held[code]; !ok {
			missing = append(missing, code)
		}
	}
	sort.Strings(missing)
	return missing
}
