package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/hibiken/asynq"

	"github.com/drumtrack/drumtrack/internal/drums"
	jobmetrics "github.com/drumtrack/drumtrack/internal/jobs"
)

// DrumLister loads drums for a scan.
type DrumLister interface {
	List(ctx context.Context, filter drums.ListFilter) ([]drums.Drum, error)
}

// DrumEnricher classifies drums against the current return periods.
type DrumEnricher interface {
	EnrichAll(ctx context.Context, list []drums.Drum) ([]drums.View, error)
}

// OverdueScanJob counts drums per due-date category and reports overdue holders.
type OverdueScanJob struct {
	Drums    DrumLister
	Enricher DrumEnricher
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// OverdueScanResult summarises one scan.
type OverdueScanResult struct {
	Counts  map[drums.Category]int
	Holders []OverdueHolder
}

// OverdueHolder is a company with at least one overdue drum.
type OverdueHolder struct {
	CompanyTaxID string
	Drums        int
	MaxOverdue   int
}

var scanCategories = []string{
	string(drums.CategoryActive),
	string(drums.CategoryDueSoon),
	string(drums.CategoryOverdue),
}

// NewOverdueScanJob initialises the overdue scan handler.
func NewOverdueScanJob(lister DrumLister, enricher DrumEnricher, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueScanJob {
	return &OverdueScanJob{
		Drums:    lister,
		Enricher: enricher,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the scan for an Asynq task.
func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("overdue scan: handler not configured")
	}
	var payload OverdueScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run scans drums and publishes category gauges.
func (j *OverdueScanJob) Run(ctx context.Context, payload OverdueScanPayload) (result OverdueScanResult, resultErr error) {
	tracker := j.Metrics.Track(TaskDrumsOverdueScan)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	if j.Drums == nil || j.Enricher == nil {
		return OverdueScanResult{}, errors.New("overdue scan: dependencies not configured")
	}

	start := j.now()
	logger := j.logger()
	if payload.CompanyTaxID != "" {
		logger = logger.With(slog.String("company_tax_id", payload.CompanyTaxID))
	}
	logger.Info("starting overdue scan")

	list, err := j.Drums.List(ctx, drums.ListFilter{CompanyTaxID: payload.CompanyTaxID})
	if err != nil {
		logger.Error("load drums", slog.Any("error", err))
		return OverdueScanResult{}, err
	}
	views, err := j.Enricher.EnrichAll(ctx, list)
	if err != nil {
		logger.Error("classify drums", slog.Any("error", err))
		return OverdueScanResult{}, err
	}

	result = summarise(views)
	counts := make(map[string]int, len(result.Counts))
	for category, n := range result.Counts {
		counts[string(category)] = n
	}
	// A scoped scan sees only part of the fleet, so it leaves the gauges alone.
	if payload.CompanyTaxID == "" {
		j.Metrics.SetDrumCategories(scanCategories, counts, j.now())
	}

	for _, h := range result.Holders {
		logger.Warn("company holds overdue drums",
			slog.String("company_tax_id", h.CompanyTaxID),
			slog.Int("drums", h.Drums),
			slog.Int("max_days_overdue", h.MaxOverdue),
		)
	}
	logger.Info("completed overdue scan",
		slog.Int("drums", len(views)),
		slog.Int("active", result.Counts[drums.CategoryActive]),
		slog.Int("due_soon", result.Counts[drums.CategoryDueSoon]),
		slog.Int("overdue", result.Counts[drums.CategoryOverdue]),
		slog.Duration("duration", j.now().Sub(start)),
	)
	return result, nil
}

func summarise(views []drums.View) OverdueScanResult {
	result := OverdueScanResult{Counts: make(map[drums.Category]int, len(scanCategories))}
	holders := make(map[string]*OverdueHolder)
	for _, v := range views {
		c := v.Classification
		result.Counts[c.Category]++
		if c.Category != drums.CategoryOverdue {
			continue
		}
		h, ok := holders[v.CompanyTaxID]
		if !ok {
			h = &OverdueHolder{CompanyTaxID: v.CompanyTaxID}
			holders[v.CompanyTaxID] = h
		}
		h.Drums++
		if c.DaysOverdue > h.MaxOverdue {
			h.MaxOverdue = c.DaysOverdue
		}
	}
	for _, h := range holders {
		result.Holders = append(result.Holders, *h)
	}
	sort.Slice(result.Holders, func(a, b int) bool {
		if result.Holders[a].MaxOverdue != result.Holders[b].MaxOverdue {
			return result.Holders[a].MaxOverdue > result.Holders[b].MaxOverdue
		}
		return result.Holders[a].CompanyTaxID < result.Holders[b].CompanyTaxID
	})
	return result
}

func (j *OverdueScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *OverdueScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
