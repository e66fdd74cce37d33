package returnperiod

import (
	"context"
	"fmt"
)

// OverrideReader is the read side of the override store.
type OverrideReader interface {
	GetOverride(ctx context.Context, taxID string) (days int, found bool, err error)
	ListOverrides(ctx context.Context) ([]Override, error)
}

// Resolver answers how many days a company may keep a drum.
type Resolver struct {
	store       OverrideReader
	defaultDays int
}

// NewResolver builds a Resolver. An out-of-range default falls back to DefaultDays.
func NewResolver(store OverrideReader, defaultDays int) *Resolver {
	if !ValidDays(defaultDays) {
		defaultDays = DefaultDays
	}
	return &Resolver{store: store, defaultDays: defaultDays}
}

// DefaultDays returns the configured system default.
func (r *Resolver) DefaultDays() int {
	return r.defaultDays
}

// ResolveDays returns the override for taxID or the default. Unknown companies
// get the default.
func (r *Resolver) ResolveDays(ctx context.Context, taxID string) (int, error) {
	days, found, err := r.store.GetOverride(ctx, taxID)
	if err != nil {
		return 0, fmt.Errorf("resolve return period: %w", err)
	}
	if !found {
		return r.defaultDays, nil
	}
	return days, nil
}

// Snapshot reads every override once. The result must not outlive the
// request it was taken for.
func (r *Resolver) Snapshot(ctx context.Context) (Periods, error) {
	overrides, err := r.store.ListOverrides(ctx)
	if err != nil {
		return Periods{}, fmt.Errorf("snapshot return periods: %w", err)
	}
	byCompany := make(map[string]int, len(overrides))
	for _, o := range overrides {
		byCompany[o.CompanyTaxID] = o.Days
	}
	return NewPeriods(r.defaultDays, byCompany), nil
}

// Periods is an in-memory view of the override table.
type Periods struct {
	defaultDays int
	overrides   map[string]int
}

// NewPeriods builds a Periods view.
func NewPeriods(defaultDays int, overrides map[string]int) Periods {
	if !ValidDays(defaultDays) {
		defaultDays = DefaultDays
	}
	return Periods{defaultDays: defaultDays, overrides: overrides}
}

// Days returns the effective period for taxID.
func (p Periods) Days(taxID string) int {
	if days, ok := p.overrides[taxID]; ok {
		return days
	}
	if p.defaultDays == 0 {
		return DefaultDays
	}
	return p.defaultDays
}
