package returnperiod

import "time"

const (
	// DefaultDays applies to companies without an override.
	DefaultDays = 85
	// MinDays and MaxDays bound every stored override.
	MinDays = 1
	MaxDays = 365
)

// Override is a per-company return period.
type Override struct {
	CompanyTaxID string    `json:"company_tax_id"`
	CompanyName  string    `json:"company_name,omitempty"`
	Days         int       `json:"days"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Result describes the effective period of one company.
type Result struct {
	CompanyTaxID string `json:"company_tax_id"`
	Days         int    `json:"days"`
	IsDefault    bool   `json:"is_default"`
}

// ValidDays reports whether days may be stored as an override.
func ValidDays(days int) bool {
	return days >= MinDays && days <= MaxDays
}
