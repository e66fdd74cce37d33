package companies

import (
	"time"
)

// Company represents a company holding drums. TaxID (NIP) is the business key.
type Company struct {
	TaxID          string     `json:"tax_id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	Address        string     `json:"address"`
	Status         string     `json:"status"`
	LastActivityAt *time.Time `json:"last_activity_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
