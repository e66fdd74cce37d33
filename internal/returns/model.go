package returns

import (
	"encoding/json"
	"time"

	"github.com/drumtrack/drumtrack/internal/shared"
)

// Status is the lifecycle state of a return request.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusCompleted Status = "Completed"
	StatusRejected  Status = "Rejected"
)

// Priority is fixed at creation.
type Priority string

const (
	PriorityNormal Priority = "Normal"
	PriorityHigh   Priority = "High"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusCompleted},
}

// IsValid reports whether s is one of the four lifecycle states.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ReturnRequest asks the supplier to collect drums from a company.
type ReturnRequest struct {
	ID                 int64     `json:"id"`
	CompanyTaxID       string    `json:"company_tax_id"`
	Street             string    `json:"street"`
	PostalCode         string    `json:"postal_code"`
	City               string    `json:"city"`
	ContactEmail       string    `json:"contact_email"`
	LoadingHours       string    `json:"loading_hours"`
	AvailableEquipment string    `json:"available_equipment,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	CollectionDate     time.Time `json:"-"`
	SelectedDrumCodes  []string  `json:"selected_drum_codes"`
	Status             Status    `json:"status"`
	Priority           Priority  `json:"priority"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// MarshalJSON renders the collection date as a plain date.
func (r ReturnRequest) MarshalJSON() ([]byte, error) {
	type plain ReturnRequest
	return json.Marshal(struct {
		plain
		CollectionDate string `json:"collection_date"`
	}{plain: plain(r), CollectionDate: shared.FormatDate(&r.CollectionDate)})
}

// ListFilter narrows request listings.
type ListFilter struct {
	CompanyTaxID string
	Status       Status
}
