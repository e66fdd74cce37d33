package returns

// CreateRequest is the client payload for filing a return request.
type CreateRequest struct {
	Street             string   `json:"street" validate:"required,max=255"`
	PostalCode         string   `json:"postal_code" validate:"required,max=16"`
	City               string   `json:"city" validate:"required,max=128"`
	ContactEmail       string   `json:"contact_email" validate:"required,email,max=255"`
	LoadingHours       string   `json:"loading_hours" validate:"required,max=255"`
	AvailableEquipment string   `json:"available_equipment" validate:"max=255"`
	Notes              string   `json:"notes" validate:"max=2000"`
	CollectionDate     string   `json:"collection_date" validate:"required"`
	SelectedDrumCodes  []string `json:"selected_drum_codes" validate:"required,min=1,dive,required,max=64"`
}

// StatusRequest moves a request to a new status.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ListResponse wraps a request listing.
type ListResponse struct {
	Items []ReturnRequest `json:"items"`
}
