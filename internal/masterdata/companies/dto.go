package companies

import "github.com/drumtrack/drumtrack/internal/shared"

// CompanyForm is the payload for creating or updating a company. On update the
// tax id comes from the URL.
type CompanyForm struct {
	TaxID   string `json:"tax_id" validate:"required,max=32"`
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"omitempty,email,max=255"`
	Phone   string `json:"phone" validate:"max=64"`
	Address string `json:"address" validate:"max=512"`
	Status  string `json:"status" validate:"max=64"`
}

// ListResponse is the paginated company listing.
type ListResponse struct {
	Items      []Company         `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}
