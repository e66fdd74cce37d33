package companies

import (
	"strings"

	mdshared "github.com/drumtrack/drumtrack/internal/masterdata/shared"
	"github.com/drumtrack/drumtrack/internal/shared"
)

// NormalizeTaxID strips separators commonly typed into a NIP ("123-456-78-90").
func NormalizeTaxID(raw string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
}

func normalizeForm(form CompanyForm) (Company, error) {
	form.TaxID = NormalizeTaxID(form.TaxID)
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	form.Phone = strings.TrimSpace(form.Phone)
	form.Address = strings.TrimSpace(form.Address)
	form.Status = strings.TrimSpace(form.Status)
	if err := shared.ValidateStruct(form); err != nil {
		return Company{}, err
	}
	if form.Status == "" {
		form.Status = mdshared.StatusActive
	}
	return Company{
		TaxID:   form.TaxID,
		Name:    form.Name,
		Email:   form.Email,
		Phone:   form.Phone,
		Address: form.Address,
		Status:  form.Status,
	}, nil
}
