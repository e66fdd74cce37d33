package shared

const (
	// Default pagination
	DefaultLimit = 25
	MaxLimit     = 500

	// Sort directions
	SortAsc  = "asc"
	SortDesc = "desc"

	// StatusActive is the default administrative status of companies and drums.
	StatusActive = "Active"
)
