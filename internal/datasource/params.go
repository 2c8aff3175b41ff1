package datasource

// DataSourceParameters is what every data-source operation receives: the
// eager-load directive naming an include tree ("none" disables loading).
type DataSourceParameters struct {
	Includes string `json:"includes"`
	// DataSource names an alternate data source; empty or unrecognized
	// selects the standard one. Resolution happens at the handler layer.
	DataSource string `json:"dataSource"`
}

// FilterParameters adds field filters and the free-text search term.
type FilterParameters struct {
	DataSourceParameters

	// Filter maps property wire-names to raw filter strings, possibly
	// comma-separated for multi-value matches.
	Filter map[string]string `json:"filters"`
	Search string            `json:"search"`
}

// ListParameters adds sorting and paging on top of filtering.
type ListParameters struct {
	FilterParameters

	// Page is 1-based.
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`

	OrderBy           string `json:"orderBy"`
	OrderByDescending string `json:"orderByDescending"`
}
