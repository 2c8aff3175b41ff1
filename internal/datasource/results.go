package datasource

// ListResult is the envelope for a paged list: the page of wire-shaped
// items plus paging totals computed before LIMIT/OFFSET.
type ListResult struct {
	WasSuccessful bool   `json:"wasSuccessful"`
	Message       string `json:"message,omitempty"`

	List []map[string]any `json:"list"`

	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	PageCount  int `json:"pageCount"`
	TotalCount int `json:"totalCount"`
}

// ItemResult is the envelope for a single-item fetch. Not-found is a normal
// outcome: WasSuccessful false with a message, never an error.
type ItemResult struct {
	WasSuccessful bool   `json:"wasSuccessful"`
	Message       string `json:"message,omitempty"`

	Object map[string]any `json:"object"`
}

// CountResult is the envelope for a count.
type CountResult struct {
	WasSuccessful bool   `json:"wasSuccessful"`
	Message       string `json:"message,omitempty"`

	Count int `json:"count"`
}
