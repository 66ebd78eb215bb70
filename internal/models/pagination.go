package models

// SortField names a sortable transaction attribute
type SortField string

const (
	SortByDate        SortField = "date"
	SortByAmount      SortField = "amount"
	SortByDescription SortField = "description"
	SortByCategory    SortField = "category"
	SortByCreatedAt   SortField = "createdAt"
)

// SortOrder is the direction of a sort
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// SortFields lists every accepted sortBy value
var SortFields = []SortField{SortByDate, SortByAmount, SortByDescription, SortByCategory, SortByCreatedAt}

// PaginationParams controls paged listing
type PaginationParams struct {
	Page      int       `validate:"min=1"`
	Limit     int       `validate:"min=1,max=100"`
	SortBy    SortField `validate:"oneof=date amount description category createdAt"`
	SortOrder SortOrder `validate:"oneof=asc desc"`
}

// WithDefaults fills in the sort field and order when they were not supplied
func (p PaginationParams) WithDefaults() PaginationParams {
	if p.SortBy == "" {
		p.SortBy = SortByCreatedAt
	}
	if p.SortOrder == "" {
		p.SortOrder = SortDesc
	}
	return p
}

// PaginationMeta describes where a page sits in the full result
// @Description Pagination metadata
type PaginationMeta struct {
	CurrentPage     int  `json:"currentPage" example:"1"`
	TotalPages      int  `json:"totalPages" example:"2"`
	TotalItems      int  `json:"totalItems" example:"3"`
	ItemsPerPage    int  `json:"itemsPerPage" example:"2"`
	HasNextPage     bool `json:"hasNextPage" example:"true"`
	HasPreviousPage bool `json:"hasPreviousPage" example:"false"`
}

// PaginatedResponse is one page of transactions
// @Description Paginated list of transactions
type PaginatedResponse struct {
	Data       []Transaction  `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}
