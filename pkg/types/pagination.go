package types

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListParams are the read-many options shared by every tenant-owned resource
type ListParams struct {
	Page   int
	Limit  int
	Status string
	Search string
	// Filters holds resource specific foreign key filters, e.g. patient_id
	Filters map[string]string
}

// Normalize clamps page and limit into their valid ranges
func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// Offset is (page-1)*limit
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination is returned alongside every list response
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes totalPages = ceil(total/limit)
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
