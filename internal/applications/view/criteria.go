package view

import (
	"fmt"
	"slices"
	"strings"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/domain"
)

// StatusFilter is either StatusAll or one of the domain statuses
type StatusFilter string

// StatusAll disables status filtering
const StatusAll StatusFilter = "all"

// SortDirection orders the visible list by application date
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Criteria is the search, filter and sort state applied to the cache
type Criteria struct {
	SearchTerm    string        `json:"searchTerm"`
	StatusFilter  StatusFilter  `json:"statusFilter"`
	SortDirection SortDirection `json:"sortDirection"`
}

// DefaultCriteria matches everything, newest first
func DefaultCriteria() Criteria {
	return Criteria{StatusFilter: StatusAll, SortDirection: SortDesc}
}

// ParseStatusFilter accepts "all" or a valid status
func ParseStatusFilter(s string) (StatusFilter, error) {
	if StatusFilter(s) == StatusAll || domain.Status(s).Valid() {
		return StatusFilter(s), nil
	}
	return "", fmt.Errorf("unknown status filter %q", s)
}

// ParseSortDirection accepts "asc" or "desc"
func ParseSortDirection(s string) (SortDirection, error) {
	switch SortDirection(s) {
	case SortAsc, SortDesc:
		return SortDirection(s), nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

// DeriveVisibleList filters and sorts a copy of cache. It has no side effects.
//
// The search term is trimmed and matched case-insensitively as a substring of
// the company name or job role. Records are ordered by comparing
// ApplicationDate strings; the sort is stable, so records with the same date
// keep the order they had in cache.
func DeriveVisibleList(cache []domain.JobApplication, c Criteria) []domain.JobApplication {
	term := strings.ToLower(strings.TrimSpace(c.SearchTerm))

	out := make([]domain.JobApplication, 0, len(cache))
	for _, app := range cache {
		if term != "" &&
			!strings.Contains(strings.ToLower(app.CompanyName), term) &&
			!strings.Contains(strings.ToLower(app.JobRole), term) {
			continue
		}
		if c.StatusFilter != StatusAll && c.StatusFilter != "" && domain.Status(c.StatusFilter) != app.Status {
			continue
		}
		out = append(out, app)
	}

	slices.SortStableFunc(out, func(a, b domain.JobApplication) int {
		if c.SortDirection == SortAsc {
			return strings.Compare(a.ApplicationDate, b.ApplicationDate)
		}
		return strings.Compare(b.ApplicationDate, a.ApplicationDate)
	})
	return out
}
