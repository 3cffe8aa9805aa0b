package view

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/domain"
)

func ids(apps []domain.JobApplication) []string {
	out := make([]string, len(apps))
	for i, a := range apps {
		out[i] = a.ID
	}
	return out
}

var trackerCache = []domain.JobApplication{
	{ID: "1", CompanyName: "Acme", JobRole: "Backend Engineer", ApplicationDate: "2024-01-10", Status: domain.StatusApplied},
	{ID: "2", CompanyName: "Globex", JobRole: "SRE", ApplicationDate: "2024-02-01", Status: domain.StatusInterview},
	{ID: "3", CompanyName: "Initech", JobRole: "Platform engineer", ApplicationDate: "2024-01-10", Status: domain.StatusRejected},
	{ID: "4", CompanyName: "Umbrella", JobRole: "Data Engineer", ApplicationDate: "2023-12-24", Status: domain.StatusApplied},
}

func TestDeriveVisibleList_Scenario(t *testing.T) {
	cache := []domain.JobApplication{
		{ID: "1", ApplicationDate: "2024-01-10", CompanyName: "Acme", Status: domain.StatusApplied},
		{ID: "2", ApplicationDate: "2024-02-01", CompanyName: "Globex", Status: domain.StatusInterview},
	}

	criteria := Criteria{SearchTerm: "", StatusFilter: StatusAll, SortDirection: SortDesc}
	assert.Equal(t, []string{"2", "1"}, ids(DeriveVisibleList(cache, criteria)))

	criteria.StatusFilter = StatusFilter(domain.StatusApplied)
	assert.Equal(t, []string{"1"}, ids(DeriveVisibleList(cache, criteria)))
}

func TestDeriveVisibleList_Search(t *testing.T) {
	tests := []struct {
		name string
		term string
		want []string
	}{
		{"empty term matches all", "", []string{"2", "1", "3", "4"}},
		{"whitespace term matches all", "   ", []string{"2", "1", "3", "4"}},
		{"company match is case insensitive", "gLoBeX", []string{"2"}},
		{"role match", "engineer", []string{"1", "3", "4"}},
		{"term is trimmed", "  sre ", []string{"2"}},
		{"no match", "hooli", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveVisibleList(trackerCache, Criteria{SearchTerm: tt.term, StatusFilter: StatusAll, SortDirection: SortDesc})
			assert.Equal(t, tt.want, ids(got))

			term := strings.ToLower(strings.TrimSpace(tt.term))
			for _, app := range got {
				assert.True(t,
					strings.Contains(strings.ToLower(app.CompanyName), term) ||
						strings.Contains(strings.ToLower(app.JobRole), term),
					"record %s does not match %q", app.ID, tt.term)
			}
		})
	}
}

func TestDeriveVisibleList_Sort(t *testing.T) {
	t.Run("descending keeps tie order", func(t *testing.T) {
		got := DeriveVisibleList(trackerCache, Criteria{StatusFilter: StatusAll, SortDirection: SortDesc})
		assert.Equal(t, []string{"2", "1", "3", "4"}, ids(got))
	})

	t.Run("ascending keeps tie order", func(t *testing.T) {
		got := DeriveVisibleList(trackerCache, Criteria{StatusFilter: StatusAll, SortDirection: SortAsc})
		assert.Equal(t, []string{"4", "1", "3", "2"}, ids(got))
	})

	t.Run("ties follow the cache order not createdAt", func(t *testing.T) {
		cache := []domain.JobApplication{
			{ID: "b", ApplicationDate: "2024-01-10"},
			{ID: "a", ApplicationDate: "2024-01-10"},
			{ID: "c", ApplicationDate: "2024-01-10"},
		}
		for _, dir := range []SortDirection{SortAsc, SortDesc} {
			got := DeriveVisibleList(cache, Criteria{StatusFilter: StatusAll, SortDirection: dir})
			assert.Equal(t, []string{"b", "a", "c"}, ids(got), "direction %s", dir)
		}
	})

	t.Run("pairwise order", func(t *testing.T) {
		for _, dir := range []SortDirection{SortAsc, SortDesc} {
			got := DeriveVisibleList(trackerCache, Criteria{StatusFilter: StatusAll, SortDirection: dir})
			for i := 0; i < len(got); i++ {
				for j := i + 1; j < len(got); j++ {
					a, b := got[i].ApplicationDate, got[j].ApplicationDate
					if a == b {
						continue
					}
					if dir == SortDesc {
						assert.Greater(t, a, b)
					} else {
						assert.Less(t, a, b)
					}
				}
			}
		}
	})
}

func TestDeriveVisibleList_IsPure(t *testing.T) {
	cache := append([]domain.JobApplication(nil), trackerCache...)
	criteria := Criteria{SearchTerm: "e", StatusFilter: StatusAll, SortDirection: SortAsc}

	first := DeriveVisibleList(cache, criteria)
	second := DeriveVisibleList(cache, criteria)

	assert.Equal(t, first, second)
	assert.Equal(t, trackerCache, cache, "input must not be reordered")
}

func TestDeriveVisibleList_StatusFilter(t *testing.T) {
	got := DeriveVisibleList(trackerCache, Criteria{StatusFilter: StatusFilter(domain.StatusApplied), SortDirection: SortDesc})
	require.Len(t, got, 2)
	for _, app := range got {
		assert.Equal(t, domain.StatusApplied, app.Status)
	}
}

func TestParseCriteria(t *testing.T) {
	for _, s := range []string{"all", "Applied", "Interview", "Rejected"} {
		f, err := ParseStatusFilter(s)
		require.NoError(t, err)
		assert.Equal(t, StatusFilter(s), f)
	}
	_, err := ParseStatusFilter("applied")
	assert.Error(t, err)

	d, err := ParseSortDirection("asc")
	require.NoError(t, err)
	assert.Equal(t, SortAsc, d)
	_, err = ParseSortDirection("newest")
	assert.Error(t, err)
}
