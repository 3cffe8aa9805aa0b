package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/domain"
)

func TestApplicationFromData(t *testing.T) {
	t.Run("decodes a committed document", func(t *testing.T) {
		created := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
		app := applicationFromData("doc-1", map[string]interface{}{
			"companyName":     "Acme",
			"jobRole":         "SRE",
			"applicationDate": "2024-01-10",
			"status":          "Interview",
			"notes":           "second round",
			"createdAt":       created,
		})

		assert.Equal(t, "doc-1", app.ID)
		assert.Equal(t, "Acme", app.CompanyName)
		assert.Equal(t, "SRE", app.JobRole)
		assert.Equal(t, "2024-01-10", app.ApplicationDate)
		assert.Equal(t, domain.StatusInterview, app.Status)
		assert.Equal(t, "second round", app.Notes)
		if assert.NotNil(t, app.CreatedAt) {
			assert.True(t, created.Equal(*app.CreatedAt))
		}
	})

	t.Run("tolerates missing fields", func(t *testing.T) {
		app := applicationFromData("doc-2", map[string]interface{}{
			"companyName": 42,
		})

		assert.Equal(t, "doc-2", app.ID)
		assert.Empty(t, app.CompanyName)
		assert.Empty(t, app.Notes)
		assert.Nil(t, app.CreatedAt)
		assert.False(t, app.Synced())
		assert.Equal(t, domain.StatusApplied, app.DisplayStatus())
	})
}

func TestNewFirestoreStore_DefaultCollection(t *testing.T) {
	s := NewFirestoreStore(nil, "")
	assert.Equal(t, DefaultCollection, s.collection)

	s = NewFirestoreStore(nil, "apps")
	assert.Equal(t, "apps", s.collection)
}
