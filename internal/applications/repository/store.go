package repository

import (
	"context"
	"slices"
	"strings"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/domain"
)

// Store is the boundary to the remote collection of job applications.
// Writes return once the store has accepted or rejected them; their effect
// reaches the caller through the next snapshot on a Stream, not the write call.
type Store interface {
	// Create persists a new record and returns the store-assigned id
	Create(ctx context.Context, in domain.Input) (string, error)
	// Update replaces every mutable field of an existing record
	Update(ctx context.Context, id string, in domain.Input) error
	// Delete removes a record; deleting an absent id is not an error
	Delete(ctx context.Context, id string) error
	// Subscribe opens a live channel of full collection snapshots
	Subscribe(ctx context.Context) *Stream
}

// Pinger is implemented by stores that can report reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

func writeErr(op, id string, err error) error {
	return &domain.StoreWriteError{Op: op, ID: id, Err: err}
}

// sortSnapshot orders records the way the collection query does:
// applicationDate descending, then id ascending.
func sortSnapshot(records []domain.JobApplication) {
	slices.SortStableFunc(records, func(a, b domain.JobApplication) int {
		if c := strings.Compare(b.ApplicationDate, a.ApplicationDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
