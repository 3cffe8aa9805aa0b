// Package repositorytest provides an in-memory Store for tests.
package repositorytest

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/domain"
	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/repository"
)

// Call records one write made against the FakeStore
type Call struct {
	Op    string
	ID    string
	Input domain.Input
}

// FakeStore keeps records in memory and pushes a snapshot to every
// subscriber after each successful write.
type FakeStore struct {
	mu           sync.Mutex
	records      map[string]domain.JobApplication
	seq          int
	subs         map[chan repository.Event]struct{}
	errs         map[string]error
	calls        []Call
	gate         chan struct{}
	skipInitial  bool
	unsubscribed int
}

// NewFakeStore creates a FakeStore seeded with records
func NewFakeStore(seed ...domain.JobApplication) *FakeStore {
	f := &FakeStore{
		records: make(map[string]domain.JobApplication),
		subs:    make(map[chan repository.Event]struct{}),
		errs:    make(map[string]error),
	}
	for _, app := range seed {
		f.records[app.ID] = app
	}
	return f
}

// SetError makes every call of op ("create", "update", "delete") fail with
// err. A nil err clears it.
func (f *FakeStore) SetError(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

// SkipInitialSnapshot stops later subscriptions from receiving the initial state
func (f *FakeStore) SkipInitialSnapshot() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skipInitial = true
}

// HoldWrites makes writes block until ReleaseWrites
func (f *FakeStore) HoldWrites() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
}

// ReleaseWrites unblocks writes held by HoldWrites
func (f *FakeStore) ReleaseWrites() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

// Calls returns the writes made so far
func (f *FakeStore) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// Unsubscribed counts subscriptions whose channel has been released
func (f *FakeStore) Unsubscribed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsubscribed
}

// Subscribers counts live subscriptions
func (f *FakeStore) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// PushError delivers err to every subscriber
func (f *FakeStore) PushError(err error) {
	f.broadcast(repository.Event{Err: &domain.StoreSubscriptionError{Err: err}})
}

// PushSnapshot delivers records to every subscriber without touching the store
func (f *FakeStore) PushSnapshot(records []domain.JobApplication) {
	f.broadcast(repository.Event{Records: records})
}

func (f *FakeStore) Create(ctx context.Context, in domain.Input) (string, error) {
	f.wait()
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: "create", Input: in})
	if err := f.errs["create"]; err != nil {
		f.mu.Unlock()
		return "", &domain.StoreWriteError{Op: "create", Err: err}
	}
	f.seq++
	id := fmt.Sprintf("app-%d", f.seq)
	now := time.Now().UTC()
	f.records[id] = domain.JobApplication{
		ID:              id,
		CompanyName:     in.CompanyName,
		JobRole:         in.JobRole,
		ApplicationDate: in.ApplicationDate,
		Status:          in.Status,
		Notes:           in.Notes,
		CreatedAt:       &now,
	}
	f.mu.Unlock()

	f.publish()
	return id, nil
}

func (f *FakeStore) Update(ctx context.Context, id string, in domain.Input) error {
	f.wait()
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: "update", ID: id, Input: in})
	if err := f.errs["update"]; err != nil {
		f.mu.Unlock()
		return &domain.StoreWriteError{Op: "update", ID: id, Err: err}
	}
	app, ok := f.records[id]
	if !ok {
		f.mu.Unlock()
		return &domain.StoreWriteError{Op: "update", ID: id, Err: domain.ErrNotFound}
	}
	app.CompanyName = in.CompanyName
	app.JobRole = in.JobRole
	app.ApplicationDate = in.ApplicationDate
	app.Status = in.Status
	app.Notes = in.Notes
	f.records[id] = app
	f.mu.Unlock()

	f.publish()
	return nil
}

func (f *FakeStore) Delete(ctx context.Context, id string) error {
	f.wait()
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: "delete", ID: id})
	if err := f.errs["delete"]; err != nil {
		f.mu.Unlock()
		return &domain.StoreWriteError{Op: "delete", ID: id, Err: err}
	}
	delete(f.records, id)
	f.mu.Unlock()

	f.publish()
	return nil
}

func (f *FakeStore) Subscribe(ctx context.Context) *repository.Stream {
	feed := make(chan repository.Event, 64)

	f.mu.Lock()
	f.subs[feed] = struct{}{}
	if !f.skipInitial {
		feed <- repository.Event{Records: f.snapshotLocked()}
	}
	f.mu.Unlock()

	return repository.NewStream(ctx, func(ctx context.Context, emit repository.EmitFunc) {
		defer func() {
			f.mu.Lock()
			delete(f.subs, feed)
			f.unsubscribed++
			f.mu.Unlock()
		}()
		for {
			select {
			case ev := <-feed:
				if !emit(ev) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})
}

func (f *FakeStore) wait() {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (f *FakeStore) publish() {
	f.mu.Lock()
	records := f.snapshotLocked()
	f.mu.Unlock()
	f.broadcast(repository.Event{Records: records})
}

func (f *FakeStore) broadcast(ev repository.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for feed := range f.subs {
		select {
		case feed <- ev:
		default:
			// subscriber stopped reading; drop rather than block the store
		}
	}
}

func (f *FakeStore) snapshotLocked() []domain.JobApplication {
	out := make([]domain.JobApplication, 0, len(f.records))
	for _, app := range f.records {
		out = append(out, app)
	}
	slices.SortFunc(out, func(a, b domain.JobApplication) int {
		if c := strings.Compare(b.ApplicationDate, a.ApplicationDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}
