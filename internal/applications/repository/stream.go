package repository

import (
	"context"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/domain"
)

// Event is one delivery on a Stream: either a full ordered snapshot or an error.
type Event struct {
	Records []domain.JobApplication
	Err     error
}

// Stream is a live, non-restartable sequence of snapshots.
// Errors are delivered as events and do not end the stream; only
// Unsubscribe (or cancellation of the context passed to Subscribe) does.
type Stream struct {
	events chan Event
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
}

// EmitFunc delivers one event; false means the stream was cancelled
type EmitFunc func(Event) bool

// NewStream starts produce on its own goroutine. produce must return once
// ctx is done or emit reports false.
func NewStream(parent context.Context, produce func(ctx context.Context, emit EmitFunc)) *Stream {
	ctx, cancel := context.WithCancel(parent)
	s := &Stream{
		events: make(chan Event),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(s.done)
		defer close(s.events)
		produce(ctx, func(ev Event) bool {
			select {
			case s.events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()

	return s
}

// Events returns the delivery channel. It is closed after Unsubscribe.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Done is closed once the producer has released the channel
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Unsubscribe releases the channel. Calling it more than once is a no-op.
func (s *Stream) Unsubscribe() {
	s.once.Do(s.cancel)
}

func snapshotEvent(records []domain.JobApplication) Event {
	if records == nil {
		records = []domain.JobApplication{}
	}
	return Event{Records: records}
}

func errorEvent(err error) Event {
	return Event{Err: &domain.StoreSubscriptionError{Err: err}}
}

// retryPolicy spaces out attempts to reopen a failed channel
type retryPolicy struct {
	Initial time.Duration
	Max     time.Duration
}

var defaultRetry = retryPolicy{Initial: time.Second, Max: 30 * time.Second}

func (p retryPolicy) delay(attempt int) time.Duration {
	d := p.Initial
	for i := 0; i < attempt && d < p.Max; i++ {
		d *= 2
	}
	if d > p.Max {
		d = p.Max
	}
	return d
}

// wait sleeps for the attempt's backoff; false means ctx ended first
func (p retryPolicy) wait(ctx context.Context, attempt int) bool {
	t := time.NewTimer(p.delay(attempt))
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
