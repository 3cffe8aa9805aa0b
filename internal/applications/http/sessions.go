package http

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/repository"
	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/view"
)

// SessionCookie names the cookie holding a browser's session id
const SessionCookie = "jt_session"

// Session is one browser's view controller and the SSE listeners attached to it
type Session struct {
	ID string

	ctrl   *view.Controller
	cast   *broadcaster
	cancel context.CancelFunc

	mu        sync.Mutex
	lastSeen  time.Time
	listeners int
}

// Controller returns the session's view controller
func (s *Session) Controller() *view.Controller {
	return s.ctrl
}

// Listen attaches a receiver for every render. The channel holds at most the
// latest view; a slow reader skips intermediate renders. Call stop to detach.
func (s *Session) Listen() (<-chan view.View, func()) {
	s.mu.Lock()
	s.listeners++
	s.mu.Unlock()

	ch, unsubscribe := s.cast.subscribe()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			unsubscribe()
			s.mu.Lock()
			s.listeners--
			s.lastSeen = time.Now()
			s.mu.Unlock()
		})
	}
	return ch, stop
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time, idle time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listeners == 0 && now.Sub(s.lastSeen) > idle
}

// ErrTooManySessions is returned by Open when the registry is full
var ErrTooManySessions = errors.New("too many sessions")

// Registry creates a controller per session when a browser opens the page
// and tears down sessions that have gone idle.
type Registry struct {
	base  context.Context
	store repository.Store
	opts  view.Options
	idle  time.Duration
	max   int
	log   zerolog.Logger
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a Registry holding at most maxSessions live sessions;
// zero means no limit. Cancelling ctx stops every controller.
func NewRegistry(ctx context.Context, store repository.Store, opts view.Options, idle time.Duration, maxSessions int) *Registry {
	return &Registry{
		base:     ctx,
		store:    store,
		opts:     opts,
		idle:     idle,
		max:      maxSessions,
		log:      opts.Logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Open returns the session for id, starting a new one under a fresh id when
// id is unknown or not a uuid. A full registry reaps idle sessions first and
// returns ErrTooManySessions if that frees nothing.
func (r *Registry) Open(id string) (*Session, error) {
	if s, ok := r.Lookup(id); ok {
		return s, nil
	}
	now := r.now()

	r.mu.Lock()
	var stale []*Session
	if r.max > 0 && len(r.sessions) >= r.max {
		stale = r.expiredLocked(now)
	}
	if r.max > 0 && len(r.sessions) >= r.max {
		r.mu.Unlock()
		r.stop(stale)
		r.log.Warn().Int("max", r.max).Msg("session limit reached")
		return nil, ErrTooManySessions
	}

	id = uuid.NewString()
	ctx, cancel := context.WithCancel(r.base)
	cast := newBroadcaster()
	opts := r.opts
	opts.Logger = r.log.With().Str("session", id).Logger()

	s := &Session{
		ID:       id,
		ctrl:     view.NewController(r.store, cast, opts),
		cast:     cast,
		cancel:   cancel,
		lastSeen: now,
	}
	r.sessions[id] = s
	r.mu.Unlock()
	r.stop(stale)

	go func() {
		if err := s.ctrl.Run(ctx); err != nil && ctx.Err() == nil {
			r.log.Error().Err(err).Str("session", id).Msg("controller stopped")
		}
	}()

	r.log.Debug().Str("session", id).Msg("session started")
	return s, nil
}

// Lookup returns the live session for id and marks it used. It never
// creates one.
func (r *Registry) Lookup(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}

	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()

	if ok {
		s.touch(r.now())
	}
	return s, ok
}

// Len reports the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Reap stops sessions with no listener that have been idle too long and
// returns how many were removed.
func (r *Registry) Reap() int {
	r.mu.Lock()
	stale := r.expiredLocked(r.now())
	r.mu.Unlock()

	r.stop(stale)
	if len(stale) > 0 {
		r.log.Info().Int("reaped", len(stale)).Msg("idle sessions stopped")
	}
	return len(stale)
}

// expiredLocked removes expired sessions from the map. r.mu must be held.
func (r *Registry) expiredLocked(now time.Time) []*Session {
	var stale []*Session
	for id, s := range r.sessions {
		if s.expired(now, r.idle) {
			delete(r.sessions, id)
			stale = append(stale, s)
		}
	}
	return stale
}

func (r *Registry) stop(sessions []*Session) {
	for _, s := range sessions {
		s.cancel()
	}
}

// StartReaper runs Reap on a cron schedule such as "@every 1m".
// Stop the returned cron to end it.
func (r *Registry) StartReaper(spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { r.Reap() }); err != nil {
		return nil, err
	}
	c.Start()
	r.log.Info().Str("schedule", spec).Msg("session reaper started")
	return c, nil
}

// Close stops every session and waits for their controllers to exit
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		all = append(all, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range all {
		s.cancel()
	}
	for _, s := range all {
		select {
		case <-s.ctrl.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// broadcaster fans controller renders out to SSE listeners without blocking
// the controller loop.
type broadcaster struct {
	mu   sync.Mutex
	subs map[chan view.View]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[chan view.View]struct{})}
}

func (b *broadcaster) Render(v view.View) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// replace the stale view nobody has read yet
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

func (b *broadcaster) subscribe() (chan view.View, func()) {
	ch := make(chan view.View, 1)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
}
