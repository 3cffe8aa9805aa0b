package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/domain"
	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/repository"
)

// DeletePrompt is the question put to the user before a delete
const DeletePrompt = "Delete this job application? This cannot be undone."

// DefaultMessageDuration is how long a transient message stays visible
const DefaultMessageDuration = 3 * time.Second

var (
	ErrStopped        = errors.New("controller is not running")
	ErrAlreadyRunning = errors.New("controller is already running")
)

// Renderer receives every new View. It is called on the controller's loop
// and must not block.
type Renderer interface {
	Render(View)
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(View)

func (f RendererFunc) Render(v View) { f(v) }

// Confirmer asks the user a yes/no question
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Options tunes a Controller
type Options struct {
	MessageDuration time.Duration
	Logger          zerolog.Logger
	// Today returns the default application date for a fresh form
	Today func() string
}

// Controller owns the UI state of one view. All state lives on the goroutine
// running Run; every exported method hands work to that goroutine, and every
// state change there ends with a render.
type Controller struct {
	store      repository.Store
	renderer   Renderer
	log        zerolog.Logger
	messageTTL time.Duration
	today      func() string

	actions chan func()
	done    chan struct{}
	running atomic.Bool

	// owned by the Run goroutine
	st             State
	loadErrorShown bool
	msgSeq         int
	msgTimer       *time.Timer
}

// NewController creates a Controller; call Run to start it
func NewController(store repository.Store, renderer Renderer, opts Options) *Controller {
	if opts.MessageDuration <= 0 {
		opts.MessageDuration = DefaultMessageDuration
	}
	if opts.Today == nil {
		opts.Today = func() string { return time.Now().Format(domain.DateLayout) }
	}
	if renderer == nil {
		renderer = RendererFunc(func(View) {})
	}

	c := &Controller{
		store:      store,
		renderer:   renderer,
		log:        opts.Logger,
		messageTTL: opts.MessageDuration,
		today:      opts.Today,
		actions:    make(chan func()),
		done:       make(chan struct{}),
	}
	c.st = State{
		Criteria: DefaultCriteria(),
		Form:     c.defaultForm(),
		Loading:  true,
	}
	return c
}

// Run subscribes to the store and processes events until ctx is cancelled.
// The subscription is released exactly once on return.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(c.done)

	stream := c.store.Subscribe(ctx)
	defer stream.Unsubscribe()
	defer c.stopMessageTimer()

	c.render()

	events := stream.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Err != nil {
				c.onSubscriptionError(ev.Err)
			} else {
				c.onSnapshot(ev.Records)
			}

		case fn := <-c.actions:
			fn()
		}
	}
}

// Done is closed once Run has returned
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// View returns the current render of the controller's state
func (c *Controller) View(ctx context.Context) (View, error) {
	var v View
	err := c.call(ctx, func() error {
		v = Render(c.st)
		return nil
	})
	return v, err
}

// Submit validates in and, if valid, starts a create (or an update when a
// record is being edited). It returns a *domain.ValidationError without
// calling the store when a required field is missing, and
// domain.ErrSubmitInFlight while a previous save is still pending. The
// outcome of the store call arrives later as a message.
func (c *Controller) Submit(ctx context.Context, in domain.Input) error {
	return c.call(ctx, func() error {
		if c.st.Submitting {
			return domain.ErrSubmitInFlight
		}

		in = in.Normalize()
		c.st.Form = in
		c.st.FormRevision++

		if err := in.Validate(); err != nil {
			c.showMessage(MessageError, validationMessage(err), err)
			c.render()
			return err
		}

		c.st.Submitting = true
		editID := c.st.EditTarget
		c.render()

		go c.persist(editID, in)
		return nil
	})
}

// BeginEdit switches the form to edit mode for a cached record
func (c *Controller) BeginEdit(ctx context.Context, id string) error {
	return c.call(ctx, func() error {
		app, ok := c.cached(id)
		if !ok {
			return domain.ErrNotFound
		}
		c.st.EditTarget = app.ID
		c.st.Form = app.Input()
		c.st.FormRevision++
		c.render()
		return nil
	})
}

// CancelEdit leaves edit mode and resets the form
func (c *Controller) CancelEdit(ctx context.Context) error {
	return c.call(ctx, func() error {
		c.resetForm()
		c.render()
		return nil
	})
}

// RequestDelete asks confirm and, only if the user agrees, deletes id.
// The record stays visible until a snapshot without it arrives.
func (c *Controller) RequestDelete(ctx context.Context, id string, confirm Confirmer) error {
	if confirm == nil || !confirm.Confirm(DeletePrompt) {
		return domain.ErrDeleteNotConfirmed
	}
	return c.call(ctx, func() error {
		go c.remove(id)
		return nil
	})
}

// SetSearchTerm changes the search term and re-renders
func (c *Controller) SetSearchTerm(ctx context.Context, term string) error {
	return c.updateCriteria(ctx, func(cr *Criteria) { cr.SearchTerm = term })
}

// SetStatusFilter changes the status filter and re-renders
func (c *Controller) SetStatusFilter(ctx context.Context, f StatusFilter) error {
	return c.updateCriteria(ctx, func(cr *Criteria) { cr.StatusFilter = f })
}

// SetSortDirection changes the sort direction and re-renders
func (c *Controller) SetSortDirection(ctx context.Context, d SortDirection) error {
	return c.updateCriteria(ctx, func(cr *Criteria) { cr.SortDirection = d })
}

func (c *Controller) updateCriteria(ctx context.Context, mutate func(*Criteria)) error {
	return c.call(ctx, func() error {
		mutate(&c.st.Criteria)
		c.render()
		return nil
	})
}

func (c *Controller) onSnapshot(records []domain.JobApplication) {
	c.st.Cache = records
	c.st.Loading = false
	c.st.Loaded = true
	c.render()
}

// Only the first failure before any data has loaded is shown to the user;
// once a snapshot has arrived, failures are logged and the store retries.
func (c *Controller) onSubscriptionError(err error) {
	if c.st.Loaded {
		c.log.Warn().Err(err).Msg("subscription error after initial load")
		return
	}

	c.log.Error().Err(err).Msg("failed to load applications")
	c.st.Loading = false
	if !c.loadErrorShown {
		c.loadErrorShown = true
		c.showMessage(MessageError, "Failed to load applications.", err)
	}
	c.render()
}

func (c *Controller) persist(editID string, in domain.Input) {
	ctx := context.Background()

	action := "create"
	var err error
	if editID != "" {
		action = "update"
		err = c.store.Update(ctx, editID, in)
	} else {
		var id string
		id, err = c.store.Create(ctx, in)
		if err == nil {
			c.log.Debug().Str("id", id).Msg("application created")
		}
	}

	_ = c.post(ctx, func() { c.finishSubmit(action, err) })
}

func (c *Controller) finishSubmit(action string, err error) {
	c.st.Submitting = false

	if err != nil {
		c.log.Error().Err(err).Str("action", action).Msg("failed to save application")
		c.showMessage(MessageError, "Failed to save application. Please try again.",
			&domain.PersistenceError{Action: action, Err: err})
		c.render()
		return
	}

	text := "Application added."
	if action == "update" {
		text = "Application updated."
	}
	c.showMessage(MessageSuccess, text, nil)
	c.resetForm()
	c.render()
}

func (c *Controller) remove(id string) {
	ctx := context.Background()
	err := c.store.Delete(ctx, id)

	_ = c.post(ctx, func() {
		if err != nil {
			c.log.Error().Err(err).Str("id", id).Msg("failed to delete application")
			c.showMessage(MessageError, "Failed to delete application.",
				&domain.PersistenceError{Action: "delete", Err: err})
		} else {
			c.showMessage(MessageSuccess, "Application deleted.", nil)
		}
		c.render()
	})
}

func (c *Controller) cached(id string) (domain.JobApplication, bool) {
	for _, app := range c.st.Cache {
		if app.ID == id {
			return app, true
		}
	}
	return domain.JobApplication{}, false
}

func (c *Controller) defaultForm() domain.Input {
	return domain.Input{
		ApplicationDate: c.today(),
		Status:          domain.StatusApplied,
	}
}

func (c *Controller) resetForm() {
	c.st.EditTarget = ""
	c.st.Form = c.defaultForm()
	c.st.FormRevision++
}

// showMessage replaces the current message and restarts the dismiss timer
func (c *Controller) showMessage(kind MessageKind, text string, cause error) {
	c.stopMessageTimer()
	c.msgSeq++
	seq := c.msgSeq
	c.st.Message = &Message{Kind: kind, Text: text, Err: cause}

	c.msgTimer = time.AfterFunc(c.messageTTL, func() {
		_ = c.post(context.Background(), func() {
			if c.msgSeq != seq {
				return
			}
			c.st.Message = nil
			c.render()
		})
	})
}

func (c *Controller) stopMessageTimer() {
	if c.msgTimer != nil {
		c.msgTimer.Stop()
		c.msgTimer = nil
	}
}

func (c *Controller) render() {
	c.renderer.Render(Render(c.st))
}

// post hands fn to the Run goroutine
func (c *Controller) post(ctx context.Context, fn func()) error {
	select {
	case c.actions <- fn:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call runs fn on the Run goroutine and waits for its result
func (c *Controller) call(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	if err := c.post(ctx, func() { res <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-res:
		return err
	case <-c.done:
		select {
		case err := <-res:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func validationMessage(err error) string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) && verr.Reason != "required" {
		return fmt.Sprintf("Please check %s: %s.", strings.Join(verr.Fields, ", "), verr.Reason)
	}
	return "Please fill in all required fields."
}
