package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/domain"
	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/view"
)

// requestTimeout bounds how long a UI request waits on the controller loop
const requestTimeout = 5 * time.Second

// errUnknownSession is sent when a request names no live session
var errUnknownSession = errors.New("unknown session")

// openSession returns the caller's session, starting one and issuing its
// cookie when needed. Only the page itself opens sessions.
func (h *Handler) openSession(c *gin.Context) (*Session, bool) {
	id, _ := c.Cookie(SessionCookie)
	sess, err := h.sessions.Open(id)
	if err != nil {
		c.Header("Retry-After", "60")
		c.String(http.StatusServiceUnavailable, "Too many open sessions, please try again later.")
		return nil, false
	}
	if sess.ID != id {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, sess.ID, 0, "/", "", false, true)
	}
	return sess, true
}

// session returns the caller's existing session. Without one, fetch and
// event stream requests get 410 and plain form posts are sent back to the
// page, which opens a new session.
func (h *Handler) session(c *gin.Context) (*Session, bool) {
	id, _ := c.Cookie(SessionCookie)
	if sess, ok := h.sessions.Lookup(id); ok {
		return sess, true
	}

	if isFetch(c) || c.Request.Method == http.MethodGet {
		c.JSON(http.StatusGone, gin.H{"error": errUnknownSession.Error()})
		return nil, false
	}
	c.Redirect(http.StatusSeeOther, "/")
	return nil, false
}

func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func isFetch(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "fetch"
}

// Index renders the full page
func (h *Handler) Index(c *gin.Context) {
	sess, ok := h.openSession(c)
	if !ok {
		return
	}
	h.renderPage(c, sess, http.StatusOK)
}

func (h *Handler) renderPage(c *gin.Context, sess *Session, status int) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	v, err := sess.Controller().View(ctx)
	if err != nil {
		c.String(http.StatusServiceUnavailable, "view unavailable")
		return
	}
	c.HTML(status, "index.html", appData{View: v, DeletePrompt: view.DeletePrompt})
}

// SubmitForm creates or saves the application in the form
func (h *Handler) SubmitForm(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var in domain.Input
	if err := c.ShouldBind(&in); err != nil {
		h.respond(c, sess, &badRequestError{err})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	h.respond(c, sess, sess.Controller().Submit(ctx, in))
}

// CancelEdit leaves edit mode
func (h *Handler) CancelEdit(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	h.respond(c, sess, sess.Controller().CancelEdit(ctx))
}

// BeginEdit loads a listed application into the form
func (h *Handler) BeginEdit(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	h.respond(c, sess, sess.Controller().BeginEdit(ctx, c.Param("id")))
}

// DeleteApplication deletes an application once the form carries confirm=yes.
// The page script adds it after asking the user; a plain form post without
// it is answered with a confirmation page instead.
func (h *Handler) DeleteApplication(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	confirmed := c.PostForm("confirm") == "yes"
	if !confirmed && !isFetch(c) {
		h.renderConfirmDelete(c, sess, c.Param("id"))
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	err := sess.Controller().RequestDelete(ctx, c.Param("id"), view.ConfirmFunc(func(string) bool {
		return confirmed
	}))
	h.respond(c, sess, err)
}

func (h *Handler) renderConfirmDelete(c *gin.Context, sess *Session, id string) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	v, err := sess.Controller().View(ctx)
	if err != nil {
		c.String(http.StatusServiceUnavailable, "view unavailable")
		return
	}
	for _, item := range v.Items {
		if item.ID == id {
			c.HTML(http.StatusOK, "confirm.html", confirmData{Prompt: view.DeletePrompt, Item: item})
			return
		}
	}
	h.respond(c, sess, domain.ErrNotFound)
}

// UpdateCriteria applies any of search, status and sort. Nothing changes
// if one of them is invalid.
func (h *Handler) UpdateCriteria(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var (
		filter    view.StatusFilter
		direction view.SortDirection
		err       error
	)
	search, hasSearch := c.GetPostForm("search")
	status, hasStatus := c.GetPostForm("status")
	sort, hasSort := c.GetPostForm("sort")

	if hasStatus {
		if filter, err = view.ParseStatusFilter(status); err != nil {
			h.respond(c, sess, &badRequestError{err})
			return
		}
	}
	if hasSort {
		if direction, err = view.ParseSortDirection(sort); err != nil {
			h.respond(c, sess, &badRequestError{err})
			return
		}
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	ctrl := sess.Controller()
	if hasSearch {
		if err := ctrl.SetSearchTerm(ctx, search); err != nil {
			h.respond(c, sess, err)
			return
		}
	}
	if hasStatus {
		if err := ctrl.SetStatusFilter(ctx, filter); err != nil {
			h.respond(c, sess, err)
			return
		}
	}
	if hasSort {
		if err := ctrl.SetSortDirection(ctx, direction); err != nil {
			h.respond(c, sess, err)
			return
		}
	}
	h.respond(c, sess, nil)
}

type badRequestError struct{ err error }

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

// respond finishes a UI action. Fetch requests get a bare status and pick up
// the new view over /events; plain form posts are redirected back to the
// page, or shown it again with the error status.
func (h *Handler) respond(c *gin.Context, sess *Session, err error) {
	if err == nil {
		if isFetch(c) {
			c.Status(http.StatusNoContent)
			return
		}
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("ui action failed")
	}

	if isFetch(c) {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	h.renderPage(c, sess, status)
}

func statusFor(err error) int {
	var (
		verr *domain.ValidationError
		berr *badRequestError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &berr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSubmitInFlight):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDeleteNotConfirmed):
		return http.StatusBadRequest
	case errors.Is(err, view.ErrStopped), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
