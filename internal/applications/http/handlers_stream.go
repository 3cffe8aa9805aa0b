package http

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/view"
)

// StreamEvents pushes rendered fragments to the browser using Server-Sent
// Events. A "render" event carries the message and the list, once on connect
// and again after every change. A "form" event carries the form and is only
// sent when the controller replaced its contents, so typing in progress
// survives snapshots and criteria changes.
func (h *Handler) StreamEvents(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	// Attach before reading the current view so no render is missed
	views, stop := sess.Listen()
	defer stop()

	ctx := c.Request.Context()
	current, err := sess.Controller().View(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "view unavailable"})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	if err := h.writeRender(c.Writer, current); err != nil {
		h.log.Error().Err(err).Msg("failed to render view")
		return
	}
	flusher.Flush()
	form := current.Form

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Client disconnected
			return

		case <-sess.Controller().Done():
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case v := <-views:
			if formChanged(form, v.Form) {
				if err := h.writeForm(c.Writer, v); err != nil {
					h.log.Error().Err(err).Msg("failed to render form")
					return
				}
				form = v.Form
			}
			if err := h.writeRender(c.Writer, v); err != nil {
				h.log.Error().Err(err).Msg("failed to render view")
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) writeRender(w io.Writer, v view.View) error {
	html, err := renderFragment("app", v)
	if err != nil {
		return err
	}
	return writeEvent(w, "render", html)
}

func (h *Handler) writeForm(w io.Writer, v view.View) error {
	html, err := renderFragment("form", v)
	if err != nil {
		return err
	}
	return writeEvent(w, "form", html)
}

// formChanged reports whether the browser's form must be replaced. Values
// the user has not submitted are not known here, so only a new revision or
// a change of the submit button counts.
func formChanged(prev, next view.FormView) bool {
	return prev.Revision != next.Revision || prev.SubmitDisabled != next.SubmitDisabled
}

// writeEvent writes one SSE event; every line of data gets its own data field
func writeEvent(w io.Writer, event, data string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", event)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", strings.TrimSuffix(line, "\r"))
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}
