package http

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/domain"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// Frame types sent on the WebSocket stream
const (
	FrameSnapshot = "snapshot"
	FrameError    = "error"
)

// SnapshotFrame carries the full collection, newest first
type SnapshotFrame struct {
	Type         string                  `json:"type"`
	Applications []domain.JobApplication `json:"applications"`
}

// ErrorFrame reports a failed subscription channel; the stream stays open
// and a snapshot follows once the store recovers.
type ErrorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// StreamApplications upgrades to a WebSocket and forwards every snapshot of
// the collection until the client goes away.
func (h *Handler) StreamApplications(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	stream := h.store.Subscribe(ctx)
	defer stream.Unsubscribe()

	// Reads only serve to notice pongs and the client closing
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}

		case ev, ok := <-stream.Events():
			if !ok {
				return
			}
			var frame any = SnapshotFrame{Type: FrameSnapshot, Applications: ev.Records}
			if ev.Err != nil {
				frame = ErrorFrame{Type: FrameError, Error: ev.Err.Error()}
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(frame); err != nil {
				h.log.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

// checkOrigin accepts requests without an Origin, from the serving host, or
// from one of allowed
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
