package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/domain"
)

// snapshotTimeout bounds how long ListApplications waits for the first snapshot
const snapshotTimeout = 10 * time.Second

// ListApplications returns the current collection, newest first
func (h *Handler) ListApplications(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), snapshotTimeout)
	defer cancel()

	stream := h.store.Subscribe(ctx)
	defer stream.Unsubscribe()

	select {
	case ev, ok := <-stream.Events():
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "subscription closed"})
			return
		}
		if ev.Err != nil {
			h.log.Error().Err(ev.Err).Msg("failed to load applications")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to load applications"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"applications": ev.Records})
	case <-ctx.Done():
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "timed out loading applications"})
	}
}

// CreateApplication creates an application from a JSON body
func (h *Handler) CreateApplication(c *gin.Context) {
	in, ok := bindInput(c)
	if !ok {
		return
	}

	id, err := h.store.Create(c.Request.Context(), in)
	if err != nil {
		h.writeStoreError(c, err, "failed to save application")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// UpdateApplication replaces every mutable field of an application
func (h *Handler) UpdateApplication(c *gin.Context) {
	id := c.Param("id")
	in, ok := bindInput(c)
	if !ok {
		return
	}

	if err := h.store.Update(c.Request.Context(), id, in); err != nil {
		h.writeStoreError(c, err, "failed to save application")
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

// DeleteApplicationAPI deletes an application; deleting an absent id succeeds
func (h *Handler) DeleteApplicationAPI(c *gin.Context) {
	id := c.Param("id")

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.writeStoreError(c, err, "failed to delete application")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "application deleted"})
}

func bindInput(c *gin.Context) (domain.Input, bool) {
	var in domain.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return in, false
	}

	in = in.Normalize()
	if err := in.Validate(); err != nil {
		var verr *domain.ValidationError
		errors.As(err, &verr)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  err.Error(),
			"fields": verr.Fields,
		})
		return in, false
	}
	return in, true
}

func (h *Handler) writeStoreError(c *gin.Context, err error, msg string) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
		return
	}
	h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
