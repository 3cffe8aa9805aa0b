package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/repository"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Store     string    `json:"store,omitempty"`
}

type HealthHandler struct {
	serviceName string
	version     string
	backend     string
	pinger      repository.Pinger
}

// NewHealthHandler reports the named backend; pinger may be nil when the
// store cannot check reachability.
func NewHealthHandler(serviceName, version, backend string, pinger repository.Pinger) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		backend:     backend,
		pinger:      pinger,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	storeStatus := ""
	if h.backend != "" {
		storeStatus = h.backend + ": unknown"
	}
	if h.pinger != nil {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := h.pinger.Ping(pingCtx); err != nil {
			storeStatus = h.backend + ": down"
		} else {
			storeStatus = h.backend + ": up"
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Store:     storeStatus,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
