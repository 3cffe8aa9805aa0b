package bootstrap

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	httpapi "github.com/GoSim-25-26J-441/job-tracker/internal/api/http"
	"github.com/GoSim-25-26J-441/job-tracker/internal/api/http/middleware"
	apphttp "github.com/GoSim-25-26J-441/job-tracker/internal/applications/http"
	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/repository"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	Backend        string
	Store          repository.Store
	Sessions       *apphttp.Registry
	AllowedOrigins []string
	WriteRate      float64
	WriteBurst     int
	// WriteLimiter is built from WriteRate and WriteBurst when nil
	WriteLimiter   *middleware.RateLimiter
	Logger         zerolog.Logger
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLogger())
	// Registered on the engine so preflight requests to unregistered
	// OPTIONS routes still get CORS headers.
	if len(dep.AllowedOrigins) > 0 {
		r.Use(cors.New(corsConfig(dep.AllowedOrigins)))
	}

	pinger, _ := dep.Store.(repository.Pinger)
	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Backend, pinger)
	healthHandler.RegisterRoutes(r)

	appHandler := apphttp.New(dep.Store, dep.Sessions, dep.AllowedOrigins, dep.Logger)
	appHandler.RegisterUI(r)

	api := r.Group("/api/v1")
	limiter := dep.WriteLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(dep.WriteRate, dep.WriteBurst)
	}
	appHandler.RegisterAPI(api, limiter.Middleware())

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-Id", "X-Requested-With"},
		ExposeHeaders: []string{"X-Request-Id"},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
