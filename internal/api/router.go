package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/issuerelay/internal/app"
	iauth "github.com/charlesng35/issuerelay/internal/auth"
	"github.com/charlesng35/issuerelay/internal/discord"
	"github.com/charlesng35/issuerelay/internal/handlers"
	"github.com/charlesng35/issuerelay/internal/middleware"
	"github.com/charlesng35/issuerelay/internal/monitoring"
)

// Dependencies carries everything the router wires into handlers. Interactions,
// Monitoring and TokenLimiter are optional.
type Dependencies struct {
	Config       *app.Config
	JWT          *iauth.JWTService
	Cache        handlers.CacheService
	Issues       handlers.IssueLookup
	Interactions *discord.InteractionHandler
	Monitoring   *monitoring.Module
	TokenLimiter *middleware.RateLimiter
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}

	cacheHandler, err := handlers.NewCacheHandler(deps.Cache)
	if err != nil {
		return nil, err
	}
	issueHandler, err := handlers.NewIssueHandler(deps.Issues)
	if err != nil {
		return nil, err
	}
	authHandler, err := handlers.NewAuthHandler(deps.JWT)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	registerHealthRoutes(r, deps.Config, deps.Monitoring)
	registerMetricsRoute(r, deps.Config, deps.Monitoring)

	// Signed by Discord, not by our JWTs
	if deps.Interactions != nil {
		r.POST("/interactions", deps.Interactions.Handle)
	}

	registerAuthRoutes(r, authHandler, deps.TokenLimiter)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))

	registerCacheRoutes(api, cacheHandler)
	registerIssueRoutes(api, issueHandler)
	registerMonitoringRoutes(api, handlers.NewMonitoringHandler(deps.Monitoring, deps.Config))

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func registerMetricsRoute(r *gin.Engine, cfg *app.Config, mon *monitoring.Module) {
	if mon == nil || !cfg.Monitoring.Prometheus.Enabled {
		return
	}
	endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}
	r.GET(endpoint, gin.WrapH(mon.Handler()))
}
