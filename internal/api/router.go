package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/osanyin/herbal/internal/app"
	"github.com/osanyin/herbal/internal/events"
	"github.com/osanyin/herbal/internal/handlers"
	"github.com/osanyin/herbal/internal/herbs"
	"github.com/osanyin/herbal/internal/middleware"
	"github.com/osanyin/herbal/internal/services"
)

// Dependencies carries the services the router exposes over HTTP.
type Dependencies struct {
	DB           *gorm.DB
	Config       *app.Config
	Repository   *herbs.Repository
	Favorites    *services.FavoriteService
	Interactions *services.InteractionService
	Hub          *events.Hub
	RateStore    middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Repository == nil {
		return nil, fmt.Errorf("dataset repository must be provided")
	}
	if deps.Favorites == nil {
		return nil, fmt.Errorf("favorite service must be provided")
	}
	if deps.Interactions == nil {
		return nil, fmt.Errorf("interaction service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger("/health", "/metrics"))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	if rl := deps.Config.Features.RateLimit; rl.Enabled {
		store := deps.RateStore
		if store == nil {
			// Process-local fallback; limits reset on restart.
			store = middleware.NewMemoryRateStore()
		}
		r.Use(middleware.RateLimit(store, rl.MaxRequests, rl.Window))
	}

	// Health endpoint (public)
	r.GET("/health", handlers.Health(deps.DB))

	api := r.Group("/api")

	if err := registerHerbRoutes(api, deps.Repository); err != nil {
		return nil, err
	}
	if err := registerFavoriteRoutes(api, deps.Favorites, deps.Repository); err != nil {
		return nil, err
	}
	if err := registerInteractionRoutes(api, deps.Interactions); err != nil {
		return nil, err
	}

	if deps.Config.Features.Events.Enabled && deps.Hub != nil {
		eventsHandler, err := handlers.NewEventsHandler(deps.Hub)
		if err != nil {
			return nil, err
		}
		api.GET("/events", eventsHandler.Serve)
	}

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
