package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/saaga0h/floorplan-dashboard/internal/dashboard"
	"github.com/saaga0h/floorplan-dashboard/pkg/health"
)

// NewRouter builds the gin engine serving the dashboard API. checker and
// cache may be nil.
func NewRouter(svc *dashboard.Service, checker *health.Checker, cache *QueryCache, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if checker == nil {
		checker = health.NewChecker(nil, nil, nil, logger)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	r.Use(CORS())

	r.GET("/health", checker.Handler())
	r.GET("/health/detailed", checker.DetailedHandler())

	h := NewHandler(svc, cache, logger)

	api := r.Group("/api/v1")
	{
		api.POST("/upload", h.Upload)

		api.GET("/metadata", h.Metadata)
		api.GET("/layout", h.Layout)
		api.GET("/options", h.Options)
		api.GET("/records", h.Records)

		filters := api.Group("/filters")
		{
			filters.GET("", h.GetFilters)
			filters.PUT("", h.PutFilters)
			filters.PUT("/date-range", h.PutDateRange)
			filters.PUT("/entities", h.PutEntities)
			filters.PUT("/regions", h.PutRegions)
			filters.PUT("/activities", h.PutActivities)
			filters.POST("/reset", h.ResetFilters)
		}

		aggregates := api.Group("/aggregates")
		{
			aggregates.GET("/regions", h.RegionUtilization)
			aggregates.GET("/activities", h.ActivityDistribution)
			aggregates.GET("/entities", h.EntityTotals)
			aggregates.GET("/transitions", h.Transitions)
		}

		api.GET("/heatmap", h.Heatmap)
		api.GET("/timeline", h.Timeline)

		api.GET("/occupancy", h.Occupancy)
		api.GET("/occupancy/active", h.ActiveEntities)
		api.GET("/map", h.Map)

		playback := api.Group("/playback")
		{
			playback.GET("", h.PlaybackStatus)
			playback.POST("/play", h.Play)
			playback.POST("/pause", h.Pause)
			playback.POST("/stop", h.Stop)
			playback.POST("/seek", h.Seek)
			playback.POST("/speed", h.Speed)
		}

		api.GET("/locale", h.GetLocale)
		api.PUT("/locale", h.PutLocale)
		api.GET("/i18n", h.Strings)
	}

	return r
}
