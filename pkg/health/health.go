package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/saaga0h/floorplan-dashboard/pkg/mqtt"
	"github.com/saaga0h/floorplan-dashboard/pkg/postgres"
	"github.com/saaga0h/floorplan-dashboard/pkg/redis"
)

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusDisabled     = "disabled"
)

const pingTimeout = time.Second

// Checker provides health check functionality for the dashboard server.
// Any client may be nil when that dependency is not configured.
type Checker struct {
	mqtt     mqtt.Client
	redis    redis.Client
	postgres postgres.Client
	logger   *slog.Logger
}

// NewChecker creates a new health checker with the given dependencies
func NewChecker(mqttClient mqtt.Client, redisClient redis.Client, postgresClient postgres.Client, logger *slog.Logger) *Checker {
	return &Checker{
		mqtt:     mqttClient,
		redis:    redisClient,
		postgres: postgresClient,
		logger:   logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp string    `json:"timestamp"`
	Services  *Services `json:"services,omitempty"`
}

// Services represents the status of external dependencies
type Services struct {
	Redis    string `json:"redis"`
	Postgres string `json:"postgres"`
	MQTT     string `json:"mqtt"`
}

// Handler returns 200 while the process is alive without checking
// dependencies
func (h *Checker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// DetailedHandler pings every configured dependency. Any configured
// dependency that is down yields 503 "degraded".
func (h *Checker) DetailedHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()

		services := h.Check(ctx)

		status := "healthy"
		statusCode := http.StatusOK
		if services.Redis == StatusDisconnected || services.Postgres == StatusDisconnected || services.MQTT == StatusDisconnected {
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Services:  services,
		})
	}
}

// Check reports the state of every dependency
func (h *Checker) Check(ctx context.Context) *Services {
	services := &Services{
		Redis:    StatusDisabled,
		Postgres: StatusDisabled,
		MQTT:     StatusDisabled,
	}

	if h.mqtt != nil {
		services.MQTT = StatusDisconnected
		if h.mqtt.IsConnected() {
			services.MQTT = StatusConnected
		}
	}

	if h.redis != nil {
		services.Redis = StatusConnected
		if err := h.redis.Ping(ctx); err != nil {
			h.logger.Warn("Redis health check failed", "error", err)
			services.Redis = StatusDisconnected
		}
	}

	if h.postgres != nil {
		services.Postgres = StatusConnected
		if err := h.postgres.Ping(ctx); err != nil {
			h.logger.Warn("Postgres health check failed", "error", err)
			services.Postgres = StatusDisconnected
		}
	}

	return services
}
