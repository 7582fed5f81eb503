package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
)

// Pinger is anything with a connectivity check, like the redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConsumerHealth reports whether the Kafka consumer loop is running.
type ConsumerHealth interface {
	Health() bool
}

// Checker handles health check endpoints. The database is required; cache and
// consumer checks only run when those components are configured.
type Checker struct {
	db        *sqlx.DB
	cache     Pinger
	consumer  ConsumerHealth
	version   string
	startTime time.Time
	ready     atomic.Bool
}

// NewChecker creates a new health checker. Nil cache and consumer are allowed.
func NewChecker(db *sqlx.DB, cache Pinger, consumer ConsumerHealth, version string) *Checker {
	return &Checker{
		db:        db,
		cache:     cache,
		consumer:  consumer,
		version:   version,
		startTime: time.Now(),
	}
}

// SetReady sets the readiness state
func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
}

// RegisterRoutes registers health check endpoints
func (c *Checker) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", c.Health)
	e.GET("/health/live", c.Live)
	e.GET("/health/ready", c.Ready)
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Checks     map[string]*CheckResult `json:"checks"`
	ReportedAt time.Time               `json:"reported_at"`
}

// CheckResult represents an individual check result
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health returns the overall health status
func (c *Checker) Health(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	status := &HealthStatus{
		Status:     "healthy",
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		Checks:     make(map[string]*CheckResult),
		ReportedAt: time.Now(),
	}

	if c.db != nil {
		start := time.Now()
		err := c.db.PingContext(reqCtx)
		latency := time.Since(start)

		if err != nil {
			status.Status = "unhealthy"
			status.Checks["database"] = &CheckResult{
				Status:  "unhealthy",
				Message: err.Error(),
			}
		} else {
			status.Checks["database"] = &CheckResult{
				Status:  "healthy",
				Latency: latency.String(),
			}
		}
	} else {
		status.Status = "unhealthy"
		status.Checks["database"] = &CheckResult{
			Status:  "unhealthy",
			Message: "database not configured",
		}
	}

	if c.cache != nil {
		start := time.Now()
		err := c.cache.Ping(reqCtx)
		latency := time.Since(start)

		if err != nil {
			status.Status = "unhealthy"
			status.Checks["cache"] = &CheckResult{
				Status:  "unhealthy",
				Message: err.Error(),
			}
		} else {
			status.Checks["cache"] = &CheckResult{
				Status:  "healthy",
				Latency: latency.String(),
			}
		}
	}

	// A stopped consumer only degrades health; HTTP resolution still works.
	if c.consumer != nil {
		if c.consumer.Health() {
			status.Checks["kafka_consumer"] = &CheckResult{Status: "healthy"}
		} else {
			if status.Status == "healthy" {
				status.Status = "degraded"
			}
			status.Checks["kafka_consumer"] = &CheckResult{
				Status:  "unhealthy",
				Message: "consumer loop is not running",
			}
		}
	}

	httpStatus := http.StatusOK
	if status.Status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	return ctx.JSON(httpStatus, status)
}

// Live returns the liveness status (is the service running)
func (c *Checker) Live(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "alive"})
}

// Ready returns the readiness status (is the service ready to accept traffic)
func (c *Checker) Ready(ctx echo.Context) error {
	if c.ready.Load() {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "ready"})
	}
	return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
}
