// Package api implements the JSON endpoints used by the SKU mapping and
// duplicate review screens.
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/alexknuckles/ultrasuite/internal/duplicates"
	"github.com/alexknuckles/ultrasuite/internal/errors"
	"github.com/alexknuckles/ultrasuite/internal/ingest"
	"github.com/alexknuckles/ultrasuite/internal/logger"
	"github.com/alexknuckles/ultrasuite/internal/observability"
	"github.com/alexknuckles/ultrasuite/internal/resolution"
	"github.com/alexknuckles/ultrasuite/internal/skumap"
	"github.com/alexknuckles/ultrasuite/internal/suggest"
)

// Services are the domain services the controller exposes.
type Services struct {
	Registry   *skumap.Registry
	Strategy   suggest.Strategy
	Detector   *duplicates.Detector
	Resolution *resolution.Service
	Policies   *resolution.PolicyStore
	Loader     *ingest.Loader
	// Location is used to read date-only query bounds. Defaults to UTC.
	Location *time.Location
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group

	registry   *skumap.Registry
	strategy   suggest.Strategy
	detector   *duplicates.Detector
	resolution *resolution.Service
	policies   *resolution.PolicyStore
	loader     *ingest.Loader
	location   *time.Location

	logger    logger.Logger
	metrics   *observability.Metrics
	startTime time.Time
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		c.logger = log
	}
}

// WithMetrics exposes the registry at /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// New creates the controller and registers its routes under /api/v1.
func New(e *echo.Echo, services Services, opts ...Option) (*Controller, error) {
	if e == nil {
		return nil, errors.Newf("echo instance is required").Component("api").Category(errors.CategoryConfiguration).Build()
	}
	if services.Registry == nil || services.Detector == nil || services.Resolution == nil || services.Policies == nil {
		return nil, errors.Newf("registry, detector, resolution and policy services are required").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Controller{
		Echo:       e,
		Group:      e.Group("/api/v1"),
		registry:   services.Registry,
		strategy:   services.Strategy,
		detector:   services.Detector,
		resolution: services.Resolution,
		policies:   services.Policies,
		loader:     services.Loader,
		location:   services.Location,
		startTime:  time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Global().Module("api")
	}
	if c.strategy == nil {
		c.strategy = suggest.DefaultHeuristic()
	}
	if c.location == nil {
		c.location = time.UTC
	}

	c.initRoutes()
	return c, nil
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.initSKUMapRoutes()
	c.initSuggestionRoutes()
	c.initDuplicateRoutes()
	c.initSettingsRoutes()
	if c.loader != nil {
		c.Group.POST("/ingest", c.Ingest)
	}

	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// HealthCheck handles the API health check endpoint
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	}

	dbStatus := "connected"
	if _, err := c.registry.Canonicals(ctx.Request().Context()); err != nil {
		dbStatus = "disconnected"
		response["status"] = "degraded"
		response["database_error"] = err.Error()
	}
	response["database_status"] = dbStatus

	uptime := time.Since(c.startTime)
	response["uptime"] = uptime.String()
	response["uptime_seconds"] = uptime.Seconds()

	return ctx.JSON(http.StatusOK, response)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	Category      string `json:"category,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	resp := &ErrorResponse{
		Error:         message,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString()[:8],
	}
	if err != nil {
		resp.Error = err.Error()
		var ee *errors.EnhancedError
		if errors.As(err, &ee) {
			resp.Category = ee.GetCategory()
		}
	}
	return resp
}

// StatusFor maps an error category to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsConflict(err):
		return http.StatusConflict
	case errors.IsInvalidInput(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HandleError constructs and returns an error response with the given status.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.logger.Error("API error", fields...)
	} else {
		c.logger.Debug("API request rejected", fields...)
	}

	return ctx.JSON(code, resp)
}

// handleServiceError responds with the status matching the error category.
func (c *Controller) handleServiceError(ctx echo.Context, err error, message string) error {
	return c.HandleError(ctx, err, message, StatusFor(err))
}
