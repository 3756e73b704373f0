package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/alexknuckles/ultrasuite/internal/ingest"
)

// Ingest handles POST /api/v1/ingest. The body is a batch document in YAML
// or JSON, the same format the ingest command reads from disk.
func (c *Controller) Ingest(ctx echo.Context) error {
	batch, mode, err := ingest.DecodeBatch(ctx.Request().Body)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid batch", http.StatusBadRequest)
	}

	result, err := c.loader.Load(ctx.Request().Context(), batch, mode)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to ingest batch")
	}
	return ctx.JSON(http.StatusOK, result)
}
