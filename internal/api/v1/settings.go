package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/alexknuckles/ultrasuite/internal/resolution"
)

// PolicyResponse is the stored duplicate resolution policy with the choices
// the settings screen offers.
type PolicyResponse struct {
	Policy  resolution.Policy   `json:"policy"`
	Choices []resolution.Policy `json:"choices"`
}

// PolicyRequest updates the stored policy.
type PolicyRequest struct {
	Policy resolution.Policy `json:"policy"`
}

func (c *Controller) initSettingsRoutes() {
	g := c.Group.Group("/settings")
	g.GET("/policy", c.GetPolicy)
	g.PUT("/policy", c.UpdatePolicy)
}

// GetPolicy handles GET /api/v1/settings/policy
func (c *Controller) GetPolicy(ctx echo.Context) error {
	policy, err := c.policies.Get(ctx.Request().Context())
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to read policy")
	}
	return ctx.JSON(http.StatusOK, PolicyResponse{Policy: policy, Choices: resolution.Policies()})
}

// UpdatePolicy handles PUT /api/v1/settings/policy
func (c *Controller) UpdatePolicy(ctx echo.Context) error {
	var req PolicyRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	if err := c.policies.Set(ctx.Request().Context(), req.Policy); err != nil {
		return c.handleServiceError(ctx, err, "Failed to update policy")
	}
	return ctx.JSON(http.StatusOK, PolicyResponse{Policy: req.Policy, Choices: resolution.Policies()})
}
