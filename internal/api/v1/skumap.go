package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/errors"
	"github.com/alexknuckles/ultrasuite/internal/skumap"
	"github.com/alexknuckles/ultrasuite/internal/suggest"
)

// CategoryRequest sets the category of a group.
type CategoryRequest struct {
	Category entities.Category `json:"category"`
}

// MergeRequest merges one or more groups into a target group.
type MergeRequest struct {
	Target  string   `json:"target"`
	Source  string   `json:"source,omitempty"`
	Sources []string `json:"sources,omitempty"`
}

// RebindRequest moves a whole group to a new canonical id.
type RebindRequest struct {
	OldID string `json:"old_id"`
	NewID string `json:"new_id"`
}

// ReplaceRequest rewrites a group's category and alias list.
type ReplaceRequest struct {
	Category entities.Category `json:"category"`
	Aliases  []string          `json:"aliases"`
}

// MergeResponse reports how many groups were folded into the target.
type MergeResponse struct {
	Target string `json:"target"`
	Merged int    `json:"merged"`
}

func (c *Controller) initSKUMapRoutes() {
	g := c.Group.Group("/skumap")
	g.GET("", c.ListGroups)
	g.GET("/categories", c.ListCategories)
	g.GET("/stats", c.GetCategoryStats)
	g.GET("/lookup/:code", c.LookupCode)
	g.POST("/merge", c.MergeGroups)
	g.POST("/rebind", c.RebindGroup)
	g.PUT("/groups/:id", c.ReplaceGroup)
	g.PUT("/groups/:id/category", c.SetGroupCategory)
	g.DELETE("/groups/:id", c.ClearGroup)
}

func (c *Controller) initSuggestionRoutes() {
	c.Group.GET("/suggestions", c.ListSuggestions)
	c.Group.POST("/suggestions/accept", c.AcceptSuggestion)
}

// ListGroups handles GET /api/v1/skumap?view=all|mapped|merged
func (c *Controller) ListGroups(ctx echo.Context) error {
	view := skumap.GroupView(ctx.QueryParam("view"))
	if view == "" {
		view = skumap.ViewAll
	}

	groups, err := c.registry.Groups(ctx.Request().Context(), view)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to list SKU groups")
	}
	return ctx.JSON(http.StatusOK, groups)
}

// ListCategories handles GET /api/v1/skumap/categories
func (c *Controller) ListCategories(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, entities.Categories())
}

// GetCategoryStats handles GET /api/v1/skumap/stats
func (c *Controller) GetCategoryStats(ctx echo.Context) error {
	stats, err := c.registry.CategoryStats(ctx.Request().Context())
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to compute category stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// LookupCode handles GET /api/v1/skumap/lookup/:code
func (c *Controller) LookupCode(ctx echo.Context) error {
	res, err := c.registry.Lookup(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to look up code")
	}
	return ctx.JSON(http.StatusOK, res)
}

// SetGroupCategory handles PUT /api/v1/skumap/groups/:id/category
func (c *Controller) SetGroupCategory(ctx echo.Context) error {
	var req CategoryRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	id := ctx.Param("id")
	if err := c.registry.SetCategory(ctx.Request().Context(), id, req.Category); err != nil {
		return c.handleServiceError(ctx, err, "Failed to set category")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// MergeGroups handles POST /api/v1/skumap/merge. A request with several
// sources merges them all in one transaction.
func (c *Controller) MergeGroups(ctx echo.Context) error {
	var req MergeRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()
	if len(req.Sources) == 0 {
		if err := c.registry.Merge(reqCtx, req.Source, req.Target); err != nil {
			return c.handleServiceError(ctx, err, "Failed to merge groups")
		}
		return ctx.JSON(http.StatusOK, MergeResponse{Target: req.Target, Merged: 1})
	}

	if req.Source != "" {
		return c.HandleError(ctx, errors.InvalidInput("source and sources are mutually exclusive").Build(),
			"Invalid merge request", http.StatusBadRequest)
	}
	merged, err := c.registry.MergeMany(reqCtx, req.Target, req.Sources)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to merge groups")
	}
	return ctx.JSON(http.StatusOK, MergeResponse{Target: req.Target, Merged: merged})
}

// RebindGroup handles POST /api/v1/skumap/rebind
func (c *Controller) RebindGroup(ctx echo.Context) error {
	var req RebindRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	if err := c.registry.Rebind(ctx.Request().Context(), req.OldID, req.NewID); err != nil {
		return c.handleServiceError(ctx, err, "Failed to rebind group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ReplaceGroup handles PUT /api/v1/skumap/groups/:id
func (c *Controller) ReplaceGroup(ctx echo.Context) error {
	var req ReplaceRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	if err := c.registry.Replace(ctx.Request().Context(), ctx.Param("id"), req.Category, req.Aliases); err != nil {
		return c.handleServiceError(ctx, err, "Failed to replace group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ClearGroup handles DELETE /api/v1/skumap/groups/:id
func (c *Controller) ClearGroup(ctx echo.Context) error {
	if err := c.registry.Clear(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return c.handleServiceError(ctx, err, "Failed to clear group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ListSuggestions handles GET /api/v1/suggestions
func (c *Controller) ListSuggestions(ctx echo.Context) error {
	suggestions, err := c.registry.Suggestions(ctx.Request().Context(), c.strategy)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to compute suggestions")
	}
	if suggestions == nil {
		suggestions = []suggest.Suggestion{}
	}
	return ctx.JSON(http.StatusOK, suggestions)
}

// AcceptSuggestion handles POST /api/v1/suggestions/accept, merging B into A.
func (c *Controller) AcceptSuggestion(ctx echo.Context) error {
	var s suggest.Suggestion
	if err := ctx.Bind(&s); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	if err := c.registry.AcceptSuggestion(ctx.Request().Context(), s); err != nil {
		return c.handleServiceError(ctx, err, "Failed to accept suggestion")
	}
	return ctx.JSON(http.StatusOK, MergeResponse{Target: s.A, Merged: 1})
}
