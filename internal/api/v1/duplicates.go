package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/duplicates"
	"github.com/alexknuckles/ultrasuite/internal/errors"
	"github.com/alexknuckles/ultrasuite/internal/resolution"
)

const dateLayout = "2006-01-02"

// ResolveRequest carries the decision for a pair.
type ResolveRequest struct {
	Action entities.Action `json:"action"`
}

// ApplyRequest runs a policy over every pair that needs attention. An empty
// policy uses the stored one.
type ApplyRequest struct {
	Policy resolution.Policy `json:"policy"`
}

func (c *Controller) initDuplicateRoutes() {
	g := c.Group.Group("/duplicates")
	g.GET("", c.ListDuplicates)
	g.POST("/apply", c.ApplyPolicy)
	g.GET("/ledger", c.ListLedger)

	pair := g.Group("/:a/:b")
	pair.GET("", c.GetPairState)
	pair.GET("/history", c.GetPairHistory)
	pair.POST("/resolve", c.ResolvePair)
	pair.POST("/unmatch", c.UnmatchPair)
	pair.POST("/ignore", c.IgnorePair)
	pair.POST("/unignore", c.UnignorePair)
}

// ListDuplicates handles GET /api/v1/duplicates
//
// Query parameters: canonical, start, end (RFC 3339 or YYYY-MM-DD, date-only
// end is inclusive of the whole day) and view.
func (c *Controller) ListDuplicates(ctx echo.Context) error {
	q := duplicates.Query{
		Canonical: ctx.QueryParam("canonical"),
		View:      duplicates.View(ctx.QueryParam("view")),
	}

	var err error
	if q.Start, err = c.parseBound(ctx.QueryParam("start"), false); err != nil {
		return c.HandleError(ctx, err, "Invalid start", http.StatusBadRequest)
	}
	if q.End, err = c.parseBound(ctx.QueryParam("end"), true); err != nil {
		return c.HandleError(ctx, err, "Invalid end", http.StatusBadRequest)
	}

	candidates, err := c.detector.FindDuplicates(ctx.Request().Context(), q)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to find duplicates")
	}
	if candidates == nil {
		candidates = []duplicates.Candidate{}
	}
	return ctx.JSON(http.StatusOK, candidates)
}

// GetPairState handles GET /api/v1/duplicates/:a/:b
func (c *Controller) GetPairState(ctx echo.Context) error {
	key, err := pairKey(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid pair", http.StatusBadRequest)
	}

	state, err := c.resolution.State(ctx.Request().Context(), key)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to read pair state")
	}
	return ctx.JSON(http.StatusOK, state)
}

// GetPairHistory handles GET /api/v1/duplicates/:a/:b/history
func (c *Controller) GetPairHistory(ctx echo.Context) error {
	key, err := pairKey(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid pair", http.StatusBadRequest)
	}

	history, err := c.resolution.History(ctx.Request().Context(), key)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to read pair history")
	}
	if history == nil {
		history = []entities.LedgerEntry{}
	}
	return ctx.JSON(http.StatusOK, history)
}

// ResolvePair handles POST /api/v1/duplicates/:a/:b/resolve
func (c *Controller) ResolvePair(ctx echo.Context) error {
	key, err := pairKey(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid pair", http.StatusBadRequest)
	}
	var req ResolveRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	entry, err := c.resolution.Resolve(ctx.Request().Context(), key, req.Action)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to resolve pair")
	}
	return ctx.JSON(http.StatusOK, entry)
}

// UnmatchPair handles POST /api/v1/duplicates/:a/:b/unmatch
func (c *Controller) UnmatchPair(ctx echo.Context) error {
	return c.pairTransition(ctx, c.resolution.Unmatch, "Failed to unmatch pair")
}

// IgnorePair handles POST /api/v1/duplicates/:a/:b/ignore
func (c *Controller) IgnorePair(ctx echo.Context) error {
	return c.pairTransition(ctx, c.resolution.Ignore, "Failed to ignore pair")
}

// UnignorePair handles POST /api/v1/duplicates/:a/:b/unignore
func (c *Controller) UnignorePair(ctx echo.Context) error {
	return c.pairTransition(ctx, c.resolution.Unignore, "Failed to unignore pair")
}

type transitionFunc func(ctx context.Context, key entities.PairKey) (*entities.LedgerEntry, error)

func (c *Controller) pairTransition(ctx echo.Context, fn transitionFunc, message string) error {
	key, err := pairKey(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid pair", http.StatusBadRequest)
	}

	entry, err := fn(ctx.Request().Context(), key)
	if err != nil {
		return c.handleServiceError(ctx, err, message)
	}
	return ctx.JSON(http.StatusOK, entry)
}

// ApplyPolicy handles POST /api/v1/duplicates/apply
func (c *Controller) ApplyPolicy(ctx echo.Context) error {
	var req ApplyRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()
	policy := req.Policy
	if policy == "" {
		var err error
		if policy, err = c.policies.Get(reqCtx); err != nil {
			return c.handleServiceError(ctx, err, "Failed to read policy")
		}
	}

	result, err := c.resolution.ApplyPolicy(reqCtx, policy)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to apply policy")
	}
	return ctx.JSON(http.StatusOK, result)
}

// ListLedger handles GET /api/v1/duplicates/ledger?view=resolved|ignored|unmatched|all
func (c *Controller) ListLedger(ctx echo.Context) error {
	entries, err := c.resolution.Entries(ctx.Request().Context(), resolution.LedgerView(ctx.QueryParam("view")))
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to list ledger")
	}
	if entries == nil {
		entries = []entities.LedgerEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

// pairKey reads the :a and :b row ids.
func pairKey(ctx echo.Context) (entities.PairKey, error) {
	a, errA := strconv.ParseUint(ctx.Param("a"), 10, 64)
	b, errB := strconv.ParseUint(ctx.Param("b"), 10, 64)
	if errA != nil || errB != nil || a == 0 || b == 0 {
		return entities.PairKey{}, errors.InvalidInput("pair must be two positive row ids, got %q/%q", ctx.Param("a"), ctx.Param("b")).
			Component("api").
			Build()
	}
	return entities.PairKey{SourceARowID: uint(a), SourceBRowID: uint(b)}, nil
}

// parseBound parses an RFC 3339 timestamp or a date. A date-only end bound
// covers the whole day.
func (c *Controller) parseBound(s string, end bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, c.location)
	if err != nil {
		return nil, errors.InvalidInput("%q is neither RFC 3339 nor YYYY-MM-DD", s).
			Component("api").
			Build()
	}
	if end {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}
