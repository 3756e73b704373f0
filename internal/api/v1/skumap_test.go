package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexknuckles/ultrasuite/internal/skumap"
	"github.com/alexknuckles/ultrasuite/internal/suggest"
)

func TestSKUMapEndpoints(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	_, err := env.registry.RegisterUnseen(context.Background(), []string{"DET-100", "det100", "filter-7", "pump"}, "shopify")
	require.NoError(t, err)

	t.Run("merge", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/skumap/merge", MergeRequest{Source: "det100", Target: "det-100"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, MergeResponse{Target: "det-100", Merged: 1}, decode[MergeResponse](t, rec))

		rec = env.do(t, http.MethodGet, "/api/v1/skumap/lookup/DET100", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		res := decode[skumap.Resolution](t, rec)
		assert.Equal(t, "det-100", res.CanonicalID)
		assert.True(t, res.Known)
	})

	t.Run("merge into itself", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/skumap/merge", MergeRequest{Source: "pump", Target: "pump"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("merge without target", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/skumap/merge", MergeRequest{Source: "pump"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("source and sources", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/skumap/merge",
			MergeRequest{Target: "pump", Source: "a", Sources: []string{"b"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("set category", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/api/v1/skumap/groups/det-100/category", CategoryRequest{Category: "detergent"})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodGet, "/api/v1/skumap/stats", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		stats := decode[map[string]int64](t, rec)
		assert.Equal(t, int64(1), stats["detergent"])

		rec = env.do(t, http.MethodPut, "/api/v1/skumap/groups/det-100/category", CategoryRequest{Category: "soap"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("merged view", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/skumap?view=merged", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		groups := decode[[]skumap.Group](t, rec)
		require.Len(t, groups, 1)
		assert.Equal(t, "det-100", groups[0].CanonicalID)
		assert.Equal(t, []string{"det100"}, groups[0].Aliases)

		rec = env.do(t, http.MethodGet, "/api/v1/skumap?view=sideways", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("replace and rebind", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/api/v1/skumap/groups/filter-7", ReplaceRequest{
			Category: "filters",
			Aliases:  []string{"flt7"},
		})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodPost, "/api/v1/skumap/rebind", RebindRequest{OldID: "filter-7", NewID: "filter-007"})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodGet, "/api/v1/skumap/lookup/flt7", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		res := decode[skumap.Resolution](t, rec)
		assert.Equal(t, "filter-007", res.CanonicalID)
		assert.Equal(t, "filters", string(res.Category))
	})

	t.Run("clear", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/api/v1/skumap/groups/pump", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(t, http.MethodDelete, "/api/v1/skumap/groups/pump", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("categories", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/skumap/categories", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, decode[[]string](t, rec), "detergent_filter_kits")
	})
}

func TestMergeManyEndpoint(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	_, err := env.registry.RegisterUnseen(context.Background(), []string{"a", "b", "c"}, "qbo")
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/v1/skumap/merge", MergeRequest{Target: "a", Sources: []string{"b", "c"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[MergeResponse](t, rec).Merged)

	rec = env.do(t, http.MethodGet, "/api/v1/skumap/lookup/c", nil)
	assert.Equal(t, "a", decode[skumap.Resolution](t, rec).CanonicalID)
}

func TestSuggestionEndpoints(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	_, err := env.registry.RegisterUnseen(context.Background(),
		[]string{"detergent-5gal", "detergent5gal", "pump"}, "shopify")
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/v1/suggestions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	suggestions := decode[[]suggest.Suggestion](t, rec)
	require.NotEmpty(t, suggestions)

	s := suggestions[0]
	rec = env.do(t, http.MethodPost, "/api/v1/suggestions/accept", s)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/skumap/lookup/"+s.B, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, s.A, decode[skumap.Resolution](t, rec).CanonicalID)

	rec = env.do(t, http.MethodGet, "/api/v1/suggestions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]suggest.Suggestion](t, rec))
}
