package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/ingest"
	"github.com/alexknuckles/ultrasuite/internal/resolution"
)

func TestPolicyEndpoints(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	rec := env.do(t, http.MethodGet, "/api/v1/settings/policy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[PolicyResponse](t, rec)
	assert.Equal(t, resolution.PolicyReview, got.Policy)
	assert.Equal(t, resolution.Policies(), got.Choices)

	rec = env.do(t, http.MethodPut, "/api/v1/settings/policy", PolicyRequest{Policy: "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/settings/policy", PolicyRequest{Policy: resolution.PolicyKeepA})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/settings/policy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, resolution.PolicyKeepA, decode[PolicyResponse](t, rec).Policy)
}

func TestApplyUsesStoredPolicy(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)
	env.pair(t, "pump")
	env.pair(t, "filter")

	rec := env.do(t, http.MethodPut, "/api/v1/settings/policy", PolicyRequest{Policy: resolution.PolicyKeepBoth})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/duplicates/apply", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[resolution.ApplyResult](t, rec)
	assert.Equal(t, resolution.PolicyKeepBoth, result.Policy)
	assert.Equal(t, entities.ActionKeepBoth, result.Action)
	assert.Equal(t, 2, result.Resolved)

	rec = env.do(t, http.MethodGet, "/api/v1/duplicates/ledger?view=resolved", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.LedgerEntry](t, rec), 2)
}

const ingestBatch = `
source: shopify
policy: review
rows:
  - occurred_at: 2024-05-01T09:00:00Z
    code: DET-100
    description: Detergent
    quantity: 2
    total: 19.98
`

func TestIngestEndpoint(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	rec := env.do(t, http.MethodPost, "/api/v1/ingest", ingestBatch)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[ingest.Result](t, rec)
	assert.Equal(t, entities.SourceA, result.Source)
	assert.Equal(t, 1, result.Rows)
	assert.Equal(t, 1, result.NewAliases)
	assert.Nil(t, result.Applied)

	rec = env.do(t, http.MethodGet, "/api/v1/skumap/lookup/det-100", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/ingest", "source: hubspot\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/ingest", "rows: [")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
