package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgsignal/decision-cli/internal/conflict"
	"github.com/orgsignal/decision-cli/internal/graph"
	"github.com/orgsignal/decision-cli/internal/model"
	"github.com/orgsignal/decision-cli/internal/retrieval"
	"github.com/orgsignal/decision-cli/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "decisions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	detector := conflict.NewDetector(graph.NewService(st), st, conflict.DefaultConfig())
	return New(st, detector, retrieval.New(retrieval.DefaultConfig()), nil, 0), st
}

func seedConflict(t *testing.T, st store.Store, team string) (string, string) {
	t.Helper()
	ctx := context.Background()
	a := model.Decision{
		ID: "d1", TeamID: team, Actor: "alice", Text: "freeze hiring",
		Sentiment: model.SentimentRed, CreatedAt: time.Now().UTC(),
	}
	b := model.Decision{
		ID: "d2", TeamID: team, Actor: "bob", Text: "hire two engineers",
		Sentiment: model.SentimentRed, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.InsertDecisions(ctx, []model.Decision{a, b}))
	require.NoError(t, st.InsertEdges(ctx, []model.GraphEdge{
		{TeamID: team, From: "d2", To: "d1", Type: model.EdgeBlocks},
	}))
	return a.ID, b.ID
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	rec := doRequest(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestHealthDegradedWhenStoreDown(t *testing.T) {
	t.Parallel()
	s, st := newTestServer(t)
	require.NoError(t, st.Close())

	rec := doRequest(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded"`)
}

func TestConflictsEndpoint(t *testing.T) {
	t.Parallel()
	s, st := newTestServer(t)
	seedConflict(t, st, "t1")

	rec := doRequest(t, s.Handler(), http.MethodGet, "/teams/t1/conflicts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Conflicts []model.ConflictFlag `json:"conflicts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, 2, resp.Conflicts[0].Severity)

	// Another team sees nothing.
	rec = doRequest(t, s.Handler(), http.MethodGet, "/teams/t2/conflicts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"conflicts":[]`)
}

func TestConsistencyEndpoint(t *testing.T) {
	t.Parallel()
	s, st := newTestServer(t)
	seedConflict(t, st, "t1")

	rec := doRequest(t, s.Handler(), http.MethodGet, "/teams/t1/consistency", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var metrics model.ConsistencyMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	// 2 RED nodes and 1 unresolved conflict: 100 - 20 - 5.
	assert.Equal(t, 75, metrics.Score)
	assert.Equal(t, 2, metrics.RedFlags)
	assert.Equal(t, 1, metrics.UnresolvedConflicts)
}

func TestReportEndpoint(t *testing.T) {
	t.Parallel()
	s, st := newTestServer(t)
	seedConflict(t, st, "t1")

	rec := doRequest(t, s.Handler(), http.MethodGet, "/teams/t1/report", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Conflicts   []model.ConflictFlag     `json:"conflicts"`
		Consistency model.ConsistencyMetrics `json:"consistency"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Conflicts, 1)
	assert.Equal(t, 75, resp.Consistency.Score)
}

func TestConsistencyEmptyTeam(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doRequest(t, s.Handler(), http.MethodGet, "/teams/nobody/consistency", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var metrics model.ConsistencyMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.Equal(t, 100, metrics.Score)
}

func TestRetrieveEndpoint(t *testing.T) {
	t.Parallel()
	s, st := newTestServer(t)
	require.NoError(t, st.InsertDecisions(context.Background(), []model.Decision{{
		ID: "d1", TeamID: "t1", Actor: "alice",
		Text: "migrate billing to stripe", Sentiment: model.SentimentGreen,
		CreatedAt: time.Now().UTC(),
	}}))

	rec := doRequest(t, s.Handler(), http.MethodPost, "/teams/t1/retrieve",
		`{"query":"billing migration","token_budget":500}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result model.RetrievalResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Decisions, 1)
	assert.Equal(t, "d1", result.Decisions[0].ID)
	assert.Positive(t, result.TokenCount)
}

func TestRetrieveValidation(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := doRequest(t, h, http.MethodPost, "/teams/t1/retrieve", `{"token_budget":500}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/teams/t1/retrieve", `{"query":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/teams/t1/retrieve", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBriefNotConfigured(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	rec := doRequest(t, s.Handler(), http.MethodPost, "/teams/t1/brief", `{"question":"can we hire?"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListDecisionsEndpoint(t *testing.T) {
	t.Parallel()
	s, st := newTestServer(t)
	seedConflict(t, st, "t1")

	rec := doRequest(t, s.Handler(), http.MethodGet, "/teams/t1/decisions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Decisions []model.Decision `json:"decisions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Decisions, 2)
}
