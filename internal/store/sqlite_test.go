package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgsignal/decision-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "decisions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleDecision(team, id string) model.Decision {
	return model.Decision{
		ID:         id,
		TeamID:     team,
		Actor:      "alice",
		Text:       "freeze hiring until q4",
		Reasoning:  "budget overrun",
		Sentiment:  model.SentimentRed,
		Importance: model.ImportanceStrategic,
		Timestamp:  time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		Source:     "q2-review.yaml",
		CreatedAt:  time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteDecisionRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	d := sampleDecision("t1", "d1")
	require.NoError(t, s.InsertDecisions(ctx, []model.Decision{d}))

	got, err := s.GetDecisionsByIDs(ctx, "t1", []string{"d1"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, d.ID, got[0].ID)
	assert.Equal(t, d.Actor, got[0].Actor)
	assert.Equal(t, d.Text, got[0].Text)
	assert.Equal(t, d.Reasoning, got[0].Reasoning)
	assert.Equal(t, d.Sentiment, got[0].Sentiment)
	assert.Equal(t, d.Importance, got[0].Importance)
	assert.Equal(t, d.Source, got[0].Source)
	assert.True(t, d.Timestamp.Equal(got[0].Timestamp))
}

func TestSQLiteInsertIdempotent(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	d := sampleDecision("t1", "d1")
	require.NoError(t, s.InsertDecisions(ctx, []model.Decision{d}))

	// Re-ingesting the same record must not duplicate it.
	d.Reasoning = "budget overrun, revised"
	require.NoError(t, s.InsertDecisions(ctx, []model.Decision{d}))

	all, err := s.ListDecisions(ctx, "t1", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "budget overrun, revised", all[0].Reasoning)
}

func TestSQLiteTenantIsolation(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.InsertDecisions(ctx, []model.Decision{
		sampleDecision("t1", "d1"),
		sampleDecision("t2", "d2"),
	}))
	require.NoError(t, s.InsertEdges(ctx, []model.GraphEdge{
		{TeamID: "t2", From: "d2", To: "d1", Type: model.EdgeBlocks},
	}))

	// Listing and id lookup never cross teams, even with a known id.
	list, err := s.ListDecisions(ctx, "t1", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "d1", list[0].ID)

	byID, err := s.GetDecisionsByIDs(ctx, "t1", []string{"d1", "d2"})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "d1", byID[0].ID)

	edges, err := s.ListEdges(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, edges)

	nodes, err := s.ListNodes(ctx, "t2")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "d2", nodes[0].ID)
}

func TestSQLiteListDecisionsPagination(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var batch []model.Decision
	for i := 0; i < 5; i++ {
		d := sampleDecision("t1", string(rune('a'+i)))
		d.CreatedAt = base.AddDate(0, 0, i)
		batch = append(batch, d)
	}
	require.NoError(t, s.InsertDecisions(ctx, batch))

	page, err := s.ListDecisions(ctx, "t1", 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	// Newest first.
	assert.Equal(t, "e", page[0].ID)
	assert.Equal(t, "d", page[1].ID)

	next, err := s.ListDecisions(ctx, "t1", 2, 2)
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Equal(t, "c", next[0].ID)
}

func TestSQLiteEdgeRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	edges := []model.GraphEdge{
		{TeamID: "t1", From: "d1", To: "d2", Type: model.EdgeCauses},
		{TeamID: "t1", From: "d1", To: "d2", Type: model.EdgeNext, Sequence: 1},
	}
	require.NoError(t, s.InsertEdges(ctx, edges))

	got, err := s.ListEdges(ctx, "t1")
	require.NoError(t, err)
	// Same endpoints, different types: both survive.
	assert.Len(t, got, 2)

	// Upserting the NEXT edge updates its sequence in place.
	require.NoError(t, s.InsertEdges(ctx, []model.GraphEdge{
		{TeamID: "t1", From: "d1", To: "d2", Type: model.EdgeNext, Sequence: 7},
	}))
	got, err = s.ListEdges(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, e := range got {
		if e.Type == model.EdgeNext {
			assert.Equal(t, 7, e.Sequence)
		}
	}
}

func TestSQLiteFileUpsert(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	f := model.File{Hash: "abc", Name: "q2.yaml", TeamID: "t1", UploadedAt: time.Now().UTC()}
	require.NoError(t, s.UpsertFile(ctx, f))

	f.Name = "q2-renamed.yaml"
	require.NoError(t, s.UpsertFile(ctx, f))
}

func TestSQLiteMissingTimestamp(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	d := sampleDecision("t1", "d1")
	d.Timestamp = time.Time{}
	require.NoError(t, s.InsertDecisions(ctx, []model.Decision{d}))

	got, err := s.GetDecisionsByIDs(ctx, "t1", []string{"d1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Timestamp.IsZero())
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestSQLiteGetByIDsEmpty(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)

	got, err := s.GetDecisionsByIDs(context.Background(), "t1", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
