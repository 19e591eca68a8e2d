package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/orgsignal/decision-cli/internal/model"
)

type fakeSink struct {
	mu        sync.Mutex
	files     []model.File
	decisions []model.Decision
	edges     []model.GraphEdge
}

func (f *fakeSink) UpsertFile(_ context.Context, file model.File) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, file)
	return nil
}

func (f *fakeSink) InsertDecisions(_ context.Context, ds []model.Decision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions = append(f.decisions, ds...)
	return nil
}

func (f *fakeSink) InsertEdges(_ context.Context, es []model.GraphEdge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edges = append(f.edges, es...)
	return nil
}

const sampleYAML = `team: t1
decisions:
  - actor: alice
    text: freeze hiring until q4
    reasoning: budget overrun
    sentiment: red
    importance: strategic
    timestamp: 2026-06-01T10:00:00Z
  - actor: bob
    text: hire two platform engineers
    sentiment: red
    links:
      - type: BLOCKS
        to: 0
  - actor: carol
    text: renew data center contract
    sentiment: green
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func edgesOfType(edges []model.GraphEdge, et model.EdgeType) []model.GraphEdge {
	var out []model.GraphEdge
	for _, e := range edges {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}

func TestIngestYAML(t *testing.T) {
	t.Parallel()
	sink := &fakeSink{}
	in := New(sink, Config{})
	path := writeTemp(t, "q2-review.yaml", sampleYAML)

	reports, err := in.IngestFiles(context.Background(), "t1", []string{path})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 3, reports[0].Decisions)
	assert.Equal(t, "q2-review.yaml", reports[0].File.Name)
	assert.NotEmpty(t, reports[0].File.Hash)

	require.Len(t, sink.decisions, 3)
	d := sink.decisions[0]
	assert.Equal(t, "t1", d.TeamID)
	assert.Equal(t, model.SentimentRed, d.Sentiment)
	assert.Equal(t, model.ImportanceStrategic, d.Importance)
	assert.Equal(t, "q2-review.yaml", d.Source)
	assert.True(t, d.Timestamp.Equal(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, model.DecisionID("alice", "freeze hiring until q4", "q2-review.yaml"), d.ID)

	// 3 provenance edges, 2 chain edges, 1 explicit link.
	assert.Len(t, edgesOfType(sink.edges, model.EdgeFromFile), 3)

	next := edgesOfType(sink.edges, model.EdgeNext)
	require.Len(t, next, 2)
	assert.Equal(t, 1, next[0].Sequence)
	assert.Equal(t, 2, next[1].Sequence)
	assert.Equal(t, sink.decisions[0].ID, next[0].From)
	assert.Equal(t, sink.decisions[1].ID, next[0].To)

	blocks := edgesOfType(sink.edges, model.EdgeBlocks)
	require.Len(t, blocks, 1)
	assert.Equal(t, sink.decisions[1].ID, blocks[0].From)
	assert.Equal(t, sink.decisions[0].ID, blocks[0].To)
}

func TestIngestXLSX(t *testing.T) {
	t.Parallel()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Decisions")
	require.NoError(t, err)

	header := sheet.AddRow()
	for _, col := range xlsxColumns {
		header.AddCell().Value = col
	}
	row := sheet.AddRow()
	for _, v := range []string{"alice", "freeze hiring", "budget", "red", "critical", "2026-06-01"} {
		row.AddCell().Value = v
	}
	blank := sheet.AddRow()
	blank.AddCell().Value = "" // rows without text are skipped
	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, f.Save(path))

	sink := &fakeSink{}
	reports, err := New(sink, Config{}).IngestFiles(context.Background(), "t1", []string{path})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 1, reports[0].Decisions)

	require.Len(t, sink.decisions, 1)
	assert.Equal(t, model.SentimentRed, sink.decisions[0].Sentiment)
	assert.Equal(t, model.ImportanceCritical, sink.decisions[0].Importance)
	assert.True(t, sink.decisions[0].Timestamp.Equal(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))
}

func TestIngestMultipleFilesConcurrently(t *testing.T) {
	t.Parallel()
	sink := &fakeSink{}
	in := New(sink, Config{Concurrency: 2})

	var paths []string
	for _, name := range []string{"a.yaml", "b.yaml", "c.yaml"} {
		paths = append(paths, writeTemp(t, name, sampleYAML))
	}

	reports, err := in.IngestFiles(context.Background(), "t1", paths)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	// Reports stay in input order regardless of completion order.
	assert.Equal(t, "a.yaml", reports[0].File.Name)
	assert.Equal(t, "c.yaml", reports[2].File.Name)
	assert.Len(t, sink.decisions, 9)
}

func TestIngestRejectsBadInput(t *testing.T) {
	t.Parallel()
	in := New(&fakeSink{}, Config{})
	ctx := context.Background()

	_, err := in.IngestFiles(ctx, "", []string{"x.yaml"})
	assert.Error(t, err)

	_, err = in.IngestFiles(ctx, "t1", []string{writeTemp(t, "empty.yaml", "decisions: []")})
	assert.ErrorContains(t, err, "no decisions")

	_, err = in.IngestFiles(ctx, "t1", []string{writeTemp(t, "notes.txt", "hello")})
	assert.ErrorContains(t, err, "unsupported file type")

	badLink := `decisions:
  - actor: a
    text: one
    links: [{type: BLOCKS, to: 5}]
`
	_, err = in.IngestFiles(ctx, "t1", []string{writeTemp(t, "bad.yaml", badLink)})
	assert.ErrorContains(t, err, "out of range")

	badType := `decisions:
  - actor: a
    text: one
  - actor: b
    text: two
    links: [{type: FRIENDS, to: 0}]
`
	_, err = in.IngestFiles(ctx, "t1", []string{writeTemp(t, "badtype.yaml", badType)})
	assert.ErrorContains(t, err, "unknown link type")
}

func TestIngestIdempotentIDs(t *testing.T) {
	t.Parallel()
	sink := &fakeSink{}
	in := New(sink, Config{})
	path := writeTemp(t, "q2.yaml", sampleYAML)

	_, err := in.IngestFiles(context.Background(), "t1", []string{path})
	require.NoError(t, err)
	_, err = in.IngestFiles(context.Background(), "t1", []string{path})
	require.NoError(t, err)

	// Same content hashes to the same ids both times; the store's
	// upsert collapses them.
	require.Len(t, sink.decisions, 6)
	assert.Equal(t, sink.decisions[0].ID, sink.decisions[3].ID)
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()
	ts, err := parseTimestamp("2026-06-01 10:30:00")
	require.NoError(t, err)
	assert.Equal(t, 10, ts.Hour())

	ts, err = parseTimestamp("")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	_, err = parseTimestamp("last tuesday")
	assert.Error(t, err)
}
