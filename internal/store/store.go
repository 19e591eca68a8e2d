// Package store persists decision records, provenance files, and graph
// edges, and serves the read-side queries both engines depend on. Every
// query filters by team id: cross-tenant leakage is a correctness
// violation, not a feature.
package store

import (
	"context"

	"github.com/orgsignal/decision-cli/internal/graph"
	"github.com/orgsignal/decision-cli/internal/model"
)

// maxCorpusSize caps ListDecisions so the retriever's per-call index
// rebuild stays cheap.
const maxCorpusSize = 100

// Store defines the persistence interface shared by the Postgres and
// SQLite backends. It also satisfies graph.Source.
type Store interface {
	// Decisions
	InsertDecisions(ctx context.Context, decisions []model.Decision) error
	ListDecisions(ctx context.Context, teamID string, limit, offset int) ([]model.Decision, error)
	GetDecisionsByIDs(ctx context.Context, teamID string, ids []string) ([]model.Decision, error)

	// Provenance
	UpsertFile(ctx context.Context, f model.File) error

	// Graph
	InsertEdges(ctx context.Context, edges []model.GraphEdge) error
	ListEdges(ctx context.Context, teamID string) ([]model.GraphEdge, error)
	ListNodes(ctx context.Context, teamID string) ([]graph.Node, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxCorpusSize {
		return maxCorpusSize
	}
	return limit
}
