package graph

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/orgsignal/decision-cli/internal/model"
)

// ErrUnavailable indicates the graph store could not be reached. It is
// fatal to the specific call but not to the process; callers are expected
// to degrade (e.g. report an "unknown" health state) rather than hard-fail.
var ErrUnavailable = eris.New("graph: store unavailable")

// Source lists a single team's nodes and edges. Both listings must filter
// by team id; the graph never crosses tenants.
type Source interface {
	ListNodes(ctx context.Context, teamID string) ([]Node, error)
	ListEdges(ctx context.Context, teamID string) ([]model.GraphEdge, error)
}

// Service answers bounded-path queries by loading a team's graph from the
// source and traversing it in memory. Each call reloads from scratch;
// there is no cache and no shared state between invocations.
type Service struct {
	src Source
}

// NewService creates a Service over the given source.
func NewService(src Source) *Service {
	return &Service{src: src}
}

// Load fetches the team's full graph. A partial load is never returned:
// if either listing fails the whole call fails with ErrUnavailable.
func (s *Service) Load(ctx context.Context, teamID string) (*Graph, error) {
	nodes, err := s.src.ListNodes(ctx, teamID)
	if err != nil {
		return nil, eris.Wrapf(ErrUnavailable, "graph: list nodes for team %s: %v", teamID, err)
	}
	edges, err := s.src.ListEdges(ctx, teamID)
	if err != nil {
		return nil, eris.Wrapf(ErrUnavailable, "graph: list edges for team %s: %v", teamID, err)
	}
	return New(nodes, edges), nil
}

// FindBoundedPaths returns all simple paths of minHops..maxHops edges
// connecting two distinct nodes carrying the given sentiment, capped at
// limit. Direction and edge type are ignored during traversal.
func (s *Service) FindBoundedPaths(ctx context.Context, teamID string, sentiment model.Sentiment, minHops, maxHops, limit int) ([][]string, error) {
	g, err := s.Load(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return g.BoundedPaths(sentiment, minHops, maxHops, limit), nil
}
