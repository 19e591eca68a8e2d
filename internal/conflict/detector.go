// Package conflict locates short chains of contradicting decisions in a
// team's graph and summarizes overall graph health as a single score.
package conflict

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/orgsignal/decision-cli/internal/graph"
	"github.com/orgsignal/decision-cli/internal/model"
)

const (
	minPathHops = 1
	maxPathHops = 3  // longer chains are weak signals and cost grows combinatorially
	maxPaths    = 50 // bounded-search guard against pathological graphs
	maxSeverity = 10
)

// Config holds the tunable scoring weights. The defaults reproduce the
// reference behavior; they are empirically chosen, not derived.
type Config struct {
	RedWeight        int `yaml:"red_weight" mapstructure:"red_weight"`               // score penalty per RED node
	UnresolvedWeight int `yaml:"unresolved_weight" mapstructure:"unresolved_weight"` // score penalty per unresolved conflict
}

// DefaultConfig returns the reference scoring weights.
func DefaultConfig() Config {
	return Config{RedWeight: 10, UnresolvedWeight: 5}
}

// LabelStore resolves decision ids to full records for display labels.
// Missing ids are silently omitted, never errored.
type LabelStore interface {
	GetDecisionsByIDs(ctx context.Context, teamID string, ids []string) ([]model.Decision, error)
}

// Detector is the conflict path finder. It is stateless and per-call:
// every invocation re-queries the graph from scratch.
type Detector struct {
	graph *graph.Service
	store LabelStore
	cfg   Config
}

// NewDetector creates a Detector over the given graph service and store.
func NewDetector(g *graph.Service, store LabelStore, cfg Config) *Detector {
	if cfg.RedWeight == 0 && cfg.UnresolvedWeight == 0 {
		cfg = DefaultConfig()
	}
	return &Detector{graph: g, store: store, cfg: cfg}
}

// FindConflictPaths returns all simple paths of 1 to 3 edges connecting two
// distinct RED decisions within the team, capped at 50 paths.
func (d *Detector) FindConflictPaths(ctx context.Context, teamID string) ([][]string, error) {
	return d.graph.FindBoundedPaths(ctx, teamID, model.SentimentRed, minPathHops, maxPathHops, maxPaths)
}

// DetectConflicts turns conflict paths into ranked flags. Output order
// follows path discovery order; severity sorting is a caller concern.
// Resolution state is owned by an external workflow, so every flag is
// emitted unresolved.
func (d *Detector) DetectConflicts(ctx context.Context, teamID string) ([]model.ConflictFlag, error) {
	paths, err := d.FindConflictPaths(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}

	labels, err := d.resolveLabels(ctx, teamID, paths)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	flags := make([]model.ConflictFlag, 0, len(paths))
	for _, p := range paths {
		severity := len(p)
		if severity > maxSeverity {
			severity = maxSeverity
		}
		flags = append(flags, model.ConflictFlag{
			FlagID:       uuid.NewString(),
			DecisionA:    labels[p[0]],
			DecisionB:    labels[p[len(p)-1]],
			Severity:     severity,
			ConflictPath: append([]string{}, p...),
			DetectedAt:   now,
			Resolved:     false,
		})
	}

	zap.L().Debug("conflicts detected",
		zap.String("team_id", teamID),
		zap.Int("paths", len(paths)),
	)
	return flags, nil
}

// ConsistencyScore recomputes the team's health metrics from scratch.
// The four component counts are always returned alongside the score so the
// result is recomputable without re-running the graph query.
func (d *Detector) ConsistencyScore(ctx context.Context, teamID string) (model.ConsistencyMetrics, error) {
	g, err := d.graph.Load(ctx, teamID)
	if err != nil {
		return model.ConsistencyMetrics{}, err
	}

	m := model.ConsistencyMetrics{
		TotalDecisions:  g.Len(),
		RedFlags:        len(g.NodesWithSentiment(model.SentimentRed)),
		GreenAlignments: len(g.NodesWithSentiment(model.SentimentGreen)),
	}
	m.NeutralCount = m.TotalDecisions - m.RedFlags - m.GreenAlignments

	flags, err := d.DetectConflicts(ctx, teamID)
	if err != nil {
		return model.ConsistencyMetrics{}, eris.Wrap(err, "conflict: count unresolved")
	}
	for _, f := range flags {
		if !f.Resolved {
			m.UnresolvedConflicts++
		}
	}

	m.Score = clamp(100-m.RedFlags*d.cfg.RedWeight-m.UnresolvedConflicts*d.cfg.UnresolvedWeight, 0, 100)
	return m, nil
}

// resolveLabels batch-fetches display labels for every id appearing in any
// path, falling back to the raw id for records the store no longer has.
func (d *Detector) resolveLabels(ctx context.Context, teamID string, paths [][]string) (map[string]string, error) {
	idSet := make(map[string]bool)
	for _, p := range paths {
		for _, id := range p {
			idSet[id] = true
		}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	labels := make(map[string]string, len(ids))
	for _, id := range ids {
		labels[id] = id
	}

	decisions, err := d.store.GetDecisionsByIDs(ctx, teamID, ids)
	if err != nil {
		return nil, eris.Wrapf(err, "conflict: fetch labels for team %s", teamID)
	}
	for _, dec := range decisions {
		labels[dec.ID] = dec.Label()
	}
	return labels, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
