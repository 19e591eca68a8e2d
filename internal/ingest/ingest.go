// Package ingest loads decision log files (YAML or XLSX) into the
// store: decisions keyed by content hash, a provenance file node, and
// the graph edges that chain and relate them.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/orgsignal/decision-cli/internal/model"
)

// Sink is the slice of the store the ingester writes to.
type Sink interface {
	UpsertFile(ctx context.Context, f model.File) error
	InsertDecisions(ctx context.Context, decisions []model.Decision) error
	InsertEdges(ctx context.Context, edges []model.GraphEdge) error
}

// Config tunes the ingester.
type Config struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// Report summarizes one ingested file.
type Report struct {
	File      model.File
	Decisions int
	Edges     int
}

// Ingester parses uploaded decision logs and persists them. Ingestion
// is idempotent: decision ids are content hashes, so re-uploading a
// file updates records in place instead of duplicating them.
type Ingester struct {
	sink Sink
	cfg  Config
	now  func() time.Time
}

// New returns an Ingester writing to sink.
func New(sink Sink, cfg Config) *Ingester {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Ingester{sink: sink, cfg: cfg, now: time.Now}
}

// IngestFiles loads every path for the team, bounded-concurrently.
// Reports come back in input order. The first failure cancels the
// remaining work.
func (in *Ingester) IngestFiles(ctx context.Context, teamID string, paths []string) ([]Report, error) {
	if teamID == "" {
		return nil, eris.New("ingest: team id is required")
	}

	reports := make([]Report, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(in.cfg.Concurrency)

	for i, path := range paths {
		g.Go(func() error {
			rep, err := in.ingestOne(ctx, teamID, path)
			if err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (in *Ingester) ingestOne(ctx context.Context, teamID, path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, eris.Wrapf(err, "ingest: read %s", path)
	}

	name := filepath.Base(path)
	parsed, err := parseFile(name, data)
	if err != nil {
		return Report{}, eris.Wrapf(err, "ingest: parse %s", name)
	}
	if len(parsed.Decisions) == 0 {
		return Report{}, eris.Errorf("ingest: %s contains no decisions", name)
	}

	hash := sha256.Sum256(data)
	file := model.File{
		Hash:       hex.EncodeToString(hash[:]),
		Name:       name,
		TeamID:     teamID,
		UploadedAt: in.now().UTC(),
	}

	decisions, edges, err := buildBatch(teamID, file, parsed.Decisions, in.now().UTC())
	if err != nil {
		return Report{}, eris.Wrapf(err, "ingest: %s", name)
	}

	if err := in.sink.UpsertFile(ctx, file); err != nil {
		return Report{}, err
	}
	if err := in.sink.InsertDecisions(ctx, decisions); err != nil {
		return Report{}, err
	}
	if err := in.sink.InsertEdges(ctx, edges); err != nil {
		return Report{}, err
	}

	zap.L().Info("ingested decision file",
		zap.String("team", teamID),
		zap.String("file", name),
		zap.Int("decisions", len(decisions)),
		zap.Int("edges", len(edges)))

	return Report{File: file, Decisions: len(decisions), Edges: len(edges)}, nil
}

// buildBatch turns parsed records into persistable decisions and edges:
// a FROM_FILE edge per decision, a NEXT chain in file order, and the
// file's explicit links.
func buildBatch(teamID string, file model.File, records []record, now time.Time) ([]model.Decision, []model.GraphEdge, error) {
	decisions := make([]model.Decision, 0, len(records))
	for i, r := range records {
		if r.Text == "" {
			return nil, nil, eris.Errorf("decision %d has no text", i)
		}
		ts, err := parseTimestamp(r.Timestamp)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "decision %d", i)
		}
		decisions = append(decisions, model.Decision{
			ID:         model.DecisionID(r.Actor, r.Text, file.Name),
			TeamID:     teamID,
			Actor:      r.Actor,
			Text:       r.Text,
			Reasoning:  r.Reasoning,
			Sentiment:  model.ParseSentiment(r.Sentiment),
			Importance: model.Importance(r.Importance),
			Timestamp:  ts,
			Source:     file.Name,
			CreatedAt:  now,
		})
	}

	var edges []model.GraphEdge
	for i, d := range decisions {
		edges = append(edges, model.GraphEdge{
			TeamID: teamID, From: d.ID, To: file.Hash, Type: model.EdgeFromFile,
		})
		if i > 0 {
			edges = append(edges, model.GraphEdge{
				TeamID: teamID, From: decisions[i-1].ID, To: d.ID,
				Type: model.EdgeNext, Sequence: i,
			})
		}
	}

	for i, r := range records {
		for _, l := range r.Links {
			edgeType, ok := semanticEdgeTypes[l.Type]
			if !ok {
				return nil, nil, eris.Errorf("decision %d: unknown link type %q", i, l.Type)
			}
			if l.To < 0 || l.To >= len(decisions) {
				return nil, nil, eris.Errorf("decision %d: link target %d out of range", i, l.To)
			}
			if l.To == i {
				return nil, nil, eris.Errorf("decision %d: link targets itself", i)
			}
			edges = append(edges, model.GraphEdge{
				TeamID: teamID, From: decisions[i].ID, To: decisions[l.To].ID, Type: edgeType,
			})
		}
	}
	return decisions, edges, nil
}
