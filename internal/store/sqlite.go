package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/orgsignal/decision-cli/internal/graph"
	"github.com/orgsignal/decision-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It serves the
// single-binary local setup; Postgres is the shared deployment.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS files (
	file_hash   TEXT PRIMARY KEY,
	file_name   TEXT NOT NULL,
	team_id     TEXT NOT NULL,
	uploaded_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
	id         TEXT PRIMARY KEY,
	team_id    TEXT NOT NULL,
	actor      TEXT NOT NULL,
	text       TEXT NOT NULL,
	reasoning  TEXT NOT NULL DEFAULT '',
	sentiment  TEXT NOT NULL DEFAULT 'NEUTRAL',
	importance TEXT NOT NULL DEFAULT '',
	ts         DATETIME,
	source     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS decision_edges (
	team_id   TEXT NOT NULL,
	src       TEXT NOT NULL,
	dst       TEXT NOT NULL,
	edge_type TEXT NOT NULL,
	sequence  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (team_id, src, dst, edge_type)
);

CREATE INDEX IF NOT EXISTS idx_decisions_team ON decisions(team_id);
CREATE INDEX IF NOT EXISTS idx_decisions_team_sentiment ON decisions(team_id, sentiment);
CREATE INDEX IF NOT EXISTS idx_edges_team ON decision_edges(team_id);
CREATE INDEX IF NOT EXISTS idx_files_team ON files(team_id);
`

// Migrate applies the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertDecisions upserts decision records one statement per row inside a
// transaction; corpora are small enough that COPY-style batching is not
// worth carrying here.
func (s *SQLiteStore) InsertDecisions(ctx context.Context, decisions []model.Decision) error {
	if len(decisions) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin insert decisions")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO decisions (id, team_id, actor, text, reasoning, sentiment, importance, ts, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			actor = excluded.actor, text = excluded.text, reasoning = excluded.reasoning,
			sentiment = excluded.sentiment, importance = excluded.importance,
			ts = excluded.ts, source = excluded.source`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert decision")
	}
	defer stmt.Close()

	for _, d := range decisions {
		var ts any
		if !d.Timestamp.IsZero() {
			ts = d.Timestamp.UTC()
		}
		created := d.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			d.ID, d.TeamID, d.Actor, d.Text, d.Reasoning,
			string(d.Sentiment), string(d.Importance), ts, d.Source, created.UTC(),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert decision %s", d.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit insert decisions")
}

// ListDecisions returns a page of the team's decisions, newest first.
func (s *SQLiteStore) ListDecisions(ctx context.Context, teamID string, limit, offset int) ([]model.Decision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, team_id, actor, text, reasoning, sentiment, importance, ts, source, created_at
		FROM decisions WHERE team_id = ? ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		teamID, clampLimit(limit), offset,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list decisions for team %s", teamID)
	}
	defer rows.Close()
	return scanSQLiteDecisions(rows)
}

// GetDecisionsByIDs fetches the matching records scoped to the team.
// Missing ids are silently omitted.
func (s *SQLiteStore) GetDecisionsByIDs(ctx context.Context, teamID string, ids []string) ([]model.Decision, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, teamID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, team_id, actor, text, reasoning, sentiment, importance, ts, source, created_at
		FROM decisions WHERE team_id = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get decisions by ids for team %s", teamID)
	}
	defer rows.Close()
	return scanSQLiteDecisions(rows)
}

// UpsertFile records a provenance file node.
func (s *SQLiteStore) UpsertFile(ctx context.Context, f model.File) error {
	uploaded := f.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (file_hash, file_name, team_id, uploaded_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (file_hash) DO UPDATE SET file_name = excluded.file_name`,
		f.Hash, f.Name, f.TeamID, uploaded.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert file %s", f.Name)
	}
	return nil
}

// InsertEdges upserts graph edges.
func (s *SQLiteStore) InsertEdges(ctx context.Context, edges []model.GraphEdge) error {
	if len(edges) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin insert edges")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO decision_edges (team_id, src, dst, edge_type, sequence) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (team_id, src, dst, edge_type) DO UPDATE SET sequence = excluded.sequence`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert edge")
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err := stmt.ExecContext(ctx, e.TeamID, e.From, e.To, string(e.Type), e.Sequence); err != nil {
			return eris.Wrapf(err, "sqlite: insert edge %s->%s", e.From, e.To)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit insert edges")
}

// ListEdges returns all of the team's edges.
func (s *SQLiteStore) ListEdges(ctx context.Context, teamID string) ([]model.GraphEdge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT team_id, src, dst, edge_type, sequence FROM decision_edges WHERE team_id = ?`,
		teamID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list edges for team %s", teamID)
	}
	defer rows.Close()

	var edges []model.GraphEdge
	for rows.Next() {
		var e model.GraphEdge
		var edgeType string
		if err := rows.Scan(&e.TeamID, &e.From, &e.To, &edgeType, &e.Sequence); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan edge")
		}
		e.Type = model.EdgeType(edgeType)
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate edges")
	}
	return edges, nil
}

// ListNodes returns the team's decisions as graph nodes.
func (s *SQLiteStore) ListNodes(ctx context.Context, teamID string) ([]graph.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, team_id, sentiment FROM decisions WHERE team_id = ?`,
		teamID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list nodes for team %s", teamID)
	}
	defer rows.Close()

	var nodes []graph.Node
	for rows.Next() {
		var n graph.Node
		var sentiment string
		if err := rows.Scan(&n.ID, &n.TeamID, &sentiment); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan node")
		}
		n.Sentiment = model.Sentiment(sentiment)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate nodes")
	}
	return nodes, nil
}

func scanSQLiteDecisions(rows *sql.Rows) ([]model.Decision, error) {
	var out []model.Decision
	for rows.Next() {
		var (
			d          model.Decision
			sentiment  string
			importance string
			ts         sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.TeamID, &d.Actor, &d.Text, &d.Reasoning,
			&sentiment, &importance, &ts, &d.Source, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan decision")
		}
		d.Sentiment = model.Sentiment(sentiment)
		d.Importance = model.Importance(importance)
		if ts.Valid {
			d.Timestamp = ts.Time
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate decisions")
	}
	return out, nil
}
