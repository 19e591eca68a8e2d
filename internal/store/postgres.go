package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/orgsignal/decision-cli/internal/db"
	"github.com/orgsignal/decision-cli/internal/graph"
	"github.com/orgsignal/decision-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"list_decisions": `SELECT id, team_id, actor, text, reasoning, sentiment, importance, ts, source, created_at
		FROM decisions WHERE team_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
	"get_decisions_by_ids": `SELECT id, team_id, actor, text, reasoning, sentiment, importance, ts, source, created_at
		FROM decisions WHERE team_id = $1 AND id = ANY($2)`,
	"list_nodes": `SELECT id, team_id, sentiment FROM decisions WHERE team_id = $1`,
	"list_edges": `SELECT team_id, src, dst, edge_type, sequence FROM decision_edges WHERE team_id = $1`,
	"upsert_file": `INSERT INTO files (file_hash, file_name, team_id, uploaded_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (file_hash) DO UPDATE SET file_name = EXCLUDED.file_name`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS files (
	file_hash   TEXT PRIMARY KEY,
	file_name   TEXT NOT NULL,
	team_id     TEXT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS decisions (
	id         TEXT PRIMARY KEY,
	team_id    TEXT NOT NULL,
	actor      TEXT NOT NULL,
	text       TEXT NOT NULL,
	reasoning  TEXT NOT NULL DEFAULT '',
	sentiment  TEXT NOT NULL DEFAULT 'NEUTRAL',
	importance TEXT NOT NULL DEFAULT '',
	ts         TIMESTAMPTZ,
	source     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS decision_edges (
	team_id   TEXT NOT NULL,
	src       TEXT NOT NULL,
	dst       TEXT NOT NULL,
	edge_type TEXT NOT NULL,
	sequence  INT NOT NULL DEFAULT 0,
	PRIMARY KEY (team_id, src, dst, edge_type)
);

CREATE INDEX IF NOT EXISTS idx_decisions_team ON decisions(team_id);
CREATE INDEX IF NOT EXISTS idx_decisions_team_sentiment ON decisions(team_id, sentiment);
CREATE INDEX IF NOT EXISTS idx_edges_team ON decision_edges(team_id);
CREATE INDEX IF NOT EXISTS idx_files_team ON files(team_id);
`

// Migrate applies the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Ping checks pool connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var decisionColumns = []string{
	"id", "team_id", "actor", "text", "reasoning",
	"sentiment", "importance", "ts", "source", "created_at",
}

// InsertDecisions bulk-upserts decision records. Ids are content hashes,
// so re-ingesting a file is idempotent.
func (s *PostgresStore) InsertDecisions(ctx context.Context, decisions []model.Decision) error {
	if len(decisions) == 0 {
		return nil
	}
	rows := make([][]any, len(decisions))
	for i, d := range decisions {
		var ts *time.Time
		if !d.Timestamp.IsZero() {
			t := d.Timestamp
			ts = &t
		}
		created := d.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		rows[i] = []any{
			d.ID, d.TeamID, d.Actor, d.Text, d.Reasoning,
			string(d.Sentiment), string(d.Importance), ts, d.Source, created,
		}
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "decisions",
		Columns:      decisionColumns,
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return eris.Wrap(err, "postgres: insert decisions")
	}
	return nil
}

// ListDecisions returns a page of the team's decisions, newest first.
// The page size is capped so retrieval corpora stay bounded.
func (s *PostgresStore) ListDecisions(ctx context.Context, teamID string, limit, offset int) ([]model.Decision, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, team_id, actor, text, reasoning, sentiment, importance, ts, source, created_at
		FROM decisions WHERE team_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		teamID, clampLimit(limit), offset,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list decisions for team %s", teamID)
	}
	defer rows.Close()
	return scanDecisions(rows)
}

// GetDecisionsByIDs fetches the matching records scoped to the team.
// Missing ids are silently omitted.
func (s *PostgresStore) GetDecisionsByIDs(ctx context.Context, teamID string, ids []string) ([]model.Decision, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, team_id, actor, text, reasoning, sentiment, importance, ts, source, created_at
		FROM decisions WHERE team_id = $1 AND id = ANY($2)`,
		teamID, ids,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get decisions by ids for team %s", teamID)
	}
	defer rows.Close()
	return scanDecisions(rows)
}

// UpsertFile records a provenance file node.
func (s *PostgresStore) UpsertFile(ctx context.Context, f model.File) error {
	uploaded := f.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO files (file_hash, file_name, team_id, uploaded_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (file_hash) DO UPDATE SET file_name = EXCLUDED.file_name`,
		f.Hash, f.Name, f.TeamID, uploaded,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert file %s", f.Name)
	}
	return nil
}

// InsertEdges bulk-upserts graph edges.
func (s *PostgresStore) InsertEdges(ctx context.Context, edges []model.GraphEdge) error {
	if len(edges) == 0 {
		return nil
	}
	rows := make([][]any, len(edges))
	for i, e := range edges {
		rows[i] = []any{e.TeamID, e.From, e.To, string(e.Type), e.Sequence}
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "decision_edges",
		Columns:      []string{"team_id", "src", "dst", "edge_type", "sequence"},
		ConflictKeys: []string{"team_id", "src", "dst", "edge_type"},
	}, rows)
	if err != nil {
		return eris.Wrap(err, "postgres: insert edges")
	}
	return nil
}

// ListEdges returns all of the team's edges.
func (s *PostgresStore) ListEdges(ctx context.Context, teamID string) ([]model.GraphEdge, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT team_id, src, dst, edge_type, sequence FROM decision_edges WHERE team_id = $1`,
		teamID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list edges for team %s", teamID)
	}
	defer rows.Close()

	var edges []model.GraphEdge
	for rows.Next() {
		var e model.GraphEdge
		var edgeType string
		if err := rows.Scan(&e.TeamID, &e.From, &e.To, &edgeType, &e.Sequence); err != nil {
			return nil, eris.Wrap(err, "postgres: scan edge")
		}
		e.Type = model.EdgeType(edgeType)
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate edges")
	}
	return edges, nil
}

// ListNodes returns the team's decisions as graph nodes.
func (s *PostgresStore) ListNodes(ctx context.Context, teamID string) ([]graph.Node, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, team_id, sentiment FROM decisions WHERE team_id = $1`,
		teamID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list nodes for team %s", teamID)
	}
	defer rows.Close()

	var nodes []graph.Node
	for rows.Next() {
		var n graph.Node
		var sentiment string
		if err := rows.Scan(&n.ID, &n.TeamID, &sentiment); err != nil {
			return nil, eris.Wrap(err, "postgres: scan node")
		}
		n.Sentiment = model.Sentiment(sentiment)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate nodes")
	}
	return nodes, nil
}

// scanDecisions reads decision rows into models, tolerating null
// timestamps.
func scanDecisions(rows pgx.Rows) ([]model.Decision, error) {
	var out []model.Decision
	for rows.Next() {
		var (
			d          model.Decision
			sentiment  string
			importance string
			ts         *time.Time
		)
		if err := rows.Scan(&d.ID, &d.TeamID, &d.Actor, &d.Text, &d.Reasoning,
			&sentiment, &importance, &ts, &d.Source, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan decision")
		}
		d.Sentiment = model.Sentiment(sentiment)
		d.Importance = model.Importance(importance)
		if ts != nil {
			d.Timestamp = *ts
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate decisions")
	}
	return out, nil
}
