package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tidwall/gjson"

	"linklens/domain/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	kind       TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_run ON artifacts(run_id);
`

// artifactRow is the sqlx scan target for the artifacts table
type artifactRow struct {
	ID        string `db:"id"`
	RunID     string `db:"run_id"`
	Kind      string `db:"kind"`
	Payload   string `db:"payload"`
	CreatedAt string `db:"created_at"`
}

// SQLiteLedger persists analysis artifacts in a local SQLite file.
// Payloads are stored as JSON so they can be filtered by field without a
// per-kind schema.
type SQLiteLedger struct {
	db *sqlx.DB
}

// NewSQLiteLedger opens (or creates) the ledger database at path
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// SaveArtifact stores one artifact with its payload serialized to JSON
func (l *SQLiteLedger) SaveArtifact(ctx context.Context, artifact core.Artifact) error {
	payload, err := json.Marshal(artifact.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO artifacts (id, run_id, kind, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		artifact.ID.String(), artifact.RunID.String(), string(artifact.Kind),
		string(payload), artifact.CreatedAt.String())
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// GetArtifact loads one artifact by ID
func (l *SQLiteLedger) GetArtifact(ctx context.Context, artifactID core.ID) (*core.Artifact, error) {
	var row artifactRow
	err := l.db.GetContext(ctx, &row, `SELECT * FROM artifacts WHERE id = ?`, artifactID.String())
	if err != nil {
		return nil, core.NewNotFoundError("artifact", artifactID.String())
	}
	return row.toArtifact()
}

// ListArtifactsByRun returns all artifacts recorded for a run, oldest first
func (l *SQLiteLedger) ListArtifactsByRun(ctx context.Context, runID core.RunID) ([]core.Artifact, error) {
	var rows []artifactRow
	err := l.db.SelectContext(ctx, &rows,
		`SELECT * FROM artifacts WHERE run_id = ? ORDER BY created_at, id`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return toArtifacts(rows)
}

// ListRuns returns the distinct run IDs present in the ledger
func (l *SQLiteLedger) ListRuns(ctx context.Context) ([]core.RunID, error) {
	var ids []string
	err := l.db.SelectContext(ctx, &ids,
		`SELECT DISTINCT run_id FROM artifacts ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs := make([]core.RunID, len(ids))
	for i, id := range ids {
		runs[i] = core.RunID(id)
	}
	return runs, nil
}

// FilterArtifacts returns a run's artifacts whose JSON payload field at the
// gjson path matches value.
func (l *SQLiteLedger) FilterArtifacts(ctx context.Context, runID core.RunID, path, value string) ([]core.Artifact, error) {
	var rows []artifactRow
	err := l.db.SelectContext(ctx, &rows,
		`SELECT * FROM artifacts WHERE run_id = ? ORDER BY created_at, id`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("filter artifacts: %w", err)
	}
	matched := rows[:0]
	for _, row := range rows {
		if gjson.Get(row.Payload, path).String() == value {
			matched = append(matched, row)
		}
	}
	return toArtifacts(matched)
}

// Close releases the database handle
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (r artifactRow) toArtifact() (*core.Artifact, error) {
	var payload interface{}
	if err := json.Unmarshal([]byte(r.Payload), &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	artifact := &core.Artifact{
		ID:      core.ID(r.ID),
		RunID:   core.RunID(r.RunID),
		Kind:    core.ArtifactKind(r.Kind),
		Payload: payload,
	}
	if ts, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
		artifact.CreatedAt = core.NewTimestamp(ts)
	}
	return artifact, nil
}

func toArtifacts(rows []artifactRow) ([]core.Artifact, error) {
	out := make([]core.Artifact, 0, len(rows))
	for _, row := range rows {
		a, err := row.toArtifact()
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}
