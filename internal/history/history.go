// Package history records finished runs in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/vk/qr3d/internal/model"
	"github.com/vk/qr3d/internal/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	job         TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL,
	input       TEXT NOT NULL,
	mode        TEXT NOT NULL,
	format      TEXT NOT NULL,
	ok          INTEGER NOT NULL,
	stage       TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	mesh_path   TEXT NOT NULL DEFAULT '',
	triangles   INTEGER NOT NULL DEFAULT 0,
	rectangles  INTEGER NOT NULL DEFAULT 0,
	metadata    TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
`

// Entry is one recorded run.
type Entry struct {
	RunID      string
	Job        string
	Name       string
	Input      string
	Mode       string
	Format     string
	OK         bool
	Stage      model.Stage
	Error      string
	MeshPath   string
	Triangles  int
	Rectangles int
	// Metadata is the JSON sidecar of a successful run.
	Metadata   string
	Duration   time.Duration
	CreatedAt  time.Time
}

// Store is the run history database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultPath is the history database under the XDG data directory.
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join("qr3d", "history.db"))
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir history dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Record stores the outcome of a run. Recording the same run id twice
// replaces the earlier row.
func (s *Store) Record(ctx context.Context, res *pipeline.Result) error {
	var errText, meta string
	if res.Err != nil {
		errText = res.Err.Error()
	}
	if res.Metadata != nil {
		data, err := res.Metadata.Marshal()
		if err != nil {
			return fmt.Errorf("record run %s: %w", res.Request.RunID, err)
		}
		meta = string(data)
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO runs
            (run_id, job, name, input, mode, format, ok, stage, error, mesh_path, triangles, rectangles, metadata, duration_ms, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		res.Request.RunID,
		res.Request.Job,
		res.Request.Name,
		res.Request.Input,
		res.Request.Mode.String(),
		string(res.Request.Format),
		res.OK(),
		string(model.StageOf(res.Err)),
		errText,
		res.MeshPath,
		res.Triangles,
		res.Stats.Rectangles,
		meta,
		res.Duration.Milliseconds(),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", res.Request.RunID, err)
	}
	return nil
}

// List returns up to limit entries, newest first. A limit of zero or less
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT run_id, job, name, input, mode, format, ok, stage, error, mesh_path, triangles, rectangles, metadata, duration_ms, created_at
        FROM runs
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			stage      string
			durationMS int64
			createdAt  string
		)
		if err := rows.Scan(&e.RunID, &e.Job, &e.Name, &e.Input, &e.Mode, &e.Format, &e.OK, &stage, &e.Error,
			&e.MeshPath, &e.Triangles, &e.Rectangles, &e.Metadata, &durationMS, &createdAt); err != nil {
			return nil, err
		}
		e.Stage = model.Stage(stage)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("run %s has a bad timestamp: %w", e.RunID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
