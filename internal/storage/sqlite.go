package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"relaygen/internal/diag"

	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned by the detail queries for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			mode TEXT,
			root TEXT,
			started_at TEXT,
			elapsed_ms INTEGER,
			factories INTEGER,
			bindings INTEGER,
			errors INTEGER,
			warnings INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER,
			code TEXT,
			severity TEXT,
			message TEXT,
			file TEXT,
			line INTEGER,
			factory TEXT,
			detail TEXT,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
			factory TEXT,
			path TEXT,
			status TEXT,
			bindings INTEGER,
			hash TEXT,
			PRIMARY KEY (run_id, path)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// A re-saved run replaces its previous details.
	if _, err := tx.ExecContext(ctx, "DELETE FROM diagnostics WHERE run_id = ?", run.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM artifacts WHERE run_id = ?", run.ID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, mode, root, started_at, elapsed_ms, factories, bindings, errors, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode=excluded.mode,
			root=excluded.root,
			started_at=excluded.started_at,
			elapsed_ms=excluded.elapsed_ms,
			factories=excluded.factories,
			bindings=excluded.bindings,
			errors=excluded.errors,
			warnings=excluded.warnings
	`, run.ID, run.Mode, run.Root, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Elapsed.Milliseconds(),
		run.Factories, run.Bindings, run.Errors, run.Warnings)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	diagStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO diagnostics (run_id, seq, code, severity, message, file, line, factory, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer diagStmt.Close()

	for i, d := range run.Diagnostics {
		if _, err := diagStmt.ExecContext(ctx, run.ID, i, d.Code, d.Severity, d.Message, d.Location.File, d.Location.Line, d.Factory, d.Detail); err != nil {
			return fmt.Errorf("failed to save diagnostic: %w", err)
		}
	}

	artStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO artifacts (run_id, factory, path, status, bindings, hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, path) DO UPDATE SET
			factory=excluded.factory,
			status=excluded.status,
			bindings=excluded.bindings,
			hash=excluded.hash
	`)
	if err != nil {
		return err
	}
	defer artStmt.Close()

	for _, a := range run.Artifacts {
		if _, err := artStmt.ExecContext(ctx, run.ID, a.Factory, a.Path, a.Status, a.Bindings, a.Hash); err != nil {
			return fmt.Errorf("failed to save artifact: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, root, started_at, elapsed_ms, factories, bindings, errors, warnings
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started string
		var elapsedMS int64
		if err := rows.Scan(&r.ID, &r.Mode, &r.Root, &started, &elapsedMS, &r.Factories, &r.Bindings, &r.Errors, &r.Warnings); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RunDiagnostics(ctx context.Context, runID string) ([]diag.Diagnostic, error) {
	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, severity, message, file, line, factory, detail
		FROM diagnostics WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostics: %w", err)
	}
	defer rows.Close()

	var out []diag.Diagnostic
	for rows.Next() {
		var d diag.Diagnostic
		if err := rows.Scan(&d.Code, &d.Severity, &d.Message, &d.Location.File, &d.Location.Line, &d.Factory, &d.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RunArtifacts(ctx context.Context, runID string) ([]Artifact, error) {
	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT factory, path, status, bindings, hash
		FROM artifacts WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.Factory, &a.Path, &a.Status, &a.Bindings, &a.Hash); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) requireRun(ctx context.Context, runID string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE id = ?", runID).Scan(&n); err != nil {
		return fmt.Errorf("failed to look up run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	return nil
}
