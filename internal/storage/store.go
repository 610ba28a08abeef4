package storage

import (
	"context"
	"time"

	"relaygen/internal/diag"
)

// Run is one recorded relaygen invocation.
type Run struct {
	ID        string
	Mode      string
	Root      string
	StartedAt time.Time
	Elapsed   time.Duration
	Factories int
	Bindings  int
	Errors    int
	Warnings  int

	// Diagnostics and Artifacts are only filled by SaveRun callers and the detail queries.
	Diagnostics []diag.Diagnostic
	Artifacts   []Artifact
}

// Artifact is the outcome of one factory's generated file.
type Artifact struct {
	Factory  string
	Path     string
	Status   string
	Bindings int
	Hash     string
}

// RunStore persists run history.
type RunStore interface {
	// SaveRun stores the run with its diagnostics and artifacts in one transaction.
	SaveRun(ctx context.Context, run *Run) error

	// ListRuns returns the newest runs first, without details.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	RunDiagnostics(ctx context.Context, runID string) ([]diag.Diagnostic, error)
	RunArtifacts(ctx context.Context, runID string) ([]Artifact, error)

	Close() error
}
