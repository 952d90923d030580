package ports

import (
	"context"

	"linklens/domain/attribution"
	"linklens/domain/core"
	"linklens/domain/dataset"
)

// ExplainerPort produces link-scale attributions for a fitted model
type ExplainerPort interface {
	// Explain attributes each observation's link-scale prediction to its
	// features, relative to a shared link-scale baseline.
	Explain(ctx context.Context, frame *dataset.Frame) (*attribution.Set, error)
}

// ReconstructorPort converts link-scale attributions to natural-unit contributions
type ReconstructorPort interface {
	Reconstruct(set *attribution.Set) (*attribution.Contributions, error)
	Method() attribution.Method
}

// LedgerPort stores analysis run artifacts
type LedgerPort interface {
	SaveArtifact(ctx context.Context, artifact core.Artifact) error
	GetArtifact(ctx context.Context, artifactID core.ID) (*core.Artifact, error)
	ListArtifactsByRun(ctx context.Context, runID core.RunID) ([]core.Artifact, error)
	ListRuns(ctx context.Context) ([]core.RunID, error)
	// FilterArtifacts returns run artifacts whose payload field at the given
	// gjson path equals the expected value.
	FilterArtifacts(ctx context.Context, runID core.RunID, path, value string) ([]core.Artifact, error)
	Close() error
}
