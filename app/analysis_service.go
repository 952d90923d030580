package app

import (
	"context"
	"fmt"
	"log"

	"linklens/adapters/stats/explain"
	"linklens/adapters/stats/glm"
	"linklens/adapters/stats/reconstruct"
	"linklens/domain/attribution"
	"linklens/domain/core"
	"linklens/domain/dataset"
	"linklens/internal/analysis/importance"
	"linklens/internal/analysis/profile"
	"linklens/ports"
)

// ExplainerFactory builds an explainer port for a freshly fitted model
type ExplainerFactory func(model *glm.Model, background *dataset.Frame) (ports.ExplainerPort, error)

// AnalysisResult bundles everything one run produces
type AnalysisResult struct {
	RunID       core.RunID          `json:"run_id"`
	Model       *glm.Model          `json:"model"`
	Attribution *attribution.Set    `json:"attribution"`
	Report      *reconstruct.Report `json:"report"`
	Importance  *importance.Table   `json:"importance"`
}

// AnalysisService runs the full interpretation pipeline: fit a log-link GLM,
// attribute its link-scale predictions, reconstruct natural-unit
// contributions with both methods, rank features, and record everything in
// the ledger.
type AnalysisService struct {
	ledger       ports.LedgerPort
	newExplainer ExplainerFactory
	tolerance    float64
	repeats      int
	seed         int64
}

// NewAnalysisService wires the pipeline against a ledger, with the linear
// explainer behind its port
func NewAnalysisService(ledger ports.LedgerPort, tolerance float64, seed int64) *AnalysisService {
	if tolerance <= 0 {
		tolerance = reconstruct.DefaultTolerance
	}
	return &AnalysisService{
		ledger: ledger,
		newExplainer: func(model *glm.Model, background *dataset.Frame) (ports.ExplainerPort, error) {
			return explain.NewLinearExplainer(model, background)
		},
		tolerance: tolerance,
		repeats:   5,
		seed:      seed,
	}
}

// Run executes the pipeline on a labeled frame
func (s *AnalysisService) Run(ctx context.Context, frame *dataset.Frame, family glm.Family) (*AnalysisResult, error) {
	if err := frame.Validate(); err != nil {
		return nil, fmt.Errorf("input frame: %w", err)
	}

	runID := core.RunID(core.NewID())
	log.Printf("starting analysis run %s: %d rows, %d features, family %s",
		runID, frame.RowCount(), frame.FeatureCount(), family.Name())

	model, err := glm.Fit(frame, family, glm.DefaultFitConfig())
	if err != nil {
		return nil, fmt.Errorf("fit %s model: %w", family.Name(), err)
	}

	explainer, err := s.newExplainer(model, frame)
	if err != nil {
		return nil, fmt.Errorf("build explainer: %w", err)
	}
	set, err := explainer.Explain(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("explain: %w", err)
	}

	report, err := reconstruct.NewComparison(s.tolerance).Run(set)
	if err != nil {
		return nil, fmt.Errorf("reconstruct: %w", err)
	}

	table, err := importance.NewAnalyzer(model, s.repeats, s.seed).Compute(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("importance: %w", err)
	}

	result := &AnalysisResult{
		RunID:       runID,
		Model:       model,
		Attribution: set,
		Report:      report,
		Importance:  table,
	}
	if err := s.record(ctx, result); err != nil {
		return nil, fmt.Errorf("record artifacts: %w", err)
	}

	log.Printf("run %s complete: exact max drift %.3g, first-order max discrepancy %.6g",
		runID, report.Exact.MaxAbsDiscrepancy, report.FirstOrder.MaxAbsDiscrepancy)
	return result, nil
}

func (s *AnalysisService) record(ctx context.Context, result *AnalysisResult) error {
	artifacts := []core.Artifact{
		{
			ID:        core.NewID(),
			RunID:     result.RunID,
			Kind:      core.ArtifactModelFit,
			Payload:   result.Model,
			CreatedAt: core.Now(),
		},
		{
			ID:        core.NewID(),
			RunID:     result.RunID,
			Kind:      core.ArtifactAttribution,
			Payload:   result.Attribution,
			CreatedAt: core.Now(),
		},
		{
			ID:        core.NewID(),
			RunID:     result.RunID,
			Kind:      core.ArtifactContributionTable,
			Payload:   result.Report.ExactContributions,
			CreatedAt: core.Now(),
		},
		{
			ID:        core.NewID(),
			RunID:     result.RunID,
			Kind:      core.ArtifactContributionTable,
			Payload:   result.Report.FirstOrderContributions,
			CreatedAt: core.Now(),
		},
		{
			ID:        core.NewID(),
			RunID:     result.RunID,
			Kind:      core.ArtifactReconstructionReport,
			Payload:   result.Report,
			CreatedAt: core.Now(),
		},
		{
			ID:        core.NewID(),
			RunID:     result.RunID,
			Kind:      core.ArtifactImportanceTable,
			Payload:   result.Importance,
			CreatedAt: core.Now(),
		},
	}
	for _, a := range artifacts {
		if err := s.ledger.SaveArtifact(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Profile fits the family on the frame, computes a partial-dependence curve
// for one feature, and records it in the ledger as a profile_curve artifact
// under its own run.
func (s *AnalysisService) Profile(ctx context.Context, frame *dataset.Frame, family glm.Family, key core.FeatureKey, gridSize int) (*profile.Curve, error) {
	if err := frame.Validate(); err != nil {
		return nil, fmt.Errorf("input frame: %w", err)
	}

	model, err := glm.Fit(frame, family, glm.DefaultFitConfig())
	if err != nil {
		return nil, fmt.Errorf("fit %s model: %w", family.Name(), err)
	}
	curve, err := profile.NewProfiler(model).PartialDependence(ctx, frame, key, gridSize)
	if err != nil {
		return nil, fmt.Errorf("partial dependence for %s: %w", key, err)
	}

	runID := core.RunID(core.NewID())
	artifact := core.Artifact{
		ID:        core.NewID(),
		RunID:     runID,
		Kind:      core.ArtifactProfileCurve,
		Payload:   curve,
		CreatedAt: core.Now(),
	}
	if err := s.ledger.SaveArtifact(ctx, artifact); err != nil {
		return nil, fmt.Errorf("record profile curve: %w", err)
	}

	log.Printf("profile run %s: %s over %d grid points", runID, key, len(curve.Grid))
	return curve, nil
}
