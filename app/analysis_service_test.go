package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linklens/adapters/ledger"
	"linklens/adapters/stats/glm"
	"linklens/adapters/stats/reconstruct"
	"linklens/domain/core"
	"linklens/internal/testkit"
)

// TestRun_EndToEnd drives the whole pipeline on a synthetic portfolio and
// checks artifacts land in the ledger with both contribution methods.
func TestRun_EndToEnd(t *testing.T) {
	cfg := testkit.DefaultClaimsConfig()
	cfg.PolicyCount = 3000
	frame := testkit.NewClaimsDataGenerator(cfg).GenerateFrequencyFrame()

	store := ledger.NewInMemoryLedger()
	service := NewAnalysisService(store, reconstruct.DefaultTolerance, 1)

	result, err := service.Run(context.Background(), frame, glm.PoissonFamily{})
	require.NoError(t, err)
	require.NotNil(t, result.Model)
	assert.True(t, result.Model.Converged)

	// Exact method honors its tolerance; first-order carries real discrepancy
	assert.LessOrEqual(t, result.Report.Exact.MaxAbsDiscrepancy, reconstruct.DefaultTolerance)
	assert.Greater(t, result.Report.FirstOrder.MaxAbsDiscrepancy, 0.0)

	artifacts, err := store.ListArtifactsByRun(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Len(t, artifacts, 6)

	kinds := make(map[core.ArtifactKind]int)
	for _, a := range artifacts {
		kinds[a.Kind]++
	}
	assert.Equal(t, 1, kinds[core.ArtifactModelFit])
	assert.Equal(t, 1, kinds[core.ArtifactAttribution])
	assert.Equal(t, 2, kinds[core.ArtifactContributionTable])
	assert.Equal(t, 1, kinds[core.ArtifactReconstructionReport])
	assert.Equal(t, 1, kinds[core.ArtifactImportanceTable])

	exact, err := store.FilterArtifacts(context.Background(), result.RunID, "method", "exact_path")
	require.NoError(t, err)
	assert.Len(t, exact, 1)

	approx, err := store.FilterArtifacts(context.Background(), result.RunID, "method", "first_order")
	require.NoError(t, err)
	assert.Len(t, approx, 1)
}

// TestProfile_RecordsCurve checks the partial-dependence operation stores a
// profile_curve artifact under its own run and returns the computed curve.
func TestProfile_RecordsCurve(t *testing.T) {
	cfg := testkit.DefaultClaimsConfig()
	cfg.PolicyCount = 1000
	frame := testkit.NewClaimsDataGenerator(cfg).GenerateFrequencyFrame()

	store := ledger.NewInMemoryLedger()
	service := NewAnalysisService(store, reconstruct.DefaultTolerance, 1)

	curve, err := service.Profile(context.Background(), frame, glm.PoissonFamily{}, "driver_age", 10)
	require.NoError(t, err)
	require.Len(t, curve.Grid, 10)
	require.Len(t, curve.Values, 10)

	runs, err := store.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	artifacts, err := store.ListArtifactsByRun(context.Background(), runs[0])
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, core.ArtifactProfileCurve, artifacts[0].Kind)
}

// TestRun_RejectsMalformedFrame verifies input validation happens before any
// model work.
func TestRun_RejectsMalformedFrame(t *testing.T) {
	frame := testkit.NewClaimsDataGenerator(testkit.DefaultClaimsConfig()).GenerateFrequencyFrame()
	frame.Data[3] = frame.Data[3][:2] // ragged row

	service := NewAnalysisService(ledger.NewInMemoryLedger(), 0, 1)
	_, err := service.Run(context.Background(), frame, glm.PoissonFamily{})
	require.Error(t, err)
	assert.True(t, core.IsInputError(err))
}
