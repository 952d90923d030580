package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linklens/domain/core"
	"linklens/ports"
)

func sampleArtifact(runID core.RunID, kind core.ArtifactKind, method string) core.Artifact {
	return core.Artifact{
		ID:    core.NewID(),
		RunID: runID,
		Kind:  kind,
		Payload: map[string]interface{}{
			"method":              method,
			"max_abs_discrepancy": 0.127,
		},
		CreatedAt: core.Now(),
	}
}

func runLedgerSuite(t *testing.T, l ports.LedgerPort) {
	ctx := context.Background()
	runA := core.RunID(core.NewID())
	runB := core.RunID(core.NewID())

	exact := sampleArtifact(runA, core.ArtifactContributionTable, "exact_path")
	approx := sampleArtifact(runA, core.ArtifactContributionTable, "first_order")
	other := sampleArtifact(runB, core.ArtifactModelFit, "")

	require.NoError(t, l.SaveArtifact(ctx, exact))
	require.NoError(t, l.SaveArtifact(ctx, approx))
	require.NoError(t, l.SaveArtifact(ctx, other))

	got, err := l.GetArtifact(ctx, exact.ID)
	require.NoError(t, err)
	assert.Equal(t, exact.Kind, got.Kind)
	assert.Equal(t, runA, got.RunID)

	_, err = l.GetArtifact(ctx, core.NewID())
	assert.True(t, core.IsNotFoundError(err), "missing artifact should be a not-found error")

	byRun, err := l.ListArtifactsByRun(ctx, runA)
	require.NoError(t, err)
	assert.Len(t, byRun, 2)

	runs, err := l.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	filtered, err := l.FilterArtifacts(ctx, runA, "method", "exact_path")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, exact.ID, filtered[0].ID)

	assert.NoError(t, l.Close())
}

func TestInMemoryLedger(t *testing.T) {
	runLedgerSuite(t, NewInMemoryLedger())
}

func TestSQLiteLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := NewSQLiteLedger(path)
	require.NoError(t, err)
	runLedgerSuite(t, l)
}
