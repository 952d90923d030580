package ledger

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/tidwall/gjson"

	"linklens/domain/core"
)

// InMemoryLedger is a LedgerPort for tests and ephemeral runs
type InMemoryLedger struct {
	mu        sync.RWMutex
	artifacts map[core.ID]core.Artifact
}

// NewInMemoryLedger creates an empty in-memory ledger
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{artifacts: make(map[core.ID]core.Artifact)}
}

// SaveArtifact stores one artifact
func (l *InMemoryLedger) SaveArtifact(ctx context.Context, artifact core.Artifact) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.artifacts[artifact.ID] = artifact
	return nil
}

// GetArtifact loads one artifact by ID
func (l *InMemoryLedger) GetArtifact(ctx context.Context, artifactID core.ID) (*core.Artifact, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	artifact, ok := l.artifacts[artifactID]
	if !ok {
		return nil, core.NewNotFoundError("artifact", artifactID.String())
	}
	return &artifact, nil
}

// ListArtifactsByRun returns a run's artifacts ordered by ID (IDs are
// time-ordered UUIDs, so this is insertion order)
func (l *InMemoryLedger) ListArtifactsByRun(ctx context.Context, runID core.RunID) ([]core.Artifact, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []core.Artifact
	for _, a := range l.artifacts {
		if a.RunID == runID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListRuns returns the distinct run IDs present in the ledger
func (l *InMemoryLedger) ListRuns(ctx context.Context) ([]core.RunID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	seen := map[core.RunID]bool{}
	var runs []core.RunID
	for _, a := range l.artifacts {
		if !seen[a.RunID] {
			seen[a.RunID] = true
			runs = append(runs, a.RunID)
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i] < runs[j] })
	return runs, nil
}

// FilterArtifacts matches payload fields by gjson path
func (l *InMemoryLedger) FilterArtifacts(ctx context.Context, runID core.RunID, path, value string) ([]core.Artifact, error) {
	all, err := l.ListArtifactsByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	var out []core.Artifact
	for _, a := range all {
		raw, err := json.Marshal(a.Payload)
		if err != nil {
			continue
		}
		if gjson.GetBytes(raw, path).String() == value {
			out = append(out, a)
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory ledger
func (l *InMemoryLedger) Close() error { return nil }
