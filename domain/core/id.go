package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID      ID
	FeatureKey ID
	ArtifactID ID
)

// String conversions for domain IDs
func (id RunID) String() string      { return ID(id).String() }
func (id FeatureKey) String() string { return ID(id).String() }
func (id ArtifactID) String() string { return ID(id).String() }

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// ParseFeatureKey parses a string into FeatureKey
func ParseFeatureKey(s string) (FeatureKey, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("feature key cannot be empty")
	}
	return FeatureKey(s), nil
}

// Artifact represents any output of an analysis run
type Artifact struct {
	ID        ID           `json:"id"`
	RunID     RunID        `json:"run_id"`
	Kind      ArtifactKind `json:"kind"`
	Payload   interface{}  `json:"payload"`
	CreatedAt Timestamp    `json:"created_at"`
}

// ArtifactKind defines types of artifacts
type ArtifactKind string

const (
	// ArtifactModelFit captures fitted coefficients and deviance for a run.
	ArtifactModelFit ArtifactKind = "model_fit"
	// ArtifactAttribution captures the raw link-scale attribution set.
	ArtifactAttribution ArtifactKind = "attribution"
	// ArtifactContributionTable is the natural-unit contribution matrix,
	// one artifact per reconstruction method.
	ArtifactContributionTable ArtifactKind = "contribution_table"
	// ArtifactReconstructionReport compares exact and first-order methods.
	ArtifactReconstructionReport ArtifactKind = "reconstruction_report"
	// ArtifactImportanceTable captures permutation importance rankings.
	ArtifactImportanceTable ArtifactKind = "importance_table"
	// ArtifactProfileCurve captures a PDP or ICE curve for one feature.
	ArtifactProfileCurve ArtifactKind = "profile_curve"
)
