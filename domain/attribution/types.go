package attribution

import (
	"math"

	"linklens/domain/core"
)

// ============================================================================
// STABLE PRIMITIVES (Canonical, never change)
// ============================================================================

// Set holds per-observation attribution values on the link (log) scale,
// together with the link-scale baseline they are relative to.
// INVARIANTS:
// - Values is rectangular: every row has exactly len(FeatureKeys) entries
// - Baseline is a single scalar shared by all rows
// - Baseline + sum of a row's values is that row's link-scale prediction
// - NaturalPredictions, when present, is a validation target only; nothing
//   in the reconstruction pipeline ever mutates it
type Set struct {
	Values      [][]float64       `json:"values"`       // rows=observations, cols=features, link scale
	Baseline    float64           `json:"baseline"`     // expected link-scale output
	FeatureKeys []core.FeatureKey `json:"feature_keys"` // column keys

	// NaturalPredictions holds the model's direct natural-unit output per row.
	// Optional; used to measure reconstruction fidelity.
	NaturalPredictions []float64 `json:"natural_predictions,omitempty"`
}

// RowCount returns the number of observations
func (s *Set) RowCount() int {
	return len(s.Values)
}

// FeatureCount returns the number of attributed features
func (s *Set) FeatureCount() int {
	return len(s.FeatureKeys)
}

// NaturalBaseline converts the link-scale baseline to natural units
func (s *Set) NaturalBaseline() float64 {
	return math.Exp(s.Baseline)
}

// LinkPrediction returns the link-scale prediction implied by row i:
// baseline plus the sum of the row's attributions.
func (s *Set) LinkPrediction(i int) float64 {
	total := s.Baseline
	for _, v := range s.Values[i] {
		total += v
	}
	return total
}

// Validate rejects malformed sets before any computation runs.
// Shape mismatches and non-finite values fail fast; they are never
// auto-corrected or silently propagated.
func (s *Set) Validate() error {
	if s.RowCount() == 0 || s.FeatureCount() == 0 {
		return core.ErrEmptyMatrix
	}
	p := s.FeatureCount()
	for i, row := range s.Values {
		if len(row) != p {
			return core.NewShapeMismatchError("attribution row", len(row), p)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return core.NewNonFiniteError(i, j, v)
			}
		}
	}
	if math.IsNaN(s.Baseline) || math.IsInf(s.Baseline, 0) {
		return core.NewNonFiniteError(-1, -1, s.Baseline)
	}
	if s.NaturalPredictions != nil {
		if len(s.NaturalPredictions) != s.RowCount() {
			return core.NewShapeMismatchError("natural predictions", len(s.NaturalPredictions), s.RowCount())
		}
		for i, v := range s.NaturalPredictions {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return core.NewNonFiniteError(i, -1, v)
			}
		}
	}
	return nil
}

// PermuteFeatures returns a copy of the set with columns reordered by perm,
// where perm[k] is the source column for destination column k. The exact
// reconstruction method is path dependent, so permuted sets produce different
// per-feature contributions with identical row totals.
func (s *Set) PermuteFeatures(perm []int) (*Set, error) {
	p := s.FeatureCount()
	if len(perm) != p {
		return nil, core.NewShapeMismatchError("permutation", len(perm), p)
	}
	seen := make([]bool, p)
	for _, src := range perm {
		if src < 0 || src >= p || seen[src] {
			return nil, core.ErrInvalidInput
		}
		seen[src] = true
	}

	out := &Set{
		Values:      make([][]float64, s.RowCount()),
		Baseline:    s.Baseline,
		FeatureKeys: make([]core.FeatureKey, p),
	}
	for k, src := range perm {
		out.FeatureKeys[k] = s.FeatureKeys[src]
	}
	for i, row := range s.Values {
		permuted := make([]float64, p)
		for k, src := range perm {
			permuted[k] = row[src]
		}
		out.Values[i] = permuted
	}
	if s.NaturalPredictions != nil {
		out.NaturalPredictions = append([]float64(nil), s.NaturalPredictions...)
	}
	return out, nil
}

// ============================================================================
// RECONSTRUCTION OUTPUTS
// ============================================================================

// Method identifies a natural-unit reconstruction algorithm
type Method string

const (
	// MethodExact is the path-dependent cumulative-product decomposition.
	// Its contributions telescope: baseline + row sum equals the natural-unit
	// prediction up to floating-point error.
	MethodExact Method = "exact_path"
	// MethodFirstOrder is the baseline-scaled linear approximation. Its
	// reconstruction error grows with attribution magnitude and is reported,
	// never suppressed.
	MethodFirstOrder Method = "first_order"
)

// Contributions is a per-feature additive decomposition in natural units.
type Contributions struct {
	Method      Method            `json:"method"`
	Baseline    float64           `json:"baseline"` // natural units
	Values      [][]float64       `json:"values"`   // rows=observations, cols=features, natural units
	FeatureKeys []core.FeatureKey `json:"feature_keys"`

	// Reconstructed[i] = Baseline + sum of row i's contributions.
	Reconstructed []float64 `json:"reconstructed"`
	// Discrepancy[i] is the signed drift Reconstructed[i] minus the true
	// natural-unit prediction (the set's own when carried, otherwise the
	// value implied by the link identity). Always populated by both
	// reconstruction methods.
	Discrepancy []float64 `json:"discrepancy,omitempty"`
}

// RowSum returns the total contribution of row i, excluding the baseline
func (c *Contributions) RowSum(i int) float64 {
	total := 0.0
	for _, v := range c.Values[i] {
		total += v
	}
	return total
}

// MaxAbsDiscrepancy returns the largest per-row reconstruction discrepancy
func (c *Contributions) MaxAbsDiscrepancy() float64 {
	maxAbs := 0.0
	for _, d := range c.Discrepancy {
		if a := math.Abs(d); a > maxAbs {
			maxAbs = a
		}
	}
	return maxAbs
}

// MeanAbsDiscrepancy returns the average per-row reconstruction discrepancy
func (c *Contributions) MeanAbsDiscrepancy() float64 {
	if len(c.Discrepancy) == 0 {
		return 0
	}
	total := 0.0
	for _, d := range c.Discrepancy {
		total += math.Abs(d)
	}
	return total / float64(len(c.Discrepancy))
}
