package reconstruct

import (
	"math"

	"linklens/domain/attribution"
)

// DefaultTolerance is the absolute tolerance for the exact method's
// telescoping identity. Exceeding it is a correctness violation.
const DefaultTolerance = 1e-8

// ExactReconstructor decomposes link-scale attributions into natural-unit
// contributions using the path-dependent cumulative-product identity.
//
// Each attribution becomes a multiplier exp(A[i,j]). Walking the features in
// column order, a running natural-unit prediction starts at the natural
// baseline and is scaled by one multiplier at a time; the contribution of a
// feature is the running prediction after it minus the running prediction
// before it. The differences telescope, so baseline + row sum reconstructs
// the natural-unit prediction up to floating-point error.
//
// Contributions are path dependent: permuting feature order changes
// individual values while preserving every row sum. That is a property of
// the decomposition, not a defect, and no order canonicalization is applied.
type ExactReconstructor struct {
	tolerance float64
}

// NewExactReconstructor creates an exact reconstructor with DefaultTolerance
func NewExactReconstructor() *ExactReconstructor {
	return &ExactReconstructor{tolerance: DefaultTolerance}
}

// NewExactReconstructorWithTolerance overrides the drift tolerance
func NewExactReconstructorWithTolerance(tolerance float64) *ExactReconstructor {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &ExactReconstructor{tolerance: tolerance}
}

// Method returns the reconstruction method identifier
func (r *ExactReconstructor) Method() attribution.Method {
	return attribution.MethodExact
}

// Reconstruct converts the set's link-scale attributions to natural-unit
// contributions. The input is validated first; shape mismatches and
// non-finite values are rejected before any computation. If the telescoped
// reconstruction drifts from the natural-unit prediction beyond tolerance,
// the run fails with ErrReconstructionDrift.
func (r *ExactReconstructor) Reconstruct(set *attribution.Set) (*attribution.Contributions, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}

	n := set.RowCount()
	baseline := set.NaturalBaseline()

	out := &attribution.Contributions{
		Method:        attribution.MethodExact,
		Baseline:      baseline,
		Values:        make([][]float64, n),
		FeatureKeys:   set.FeatureKeys,
		Reconstructed: make([]float64, n),
		Discrepancy:   make([]float64, n),
	}

	for i, row := range set.Values {
		contribs := make([]float64, len(row))

		// Explicit running-product state; the first feature's "before" value
		// is the unscaled natural baseline.
		running := baseline
		for j, a := range row {
			next := running * math.Exp(a)
			contribs[j] = next - running
			running = next
		}
		out.Values[i] = contribs

		total := baseline
		for _, c := range contribs {
			total += c
		}
		out.Reconstructed[i] = total

		expected := r.expectedNatural(set, i)
		drift := total - expected
		if math.Abs(drift) > r.tolerance {
			return nil, NewDriftFailure(i, total, expected, r.tolerance)
		}
		out.Discrepancy[i] = drift
	}

	return out, nil
}

// expectedNatural returns the natural-unit prediction a row must reconstruct:
// the model's own output when the set carries it, otherwise the value implied
// by the link-scale identity exp(baseline + sum of attributions).
func (r *ExactReconstructor) expectedNatural(set *attribution.Set, i int) float64 {
	if set.NaturalPredictions != nil {
		return set.NaturalPredictions[i]
	}
	return math.Exp(set.LinkPrediction(i))
}
