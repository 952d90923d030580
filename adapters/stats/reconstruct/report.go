package reconstruct

import (
	"fmt"

	"linklens/domain/attribution"
	"linklens/domain/core"
	"linklens/ports"
)

// NewDriftFailure wraps ErrReconstructionDrift with row context
func NewDriftFailure(row int, reconstructed, expected, tolerance float64) error {
	return core.NewDriftError(row, reconstructed, expected, tolerance)
}

// MethodSummary condenses one reconstruction method's fidelity
type MethodSummary struct {
	Method             attribution.Method `json:"method"`
	MaxAbsDiscrepancy  float64            `json:"max_abs_discrepancy"`
	MeanAbsDiscrepancy float64            `json:"mean_abs_discrepancy"`
}

// Report compares the exact and first-order reconstructions of one set.
// The exact method's discrepancy is bounded by tolerance (it would have
// errored otherwise); the first-order method's discrepancy is expected to be
// nonzero and is the quantity worth reading.
type Report struct {
	Rows            int     `json:"rows"`
	Features        int     `json:"features"`
	BaselineLink    float64 `json:"baseline_link"`
	BaselineNatural float64 `json:"baseline_natural"`

	Exact      MethodSummary `json:"exact"`
	FirstOrder MethodSummary `json:"first_order"`

	ExactContributions      *attribution.Contributions `json:"-"`
	FirstOrderContributions *attribution.Contributions `json:"-"`
}

// Comparison runs two reconstruction methods side by side
type Comparison struct {
	exact      ports.ReconstructorPort
	firstOrder ports.ReconstructorPort
}

// NewComparison creates a comparison of the two built-in methods with the
// given exact-method tolerance
func NewComparison(tolerance float64) *Comparison {
	return NewComparisonWith(
		NewExactReconstructorWithTolerance(tolerance),
		NewFirstOrderReconstructor(),
	)
}

// NewComparisonWith injects the reconstructors behind their port
func NewComparisonWith(exact, firstOrder ports.ReconstructorPort) *Comparison {
	return &Comparison{exact: exact, firstOrder: firstOrder}
}

// Run reconstructs the set with both methods and summarizes their fidelity
func (c *Comparison) Run(set *attribution.Set) (*Report, error) {
	exact, err := c.exact.Reconstruct(set)
	if err != nil {
		return nil, fmt.Errorf("exact reconstruction: %w", err)
	}
	approx, err := c.firstOrder.Reconstruct(set)
	if err != nil {
		return nil, fmt.Errorf("first-order reconstruction: %w", err)
	}

	return &Report{
		Rows:            set.RowCount(),
		Features:        set.FeatureCount(),
		BaselineLink:    set.Baseline,
		BaselineNatural: set.NaturalBaseline(),
		Exact: MethodSummary{
			Method:             c.exact.Method(),
			MaxAbsDiscrepancy:  exact.MaxAbsDiscrepancy(),
			MeanAbsDiscrepancy: exact.MeanAbsDiscrepancy(),
		},
		FirstOrder: MethodSummary{
			Method:             c.firstOrder.Method(),
			MaxAbsDiscrepancy:  approx.MaxAbsDiscrepancy(),
			MeanAbsDiscrepancy: approx.MeanAbsDiscrepancy(),
		},
		ExactContributions:      exact,
		FirstOrderContributions: approx,
	}, nil
}
