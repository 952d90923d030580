package reconstruct

import (
	"math"

	"linklens/domain/attribution"
)

// FirstOrderReconstructor approximates natural-unit contributions by scaling
// each link-scale attribution with the natural baseline:
//
//	C[i,j] = A[i,j] * exp(baseline)
//
// This is the first-order Taylor expansion of the exact multiplicative
// decomposition around the baseline. It is NOT exact for log-link models;
// the reconstruction error grows with attribution magnitude. The discrepancy
// against the true natural-unit prediction is the method's teaching point and
// is always reported as a metric, never raised as an error.
type FirstOrderReconstructor struct{}

// NewFirstOrderReconstructor creates a first-order reconstructor
func NewFirstOrderReconstructor() *FirstOrderReconstructor {
	return &FirstOrderReconstructor{}
}

// Method returns the reconstruction method identifier
func (r *FirstOrderReconstructor) Method() attribution.Method {
	return attribution.MethodFirstOrder
}

// Reconstruct converts the set's link-scale attributions to approximate
// natural-unit contributions. Input validation matches the exact method:
// shape mismatches and non-finite values fail before computation.
func (r *FirstOrderReconstructor) Reconstruct(set *attribution.Set) (*attribution.Contributions, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}

	n := set.RowCount()
	baseline := set.NaturalBaseline()

	out := &attribution.Contributions{
		Method:        attribution.MethodFirstOrder,
		Baseline:      baseline,
		Values:        make([][]float64, n),
		FeatureKeys:   set.FeatureKeys,
		Reconstructed: make([]float64, n),
		Discrepancy:   make([]float64, n),
	}

	for i, row := range set.Values {
		contribs := make([]float64, len(row))
		total := baseline
		for j, a := range row {
			contribs[j] = a * baseline
			total += contribs[j]
		}
		out.Values[i] = contribs
		out.Reconstructed[i] = total
		out.Discrepancy[i] = total - r.expectedNatural(set, i)
	}

	return out, nil
}

func (r *FirstOrderReconstructor) expectedNatural(set *attribution.Set, i int) float64 {
	if set.NaturalPredictions != nil {
		return set.NaturalPredictions[i]
	}
	return math.Exp(set.LinkPrediction(i))
}
