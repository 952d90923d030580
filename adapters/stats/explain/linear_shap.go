package explain

import (
	"context"
	"math"

	"linklens/adapters/stats/glm"
	"linklens/domain/attribution"
	"linklens/domain/core"
	"linklens/domain/dataset"
)

// LinearExplainer computes exact SHAP values for a log-link GLM on the link
// scale. For a linear predictor the Shapley value of feature j has the closed
// form beta_j * (x_ij - mean_j), with the baseline equal to the expected link
// prediction over the background frame. Additivity holds exactly:
//
//	baseline + sum_j phi[i,j] == link prediction of row i
//
// The attributions are on the LOG scale. Converting them to natural units is
// the reconstructor's job, not the explainer's.
type LinearExplainer struct {
	model    *glm.Model
	means    []float64
	baseline float64
}

// NewLinearExplainer prepares an explainer against a background frame, which
// fixes the feature means and therefore the baseline.
func NewLinearExplainer(model *glm.Model, background *dataset.Frame) (*LinearExplainer, error) {
	if !model.IsFitted() {
		return nil, core.ErrNotFitted
	}
	if err := background.Validate(); err != nil {
		return nil, err
	}
	if background.FeatureCount() != len(model.Coefficients) {
		return nil, core.NewShapeMismatchError("background features", background.FeatureCount(), len(model.Coefficients))
	}

	means := background.Means()
	baseline := model.Intercept
	for j, m := range means {
		baseline += model.Coefficients[j] * m
	}

	return &LinearExplainer{
		model:    model,
		means:    means,
		baseline: baseline,
	}, nil
}

// Baseline returns the link-scale baseline (expected link prediction)
func (e *LinearExplainer) Baseline() float64 {
	return e.baseline
}

// Explain attributes each row's link-scale prediction to its features.
// The returned set carries unit-exposure natural predictions so the
// reconstructor can verify its telescoping identity against the model.
func (e *LinearExplainer) Explain(ctx context.Context, frame *dataset.Frame) (*attribution.Set, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	if frame.FeatureCount() != len(e.means) {
		return nil, core.NewShapeMismatchError("features", frame.FeatureCount(), len(e.means))
	}

	n := frame.RowCount()
	set := &attribution.Set{
		Values:             make([][]float64, n),
		Baseline:           e.baseline,
		FeatureKeys:        frame.FeatureKeys,
		NaturalPredictions: make([]float64, n),
	}

	for i, row := range frame.Data {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		phi := make([]float64, len(row))
		link := e.baseline
		for j, v := range row {
			phi[j] = e.model.Coefficients[j] * (v - e.means[j])
			link += phi[j]
		}
		set.Values[i] = phi
		set.NaturalPredictions[i] = math.Exp(link)
	}

	return set, nil
}
