package explain

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"linklens/adapters/stats/glm"
	"linklens/adapters/stats/reconstruct"
	"linklens/domain/core"
	"linklens/domain/dataset"
)

func fittedModel(t *testing.T, rng *rand.Rand, n int) (*glm.Model, *dataset.Frame) {
	t.Helper()
	betas := []float64{0.3, -0.2, 0.1}
	data := make([][]float64, n)
	target := make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(betas))
		eta := math.Log(0.15)
		for j := range row {
			row[j] = rng.Float64()*2 - 1
			eta += betas[j] * row[j]
		}
		data[i] = row
		target[i] = math.Exp(eta)
	}
	frame := dataset.NewFrame(data, []core.FeatureKey{"driver_age", "vehicle_power", "density"})
	frame.Target = target

	model, err := glm.Fit(frame, glm.PoissonFamily{}, glm.DefaultFitConfig())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	return model, frame
}

// TestExplain_LinkAdditivity verifies the closed-form SHAP identity:
// baseline + row attributions equals the model's link prediction exactly.
func TestExplain_LinkAdditivity(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	model, frame := fittedModel(t, rng, 250)

	explainer, err := NewLinearExplainer(model, frame)
	if err != nil {
		t.Fatalf("explainer: %v", err)
	}
	set, err := explainer.Explain(context.Background(), frame)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}

	link, err := model.LinkPredict(frame)
	if err != nil {
		t.Fatalf("link predict: %v", err)
	}
	for i := range link {
		if math.Abs(set.LinkPrediction(i)-link[i]) > 1e-10 {
			t.Fatalf("row %d: attribution sum %.12f, link prediction %.12f", i, set.LinkPrediction(i), link[i])
		}
	}
}

// TestExplain_BaselineIsMeanLink checks the baseline equals the background's
// average link prediction.
func TestExplain_BaselineIsMeanLink(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	model, frame := fittedModel(t, rng, 200)

	explainer, err := NewLinearExplainer(model, frame)
	if err != nil {
		t.Fatalf("explainer: %v", err)
	}

	link, _ := model.LinkPredict(frame)
	mean := 0.0
	for _, v := range link {
		mean += v
	}
	mean /= float64(len(link))

	if math.Abs(explainer.Baseline()-mean) > 1e-10 {
		t.Errorf("baseline %.12f, want mean link %.12f", explainer.Baseline(), mean)
	}
}

// TestExplain_FeedsExactReconstruction wires the explainer output into the
// exact reconstructor; the pipeline must satisfy the telescoping identity
// against the model's own natural-unit predictions.
func TestExplain_FeedsExactReconstruction(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	model, frame := fittedModel(t, rng, 150)

	explainer, err := NewLinearExplainer(model, frame)
	if err != nil {
		t.Fatalf("explainer: %v", err)
	}
	set, err := explainer.Explain(context.Background(), frame)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}

	contribs, err := reconstruct.NewExactReconstructor().Reconstruct(set)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}

	preds, _ := model.Predict(frame)
	for i := range preds {
		got := contribs.Baseline + contribs.RowSum(i)
		if math.Abs(got-preds[i]) > 1e-8 {
			t.Fatalf("row %d: reconstructed %.12f, model predicts %.12f", i, got, preds[i])
		}
	}
}

// TestExplainer_ErrorPaths covers unfitted models and feature mismatches.
func TestExplainer_ErrorPaths(t *testing.T) {
	var unfitted glm.Model
	frame := dataset.NewFrame([][]float64{{1, 2}}, []core.FeatureKey{"a", "b"})
	if _, err := NewLinearExplainer(&unfitted, frame); !errors.Is(err, core.ErrNotFitted) {
		t.Errorf("unfitted: got %v, want ErrNotFitted", err)
	}

	rng := rand.New(rand.NewSource(8))
	model, background := fittedModel(t, rng, 100)
	explainer, err := NewLinearExplainer(model, background)
	if err != nil {
		t.Fatalf("explainer: %v", err)
	}

	narrow := dataset.NewFrame([][]float64{{1}}, []core.FeatureKey{"a"})
	if _, err := explainer.Explain(context.Background(), narrow); !errors.Is(err, core.ErrShapeMismatch) {
		t.Errorf("narrow frame: got %v, want ErrShapeMismatch", err)
	}
}
