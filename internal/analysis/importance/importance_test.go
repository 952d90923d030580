package importance

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"linklens/adapters/stats/glm"
	"linklens/domain/core"
	"linklens/domain/dataset"
)

// buildFrame creates data where the first feature drives the response, the
// second is pure noise, and the third is the first rescaled by 1000.
func buildFrame(rng *rand.Rand, n int, withEcho bool) *dataset.Frame {
	keys := []core.FeatureKey{"signal", "noise"}
	if withEcho {
		keys = append(keys, "signal_rescaled")
	}
	data := make([][]float64, n)
	target := make([]float64, n)
	for i := 0; i < n; i++ {
		signal := rng.Float64()*2 - 1
		row := []float64{signal, rng.Float64()*2 - 1}
		if withEcho {
			// Near-duplicate at a wildly different scale; the jitter keeps
			// the design matrix full rank.
			row = append(row, signal*1000+rng.NormFloat64())
		}
		data[i] = row
		target[i] = math.Exp(math.Log(0.5) + 0.8*signal)
	}
	frame := dataset.NewFrame(data, keys)
	frame.Target = target
	return frame
}

// TestCompute_RanksInformativeFeatureFirst verifies permutation importance
// puts the generating feature ahead of noise.
func TestCompute_RanksInformativeFeatureFirst(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	frame := buildFrame(rng, 400, false)

	model, err := glm.Fit(frame, glm.PoissonFamily{}, glm.DefaultFitConfig())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	table, err := NewAnalyzer(model, 5, 99).Compute(context.Background(), frame)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if table.Entries[0].FeatureKey != "signal" {
		t.Errorf("top feature %q, want signal", table.Entries[0].FeatureKey)
	}
	if table.Entries[0].DevianceIncrease <= 0 {
		t.Error("permuting the informative feature must increase deviance")
	}
	var noise Entry
	for _, e := range table.Entries {
		if e.FeatureKey == "noise" {
			noise = e
		}
	}
	if noise.DevianceIncrease >= table.Entries[0].DevianceIncrease {
		t.Errorf("noise importance %.6g should be below signal %.6g",
			noise.DevianceIncrease, table.Entries[0].DevianceIncrease)
	}
}

// TestCompute_FlagsCoefficientPitfalls verifies the scale and correlation
// warnings: a rescaled copy of the signal gets a tiny raw coefficient but a
// comparable standardized one, and both copies are flagged as correlated.
func TestCompute_FlagsCoefficientPitfalls(t *testing.T) {
	rng := rand.New(rand.NewSource(22))
	frame := buildFrame(rng, 200, true)

	model, err := glm.Fit(frame, glm.PoissonFamily{}, glm.DefaultFitConfig())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	table, err := NewAnalyzer(model, 3, 7).Compute(context.Background(), frame)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	byKey := map[core.FeatureKey]Entry{}
	for _, e := range table.Entries {
		byKey[e.FeatureKey] = e
	}

	echo := byKey["signal_rescaled"]
	hasScale := false
	hasCorrelated := false
	for _, w := range echo.Warnings {
		if w == WarningScaleDependent {
			hasScale = true
		}
		if w == WarningCorrelated {
			hasCorrelated = true
		}
	}
	if !hasScale {
		t.Error("rescaled feature should carry COEFF_SCALE_DEPENDENT")
	}
	if !hasCorrelated {
		t.Error("rescaled feature should carry CORRELATED_FEATURES")
	}
}

// TestCompute_LowNWarning verifies small samples are flagged.
func TestCompute_LowNWarning(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	frame := buildFrame(rng, 20, false)

	model, err := glm.Fit(frame, glm.PoissonFamily{}, glm.DefaultFitConfig())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	table, err := NewAnalyzer(model, 2, 1).Compute(context.Background(), frame)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for _, e := range table.Entries {
		found := false
		for _, w := range e.Warnings {
			if w == WarningLowN {
				found = true
			}
		}
		if !found {
			t.Errorf("feature %s missing LOW_N warning", e.FeatureKey)
		}
	}
}
