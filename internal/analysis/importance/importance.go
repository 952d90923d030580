package importance

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/montanaflynn/stats"

	"linklens/adapters/stats/glm"
	"linklens/domain/core"
	"linklens/domain/dataset"
)

// WarningCode represents structured warning types
type WarningCode string

const (
	// WarningScaleDependent flags features whose raw coefficient is not
	// comparable to the others because the column scales differ widely.
	WarningScaleDependent WarningCode = "COEFF_SCALE_DEPENDENT"
	// WarningCorrelated flags features strongly correlated with another
	// feature; their attributions and importances share credit.
	WarningCorrelated WarningCode = "CORRELATED_FEATURES"
	// WarningLowN flags tables computed on fewer than 30 observations.
	WarningLowN WarningCode = "LOW_N"
)

const correlationThreshold = 0.8

// Entry summarizes one feature's importance and its interpretation caveats
type Entry struct {
	FeatureKey core.FeatureKey `json:"feature_key"`
	// RawCoefficient is the fitted log-scale coefficient. Reading it as a
	// ranking is the classic pitfall: it depends on the feature's units.
	RawCoefficient float64 `json:"raw_coefficient"`
	// StdCoefficient is the coefficient scaled by the feature's standard
	// deviation, comparable across features.
	StdCoefficient float64 `json:"std_coefficient"`
	// DevianceIncrease is the mean increase in deviance when the feature
	// column is permuted, breaking its relationship with the response.
	DevianceIncrease float64       `json:"deviance_increase"`
	Warnings         []WarningCode `json:"warnings,omitempty"`
}

// Table ranks features by permutation importance
type Table struct {
	Entries      []Entry `json:"entries"`
	BaseDeviance float64 `json:"base_deviance"`
	Repeats      int     `json:"repeats"`
}

// Analyzer computes permutation importance for a fitted model
type Analyzer struct {
	model   *glm.Model
	repeats int
	rng     *rand.Rand
}

// NewAnalyzer creates an analyzer with a fixed seed for replayable shuffles
func NewAnalyzer(model *glm.Model, repeats int, seed int64) *Analyzer {
	if repeats <= 0 {
		repeats = 5
	}
	return &Analyzer{
		model:   model,
		repeats: repeats,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Compute builds the importance table on a labeled frame
func (a *Analyzer) Compute(ctx context.Context, frame *dataset.Frame) (*Table, error) {
	if !a.model.IsFitted() {
		return nil, core.ErrNotFitted
	}
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	if frame.Target == nil {
		return nil, core.NewShapeMismatchError("target", 0, frame.RowCount())
	}

	base, err := a.model.Score(frame)
	if err != nil {
		return nil, err
	}

	columns := make([][]float64, frame.FeatureCount())
	sds := make([]float64, frame.FeatureCount())
	for j, key := range frame.FeatureKeys {
		col, err := frame.Column(key)
		if err != nil {
			return nil, err
		}
		columns[j] = col
		sd, err := stats.StandardDeviation(col)
		if err != nil {
			return nil, core.ErrInsufficientData
		}
		sds[j] = sd
	}

	table := &Table{BaseDeviance: base, Repeats: a.repeats}
	for j, key := range frame.FeatureKeys {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		increase, err := a.permutationIncrease(frame, j, base)
		if err != nil {
			return nil, err
		}

		entry := Entry{
			FeatureKey:       key,
			RawCoefficient:   a.model.Coefficients[j],
			StdCoefficient:   a.model.Coefficients[j] * sds[j],
			DevianceIncrease: increase,
			Warnings:         a.warningsFor(frame, columns, sds, j),
		}
		table.Entries = append(table.Entries, entry)
	}

	sort.SliceStable(table.Entries, func(i, k int) bool {
		return table.Entries[i].DevianceIncrease > table.Entries[k].DevianceIncrease
	})
	return table, nil
}

// permutationIncrease shuffles one column in place on a working copy and
// measures the mean deviance increase over the repeats.
func (a *Analyzer) permutationIncrease(frame *dataset.Frame, j int, base float64) (float64, error) {
	n := frame.RowCount()
	working := &dataset.Frame{
		Data:        make([][]float64, n),
		FeatureKeys: frame.FeatureKeys,
		RowIDs:      frame.RowIDs,
		Target:      frame.Target,
		Exposure:    frame.Exposure,
	}
	for i, row := range frame.Data {
		working.Data[i] = append([]float64(nil), row...)
	}

	perm := make([]int, n)
	total := 0.0
	for r := 0; r < a.repeats; r++ {
		for i := range perm {
			perm[i] = i
		}
		a.rng.Shuffle(n, func(x, y int) { perm[x], perm[y] = perm[y], perm[x] })
		for i := range working.Data {
			working.Data[i][j] = frame.Data[perm[i]][j]
		}
		score, err := a.model.Score(working)
		if err != nil {
			return 0, err
		}
		total += score - base
	}
	return total / float64(a.repeats), nil
}

func (a *Analyzer) warningsFor(frame *dataset.Frame, columns [][]float64, sds []float64, j int) []WarningCode {
	var warnings []WarningCode
	if frame.RowCount() < 30 {
		warnings = append(warnings, WarningLowN)
	}

	// Raw coefficients are incomparable when column scales diverge
	for k, sd := range sds {
		if k == j || sd == 0 || sds[j] == 0 {
			continue
		}
		ratio := sds[j] / sd
		if ratio > 10 || ratio < 0.1 {
			warnings = append(warnings, WarningScaleDependent)
			break
		}
	}

	for k := range columns {
		if k == j {
			continue
		}
		r, err := stats.Correlation(columns[j], columns[k])
		if err == nil && math.Abs(r) > correlationThreshold {
			warnings = append(warnings, WarningCorrelated)
			break
		}
	}
	return warnings
}
