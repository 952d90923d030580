package profile

import (
	"context"
	"math"
	"sync"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/semaphore"

	"linklens/adapters/stats/glm"
	"linklens/domain/core"
	"linklens/domain/dataset"
)

// DefaultGridSize is the number of evaluation points per feature
const DefaultGridSize = 20

// Curve is a partial-dependence curve for one feature: the natural-unit
// prediction averaged over the background, as the feature sweeps its grid.
type Curve struct {
	FeatureKey core.FeatureKey `json:"feature_key"`
	Grid       []float64       `json:"grid"`
	Values     []float64       `json:"values"`
}

// ICECurves holds individual conditional expectation curves: one natural-unit
// curve per observation over the same grid. The PDP is their pointwise mean.
type ICECurves struct {
	FeatureKey core.FeatureKey `json:"feature_key"`
	Grid       []float64       `json:"grid"`
	Rows       [][]float64     `json:"rows"`
}

// Profiler computes dependence profiles for a fitted log-link model
type Profiler struct {
	model       *glm.Model
	maxParallel int64
}

// NewProfiler creates a profiler with bounded row parallelism
func NewProfiler(model *glm.Model) *Profiler {
	return &Profiler{model: model, maxParallel: 8}
}

// buildGrid spaces evaluation points over the feature's percentile range so
// sparse tails do not dominate the curve.
func buildGrid(column []float64, size int) ([]float64, error) {
	if size < 2 {
		size = DefaultGridSize
	}
	lo, err := stats.Percentile(column, 2.5)
	if err != nil {
		return nil, core.ErrInsufficientData
	}
	hi, err := stats.Percentile(column, 97.5)
	if err != nil {
		return nil, core.ErrInsufficientData
	}
	if hi <= lo {
		return []float64{lo}, nil
	}
	grid := make([]float64, size)
	step := (hi - lo) / float64(size-1)
	for i := range grid {
		grid[i] = lo + float64(i)*step
	}
	return grid, nil
}

// rowPrediction evaluates the model at one observation with feature idx
// overridden, in natural units at unit exposure.
func (p *Profiler) rowPrediction(row []float64, idx int, value float64) float64 {
	eta := p.model.Intercept
	for j, v := range row {
		if j == idx {
			v = value
		}
		eta += p.model.Coefficients[j] * v
	}
	return math.Exp(eta)
}

// PartialDependence computes the PDP of one feature: for each grid point the
// feature is clamped across the whole background frame and the natural-unit
// predictions are averaged.
func (p *Profiler) PartialDependence(ctx context.Context, frame *dataset.Frame, key core.FeatureKey, gridSize int) (*Curve, error) {
	ice, err := p.ICE(ctx, frame, key, gridSize)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(ice.Grid))
	for _, row := range ice.Rows {
		for g, v := range row {
			values[g] += v
		}
	}
	for g := range values {
		values[g] /= float64(len(ice.Rows))
	}

	return &Curve{FeatureKey: key, Grid: ice.Grid, Values: values}, nil
}

// ICE computes per-observation conditional expectation curves. Rows are
// independent, so they are evaluated concurrently under a bounded semaphore.
func (p *Profiler) ICE(ctx context.Context, frame *dataset.Frame, key core.FeatureKey, gridSize int) (*ICECurves, error) {
	if !p.model.IsFitted() {
		return nil, core.ErrNotFitted
	}
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	idx := frame.ColumnIndex(key)
	if idx < 0 {
		return nil, core.ErrFeatureNotFound
	}

	column, err := frame.Column(key)
	if err != nil {
		return nil, err
	}
	grid, err := buildGrid(column, gridSize)
	if err != nil {
		return nil, err
	}

	out := &ICECurves{
		FeatureKey: key,
		Grid:       grid,
		Rows:       make([][]float64, frame.RowCount()),
	}

	sem := semaphore.NewWeighted(p.maxParallel)
	var wg sync.WaitGroup
	for i := range frame.Data {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			curve := make([]float64, len(grid))
			for g, value := range grid {
				curve[g] = p.rowPrediction(frame.Data[i], idx, value)
			}
			out.Rows[i] = curve
		}(i)
	}
	wg.Wait()

	return out, nil
}
