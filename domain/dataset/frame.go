package dataset

import (
	"math"

	"linklens/domain/core"
)

// Frame is the canonical data object for all statistical computation.
// It is the single input to model fitting, explanation, and profiling.
type Frame struct {
	// Core data
	Data        [][]float64      // rows=observations, cols=features
	FeatureKeys []core.FeatureKey // column feature keys
	RowIDs      []core.ID         // observation identifiers

	// Optional response columns for supervised analysis
	Target   []float64 // response in natural units (claim count, amount)
	Exposure []float64 // offset in natural units; nil means exposure of 1

	// Fingerprint for replayability
	Fingerprint core.Hash
}

// NewFrame builds a frame from dense data and assigns row IDs.
func NewFrame(data [][]float64, keys []core.FeatureKey) *Frame {
	ids := make([]core.ID, len(data))
	for i := range ids {
		ids[i] = core.NewID()
	}
	return &Frame{
		Data:        data,
		FeatureKeys: keys,
		RowIDs:      ids,
		Fingerprint: core.ComputeMatrixFingerprint(data, keys),
	}
}

// RowCount returns the number of observations
func (f *Frame) RowCount() int {
	return len(f.Data)
}

// FeatureCount returns the number of feature columns
func (f *Frame) FeatureCount() int {
	return len(f.FeatureKeys)
}

// ColumnIndex returns the position of a feature key, or -1
func (f *Frame) ColumnIndex(key core.FeatureKey) int {
	for i, k := range f.FeatureKeys {
		if k == key {
			return i
		}
	}
	return -1
}

// Column extracts a single feature column by key
func (f *Frame) Column(key core.FeatureKey) ([]float64, error) {
	idx := f.ColumnIndex(key)
	if idx < 0 {
		return nil, core.ErrFeatureNotFound
	}
	col := make([]float64, len(f.Data))
	for i, row := range f.Data {
		col[i] = row[idx]
	}
	return col, nil
}

// Means returns the per-feature column means
func (f *Frame) Means() []float64 {
	p := f.FeatureCount()
	means := make([]float64, p)
	if f.RowCount() == 0 {
		return means
	}
	for _, row := range f.Data {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(f.RowCount())
	}
	return means
}

// ExposureAt returns the exposure for a row, defaulting to 1.
func (f *Frame) ExposureAt(i int) float64 {
	if f.Exposure == nil {
		return 1
	}
	return f.Exposure[i]
}

// Validate checks the frame for ragged rows, mismatched response columns,
// and non-finite values. It fails fast before any computation touches the data.
func (f *Frame) Validate() error {
	if f.RowCount() == 0 || f.FeatureCount() == 0 {
		return core.ErrEmptyMatrix
	}
	p := f.FeatureCount()
	for i, row := range f.Data {
		if len(row) != p {
			return core.NewShapeMismatchError("row", len(row), p)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return core.NewNonFiniteError(i, j, v)
			}
		}
	}
	if f.Target != nil && len(f.Target) != f.RowCount() {
		return core.NewShapeMismatchError("target", len(f.Target), f.RowCount())
	}
	if f.Exposure != nil && len(f.Exposure) != f.RowCount() {
		return core.NewShapeMismatchError("exposure", len(f.Exposure), f.RowCount())
	}
	return nil
}
