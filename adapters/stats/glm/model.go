package glm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"linklens/domain/core"
	"linklens/domain/dataset"
)

// FitConfig controls the IRLS iteration
type FitConfig struct {
	MaxIterations int
	Tolerance     float64 // relative deviance change for convergence
}

// DefaultFitConfig returns sensible IRLS defaults
func DefaultFitConfig() FitConfig {
	return FitConfig{
		MaxIterations: 100,
		Tolerance:     1e-10,
	}
}

// Model is a fitted log-link generalized linear model.
// The linear predictor is additive on the log scale; natural-unit predictions
// are its exponential, scaled by exposure.
type Model struct {
	Family        Family            `json:"-"`
	FamilyName    string            `json:"family"`
	Intercept     float64           `json:"intercept"`
	Coefficients  []float64         `json:"coefficients"`
	FeatureKeys   []core.FeatureKey `json:"feature_keys"`
	Converged     bool              `json:"converged"`
	Iterations    int               `json:"iterations"`
	TrainDeviance float64           `json:"train_deviance"`

	fitted bool
}

// IsFitted reports whether the model carries fitted coefficients
func (m *Model) IsFitted() bool {
	return m != nil && m.fitted
}

// Fit estimates a log-link GLM by iteratively reweighted least squares.
// Exposure, when present on the frame, enters as a log offset.
func Fit(frame *dataset.Frame, family Family, cfg FitConfig) (*Model, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	if frame.Target == nil {
		return nil, core.NewShapeMismatchError("target", 0, frame.RowCount())
	}
	n := frame.RowCount()
	p := frame.FeatureCount()
	if n <= p+1 {
		return nil, core.ErrInsufficientData
	}
	if cfg.MaxIterations <= 0 {
		cfg = DefaultFitConfig()
	}

	// Design matrix with intercept column
	x := mat.NewDense(n, p+1, nil)
	for i, row := range frame.Data {
		x.Set(i, 0, 1)
		for j, v := range row {
			x.Set(i, j+1, v)
		}
	}

	y := frame.Target
	offset := make([]float64, n)
	for i := 0; i < n; i++ {
		offset[i] = math.Log(frame.ExposureAt(i))
	}

	// Initialize the mean at a blend of observation and sample mean so zero
	// counts do not produce a degenerate starting point.
	yMean := 0.0
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(n)
	mu := make([]float64, n)
	eta := make([]float64, n)
	for i := range mu {
		mu[i] = (y[i] + yMean) / 2
		if mu[i] <= 0 {
			mu[i] = yMean / 2
		}
		eta[i] = math.Log(mu[i])
	}

	beta := make([]float64, p+1)
	deviance := totalDeviance(family, y, mu)

	model := &Model{
		Family:      family,
		FamilyName:  family.Name(),
		FeatureKeys: frame.FeatureKeys,
	}

	for iter := 1; iter <= cfg.MaxIterations; iter++ {
		// Working response and weights for the log link: dmu/deta = mu
		z := make([]float64, n)
		w := make([]float64, n)
		for i := 0; i < n; i++ {
			z[i] = eta[i] - offset[i] + (y[i]-mu[i])/mu[i]
			w[i] = mu[i] * mu[i] / family.Variance(mu[i])
		}

		next, err := solveWeighted(x, z, w)
		if err != nil {
			return nil, err
		}
		beta = next

		// Update the linear predictor and mean
		for i := 0; i < n; i++ {
			e := offset[i] + beta[0]
			for j := 0; j < p; j++ {
				e += beta[j+1] * x.At(i, j+1)
			}
			eta[i] = e
			mu[i] = math.Exp(e)
		}

		nextDeviance := totalDeviance(family, y, mu)
		model.Iterations = iter
		// Bounded-denominator stopping rule: the 0.1 floor keeps the relative
		// criterion reachable when deviance collapses toward machine zero on
		// near-deterministic data.
		if math.Abs(nextDeviance-deviance)/(math.Abs(nextDeviance)+0.1) < cfg.Tolerance {
			model.Converged = true
			deviance = nextDeviance
			break
		}
		deviance = nextDeviance
	}

	model.Intercept = beta[0]
	model.Coefficients = beta[1:]
	model.TrainDeviance = deviance / float64(n)
	model.fitted = true
	if !model.Converged {
		return model, core.ErrNoConvergence
	}
	return model, nil
}

// solveWeighted solves the weighted least squares system by QR on the
// row-scaled design, avoiding an explicit normal-equations inverse.
func solveWeighted(x *mat.Dense, z, w []float64) ([]float64, error) {
	n, cols := x.Dims()
	scaled := mat.NewDense(n, cols, nil)
	rhs := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		root := math.Sqrt(w[i])
		for j := 0; j < cols; j++ {
			scaled.Set(i, j, root*x.At(i, j))
		}
		rhs.SetVec(i, root*z[i])
	}

	var qr mat.QR
	qr.Factorize(scaled)
	sol := mat.NewVecDense(cols, nil)
	if err := qr.SolveVecTo(sol, false, rhs); err != nil {
		return nil, core.ErrSingularSystem
	}

	out := make([]float64, cols)
	for j := 0; j < cols; j++ {
		out[j] = sol.AtVec(j)
	}
	return out, nil
}

func totalDeviance(f Family, y, mu []float64) float64 {
	total := 0.0
	for i := range y {
		total += f.UnitDeviance(y[i], mu[i])
	}
	return total
}

// LinkPredict returns the unit-exposure linear predictor (intercept + X*beta)
// for every row. Exposure offsets are deliberately excluded so attributions
// can share a single scalar baseline.
func (m *Model) LinkPredict(frame *dataset.Frame) ([]float64, error) {
	if !m.IsFitted() {
		return nil, core.ErrNotFitted
	}
	if frame.FeatureCount() != len(m.Coefficients) {
		return nil, core.NewShapeMismatchError("features", frame.FeatureCount(), len(m.Coefficients))
	}
	out := make([]float64, frame.RowCount())
	for i, row := range frame.Data {
		e := m.Intercept
		for j, v := range row {
			e += m.Coefficients[j] * v
		}
		out[i] = e
	}
	return out, nil
}

// Predict returns natural-unit predictions: exposure * exp(link predictor)
func (m *Model) Predict(frame *dataset.Frame) ([]float64, error) {
	link, err := m.LinkPredict(frame)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(link))
	for i, e := range link {
		out[i] = frame.ExposureAt(i) * math.Exp(e)
	}
	return out, nil
}

// Score returns the exposure-weighted mean deviance of the model on a frame
func (m *Model) Score(frame *dataset.Frame) (float64, error) {
	if frame.Target == nil {
		return 0, core.NewShapeMismatchError("target", 0, frame.RowCount())
	}
	mu, err := m.Predict(frame)
	if err != nil {
		return 0, err
	}
	return MeanDeviance(m.Family, frame.Target, mu), nil
}
