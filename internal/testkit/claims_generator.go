package testkit

import (
	"math"
	"math/rand"

	"linklens/domain/core"
	"linklens/domain/dataset"
)

// ClaimsGeneratorConfig configures the synthetic claims data generator
type ClaimsGeneratorConfig struct {
	PolicyCount int     `json:"policy_count"`
	Seed        int64   `json:"seed"`
	BaseRate    float64 `json:"base_rate"`     // expected claims per unit exposure
	MeanAmount  float64 `json:"mean_amount"`   // expected severity in currency units
	GammaShape  float64 `json:"gamma_shape"`   // severity dispersion
	MaxExposure float64 `json:"max_exposure"`  // policy-year exposure upper bound
}

// DefaultClaimsConfig returns sensible defaults for claims data generation
func DefaultClaimsConfig() ClaimsGeneratorConfig {
	return ClaimsGeneratorConfig{
		PolicyCount: 2000,
		Seed:        42,
		BaseRate:    0.1,
		MeanAmount:  1200,
		GammaShape:  2,
		MaxExposure: 1,
	}
}

// FrequencyCoefficients are the generating log-linear frequency effects,
// exposed so tests can check recovery against ground truth.
var FrequencyCoefficients = map[core.FeatureKey]float64{
	"driver_age":    -0.3,
	"vehicle_power": 0.4,
	"bonus_malus":   0.5,
	"density":       0.2,
}

// SeverityCoefficients are the generating log-linear severity effects
var SeverityCoefficients = map[core.FeatureKey]float64{
	"driver_age":    0.1,
	"vehicle_power": 0.3,
	"bonus_malus":   0.15,
	"density":       -0.05,
}

// ClaimsDataGenerator produces synthetic motor insurance portfolios with a
// known multiplicative structure: Poisson claim counts and Gamma amounts,
// both log-linear in standardized rating factors.
type ClaimsDataGenerator struct {
	config ClaimsGeneratorConfig
	rng    *rand.Rand
}

// NewClaimsDataGenerator creates a generator with a replayable seed
func NewClaimsDataGenerator(config ClaimsGeneratorConfig) *ClaimsDataGenerator {
	return &ClaimsDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// FeatureKeys returns the rating factors in generation order
func (g *ClaimsDataGenerator) FeatureKeys() []core.FeatureKey {
	return []core.FeatureKey{"driver_age", "vehicle_power", "bonus_malus", "density"}
}

// GenerateFrequencyFrame builds a portfolio with Poisson claim counts as the
// target and policy-year exposure as the offset column.
func (g *ClaimsDataGenerator) GenerateFrequencyFrame() *dataset.Frame {
	keys := g.FeatureKeys()
	n := g.config.PolicyCount
	data := make([][]float64, n)
	target := make([]float64, n)
	exposure := make([]float64, n)

	for i := 0; i < n; i++ {
		row := g.ratingFactors()
		data[i] = row

		eta := math.Log(g.config.BaseRate)
		for j, key := range keys {
			eta += FrequencyCoefficients[key] * row[j]
		}
		exposure[i] = 0.1 + g.rng.Float64()*(g.config.MaxExposure-0.1)
		target[i] = float64(g.poisson(exposure[i] * math.Exp(eta)))
	}

	frame := dataset.NewFrame(data, keys)
	frame.Target = target
	frame.Exposure = exposure
	return frame
}

// GenerateSeverityFrame builds per-claim Gamma amounts with a log-linear mean
func (g *ClaimsDataGenerator) GenerateSeverityFrame() *dataset.Frame {
	keys := g.FeatureKeys()
	n := g.config.PolicyCount
	data := make([][]float64, n)
	target := make([]float64, n)

	for i := 0; i < n; i++ {
		row := g.ratingFactors()
		data[i] = row

		eta := math.Log(g.config.MeanAmount)
		for j, key := range keys {
			eta += SeverityCoefficients[key] * row[j]
		}
		target[i] = g.gamma(g.config.GammaShape, math.Exp(eta)/g.config.GammaShape)
	}

	frame := dataset.NewFrame(data, keys)
	frame.Target = target
	return frame
}

// ratingFactors draws standardized rating factors in [-1, 1]
func (g *ClaimsDataGenerator) ratingFactors() []float64 {
	row := make([]float64, 4)
	for j := range row {
		row[j] = g.rng.Float64()*2 - 1
	}
	return row
}

// poisson samples a Poisson count by inversion; portfolio rates stay small so
// the sequential search is cheap.
func (g *ClaimsDataGenerator) poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	product := g.rng.Float64()
	count := 0
	for product > limit {
		product *= g.rng.Float64()
		count++
	}
	return count
}

// gamma samples a Gamma(shape, scale) via Marsaglia-Tsang
func (g *ClaimsDataGenerator) gamma(shape, scale float64) float64 {
	if shape < 1 {
		// Boost the shape and correct with a uniform power
		u := g.rng.Float64()
		return g.gamma(shape+1, scale) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1 / math.Sqrt(9*d)
	for {
		x := g.rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := g.rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v * scale
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v * scale
		}
	}
}
