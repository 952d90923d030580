package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrRunNotFound      = fmt.Errorf("%w: run", ErrNotFound)
	ErrArtifactNotFound = fmt.Errorf("%w: artifact", ErrNotFound)
	ErrFeatureNotFound  = fmt.Errorf("%w: feature", ErrNotFound)

	// Input validation errors
	ErrShapeMismatch    = errors.New("shape mismatch between inputs")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNonFinite        = fmt.Errorf("%w: non-finite value", ErrInvalidInput)
	ErrEmptyMatrix      = fmt.Errorf("%w: empty matrix", ErrInvalidInput)
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Model errors
	ErrNotFitted      = errors.New("model is not fitted")
	ErrSingularSystem = errors.New("singular system in weighted least squares")
	ErrNoConvergence  = errors.New("fit did not converge")

	// Reconstruction errors
	// ErrReconstructionDrift signals that the exact telescoping identity was
	// violated beyond tolerance. The first-order method's mismatch is a
	// reported metric, never this error.
	ErrReconstructionDrift = errors.New("exact reconstruction drifted beyond tolerance")
)

// Error constructors with context
func NewShapeMismatchError(what string, got, want int) error {
	return fmt.Errorf("%w: %s has %d, want %d", ErrShapeMismatch, what, got, want)
}

func NewNonFiniteError(row, col int, value float64) error {
	return fmt.Errorf("%w at [%d,%d]: %v", ErrNonFinite, row, col, value)
}

func NewDriftError(row int, reconstructed, expected, tolerance float64) error {
	return fmt.Errorf("%w: row %d reconstructed %.12g, expected %.12g (tolerance %g)",
		ErrReconstructionDrift, row, reconstructed, expected, tolerance)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInputError(err error) bool {
	return errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInsufficientData)
}

func IsModelError(err error) bool {
	return errors.Is(err, ErrNotFitted) ||
		errors.Is(err, ErrSingularSystem) ||
		errors.Is(err, ErrNoConvergence)
}
