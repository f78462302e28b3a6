// Package timing converts operator speed into element durations and applies
// human-like jitter.
package timing

import (
	"errors"
	"fmt"
	"math/rand"
)

const (
	// MsPerMinuteOverParis is 60000 ms / 50 units of the PARIS reference word.
	MsPerMinuteOverParis = 1200.0
	// DefaultSigma is the default relative jitter (8%).
	DefaultSigma = 0.08
	// MinDurationMs is the floor applied after jitter.
	MinDurationMs = 1.0
	DefaultMinWPM = 10.0
	DefaultMaxWPM = 40.0
)

var (
	// ErrInvalidSpeedRange indicates a non-positive or inverted speed range.
	ErrInvalidSpeedRange = errors.New("speed range must be positive with min <= max")
	// ErrInvalidSigma indicates a negative jitter deviation.
	ErrInvalidSigma = errors.New("jitter sigma must be >= 0")
)

// BaseDuration returns the canonical duration of units dit units at speedWPM.
func BaseDuration(units, speedWPM float64) float64 {
	return units * MsPerMinuteOverParis / speedWPM
}

// DitDuration returns the dit length in milliseconds at speedWPM.
func DitDuration(speedWPM float64) float64 {
	return BaseDuration(1, speedWPM)
}

// ValidateSpeedRange checks a configured operator speed range.
func ValidateSpeedRange(minWPM, maxWPM float64) error {
	if !(minWPM > 0) || !(maxWPM > 0) || minWPM > maxWPM {
		return fmt.Errorf("%w: got %.2f-%.2f", ErrInvalidSpeedRange, minWPM, maxWPM)
	}
	return nil
}

// Engine applies jitter and samples operator speeds from its own random stream.
type Engine struct {
	rnd   *rand.Rand
	sigma float64
}

// New returns an Engine with an explicit seed.
func New(seed int64, sigma float64) (*Engine, error) {
	return NewWithRand(rand.New(rand.NewSource(seed)), sigma)
}

// NewWithRand returns an Engine drawing from rnd.
func NewWithRand(rnd *rand.Rand, sigma float64) (*Engine, error) {
	if sigma < 0 {
		return nil, fmt.Errorf("%w: got %.4f", ErrInvalidSigma, sigma)
	}
	return &Engine{rnd: rnd, sigma: sigma}, nil
}

// Sigma returns the relative jitter deviation.
func (e *Engine) Sigma() float64 {
	return e.sigma
}

// Rand exposes the engine's random stream so generators share one sequence.
func (e *Engine) Rand() *rand.Rand {
	return e.rnd
}

// ApplyJitter multiplies durationMs by a N(1, sigma) sample and floors the result.
func (e *Engine) ApplyJitter(durationMs float64) float64 {
	jittered := durationMs
	if e.sigma > 0 {
		jittered = durationMs * (1.0 + e.rnd.NormFloat64()*e.sigma)
	}
	if jittered < MinDurationMs {
		return MinDurationMs
	}
	return jittered
}

// Duration returns a jittered duration for units at speedWPM.
func (e *Engine) Duration(units, speedWPM float64) float64 {
	return e.ApplyJitter(BaseDuration(units, speedWPM))
}

// SampleSpeed draws an operator speed uniformly from [minWPM, maxWPM].
func (e *Engine) SampleSpeed(minWPM, maxWPM float64) float64 {
	if maxWPM <= minWPM {
		return minWPM
	}
	return minWPM + e.rnd.Float64()*(maxWPM-minWPM)
}
