// Package generator builds labeled Morse timing streams.
package generator

import (
	"errors"
	"fmt"

	"github.com/verte-zerg/morsetrain/internal/model"
	"github.com/verte-zerg/morsetrain/internal/timing"
)

const (
	// DefaultElementDwell is how many independent samples share one operator speed.
	DefaultElementDwell = 100
	// DefaultCharacterDwell is how many characters share one operator speed.
	DefaultCharacterDwell = 50
	// DefaultWordGapProb is the chance a character ends with a word gap.
	DefaultWordGapProb = 0.25
)

// ErrInvalidWeights indicates class weights that cannot form a distribution.
var ErrInvalidWeights = errors.New("class weights must be >= 0 with a positive sum")

// DefaultWeights returns the Dit/Dah/ElementGap/LetterGap/WordGap sampling weights.
func DefaultWeights() [model.NumClasses]float64 {
	return [model.NumClasses]float64{20, 15, 20, 25, 20}
}

// Profile is the operator speed currently held for a dwell.
type Profile struct {
	SpeedWPM float64
}

// DitMs returns the canonical dit duration of the profile.
func (p Profile) DitMs() float64 {
	return timing.DitDuration(p.SpeedWPM)
}

// operator resamples its speed once every dwell calls to next.
type operator struct {
	engine    *timing.Engine
	minWPM    float64
	maxWPM    float64
	dwell     int
	remaining int
	profile   Profile
}

func newOperator(engine *timing.Engine, minWPM, maxWPM float64, dwell int) (*operator, error) {
	if err := timing.ValidateSpeedRange(minWPM, maxWPM); err != nil {
		return nil, err
	}
	if dwell <= 0 {
		return nil, fmt.Errorf("dwell must be > 0, got %d", dwell)
	}
	return &operator{engine: engine, minWPM: minWPM, maxWPM: maxWPM, dwell: dwell}, nil
}

func (o *operator) next() Profile {
	if o.remaining == 0 {
		o.profile = Profile{SpeedWPM: o.engine.SampleSpeed(o.minWPM, o.maxWPM)}
		o.remaining = o.dwell
	}
	o.remaining--
	return o.profile
}

// SamplerOptions configures independent sampling.
type SamplerOptions struct {
	MinWPM  float64
	MaxWPM  float64
	Dwell   int
	Weights [model.NumClasses]float64
}

// DefaultSamplerOptions returns the reference settings.
func DefaultSamplerOptions() SamplerOptions {
	return SamplerOptions{
		MinWPM:  timing.DefaultMinWPM,
		MaxWPM:  timing.DefaultMaxWPM,
		Dwell:   DefaultElementDwell,
		Weights: DefaultWeights(),
	}
}

// Sampler draws each element independently from a weighted class distribution.
// Consecutive labels are uncorrelated, so streams may contain sequences that real
// keying cannot produce (two element gaps in a row, a dah right after a word gap).
type Sampler struct {
	engine  *timing.Engine
	op      *operator
	weights [model.NumClasses]float64
	total   float64
}

// NewSampler returns a Sampler drawing from engine.
func NewSampler(engine *timing.Engine, opts SamplerOptions) (*Sampler, error) {
	op, err := newOperator(engine, opts.MinWPM, opts.MaxWPM, opts.Dwell)
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, w := range opts.Weights {
		if w < 0 {
			return nil, ErrInvalidWeights
		}
		total += w
	}
	if total <= 0 {
		return nil, ErrInvalidWeights
	}
	return &Sampler{engine: engine, op: op, weights: opts.Weights, total: total}, nil
}

// Generate returns n independently sampled elements as a single run.
func (s *Sampler) Generate(n int) model.Corpus {
	corpus := model.Corpus{
		Policy:   model.PolicyIndependent,
		MinWPM:   s.op.minWPM,
		MaxWPM:   s.op.maxWPM,
		Sigma:    s.engine.Sigma(),
		Elements: make([]model.TimingElement, 0, n),
	}
	for i := 0; i < n; i++ {
		profile := s.op.next()
		label := s.pick()
		duration := s.engine.Duration(label.Units(), profile.SpeedWPM)
		corpus.Elements = append(corpus.Elements, model.NewElement(label, duration, 0))
	}
	return corpus
}

func (s *Sampler) pick() model.Class {
	r := s.engine.Rand().Float64() * s.total
	acc := 0.0
	last := model.Dit
	for i, w := range s.weights {
		if w <= 0 {
			continue
		}
		acc += w
		last = model.Class(i)
		if r < acc {
			return last
		}
	}
	return last
}
