// Package trainer drives the epoch loop of a classifier: early stopping,
// plateau learning-rate decay and best-snapshot retention.
package trainer

import (
	"errors"
	"fmt"
	"runtime"
)

var (
	// ErrInvalidConfig indicates controller settings that cannot run.
	ErrInvalidConfig = errors.New("invalid trainer config")
	// ErrNonFiniteLoss aborts a run whose loss became NaN or infinite.
	ErrNonFiniteLoss = errors.New("non-finite loss")
	// ErrEmptySplit indicates a run without training or validation samples.
	ErrEmptySplit = errors.New("empty training or validation split")
)

// Config holds controller settings.
type Config struct {
	MaxEpochs int
	// Patience is the number of epochs without improvement before stopping early.
	Patience int
	// LearningRate is the starting learning rate.
	LearningRate float64
	// PlateauPatience is the number of flat epochs before the rate is decayed.
	PlateauPatience int
	DecayFactor     float64
	MinLearningRate float64
	BatchSize       int
	// Workers bounds concurrent validation batches; 0 uses GOMAXPROCS.
	Workers int
}

// DefaultConfig returns the reference training schedule.
func DefaultConfig() Config {
	return Config{
		MaxEpochs:       150,
		Patience:        20,
		LearningRate:    0.001,
		PlateauPatience: 5,
		DecayFactor:     0.5,
		MinLearningRate: 0,
		BatchSize:       64,
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	switch {
	case c.MaxEpochs <= 0:
		return fmt.Errorf("%w: max epochs must be > 0, got %d", ErrInvalidConfig, c.MaxEpochs)
	case c.Patience <= 0:
		return fmt.Errorf("%w: patience must be > 0, got %d", ErrInvalidConfig, c.Patience)
	case !(c.LearningRate > 0):
		return fmt.Errorf("%w: learning rate must be positive, got %g", ErrInvalidConfig, c.LearningRate)
	case c.PlateauPatience <= 0:
		return fmt.Errorf("%w: plateau patience must be > 0, got %d", ErrInvalidConfig, c.PlateauPatience)
	case !(c.DecayFactor > 0 && c.DecayFactor < 1):
		return fmt.Errorf("%w: decay factor must be in (0, 1), got %g", ErrInvalidConfig, c.DecayFactor)
	case c.MinLearningRate < 0 || c.MinLearningRate > c.LearningRate:
		return fmt.Errorf("%w: min learning rate must be in [0, %g], got %g", ErrInvalidConfig, c.LearningRate, c.MinLearningRate)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size must be > 0, got %d", ErrInvalidConfig, c.BatchSize)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
