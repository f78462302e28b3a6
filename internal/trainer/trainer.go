package trainer

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/morsetrain/internal/dataset"
	"github.com/verte-zerg/morsetrain/internal/model"
)

// Model is a trainable classifier. EvalBatch and Score must be safe for
// concurrent use; TrainBatch is only ever called from one goroutine.
type Model interface {
	// Params returns a copy of the parameters.
	Params() []float64
	SetParams(params []float64) error
	// TrainBatch runs one optimizer step and returns the mean batch loss and the
	// number of correct predictions made before the step.
	TrainBatch(batch []dataset.Sample, lr float64) (loss float64, correct int, err error)
	// EvalBatch scores the batch without updating parameters.
	EvalBatch(batch []dataset.Sample) (loss float64, correct int, err error)
	// Score returns per-class scores for one input.
	Score(x []float64) []float64
}

// EpochReport describes one finished epoch.
type EpochReport struct {
	Epoch                  int
	TrainLoss              float64
	TrainAcc               float64
	ValLoss                float64
	ValAcc                 float64
	LearningRate           float64
	Phase                  Phase
	EpochsSinceImprovement int
	PlateauCount           int
	Improved               bool
	LRDecayed              bool
}

// Observer receives a report after every epoch.
type Observer func(EpochReport)

// Result is the outcome of a run. Snapshot holds the best parameters, which are
// also loaded into the model.
type Result struct {
	Snapshot    []float64
	BestEpoch   int
	BestValLoss float64
	Epochs      int
	Reason      Reason
	History     []EpochReport
}

// Trainer runs the epoch loop with its own shuffling stream.
type Trainer struct {
	cfg      Config
	rnd      *rand.Rand
	observer Observer
}

// New returns a Trainer that shuffles training batches with seed.
func New(cfg Config, seed int64, observer Observer) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Trainer{cfg: cfg, rnd: rand.New(rand.NewSource(seed)), observer: observer}, nil
}

// Config returns the controller settings.
func (t *Trainer) Config() Config {
	return t.cfg
}

// Run trains m until early stopping or MaxEpochs. Cancellation is honored only
// between epochs. On any exit the best snapshot seen so far is restored into m.
func (t *Trainer) Run(ctx context.Context, m Model, train, val []dataset.Sample) (Result, error) {
	if len(train) == 0 || len(val) == 0 {
		return Result{}, ErrEmptySplit
	}
	state := newState(t.cfg.LearningRate)
	var history []EpochReport

	finish := func(reason Reason, runErr error) (Result, error) {
		res := Result{
			BestEpoch:   state.BestEpoch,
			BestValLoss: state.BestValLoss,
			Epochs:      state.Epoch,
			Reason:      reason,
			History:     history,
		}
		if state.BestSnapshot == nil {
			// Params after a failed step may be corrupt.
			if reason != ReasonFailed {
				res.Snapshot = m.Params()
			}
			return res, runErr
		}
		res.Snapshot = append([]float64(nil), state.BestSnapshot...)
		if err := m.SetParams(res.Snapshot); err != nil && runErr == nil {
			runErr = fmt.Errorf("failed to restore best snapshot: %w", err)
		}
		return res, runErr
	}

	valBatches := dataset.Batches(val, t.cfg.BatchSize)
	for {
		if err := ctx.Err(); err != nil {
			return finish(ReasonCanceled, err)
		}
		epoch := state.Epoch + 1

		trainLoss, trainCorrect, err := t.trainEpoch(m, train, state.LearningRate)
		if err != nil {
			return finish(ReasonFailed, fmt.Errorf("epoch %d: %w", epoch, err))
		}
		valLoss, valCorrect, err := t.validate(m, valBatches, len(val))
		if err != nil {
			return finish(ReasonFailed, fmt.Errorf("epoch %d: %w", epoch, err))
		}

		lr := state.LearningRate
		out := state.observe(t.cfg, valLoss, m.Params)
		report := EpochReport{
			Epoch:                  state.Epoch,
			TrainLoss:              trainLoss,
			TrainAcc:               float64(trainCorrect) / float64(len(train)),
			ValLoss:                valLoss,
			ValAcc:                 float64(valCorrect) / float64(len(val)),
			LearningRate:           lr,
			Phase:                  state.Phase,
			EpochsSinceImprovement: state.EpochsSinceImprovement,
			PlateauCount:           state.PlateauCount,
			Improved:               out.improved,
			LRDecayed:              out.decayed,
		}
		history = append(history, report)
		if t.observer != nil {
			t.observer(report)
		}
		if out.stop {
			return finish(state.Reason, nil)
		}
	}
}

func (t *Trainer) trainEpoch(m Model, train []dataset.Sample, lr float64) (float64, int, error) {
	var sum float64
	correct := 0
	for i, batch := range dataset.ShuffledBatches(train, t.cfg.BatchSize, t.rnd) {
		loss, ok, err := m.TrainBatch(batch, lr)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to train batch %d: %w", i, err)
		}
		if !isFinite(loss) {
			return 0, 0, fmt.Errorf("training batch %d: %w", i, ErrNonFiniteLoss)
		}
		sum += loss * float64(len(batch))
		correct += ok
	}
	return sum / float64(len(train)), correct, nil
}

// validate scores batches concurrently and sums the results in batch order, so
// the epoch loss does not depend on scheduling.
func (t *Trainer) validate(m Model, batches [][]dataset.Sample, total int) (float64, int, error) {
	losses := make([]float64, len(batches))
	corrects := make([]int, len(batches))
	var g errgroup.Group
	g.SetLimit(t.cfg.workers())
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			loss, ok, err := m.EvalBatch(batch)
			if err != nil {
				return fmt.Errorf("failed to evaluate batch %d: %w", i, err)
			}
			losses[i] = loss * float64(len(batch))
			corrects[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	var sum float64
	correct := 0
	for i := range batches {
		sum += losses[i]
		correct += corrects[i]
	}
	mean := sum / float64(total)
	if !isFinite(mean) {
		return 0, 0, fmt.Errorf("validation: %w", ErrNonFiniteLoss)
	}
	return mean, correct, nil
}

// Predict returns the highest scoring class for every sample.
func Predict(m Model, samples []dataset.Sample) []model.Class {
	out := make([]model.Class, len(samples))
	for i, s := range samples {
		out[i] = argmax(m.Score(s.X))
	}
	return out
}

func argmax(scores []float64) model.Class {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return model.Class(best)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
