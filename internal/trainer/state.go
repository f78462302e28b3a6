package trainer

import "math"

// Phase is the controller state after an epoch.
type Phase string

const (
	PhaseRunning    Phase = "running"
	PhaseImproved   Phase = "improved"
	PhaseStalled    Phase = "stalled"
	PhaseTerminated Phase = "terminated"
)

// Reason explains why a run ended.
type Reason string

const (
	ReasonEarlyStopped Reason = "early_stopped"
	ReasonMaxEpochs    Reason = "max_epochs"
	ReasonCanceled     Reason = "canceled"
	ReasonFailed       Reason = "failed"
)

// State is the controller's bookkeeping between epochs.
type State struct {
	Epoch       int
	BestValLoss float64
	BestEpoch   int
	// EpochsSinceImprovement drives early stopping.
	EpochsSinceImprovement int
	// PlateauCount drives learning-rate decay and resets whenever the rate drops.
	PlateauCount int
	plateauBest  float64
	LearningRate float64
	BestSnapshot []float64
	Phase        Phase
	Reason       Reason
}

func newState(lr float64) *State {
	return &State{
		BestValLoss:  math.Inf(1),
		plateauBest:  math.Inf(1),
		LearningRate: lr,
		Phase:        PhaseRunning,
	}
}

// outcome is what one epoch's validation loss did to the state.
type outcome struct {
	improved bool
	decayed  bool
	stop     bool
}

// observe advances the state by one epoch with validation loss valLoss. The
// snapshot callback is invoked only on strict improvement.
func (s *State) observe(cfg Config, valLoss float64, snapshot func() []float64) outcome {
	s.Epoch++
	var out outcome
	if valLoss < s.BestValLoss {
		s.BestValLoss = valLoss
		s.BestEpoch = s.Epoch
		s.BestSnapshot = snapshot()
		s.EpochsSinceImprovement = 0
		s.Phase = PhaseImproved
		out.improved = true
	} else {
		s.EpochsSinceImprovement++
		s.Phase = PhaseStalled
		if s.EpochsSinceImprovement >= cfg.Patience {
			s.Phase = PhaseTerminated
			s.Reason = ReasonEarlyStopped
			out.stop = true
			return out
		}
	}

	if valLoss < s.plateauBest {
		s.plateauBest = valLoss
		s.PlateauCount = 0
	} else {
		s.PlateauCount++
		if s.PlateauCount >= cfg.PlateauPatience {
			s.LearningRate = math.Max(s.LearningRate*cfg.DecayFactor, cfg.MinLearningRate)
			s.PlateauCount = 0
			out.decayed = true
		}
	}

	if s.Epoch >= cfg.MaxEpochs {
		s.Phase = PhaseTerminated
		s.Reason = ReasonMaxEpochs
		out.stop = true
	}
	return out
}
