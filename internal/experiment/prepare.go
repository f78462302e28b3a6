package experiment

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/verte-zerg/morsetrain/internal/dataset"
	"github.com/verte-zerg/morsetrain/internal/model"
	"github.com/verte-zerg/morsetrain/internal/nn"
)

// ErrNotSequential is returned when a windowed model is asked to train on a
// corpus whose runs are not real Morse sequences.
var ErrNotSequential = errors.New("windowed models need a sequence or text corpus")

// Prepared holds model-ready splits and the scaler fit on the training split.
type Prepared struct {
	Train  []dataset.Sample
	Val    []dataset.Sample
	Test   []dataset.Sample
	Scaler dataset.Scaler
}

// Prepare splits corpus and builds samples for the model named in cfg.
//
// Point-wise models split elements directly. Windowed models first build windows
// per run over raw durations, split the windows by target class and then
// standardize every window with a scaler fit on the training windows only.
func Prepare(corpus model.Corpus, cfg model.TrainConfig) (Prepared, error) {
	rnd := rand.New(rand.NewSource(cfg.Seed))
	switch cfg.Model {
	case nn.KindDense:
		return preparePoints(corpus, cfg, rnd)
	case nn.KindWindowed:
		if !corpus.Policy.Sequential() {
			return Prepared{}, fmt.Errorf("%w, got %q", ErrNotSequential, corpus.Policy)
		}
		return prepareWindows(corpus, cfg, rnd)
	default:
		return Prepared{}, fmt.Errorf("unknown model %q", cfg.Model)
	}
}

func preparePoints(corpus model.Corpus, cfg model.TrainConfig, rnd *rand.Rand) (Prepared, error) {
	split, err := dataset.StratifiedSplit(corpus.Labels(), cfg.TestFraction, cfg.ValFraction, rnd)
	if err != nil {
		return Prepared{}, fmt.Errorf("failed to split corpus: %w", err)
	}
	train := dataset.Elements(corpus.Elements, split.Train)
	scaler := dataset.FitScaler(train)
	return Prepared{
		Train:  dataset.PointSamples(train, scaler),
		Val:    dataset.PointSamples(dataset.Elements(corpus.Elements, split.Val), scaler),
		Test:   dataset.PointSamples(dataset.Elements(corpus.Elements, split.Test), scaler),
		Scaler: scaler,
	}, nil
}

func prepareWindows(corpus model.Corpus, cfg model.TrainConfig, rnd *rand.Rand) (Prepared, error) {
	windows := dataset.BuildRunWindows(corpus, dataset.Scaler{Std: 1}, cfg.WindowLength)
	if len(windows) == 0 {
		return Prepared{}, fmt.Errorf("corpus has no run longer than the window length %d", cfg.WindowLength)
	}
	targets := make([]model.Class, len(windows))
	for i, w := range windows {
		targets[i] = w.Target
	}
	split, err := dataset.StratifiedSplit(targets, cfg.TestFraction, cfg.ValFraction, rnd)
	if err != nil {
		return Prepared{}, fmt.Errorf("failed to split windows: %w", err)
	}
	scaler := dataset.FitWindowScaler(subsetWindows(windows, split.Train))
	scaled := scaler.ScaleWindows(windows)
	return Prepared{
		Train:  dataset.WindowSamples(subsetWindows(scaled, split.Train)),
		Val:    dataset.WindowSamples(subsetWindows(scaled, split.Val)),
		Test:   dataset.WindowSamples(subsetWindows(scaled, split.Test)),
		Scaler: scaler,
	}, nil
}

func subsetWindows(windows []dataset.SequenceWindow, idx []int) []dataset.SequenceWindow {
	out := make([]dataset.SequenceWindow, len(idx))
	for i, j := range idx {
		out[i] = windows[j]
	}
	return out
}
