// Package dataset shapes corpora into model inputs: feature scaling, stratified
// splits, sequence windows, batches and the CSV interchange format.
package dataset

import (
	"math"

	"github.com/verte-zerg/morsetrain/internal/model"
)

// NumFeatures is the width of one element's feature vector.
const NumFeatures = 2

// Scaler standardizes durations. Key state is passed through unchanged.
type Scaler struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// FitScaler computes the duration mean and population standard deviation of
// elements. A zero deviation is replaced by 1 so the transform stays finite.
func FitScaler(elements []model.TimingElement) Scaler {
	if len(elements) == 0 {
		return Scaler{Std: 1}
	}
	var sum float64
	for _, e := range elements {
		sum += e.DurationMs
	}
	mean := sum / float64(len(elements))
	var sq float64
	for _, e := range elements {
		d := e.DurationMs - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(elements)))
	if std == 0 {
		std = 1
	}
	return Scaler{Mean: mean, Std: std}
}

// Transform returns [normalized_duration, is_key_down] for e.
func (s Scaler) Transform(e model.TimingElement) [NumFeatures]float64 {
	std := s.Std
	if std == 0 {
		std = 1
	}
	keyDown := 0.0
	if e.IsKeyDown {
		keyDown = 1
	}
	return [NumFeatures]float64{(e.DurationMs - s.Mean) / std, keyDown}
}

// Features transforms every element in order.
func (s Scaler) Features(elements []model.TimingElement) [][NumFeatures]float64 {
	out := make([][NumFeatures]float64, len(elements))
	for i, e := range elements {
		out[i] = s.Transform(e)
	}
	return out
}

// FitWindowScaler fits a scaler on every raw duration inside windows.
func FitWindowScaler(windows []SequenceWindow) Scaler {
	var elements []model.TimingElement
	for _, w := range windows {
		for _, f := range w.Features {
			elements = append(elements, model.TimingElement{DurationMs: f[0]})
		}
	}
	return FitScaler(elements)
}

// ScaleWindows returns copies of raw windows with standardized durations.
func (s Scaler) ScaleWindows(windows []SequenceWindow) []SequenceWindow {
	std := s.Std
	if std == 0 {
		std = 1
	}
	out := make([]SequenceWindow, len(windows))
	for i, w := range windows {
		features := make([][NumFeatures]float64, len(w.Features))
		for j, f := range w.Features {
			features[j] = [NumFeatures]float64{(f[0] - s.Mean) / std, f[1]}
		}
		out[i] = SequenceWindow{Features: features, Target: w.Target}
	}
	return out
}
