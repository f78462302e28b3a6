package dataset

import (
	"github.com/verte-zerg/morsetrain/internal/model"
)

// DefaultWindowLength is the number of past elements a sequence model sees.
const DefaultWindowLength = 15

// SequenceWindow holds L consecutive feature vectors and the label of the element
// that follows them.
type SequenceWindow struct {
	Features [][NumFeatures]float64
	Target   model.Class
}

// BuildWindows slides a strict window of length L over features. Window i covers
// [i, i+L) and targets labels[i+L], so N elements give N-L windows. Inputs with
// N <= L, a non-positive L, or mismatched lengths give no windows.
func BuildWindows(features [][NumFeatures]float64, labels []model.Class, L int) []SequenceWindow {
	n := len(features)
	if L <= 0 || n <= L || len(labels) != n {
		return nil
	}
	out := make([]SequenceWindow, 0, n-L)
	for i := 0; i+L < n; i++ {
		win := make([][NumFeatures]float64, L)
		copy(win, features[i:i+L])
		out = append(out, SequenceWindow{Features: win, Target: labels[i+L]})
	}
	return out
}

// BuildRunWindows builds windows separately for every generation run of corpus,
// keeping elements in their original order inside a run. Runs shorter than L+1
// contribute nothing.
func BuildRunWindows(corpus model.Corpus, scaler Scaler, L int) []SequenceWindow {
	var out []SequenceWindow
	for _, run := range groupRuns(corpus.Elements) {
		labels := make([]model.Class, len(run))
		for i, e := range run {
			labels[i] = e.Label
		}
		out = append(out, BuildWindows(scaler.Features(run), labels, L)...)
	}
	return out
}

// groupRuns splits elements by Run, preserving first-seen run order.
func groupRuns(elements []model.TimingElement) [][]model.TimingElement {
	index := make(map[int]int)
	var runs [][]model.TimingElement
	for _, e := range elements {
		i, ok := index[e.Run]
		if !ok {
			i = len(runs)
			index[e.Run] = i
			runs = append(runs, nil)
		}
		runs[i] = append(runs[i], e)
	}
	return runs
}

// Sample flattens the window into a model input.
func (w SequenceWindow) Sample() Sample {
	x := make([]float64, 0, len(w.Features)*NumFeatures)
	for _, f := range w.Features {
		x = append(x, f[:]...)
	}
	return Sample{X: x, Y: w.Target}
}

// WindowSamples flattens every window.
func WindowSamples(windows []SequenceWindow) []Sample {
	out := make([]Sample, len(windows))
	for i, w := range windows {
		out[i] = w.Sample()
	}
	return out
}
