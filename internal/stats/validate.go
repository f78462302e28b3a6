// Package stats contains corpus statistics, ratio validation, evaluation metrics
// and text reporting.
package stats

import (
	"math"

	"github.com/verte-zerg/morsetrain/internal/model"
)

// DefaultTolerance is the relative tolerance applied to each design ratio.
const DefaultTolerance = 0.20

// ClassStats summarizes the durations of one class.
type ClassStats struct {
	Class model.Class
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Max   float64
}

// Ratio compares one class mean against the Dit mean.
type Ratio struct {
	Class    model.Class
	Expected float64
	Measured float64
	// Deviation is |Measured-Expected|/Expected.
	Deviation float64
	Pass      bool
	// Missing is set when the class or the Dit baseline has no samples.
	Missing bool
}

// Validation is the outcome of a ratio check.
type Validation struct {
	Tolerance float64
	Total     int
	Classes   [model.NumClasses]ClassStats
	Ratios    []Ratio
}

// Passed reports whether every ratio is within tolerance.
func (v Validation) Passed() bool {
	if len(v.Ratios) == 0 {
		return false
	}
	for _, r := range v.Ratios {
		if !r.Pass {
			return false
		}
	}
	return true
}

// Ratio returns the check for class c.
func (v Validation) Ratio(c model.Class) (Ratio, bool) {
	for _, r := range v.Ratios {
		if r.Class == c {
			return r, true
		}
	}
	return Ratio{}, false
}

var comparedClasses = []model.Class{model.Dah, model.ElementGap, model.LetterGap, model.WordGap}

// Validate groups elements by class and compares each class mean against the Dit
// mean. It never mutates the corpus and never fails; verdicts are per ratio.
func Validate(corpus model.Corpus, tolerance float64) Validation {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	v := Validation{
		Tolerance: tolerance,
		Total:     corpus.Len(),
		Classes:   ClassDurations(corpus.Elements),
	}
	dit := v.Classes[model.Dit]
	for _, c := range comparedClasses {
		r := Ratio{Class: c, Expected: c.Units()}
		cs := v.Classes[c]
		if dit.Count == 0 || cs.Count == 0 || dit.Mean <= 0 {
			r.Missing = true
			v.Ratios = append(v.Ratios, r)
			continue
		}
		r.Measured = cs.Mean / dit.Mean
		r.Deviation = math.Abs(r.Measured-r.Expected) / r.Expected
		r.Pass = r.Deviation < tolerance
		v.Ratios = append(v.Ratios, r)
	}
	return v
}

// ClassDurations computes per-class duration statistics. Std is the sample
// standard deviation (n-1); it is zero for classes with fewer than two samples.
func ClassDurations(elements []model.TimingElement) [model.NumClasses]ClassStats {
	var out [model.NumClasses]ClassStats
	var sums [model.NumClasses]float64
	for i := range out {
		out[i].Class = model.Class(i)
	}
	for _, e := range elements {
		if !e.Label.Valid() {
			continue
		}
		cs := &out[e.Label]
		if cs.Count == 0 || e.DurationMs < cs.Min {
			cs.Min = e.DurationMs
		}
		if cs.Count == 0 || e.DurationMs > cs.Max {
			cs.Max = e.DurationMs
		}
		cs.Count++
		sums[e.Label] += e.DurationMs
	}
	for i := range out {
		switch {
		case out[i].Count == 0:
		case out[i].Min == out[i].Max:
			// Constant durations keep their exact value.
			out[i].Mean = out[i].Min
		default:
			out[i].Mean = sums[i] / float64(out[i].Count)
		}
	}
	var sq [model.NumClasses]float64
	for _, e := range elements {
		if !e.Label.Valid() {
			continue
		}
		d := e.DurationMs - out[e.Label].Mean
		sq[e.Label] += d * d
	}
	for i := range out {
		if out[i].Count > 1 {
			out[i].Std = math.Sqrt(sq[i] / float64(out[i].Count-1))
		}
	}
	return out
}

// Distribution counts labels and key states of a corpus.
type Distribution struct {
	Total   int
	Labels  [model.NumClasses]int
	KeyDown int
	KeyUp   int
	// Inconsistent counts elements whose key state disagrees with the label.
	Inconsistent int
}

// Describe computes the label and key-state distribution.
func Describe(corpus model.Corpus) Distribution {
	d := Distribution{Total: corpus.Len()}
	for _, e := range corpus.Elements {
		if e.Label.Valid() {
			d.Labels[e.Label]++
		}
		if e.IsKeyDown {
			d.KeyDown++
		} else {
			d.KeyUp++
		}
		if e.Validate() != nil {
			d.Inconsistent++
		}
	}
	return d
}

// Share returns the fraction of elements labeled c.
func (d Distribution) Share(c model.Class) float64 {
	if d.Total == 0 || !c.Valid() {
		return 0
	}
	return float64(d.Labels[c]) / float64(d.Total)
}
