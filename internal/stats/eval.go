package stats

import (
	"fmt"

	"github.com/verte-zerg/morsetrain/internal/model"
)

// confusionNoticeRate is the share above which a confusion pair is reported.
const confusionNoticeRate = 0.05

// Evaluation summarizes predictions against true labels.
type Evaluation struct {
	Total    int
	Correct  int
	Accuracy float64
	// Confusion[true][predicted] counts.
	Confusion [model.NumClasses][model.NumClasses]int
	// TimingError is the mean relative unit error over misclassified elements.
	TimingError float64
	// DitElementGap counts Dit/ElementGap swaps, which share one unit length.
	DitElementGap int
}

// Evaluate compares predicted labels with the truth. Both slices must have the
// same length.
func Evaluate(truth, predicted []model.Class) (Evaluation, error) {
	if len(truth) != len(predicted) {
		return Evaluation{}, fmt.Errorf("label count mismatch: %d true, %d predicted", len(truth), len(predicted))
	}
	var ev Evaluation
	var errSum float64
	var errCount int
	for i, t := range truth {
		p := predicted[i]
		if !t.Valid() || !p.Valid() {
			return Evaluation{}, fmt.Errorf("invalid label at %d: true=%d predicted=%d", i, int(t), int(p))
		}
		ev.Total++
		ev.Confusion[t][p]++
		if t == p {
			ev.Correct++
			continue
		}
		if t.Units() != p.Units() {
			errSum += abs(p.Units()-t.Units()) / t.Units()
			errCount++
		}
		if (t == model.Dit && p == model.ElementGap) || (t == model.ElementGap && p == model.Dit) {
			ev.DitElementGap++
		}
	}
	if ev.Total > 0 {
		ev.Accuracy = float64(ev.Correct) / float64(ev.Total)
	}
	if errCount > 0 {
		ev.TimingError = errSum / float64(errCount)
	}
	return ev, nil
}

// ClassAccuracy returns recall for class c and whether c occurred at all.
func (ev Evaluation) ClassAccuracy(c model.Class) (float64, bool) {
	row := ev.Confusion[c]
	total := 0
	for _, n := range row {
		total += n
	}
	if total == 0 {
		return 0, false
	}
	return float64(row[c]) / float64(total), true
}

// Confusion is a notable true/predicted pair.
type Confusion struct {
	True      model.Class
	Predicted model.Class
	Rate      float64
}

// NotableConfusions returns pairs whose rate exceeds 5% of the true class.
func (ev Evaluation) NotableConfusions() []Confusion {
	var out []Confusion
	for t := range ev.Confusion {
		total := 0
		for _, n := range ev.Confusion[t] {
			total += n
		}
		if total == 0 {
			continue
		}
		for p, n := range ev.Confusion[t] {
			if p == t {
				continue
			}
			rate := float64(n) / float64(total)
			if rate > confusionNoticeRate {
				out = append(out, Confusion{True: model.Class(t), Predicted: model.Class(p), Rate: rate})
			}
		}
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
