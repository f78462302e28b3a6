package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/verte-zerg/morsetrain/internal/model"
)

// ErrEmptySplit indicates a split that received no samples.
var ErrEmptySplit = errors.New("split is empty")

const (
	DefaultTestFraction = 0.2
	DefaultValFraction  = 0.2
)

// Split holds train, validation and test indices, each sorted ascending.
type Split struct {
	Train []int
	Val   []int
	Test  []int
}

// StratifiedSplit shuffles the indices of every class and cuts off testFrac of them
// for testing, then valFrac of the remainder for validation, so every split keeps
// the class proportions of labels.
func StratifiedSplit(labels []model.Class, testFrac, valFrac float64, rnd *rand.Rand) (Split, error) {
	if testFrac <= 0 || testFrac >= 1 || valFrac <= 0 || valFrac >= 1 {
		return Split{}, fmt.Errorf("split fractions must be in (0, 1), got test=%.2f val=%.2f", testFrac, valFrac)
	}
	var byClass [model.NumClasses][]int
	for i, c := range labels {
		if !c.Valid() {
			return Split{}, fmt.Errorf("invalid label %d at %d", int(c), i)
		}
		byClass[c] = append(byClass[c], i)
	}
	var split Split
	for _, idx := range byClass {
		if len(idx) == 0 {
			continue
		}
		rnd.Shuffle(len(idx), func(i, j int) {
			idx[i], idx[j] = idx[j], idx[i]
		})
		nTest := int(math.Round(float64(len(idx)) * testFrac))
		rest := idx[nTest:]
		nVal := int(math.Round(float64(len(rest)) * valFrac))
		split.Test = append(split.Test, idx[:nTest]...)
		split.Val = append(split.Val, rest[:nVal]...)
		split.Train = append(split.Train, rest[nVal:]...)
	}
	sort.Ints(split.Train)
	sort.Ints(split.Val)
	sort.Ints(split.Test)
	switch {
	case len(split.Train) == 0:
		return split, fmt.Errorf("train: %w", ErrEmptySplit)
	case len(split.Val) == 0:
		return split, fmt.Errorf("validation: %w", ErrEmptySplit)
	case len(split.Test) == 0:
		return split, fmt.Errorf("test: %w", ErrEmptySplit)
	}
	return split, nil
}

// Elements returns the elements at idx in order.
func Elements(elements []model.TimingElement, idx []int) []model.TimingElement {
	out := make([]model.TimingElement, len(idx))
	for i, j := range idx {
		out[i] = elements[j]
	}
	return out
}
