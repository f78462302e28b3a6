package stats

import (
	"sort"

	"github.com/verte-zerg/morsetrain/internal/model"
)

// WeakClasses returns up to top classes with the lowest accuracy, weakest first.
// Classes without support are skipped.
func WeakClasses(ev Evaluation, top int) []model.Class {
	type item struct {
		class model.Class
		acc   float64
	}
	items := make([]item, 0, model.NumClasses)
	for _, c := range model.Classes() {
		acc, ok := ev.ClassAccuracy(c)
		if !ok {
			continue
		}
		items = append(items, item{class: c, acc: acc})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].acc == items[j].acc {
			return items[i].class < items[j].class
		}
		return items[i].acc < items[j].acc
	})
	if top <= 0 || top > len(items) {
		top = len(items)
	}
	out := make([]model.Class, 0, top)
	for i := 0; i < top; i++ {
		out = append(out, items[i].class)
	}
	return out
}
