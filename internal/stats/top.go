package stats

import (
	"sort"

	"github.com/verte-zerg/morsetrain/internal/model"
)

// TopRunsByLoss returns up to n finished runs with the lowest best validation loss.
func TopRunsByLoss(runs []model.RunSummary, n int) []model.RunSummary {
	if n <= 0 || len(runs) == 0 {
		return nil
	}
	items := make([]model.RunSummary, 0, len(runs))
	for _, r := range runs {
		if r.EndedAt == nil || r.BestEpoch == 0 {
			continue
		}
		items = append(items, r)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].BestValLoss == items[j].BestValLoss {
			return items[i].ID < items[j].ID
		}
		return items[i].BestValLoss < items[j].BestValLoss
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}
