package stats

import (
	"testing"
	"time"

	"github.com/verte-zerg/morsetrain/internal/model"
)

func TestTopRunsByLoss(t *testing.T) {
	ended := time.Unix(0, 0)
	runs := []model.RunSummary{
		{ID: "b", BestEpoch: 4, BestValLoss: 0.3, EndedAt: &ended},
		{ID: "a", BestEpoch: 2, BestValLoss: 0.3, EndedAt: &ended},
		{ID: "c", BestEpoch: 9, BestValLoss: 0.1, EndedAt: &ended},
		{ID: "running", BestEpoch: 0},
	}
	top := TopRunsByLoss(runs, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(top))
	}
	if top[0].ID != "c" || top[1].ID != "a" {
		t.Fatalf("unexpected order: %v", top)
	}
	if TopRunsByLoss(runs, 0) != nil {
		t.Fatalf("expected nil for n=0")
	}
}
