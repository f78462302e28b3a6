package stats

import (
	"context"

	"github.com/verte-zerg/morsetrain/internal/model"
	"github.com/verte-zerg/morsetrain/internal/store"
)

// Report contains precomputed data for run rendering.
type Report struct {
	Runs []model.RunSummary
	// Selected is the index of the run whose curves are loaded, or -1.
	Selected int
	Epochs   []model.EpochRecord
	Best     []model.RunSummary
}

// BuildReport loads runs and the epoch history of the most recent one.
func BuildReport(ctx context.Context, st *store.Store, cfg model.RunsConfig) (Report, error) {
	runs, err := st.ListRuns(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	report := Report{Runs: runs, Selected: -1, Best: TopRunsByLoss(runs, 3)}
	if len(runs) == 0 {
		return report, nil
	}
	return report, report.Select(ctx, st, len(runs)-1)
}

// Select loads the epoch history of run idx.
func (r *Report) Select(ctx context.Context, st *store.Store, idx int) error {
	if idx < 0 || idx >= len(r.Runs) {
		return nil
	}
	epochs, err := st.ListEpochs(ctx, r.Runs[idx].ID)
	if err != nil {
		return err
	}
	r.Selected = idx
	r.Epochs = epochs
	return nil
}

// SelectedRun returns the run whose curves are loaded.
func (r Report) SelectedRun() (model.RunSummary, bool) {
	if r.Selected < 0 || r.Selected >= len(r.Runs) {
		return model.RunSummary{}, false
	}
	return r.Runs[r.Selected], true
}
