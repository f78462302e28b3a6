package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/morsetrain/internal/model"
	"github.com/verte-zerg/morsetrain/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "morsetrain.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		id, err := st.CreateRun(ctx, model.RunSummary{CorpusID: "c", Model: "dense", StartedAt: start, ScalerStd: 1})
		if err != nil {
			t.Fatalf("create run: %v", err)
		}
		for epoch := 1; epoch <= 4; epoch++ {
			if err := st.RecordEpoch(ctx, model.EpochRecord{
				RunID:     id,
				Epoch:     epoch,
				TrainLoss: 2 / float64(epoch),
				ValLoss:   2.2 / float64(epoch),
				TrainAcc:  0.2 * float64(epoch),
				ValAcc:    0.19 * float64(epoch),
				Phase:     "improved",
			}); err != nil {
				t.Fatalf("record epoch: %v", err)
			}
		}
		if err := st.FinishRun(ctx, model.RunSummary{ID: id, Reason: "max_epochs", Epochs: 4, BestEpoch: 4, BestValLoss: 0.55 + float64(i), ScalerStd: 1}, []float64{1}); err != nil {
			t.Fatalf("finish run: %v", err)
		}
		ids = append(ids, id)
	}

	report, err := BuildReport(ctx, st, model.RunsConfig{Model: "dense", Last: 2})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(report.Runs))
	}
	if report.Runs[0].ID != ids[1] || report.Runs[1].ID != ids[2] {
		t.Fatalf("unexpected run ids: %+v", report.Runs)
	}
	run, ok := report.SelectedRun()
	if !ok || run.ID != ids[2] {
		t.Fatalf("expected latest run selected")
	}
	if len(report.Epochs) != 4 {
		t.Fatalf("expected 4 epochs, got %d", len(report.Epochs))
	}
	if len(report.Best) != 2 || report.Best[0].ID != ids[1] {
		t.Fatalf("unexpected best runs: %+v", report.Best)
	}

	var buf bytes.Buffer
	if err := RenderCurvesWithSize(&buf, report.Epochs, 1, PlotOptions{Width: 20, Height: 4}); err != nil {
		t.Fatalf("render curves: %v", err)
	}
	if !strings.Contains(buf.String(), "marks epoch 4") {
		t.Fatalf("expected best epoch marker:\n%s", buf.String())
	}
	buf.Reset()
	if err := RenderRunSummary(&buf, report.Runs); err != nil {
		t.Fatalf("render runs: %v", err)
	}
	if !strings.Contains(buf.String(), "max_epochs") {
		t.Fatalf("expected stop reason in summary:\n%s", buf.String())
	}
}
