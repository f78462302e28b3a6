package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/morsetrain/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "morsetrain.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestCorpusRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	corpus := model.Corpus{
		Policy: model.PolicySequence,
		Seed:   42,
		MinWPM: 10,
		MaxWPM: 40,
		Sigma:  0.08,
		Elements: []model.TimingElement{
			model.NewElement(model.Dit, 61.5, 0),
			model.NewElement(model.ElementGap, 58.2, 0),
			model.NewElement(model.Dah, 181.0, 0),
			model.NewElement(model.WordGap, 410.7, 1),
		},
	}
	id, err := st.SaveCorpus(ctx, corpus)
	if err != nil {
		t.Fatalf("save corpus: %v", err)
	}
	if id == "" {
		t.Fatalf("expected generated corpus id")
	}
	loaded, err := st.LoadCorpus(ctx, id)
	if err != nil {
		t.Fatalf("load corpus: %v", err)
	}
	if loaded.Policy != model.PolicySequence || loaded.Seed != 42 || loaded.Sigma != 0.08 {
		t.Fatalf("unexpected metadata: %+v", loaded)
	}
	if len(loaded.Elements) != len(corpus.Elements) {
		t.Fatalf("expected %d elements, got %d", len(corpus.Elements), len(loaded.Elements))
	}
	for i, e := range loaded.Elements {
		if e != corpus.Elements[i] {
			t.Fatalf("element %d: expected %+v, got %+v", i, corpus.Elements[i], e)
		}
	}
	latest, err := st.LatestCorpus(ctx)
	if err != nil {
		t.Fatalf("latest corpus: %v", err)
	}
	if latest != id {
		t.Fatalf("expected latest corpus %s, got %s", id, latest)
	}
	summaries, err := st.ListCorpora(ctx)
	if err != nil {
		t.Fatalf("list corpora: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Elements != 4 {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
}

func TestMissingCorpus(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if _, err := st.LoadCorpus(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := st.LatestCorpus(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for empty store, got %v", err)
	}
}

func TestRunHistory(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0)
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := st.CreateRun(ctx, model.RunSummary{
			CorpusID:     "corpus",
			Model:        "dense",
			WindowLength: 1,
			StartedAt:    base.Add(time.Duration(i) * time.Minute),
			ScalerMean:   120,
			ScalerStd:    80,
		})
		if err != nil {
			t.Fatalf("create run: %v", err)
		}
		ids = append(ids, id)
	}
	for epoch := 1; epoch <= 3; epoch++ {
		err := st.RecordEpoch(ctx, model.EpochRecord{
			RunID:        ids[2],
			Epoch:        epoch,
			TrainLoss:    1.0 / float64(epoch),
			ValLoss:      1.2 / float64(epoch),
			LearningRate: 0.001,
			Phase:        "improved",
		})
		if err != nil {
			t.Fatalf("record epoch: %v", err)
		}
	}
	snapshot := []float64{0.5, -1.25, 3}
	err := st.FinishRun(ctx, model.RunSummary{
		ID:           ids[2],
		Reason:       "max_epochs",
		Epochs:       3,
		BestEpoch:    3,
		BestValLoss:  0.4,
		TestAccuracy: 0.9,
		ScalerMean:   120,
		ScalerStd:    80,
	}, snapshot)
	if err != nil {
		t.Fatalf("finish run: %v", err)
	}

	runs, err := st.ListRuns(ctx, model.RunsConfig{Model: "dense", Last: 2})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != ids[1] || runs[1].ID != ids[2] {
		t.Fatalf("unexpected run order: %+v", runs)
	}
	if runs[1].EndedAt == nil || runs[1].BestEpoch != 3 || runs[1].Reason != "max_epochs" {
		t.Fatalf("unexpected finished run: %+v", runs[1])
	}
	if runs[0].EndedAt != nil {
		t.Fatalf("expected unfinished run to have no end time")
	}

	epochs, err := st.ListEpochs(ctx, ids[2])
	if err != nil {
		t.Fatalf("list epochs: %v", err)
	}
	if len(epochs) != 3 || epochs[0].Epoch != 1 || epochs[2].Epoch != 3 {
		t.Fatalf("unexpected epochs: %+v", epochs)
	}

	loaded, err := st.LoadSnapshot(ctx, ids[2])
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(loaded) != len(snapshot) || loaded[1] != -1.25 {
		t.Fatalf("unexpected snapshot: %v", loaded)
	}
	if _, err := st.LoadSnapshot(ctx, ids[0]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected missing snapshot for unfinished run, got %v", err)
	}
	if err := st.FinishRun(ctx, model.RunSummary{ID: "missing"}, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown run, got %v", err)
	}
}

func TestFinishRunStoresNoCorruptSnapshot(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	for _, snapshot := range [][]float64{nil, {1, math.NaN()}, {math.Inf(-1)}} {
		id, err := st.CreateRun(ctx, model.RunSummary{CorpusID: "corpus", Model: "dense", StartedAt: time.Unix(1700000000, 0)})
		if err != nil {
			t.Fatalf("create run: %v", err)
		}
		if err := st.FinishRun(ctx, model.RunSummary{ID: id, Reason: "failed"}, snapshot); err != nil {
			t.Fatalf("finish run with snapshot %v: %v", snapshot, err)
		}
		if _, err := st.LoadSnapshot(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected no stored snapshot for %v, got %v", snapshot, err)
		}
	}
	runs, err := st.ListRuns(ctx, model.RunsConfig{})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	for _, r := range runs {
		if r.EndedAt == nil || r.Reason != "failed" {
			t.Fatalf("expected finished failed run, got %+v", r)
		}
	}
}
