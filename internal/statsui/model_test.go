package statsui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/morsetrain/internal/model"
	"github.com/verte-zerg/morsetrain/internal/store"
)

func TestCurveWindowSteps(t *testing.T) {
	cases := []struct {
		in, next, prev int
	}{
		{1, 5, 1},
		{5, 10, 1},
		{7, 10, 5},
		{10, 15, 5},
	}
	for _, tc := range cases {
		if got := nextCurveWindow(tc.in); got != tc.next {
			t.Fatalf("next(%d): expected %d, got %d", tc.in, tc.next, got)
		}
		if got := prevCurveWindow(tc.in); got != tc.prev {
			t.Fatalf("prev(%d): expected %d, got %d", tc.in, tc.prev, got)
		}
	}
}

func TestFitLines(t *testing.T) {
	out := fitLines("ab\ncdef\nghi", 4, 2)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "ab  " || lines[1] != "cdef" {
		t.Fatalf("unexpected lines: %q", lines)
	}
	if got := truncateLine("abcdefgh", 6); got != "abc..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
}

func TestParseFilter(t *testing.T) {
	m := &Model{cfg: model.RunsConfig{CurveWindow: 1}}
	m.initInputs()
	m.filterInputs[0].SetValue("windowed")
	m.filterInputs[1].SetValue("2026-01-02")
	m.filterInputs[2].SetValue("4")
	m.filterInputs[3].SetValue("3")
	cfg, err := parseFilter(m.filterInputs)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cfg.Model != "windowed" || cfg.Last != 4 || cfg.CurveWindow != 3 || cfg.Since == nil {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	m.filterInputs[3].SetValue("0")
	if _, err := parseFilter(m.filterInputs); err == nil {
		t.Fatalf("expected invalid window error")
	}
	m.filterInputs[3].SetValue("")
	m.filterInputs[1].SetValue("yesterday")
	if _, err := parseFilter(m.filterInputs); err == nil {
		t.Fatalf("expected invalid date error")
	}
}

func TestBrowserSelectsRun(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "morsetrain.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	base := time.Unix(1700000000, 0)
	var ids []string
	for i := 0; i < 2; i++ {
		id, err := st.CreateRun(ctx, model.RunSummary{
			CorpusID:     "corpus",
			Model:        "dense",
			WindowLength: 1,
			StartedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("create run: %v", err)
		}
		ids = append(ids, id)
	}
	for epoch := 1; epoch <= 4; epoch++ {
		rec := model.EpochRecord{RunID: ids[0], Epoch: epoch, TrainLoss: 1 / float64(epoch), ValLoss: 1.1 / float64(epoch), LearningRate: 0.001, Phase: "improved"}
		if err := st.RecordEpoch(ctx, rec); err != nil {
			t.Fatalf("record epoch: %v", err)
		}
	}

	m := NewModel(st, model.RunsConfig{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	if run, ok := m.report.SelectedRun(); !ok || run.ID != ids[1] {
		t.Fatalf("expected latest run selected, got %+v", run)
	}
	if !strings.Contains(m.View(), "Overview") {
		t.Fatalf("expected tabs in view")
	}

	m.moveTab(1)
	m.runTable.SetCursor(0)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.activeTab != tabCurves {
		t.Fatalf("expected curves tab after enter, got %d", m.activeTab)
	}
	if run, ok := m.report.SelectedRun(); !ok || run.ID != ids[0] {
		t.Fatalf("expected first run selected, got %+v", run)
	}
	if len(m.report.Epochs) != 4 {
		t.Fatalf("expected 4 epochs, got %d", len(m.report.Epochs))
	}
}
