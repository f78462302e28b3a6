package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlotSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeriesWithOptions(&buf, "Test Plot", []Series{
		{Name: "A", Values: []float64{1, 2, 3, 2, 1}},
		{Name: "B", Values: []float64{1, 1, 2, 3, 4}},
	}, PlotOptions{Width: 5, Height: 4})
	if err != nil {
		t.Fatalf("PlotSeriesWithOptions failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Test Plot") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "Scaled per series") {
		t.Fatalf("expected scale note in output")
	}
	if !strings.Contains(out, "Legend:") {
		t.Fatalf("expected legend in output")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	expectedMin := 1 + 1 + 2 + 4 + 1
	if len(lines) < expectedMin {
		t.Fatalf("expected at least %d lines of output, got %d", expectedMin, len(lines))
	}
}

func TestPlotSeriesMarker(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeriesWithOptions(&buf, "Loss", []Series{
		{Name: "Validation", Values: []float64{5, 4, 3, 3.5, 4}},
	}, PlotOptions{Width: 10, Height: 4, MarkIndex: 3})
	if err != nil {
		t.Fatalf("PlotSeriesWithOptions failed: %v", err)
	}
	if !strings.Contains(buf.String(), "marks epoch 3") {
		t.Fatalf("expected marker note in output:\n%s", buf.String())
	}
}

func TestMarkColumn(t *testing.T) {
	if got := markColumn(0, 5, 10); got != -1 {
		t.Fatalf("expected disabled marker, got %d", got)
	}
	if got := markColumn(1, 5, 10); got != 0 {
		t.Fatalf("expected first column, got %d", got)
	}
	if got := markColumn(5, 5, 10); got != 9 {
		t.Fatalf("expected last column, got %d", got)
	}
	if got := markColumn(6, 5, 10); got != -1 {
		t.Fatalf("expected out-of-range marker to be disabled, got %d", got)
	}
}
