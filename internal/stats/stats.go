package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/morsetrain/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderDistribution prints label and key-state counts.
func RenderDistribution(w io.Writer, title string, d Distribution) error {
	if _, err := fmt.Fprintf(w, "%s\nTotal elements: %d\n", title, d.Total); err != nil {
		return err
	}
	if d.Total == 0 {
		_, err := fmt.Fprintln(w, "")
		return err
	}
	headers := []string{"Id", "Class", "Count", "Share"}
	rows := make([][]string, 0, model.NumClasses+2)
	for _, c := range model.Classes() {
		rows = append(rows, []string{
			fmt.Sprintf("%d", int(c)),
			c.String(),
			fmt.Sprintf("%d", d.Labels[c]),
			fmt.Sprintf("%.1f%%", d.Share(c)*100),
		})
	}
	rows = append(rows,
		[]string{"", "Key down", fmt.Sprintf("%d", d.KeyDown), fmt.Sprintf("%.1f%%", pct(d.KeyDown, d.Total))},
		[]string{"", "Key up", fmt.Sprintf("%d", d.KeyUp), fmt.Sprintf("%.1f%%", pct(d.KeyUp, d.Total))},
	)
	if err := writeLines(w, formatTable(headers, rows, map[int]bool{2: true, 3: true})); err != nil {
		return err
	}
	if d.Inconsistent > 0 {
		if _, err := fmt.Fprintf(w, "WARNING: %d inconsistent elements\n", d.Inconsistent); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderValidation prints per-class duration statistics and ratio verdicts.
func RenderValidation(w io.Writer, v Validation) error {
	if _, err := fmt.Fprintln(w, "Timing Ratio Validation"); err != nil {
		return err
	}
	headers := []string{"Class", "Count", "Mean (ms)", "Std (ms)", "Min", "Max", "Ratio", "Expected", "Result"}
	rows := make([][]string, 0, model.NumClasses)
	for _, cs := range v.Classes {
		row := []string{
			cs.Class.String(),
			fmt.Sprintf("%d", cs.Count),
			fmt.Sprintf("%.1f", cs.Mean),
			fmt.Sprintf("%.1f", cs.Std),
			fmt.Sprintf("%.1f", cs.Min),
			fmt.Sprintf("%.1f", cs.Max),
		}
		if cs.Class == model.Dit {
			row = append(row, "1.00", "1", "base")
		} else if r, ok := v.Ratio(cs.Class); ok {
			row = append(row, ratioCells(r)...)
		}
		rows = append(rows, row)
	}
	right := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true}
	if err := writeLines(w, formatTable(headers, rows, right)); err != nil {
		return err
	}
	verdict := "FAIL"
	if v.Passed() {
		verdict = "PASS"
	}
	if _, err := fmt.Fprintf(w, "Tolerance: %.0f%%  Overall: %s\n\n", v.Tolerance*100, verdict); err != nil {
		return err
	}
	return nil
}

func ratioCells(r Ratio) []string {
	if r.Missing {
		return []string{"-", fmt.Sprintf("%.0f", r.Expected), "MISSING"}
	}
	result := "FAIL"
	if r.Pass {
		result = "PASS"
	}
	return []string{fmt.Sprintf("%.2f", r.Measured), fmt.Sprintf("%.0f", r.Expected), result}
}

// RenderEvaluation prints accuracy, per-class accuracy and notable confusions.
func RenderEvaluation(w io.Writer, title string, ev Evaluation) error {
	if _, err := fmt.Fprintf(w, "%s\nAccuracy: %.2f%% (%d/%d)\n", title, ev.Accuracy*100, ev.Correct, ev.Total); err != nil {
		return err
	}
	headers := []string{"Class", "Accuracy", "Support"}
	rows := make([][]string, 0, model.NumClasses)
	for _, c := range model.Classes() {
		acc, ok := ev.ClassAccuracy(c)
		if !ok {
			continue
		}
		support := 0
		for _, n := range ev.Confusion[c] {
			support += n
		}
		rows = append(rows, []string{c.String(), fmt.Sprintf("%.2f%%", acc*100), fmt.Sprintf("%d", support)})
	}
	if err := writeLines(w, formatTable(headers, rows, map[int]bool{1: true, 2: true})); err != nil {
		return err
	}
	confusions := ev.NotableConfusions()
	if len(confusions) == 0 {
		if _, err := fmt.Fprintln(w, "No significant confusion (all < 5%)."); err != nil {
			return err
		}
	}
	for _, c := range confusions {
		if _, err := fmt.Fprintf(w, "%s confused as %s: %.1f%%\n", c.True, c.Predicted, c.Rate*100); err != nil {
			return err
		}
	}
	if ev.Correct < ev.Total {
		weak := WeakClasses(ev, 2)
		names := make([]string, len(weak))
		for i, c := range weak {
			names[i] = c.String()
		}
		if _, err := fmt.Fprintf(w, "Weakest classes: %s\n", strings.Join(names, ", ")); err != nil {
			return err
		}
	}
	if ev.TimingError > 0 {
		if _, err := fmt.Fprintf(w, "Mean timing error on misclassifications: %.1f%%\n", ev.TimingError*100); err != nil {
			return err
		}
	}
	if ev.DitElementGap > 0 {
		if _, err := fmt.Fprintf(w, "Dit/ElementGap swaps: %d (%.2f%%)\n", ev.DitElementGap, pct(ev.DitElementGap, ev.Total)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderRunSummary prints a table of training runs.
func RenderRunSummary(w io.Writer, runs []model.RunSummary) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	headers := []string{"Run", "Model", "Started", "Epochs", "Best", "Val Loss", "Test Acc", "Stop"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.ID),
			r.Model,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", r.Epochs),
			fmt.Sprintf("%d", r.BestEpoch),
			fmt.Sprintf("%.4f", r.BestValLoss),
			fmt.Sprintf("%.2f%%", r.TestAccuracy*100),
			r.Reason,
		})
	}
	if err := writeLines(w, formatTable(headers, rows, map[int]bool{3: true, 4: true, 5: true, 6: true})); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderCurves prints loss and accuracy curves for one run.
func RenderCurves(w io.Writer, epochs []model.EpochRecord, window int) error {
	return RenderCurvesWithSize(w, epochs, window, PlotOptions{})
}

// RenderCurvesWithSize prints loss and accuracy curves with explicit plot options.
func RenderCurvesWithSize(w io.Writer, epochs []model.EpochRecord, window int, opts PlotOptions) error {
	if len(epochs) == 0 {
		return nil
	}
	trainLoss := make([]float64, len(epochs))
	valLoss := make([]float64, len(epochs))
	trainAcc := make([]float64, len(epochs))
	valAcc := make([]float64, len(epochs))
	best := 0
	for i, e := range epochs {
		trainLoss[i] = e.TrainLoss
		valLoss[i] = e.ValLoss
		trainAcc[i] = e.TrainAcc * 100
		valAcc[i] = e.ValAcc * 100
		if e.ValLoss < epochs[best].ValLoss {
			best = i
		}
	}
	if opts.MarkIndex == 0 {
		opts.MarkIndex = best + 1
	}
	if err := PlotSeriesWithOptions(w, "Loss", []Series{
		{Name: "Train", Values: MovingAverage(trainLoss, window)},
		{Name: "Validation", Values: MovingAverage(valLoss, window)},
	}, opts); err != nil {
		return err
	}
	return PlotSeriesWithOptions(w, "Accuracy (%)", []Series{
		{Name: "Train", Values: MovingAverage(trainAcc, window)},
		{Name: "Validation", Values: MovingAverage(valAcc, window)},
	}, opts)
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
