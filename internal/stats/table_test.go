package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Class", "Mean", "Count"}
	rows := [][]string{
		{"Dit", "60.0", "12"},
		{"WordGap", "420.5", "3"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Class    Mean Count" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Dit      60.0    12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "WordGap 420.5     3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}
