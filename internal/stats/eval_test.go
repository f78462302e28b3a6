package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/morsetrain/internal/model"
)

func TestEvaluate(t *testing.T) {
	truth := []model.Class{model.Dit, model.Dit, model.Dah, model.ElementGap, model.WordGap, model.LetterGap}
	pred := []model.Class{model.Dit, model.ElementGap, model.Dah, model.ElementGap, model.LetterGap, model.LetterGap}
	ev, err := Evaluate(truth, pred)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if ev.Total != 6 || ev.Correct != 4 {
		t.Fatalf("unexpected counts: %+v", ev)
	}
	if ev.DitElementGap != 1 {
		t.Fatalf("expected one dit/element gap swap, got %d", ev.DitElementGap)
	}
	// Only WordGap->LetterGap changes unit length: |3-7|/7.
	if ev.TimingError < 0.571 || ev.TimingError > 0.572 {
		t.Fatalf("unexpected timing error %.4f", ev.TimingError)
	}
	acc, ok := ev.ClassAccuracy(model.Dit)
	if !ok || acc != 0.5 {
		t.Fatalf("expected dit accuracy 0.5, got %.2f", acc)
	}
	if _, ok := ev.ClassAccuracy(model.Class(3)); !ok {
		t.Fatalf("expected letter gap support")
	}
	confusions := ev.NotableConfusions()
	if len(confusions) != 2 {
		t.Fatalf("expected 2 notable confusions, got %+v", confusions)
	}
}

func TestEvaluateMismatch(t *testing.T) {
	if _, err := Evaluate([]model.Class{model.Dit}, nil); err == nil {
		t.Fatalf("expected length mismatch error")
	}
	if _, err := Evaluate([]model.Class{model.Dit}, []model.Class{9}); err == nil {
		t.Fatalf("expected invalid label error")
	}
}

func TestWeakClasses(t *testing.T) {
	truth := []model.Class{model.Dit, model.Dit, model.Dah, model.Dah, model.WordGap}
	pred := []model.Class{model.Dit, model.ElementGap, model.Dit, model.Dit, model.WordGap}
	ev, err := Evaluate(truth, pred)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	weak := WeakClasses(ev, 2)
	if len(weak) != 2 || weak[0] != model.Dah || weak[1] != model.Dit {
		t.Fatalf("unexpected weak classes: %v", weak)
	}
	var buf bytes.Buffer
	if err := RenderEvaluation(&buf, "Test", ev); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "Dah confused as Dit") {
		t.Fatalf("expected confusion line:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Weakest classes: Dah, Dit") {
		t.Fatalf("expected weak classes line:\n%s", buf.String())
	}
}
