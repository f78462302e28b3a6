package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/morsetrain/internal/model"
)

func fixedCorpus(dit float64, perClass int) model.Corpus {
	var c model.Corpus
	for i := 0; i < perClass; i++ {
		for _, cls := range model.Classes() {
			c.Elements = append(c.Elements, model.NewElement(cls, dit*cls.Units(), 0))
		}
	}
	return c
}

func TestValidateExactRatios(t *testing.T) {
	v := Validate(fixedCorpus(60, 10), DefaultTolerance)
	if !v.Passed() {
		t.Fatalf("expected exact corpus to pass: %+v", v.Ratios)
	}
	want := map[model.Class]float64{model.Dah: 3, model.ElementGap: 1, model.LetterGap: 3, model.WordGap: 7}
	for cls, expected := range want {
		r, ok := v.Ratio(cls)
		if !ok {
			t.Fatalf("missing ratio for %s", cls)
		}
		if r.Measured != expected {
			t.Fatalf("%s: expected ratio %.0f, got %v", cls, expected, r.Measured)
		}
	}
	if v.Classes[model.Dit].Std != 0 {
		t.Fatalf("expected zero std for constant durations")
	}
}

func TestValidateDetectsSkew(t *testing.T) {
	c := fixedCorpus(60, 10)
	for i := range c.Elements {
		if c.Elements[i].Label == model.WordGap {
			c.Elements[i].DurationMs = 60 * 5
		}
	}
	v := Validate(c, DefaultTolerance)
	if v.Passed() {
		t.Fatalf("expected skewed word gaps to fail")
	}
	r, _ := v.Ratio(model.WordGap)
	if r.Pass || r.Measured != 5 {
		t.Fatalf("unexpected word gap ratio: %+v", r)
	}
	dah, _ := v.Ratio(model.Dah)
	if !dah.Pass {
		t.Fatalf("expected dah ratio to still pass")
	}
}

func TestValidateMissingClasses(t *testing.T) {
	c := model.Corpus{Elements: []model.TimingElement{
		model.NewElement(model.Dah, 180, 0),
		model.NewElement(model.LetterGap, 180, 0),
	}}
	v := Validate(c, 0)
	if v.Tolerance != DefaultTolerance {
		t.Fatalf("expected default tolerance")
	}
	if v.Passed() {
		t.Fatalf("expected corpus without dits to fail")
	}
	for _, r := range v.Ratios {
		if !r.Missing {
			t.Fatalf("expected %s to be missing without a dit baseline", r.Class)
		}
	}
	if Validate(model.Corpus{}, 0).Passed() {
		t.Fatalf("expected empty corpus to fail")
	}
}

func TestValidateDoesNotMutate(t *testing.T) {
	c := fixedCorpus(48, 3)
	before := append([]model.TimingElement(nil), c.Elements...)
	_ = Validate(c, DefaultTolerance)
	for i := range before {
		if before[i] != c.Elements[i] {
			t.Fatalf("element %d mutated", i)
		}
	}
}

func TestClassDurationsSampleStd(t *testing.T) {
	elems := []model.TimingElement{
		model.NewElement(model.Dit, 50, 0),
		model.NewElement(model.Dit, 70, 0),
	}
	cs := ClassDurations(elems)[model.Dit]
	if cs.Mean != 60 || cs.Min != 50 || cs.Max != 70 {
		t.Fatalf("unexpected stats: %+v", cs)
	}
	// Sample std of {50, 70} is sqrt(200).
	if cs.Std < 14.14 || cs.Std > 14.15 {
		t.Fatalf("expected sample std ~14.142, got %.4f", cs.Std)
	}
}

func TestDescribe(t *testing.T) {
	c := fixedCorpus(60, 2)
	c.Elements = append(c.Elements, model.TimingElement{DurationMs: 60, IsKeyDown: false, Label: model.Dit})
	d := Describe(c)
	if d.Total != 11 || d.Labels[model.Dit] != 3 {
		t.Fatalf("unexpected distribution: %+v", d)
	}
	if d.KeyDown != 4 || d.KeyUp != 7 {
		t.Fatalf("unexpected key states: down=%d up=%d", d.KeyDown, d.KeyUp)
	}
	if d.Inconsistent != 1 {
		t.Fatalf("expected one inconsistent element, got %d", d.Inconsistent)
	}
}

func TestRenderValidation(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderValidation(&buf, Validate(fixedCorpus(60, 2), DefaultTolerance)); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Timing Ratio Validation", "WordGap", "7.00", "Overall: PASS"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
