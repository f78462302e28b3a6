package morse

import (
	"errors"
	"testing"
)

func TestAlphabetSize(t *testing.T) {
	if len(Symbols()) != 36 {
		t.Fatalf("expected 36 symbols, got %d", len(Symbols()))
	}
	for _, r := range Symbols() {
		if _, err := Pattern(r); err != nil {
			t.Fatalf("symbol %q missing from table: %v", r, err)
		}
	}
}

func TestPattern(t *testing.T) {
	cases := map[rune]string{'E': ".", 'O': "---", 'q': "--.-", '0': "-----"}
	for r, want := range cases {
		got, err := Pattern(r)
		if err != nil {
			t.Fatalf("pattern %q: %v", r, err)
		}
		if got != want {
			t.Fatalf("pattern %q: expected %q, got %q", r, want, got)
		}
	}
}

func TestUnknownSymbol(t *testing.T) {
	for _, r := range []rune{'?', ' ', 'é', '/'} {
		if _, err := Pattern(r); !errors.Is(err, ErrUnknownSymbol) {
			t.Fatalf("expected unknown symbol error for %q, got %v", r, err)
		}
		if Contains(r) {
			t.Fatalf("expected %q to be outside the alphabet", r)
		}
	}
}

func TestUnits(t *testing.T) {
	cases := map[rune]int{'E': 1, 'T': 3, 'O': 11, 'A': 5}
	for r, want := range cases {
		got, err := Units(r)
		if err != nil {
			t.Fatalf("units %q: %v", r, err)
		}
		if got != want {
			t.Fatalf("units %q: expected %d, got %d", r, want, got)
		}
	}
	total := 0
	for _, r := range "PARIS" {
		u, _ := Units(r)
		total += u
	}
	// Four letter gaps and one word gap complete the 50-unit reference word.
	if total+4*3+7 != 50 {
		t.Fatalf("expected PARIS to be 50 units, got %d", total+4*3+7)
	}
}
