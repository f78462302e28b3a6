package timing

import (
	"errors"
	"math"
	"testing"
)

func TestBaseDuration(t *testing.T) {
	if got := BaseDuration(1, 20); got != 60 {
		t.Fatalf("expected 60ms dit at 20 wpm, got %.3f", got)
	}
	if got := BaseDuration(7, 12); math.Abs(got-700) > 1e-9 {
		t.Fatalf("expected 700ms word gap at 12 wpm, got %.3f", got)
	}
	if DitDuration(40) != 30 {
		t.Fatalf("expected 30ms dit at 40 wpm")
	}
}

func TestApplyJitterZeroSigma(t *testing.T) {
	e, err := New(1, 0)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if got := e.ApplyJitter(42.5); got != 42.5 {
		t.Fatalf("expected unchanged duration, got %.3f", got)
	}
	if got := e.ApplyJitter(0.2); got != MinDurationMs {
		t.Fatalf("expected floor at %.1f, got %.3f", MinDurationMs, got)
	}
}

func TestApplyJitterFloor(t *testing.T) {
	e, err := New(7, 5.0)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	for i := 0; i < 10000; i++ {
		if got := e.ApplyJitter(10); got < MinDurationMs {
			t.Fatalf("duration %.3f below floor", got)
		}
	}
}

func TestApplyJitterMean(t *testing.T) {
	e, err := New(42, DefaultSigma)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	const n = 20000
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		v := e.ApplyJitter(100)
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	std := math.Sqrt(sumSq/n - mean*mean)
	if math.Abs(mean-100) > 0.5 {
		t.Fatalf("expected mean near 100, got %.3f", mean)
	}
	if math.Abs(std-8) > 0.5 {
		t.Fatalf("expected std near 8, got %.3f", std)
	}
}

func TestSeededEnginesAreReproducible(t *testing.T) {
	a, _ := New(99, DefaultSigma)
	b, _ := New(99, DefaultSigma)
	for i := 0; i < 100; i++ {
		if a.Duration(3, 25) != b.Duration(3, 25) {
			t.Fatalf("engines with same seed diverged at %d", i)
		}
	}
}

func TestSampleSpeedRange(t *testing.T) {
	e, _ := New(3, 0)
	for i := 0; i < 1000; i++ {
		s := e.SampleSpeed(10, 40)
		if s < 10 || s > 40 {
			t.Fatalf("speed %.2f out of range", s)
		}
	}
	if e.SampleSpeed(25, 25) != 25 {
		t.Fatalf("expected fixed speed for degenerate range")
	}
}

func TestValidation(t *testing.T) {
	if err := ValidateSpeedRange(0, 10); !errors.Is(err, ErrInvalidSpeedRange) {
		t.Fatalf("expected speed range error, got %v", err)
	}
	if err := ValidateSpeedRange(30, 20); !errors.Is(err, ErrInvalidSpeedRange) {
		t.Fatalf("expected speed range error for inverted range, got %v", err)
	}
	if err := ValidateSpeedRange(10, 40); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := New(1, -0.1); !errors.Is(err, ErrInvalidSigma) {
		t.Fatalf("expected sigma error, got %v", err)
	}
}
