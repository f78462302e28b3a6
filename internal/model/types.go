// Package model defines shared data structures.
package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInconsistentElement reports an element whose key state disagrees with its label.
var ErrInconsistentElement = errors.New("element key state does not match its class")

// Class is the label of a timing element. The numeric values are the canonical
// class ids of the tabular schema.
type Class int

const (
	Dit Class = iota
	Dah
	ElementGap
	LetterGap
	WordGap
)

// NumClasses is the size of the five-class scheme.
const NumClasses = 5

var classNames = [NumClasses]string{"Dit", "Dah", "ElementGap", "LetterGap", "WordGap"}

var classUnits = [NumClasses]float64{1, 3, 1, 3, 7}

// Classes lists every class in id order.
func Classes() []Class {
	return []Class{Dit, Dah, ElementGap, LetterGap, WordGap}
}

// ParseClass converts a canonical class id.
func ParseClass(id int) (Class, error) {
	if id < 0 || id >= NumClasses {
		return 0, fmt.Errorf("unknown class id %d", id)
	}
	return Class(id), nil
}

// Valid reports whether c is one of the five classes.
func (c Class) Valid() bool {
	return c >= 0 && c < NumClasses
}

// String returns the class name.
func (c Class) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Class(%d)", int(c))
	}
	return classNames[c]
}

// Units returns the canonical length of the class in dit units.
func (c Class) Units() float64 {
	if !c.Valid() {
		return 0
	}
	return classUnits[c]
}

// KeyDown reports whether the class is a signal pulse.
func (c Class) KeyDown() bool {
	return c == Dit || c == Dah
}

// TimingElement is one generated unit of signal or silence.
type TimingElement struct {
	DurationMs float64
	IsKeyDown  bool
	Label      Class
	// Run identifies the contiguous generation run the element came from.
	Run int
}

// NewElement builds an element whose key state is derived from the class.
func NewElement(label Class, durationMs float64, run int) TimingElement {
	return TimingElement{
		DurationMs: durationMs,
		IsKeyDown:  label.KeyDown(),
		Label:      label,
		Run:        run,
	}
}

// Validate checks the element invariants.
func (e TimingElement) Validate() error {
	if !e.Label.Valid() {
		return fmt.Errorf("unknown class id %d", int(e.Label))
	}
	if e.IsKeyDown != e.Label.KeyDown() {
		return fmt.Errorf("%w: %s with is_key_down=%t", ErrInconsistentElement, e.Label, e.IsKeyDown)
	}
	if !(e.DurationMs > 0) {
		return fmt.Errorf("non-positive duration %.3f ms for %s", e.DurationMs, e.Label)
	}
	return nil
}

// Policy names the generation mode used to build a corpus.
type Policy string

const (
	PolicyIndependent Policy = "independent"
	PolicySequence    Policy = "sequence"
	PolicyText        Policy = "text"
	PolicyCombined    Policy = "combined"
)

// Sequential reports whether every run of a corpus generated under p follows
// real Morse structure, which windowed models depend on.
func (p Policy) Sequential() bool {
	return p == PolicySequence || p == PolicyText
}

// Corpus is an ordered sequence of timing elements plus generation metadata.
type Corpus struct {
	ID        string
	Policy    Policy
	Seed      int64
	MinWPM    float64
	MaxWPM    float64
	Sigma     float64
	CreatedAt time.Time
	Elements  []TimingElement
}

// Len returns the number of elements.
func (c Corpus) Len() int {
	return len(c.Elements)
}

// Labels returns the class labels in corpus order.
func (c Corpus) Labels() []Class {
	labels := make([]Class, len(c.Elements))
	for i, e := range c.Elements {
		labels[i] = e.Label
	}
	return labels
}

// Runs returns the number of distinct run ids, assuming runs are numbered from 0.
func (c Corpus) Runs() int {
	maxRun := -1
	for _, e := range c.Elements {
		if e.Run > maxRun {
			maxRun = e.Run
		}
	}
	return maxRun + 1
}

// GenerateConfig defines corpus generation settings.
type GenerateConfig struct {
	Policy         Policy
	Samples        int
	Characters     int
	Words          int
	WordListPath   string
	MinWPM         float64
	MaxWPM         float64
	Sigma          float64
	Seed           int64
	Shards         int
	ElementDwell   int
	CharacterDwell int
	WordGapProb    float64
	Weights        [NumClasses]float64
	Tolerance      float64
	// Shuffle permutes a combined corpus, dropping its run structure.
	Shuffle bool
}

// TrainConfig defines training run settings.
type TrainConfig struct {
	Model           string
	WindowLength    int
	Hidden          int
	Epochs          int
	Patience        int
	PlateauPatience int
	DecayFactor     float64
	LearningRate    float64
	BatchSize       int
	Workers         int
	TestFraction    float64
	ValFraction     float64
	Seed            int64
	CorpusID        string
	OutPath         string
}

// RunsConfig defines filters for the run browser.
type RunsConfig struct {
	Model       string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// RunSummary describes a stored training run.
type RunSummary struct {
	ID           string
	CorpusID     string
	Model        string
	WindowLength int
	StartedAt    time.Time
	EndedAt      *time.Time
	Reason       string
	Epochs       int
	BestEpoch    int
	BestValLoss  float64
	TestAccuracy float64
	ScalerMean   float64
	ScalerStd    float64
}

// EpochRecord stores the metrics of one training epoch.
type EpochRecord struct {
	RunID        string
	Epoch        int
	TrainLoss    float64
	TrainAcc     float64
	ValLoss      float64
	ValAcc       float64
	LearningRate float64
	Phase        string
}

// CorpusSummary describes a stored corpus without its elements.
type CorpusSummary struct {
	ID        string
	Policy    Policy
	Seed      int64
	MinWPM    float64
	MaxWPM    float64
	Sigma     float64
	CreatedAt time.Time
	Elements  int
}
