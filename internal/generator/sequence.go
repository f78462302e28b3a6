package generator

import (
	"fmt"
	"strings"

	"github.com/verte-zerg/morsetrain/internal/model"
	"github.com/verte-zerg/morsetrain/internal/morse"
	"github.com/verte-zerg/morsetrain/internal/timing"
)

// SequencerOptions configures character-sequence generation.
type SequencerOptions struct {
	MinWPM      float64
	MaxWPM      float64
	Dwell       int
	WordGapProb float64
}

// DefaultSequencerOptions returns the reference settings.
func DefaultSequencerOptions() SequencerOptions {
	return SequencerOptions{
		MinWPM:      timing.DefaultMinWPM,
		MaxWPM:      timing.DefaultMaxWPM,
		Dwell:       DefaultCharacterDwell,
		WordGapProb: DefaultWordGapProb,
	}
}

// Sequencer keys whole characters from the Morse alphabet, producing temporally
// coherent streams suitable for sequence windows.
type Sequencer struct {
	engine      *timing.Engine
	op          *operator
	wordGapProb float64
	symbols     []rune
	patterns    []string
}

// NewSequencer returns a Sequencer drawing from engine.
func NewSequencer(engine *timing.Engine, opts SequencerOptions) (*Sequencer, error) {
	op, err := newOperator(engine, opts.MinWPM, opts.MaxWPM, opts.Dwell)
	if err != nil {
		return nil, err
	}
	if opts.WordGapProb < 0 || opts.WordGapProb > 1 {
		return nil, fmt.Errorf("word gap probability must be between 0 and 1, got %.3f", opts.WordGapProb)
	}
	symbols := morse.Symbols()
	patterns := make([]string, len(symbols))
	for i, r := range symbols {
		p, err := morse.Pattern(r)
		if err != nil {
			return nil, err
		}
		patterns[i] = p
	}
	return &Sequencer{
		engine:      engine,
		op:          op,
		wordGapProb: opts.WordGapProb,
		symbols:     symbols,
		patterns:    patterns,
	}, nil
}

// Generate keys nChars uniformly chosen symbols as one run.
func (s *Sequencer) Generate(nChars int) model.Corpus {
	corpus := s.newCorpus(model.PolicySequence)
	rnd := s.engine.Rand()
	for i := 0; i < nChars; i++ {
		profile := s.op.next()
		pattern := s.patterns[rnd.Intn(len(s.patterns))]
		corpus.Elements = s.appendPulses(corpus.Elements, pattern, profile)
		corpus.Elements = s.appendGap(corpus.Elements, s.terminal(), profile)
	}
	return corpus
}

// EmitCharacter keys a single character at the given profile and ends it with
// terminal, which must be LetterGap or WordGap.
func (s *Sequencer) EmitCharacter(r rune, profile Profile, terminal model.Class) ([]model.TimingElement, error) {
	if terminal != model.LetterGap && terminal != model.WordGap {
		return nil, fmt.Errorf("terminal gap must be LetterGap or WordGap, got %s", terminal)
	}
	pattern, err := morse.Pattern(r)
	if err != nil {
		return nil, err
	}
	out := s.appendPulses(nil, pattern, profile)
	return s.appendGap(out, terminal, profile), nil
}

// KeyText keys text word by word. Letters inside a word end with a letter gap and
// the last letter of every word ends with a word gap. Any symbol outside the
// alphabet aborts with morse.ErrUnknownSymbol.
func (s *Sequencer) KeyText(text string) (model.Corpus, error) {
	corpus := s.newCorpus(model.PolicyText)
	for _, word := range strings.Fields(text) {
		var err error
		corpus.Elements, err = s.appendWord(corpus.Elements, word)
		if err != nil {
			return model.Corpus{}, err
		}
	}
	return corpus, nil
}

// GenerateFromWords keys nWords words drawn uniformly from words.
func (s *Sequencer) GenerateFromWords(words []string, nWords int) (model.Corpus, error) {
	if len(words) == 0 {
		return model.Corpus{}, fmt.Errorf("word list is empty")
	}
	corpus := s.newCorpus(model.PolicyText)
	rnd := s.engine.Rand()
	for i := 0; i < nWords; i++ {
		var err error
		corpus.Elements, err = s.appendWord(corpus.Elements, words[rnd.Intn(len(words))])
		if err != nil {
			return model.Corpus{}, err
		}
	}
	return corpus, nil
}

func (s *Sequencer) appendWord(out []model.TimingElement, word string) ([]model.TimingElement, error) {
	runes := []rune(word)
	for i, r := range runes {
		pattern, err := morse.Pattern(r)
		if err != nil {
			return nil, fmt.Errorf("failed to key %q: %w", word, err)
		}
		profile := s.op.next()
		terminal := model.LetterGap
		if i == len(runes)-1 {
			terminal = model.WordGap
		}
		out = s.appendPulses(out, pattern, profile)
		out = s.appendGap(out, terminal, profile)
	}
	return out, nil
}

func (s *Sequencer) appendPulses(out []model.TimingElement, pattern string, profile Profile) []model.TimingElement {
	for j, sym := range pattern {
		label := model.Dit
		if sym == '-' {
			label = model.Dah
		}
		out = append(out, model.NewElement(label, s.engine.Duration(label.Units(), profile.SpeedWPM), 0))
		if j < len(pattern)-1 {
			out = s.appendGap(out, model.ElementGap, profile)
		}
	}
	return out
}

func (s *Sequencer) appendGap(out []model.TimingElement, label model.Class, profile Profile) []model.TimingElement {
	return append(out, model.NewElement(label, s.engine.Duration(label.Units(), profile.SpeedWPM), 0))
}

func (s *Sequencer) terminal() model.Class {
	if s.engine.Rand().Float64() < s.wordGapProb {
		return model.WordGap
	}
	return model.LetterGap
}

func (s *Sequencer) newCorpus(policy model.Policy) model.Corpus {
	return model.Corpus{
		Policy: policy,
		MinWPM: s.op.minWPM,
		MaxWPM: s.op.maxWPM,
		Sigma:  s.engine.Sigma(),
	}
}
