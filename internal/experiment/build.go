// Package experiment wires generation, dataset shaping, training, evaluation and
// persistence into the flows exposed by the CLI.
package experiment

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/verte-zerg/morsetrain/internal/dataset"
	"github.com/verte-zerg/morsetrain/internal/generator"
	"github.com/verte-zerg/morsetrain/internal/model"
	"github.com/verte-zerg/morsetrain/internal/timing"
)

// DefaultGenerateConfig returns the reference generation settings.
func DefaultGenerateConfig() model.GenerateConfig {
	return model.GenerateConfig{
		Policy:         model.PolicySequence,
		Samples:        10000,
		Characters:     5000,
		Words:          1000,
		MinWPM:         timing.DefaultMinWPM,
		MaxWPM:         timing.DefaultMaxWPM,
		Sigma:          timing.DefaultSigma,
		Seed:           42,
		Shards:         1,
		ElementDwell:   generator.DefaultElementDwell,
		CharacterDwell: generator.DefaultCharacterDwell,
		WordGapProb:    generator.DefaultWordGapProb,
		Weights:        generator.DefaultWeights(),
	}
}

// BuildCorpus generates a corpus for cfg. Work is split into cfg.Shards
// independent shards, each with its own engine seeded from cfg.Seed, and the
// shards are concatenated in order as separate runs. words is only used by the
// text policy.
func BuildCorpus(ctx context.Context, cfg model.GenerateConfig, words []string) (model.Corpus, error) {
	shards := cfg.Shards
	if shards <= 0 {
		shards = 1
	}
	if cfg.Policy == model.PolicyText && len(words) == 0 {
		return model.Corpus{}, fmt.Errorf("text policy requires a word list")
	}
	parts, err := generator.GenerateShards(ctx, shards, func(shard int) (model.Corpus, error) {
		engine, err := timing.New(generator.ShardSeed(cfg.Seed, shard), cfg.Sigma)
		if err != nil {
			return model.Corpus{}, err
		}
		return buildShard(engine, cfg, shard, shards, words)
	})
	if err != nil {
		return model.Corpus{}, err
	}
	corpus := dataset.Combine(parts...)
	corpus.Policy = cfg.Policy
	if cfg.Policy == model.PolicyCombined && cfg.Shuffle {
		corpus = dataset.Shuffle(corpus, rand.New(rand.NewSource(cfg.Seed)))
	}
	corpus.Seed = cfg.Seed
	corpus.Sigma = cfg.Sigma
	corpus.MinWPM, corpus.MaxWPM = cfg.MinWPM, cfg.MaxWPM
	return corpus, nil
}

func buildShard(engine *timing.Engine, cfg model.GenerateConfig, shard, shards int, words []string) (model.Corpus, error) {
	switch cfg.Policy {
	case model.PolicyIndependent:
		return sample(engine, cfg, shareOf(cfg.Samples, shard, shards))
	case model.PolicySequence:
		return sequence(engine, cfg, shareOf(cfg.Characters, shard, shards))
	case model.PolicyText:
		seq, err := newSequencer(engine, cfg)
		if err != nil {
			return model.Corpus{}, err
		}
		return seq.GenerateFromWords(words, shareOf(cfg.Words, shard, shards))
	case model.PolicyCombined:
		independent, err := sample(engine, cfg, shareOf(cfg.Samples, shard, shards))
		if err != nil {
			return model.Corpus{}, err
		}
		sequential, err := sequence(engine, cfg, shareOf(cfg.Characters, shard, shards))
		if err != nil {
			return model.Corpus{}, err
		}
		return dataset.Combine(independent, sequential), nil
	default:
		return model.Corpus{}, fmt.Errorf("unknown policy %q", cfg.Policy)
	}
}

func sample(engine *timing.Engine, cfg model.GenerateConfig, n int) (model.Corpus, error) {
	s, err := generator.NewSampler(engine, generator.SamplerOptions{
		MinWPM:  cfg.MinWPM,
		MaxWPM:  cfg.MaxWPM,
		Dwell:   cfg.ElementDwell,
		Weights: cfg.Weights,
	})
	if err != nil {
		return model.Corpus{}, err
	}
	return s.Generate(n), nil
}

func sequence(engine *timing.Engine, cfg model.GenerateConfig, n int) (model.Corpus, error) {
	seq, err := newSequencer(engine, cfg)
	if err != nil {
		return model.Corpus{}, err
	}
	return seq.Generate(n), nil
}

func newSequencer(engine *timing.Engine, cfg model.GenerateConfig) (*generator.Sequencer, error) {
	return generator.NewSequencer(engine, generator.SequencerOptions{
		MinWPM:      cfg.MinWPM,
		MaxWPM:      cfg.MaxWPM,
		Dwell:       cfg.CharacterDwell,
		WordGapProb: cfg.WordGapProb,
	})
}

// shareOf splits total across shards, giving the remainder to the first shards.
func shareOf(total, shard, shards int) int {
	n := total / shards
	if shard < total%shards {
		n++
	}
	return n
}
