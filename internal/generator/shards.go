package generator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/morsetrain/internal/model"
)

// ShardFunc builds one independent shard. Implementations must not share mutable
// state such as an engine between shards.
type ShardFunc func(shard int) (model.Corpus, error)

// GenerateShards builds shards concurrently and returns them in shard order.
func GenerateShards(ctx context.Context, shards int, build ShardFunc) ([]model.Corpus, error) {
	if shards <= 0 {
		return nil, fmt.Errorf("shards must be > 0, got %d", shards)
	}
	out := make([]model.Corpus, shards)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < shards; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			corpus, err := build(i)
			if err != nil {
				return fmt.Errorf("failed to generate shard %d: %w", i, err)
			}
			out[i] = corpus
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ShardSeed derives the seed of a shard from a base seed.
func ShardSeed(base int64, shard int) int64 {
	return base + int64(shard)
}
