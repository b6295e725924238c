package fetchhttp

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/fetcher/internal/utils"
	"golang.org/x/sync/errgroup"
)

// RunTier fetches every chunk of plan concurrently, one worker per chunk, and
// waits for all of them. A single failed chunk fails the whole tier.
func RunTier(ctx context.Context, fetcher *ChunkFetcher, plan []utils.ChunkSpec) (utils.ChunkSet, error) {
	results := make(chan utils.ChunkResult, len(plan))
	var g errgroup.Group
	g.SetLimit(max(len(plan), 1))
	for _, chunk := range plan {
		g.Go(func() error {
			results <- fetcher.Fetch(ctx, chunk)
			return nil
		})
	}
	g.Wait()
	close(results)

	set := make(utils.ChunkSet, len(plan))
	var failed []utils.ChunkResult
	for res := range results {
		if !res.OK() {
			failed = append(failed, res)
			continue
		}
		set[res.Index] = res.Data
		log.Debug().Str("op", "http/multi-down").Msgf("Chunk %d completed (%d bytes in %s)", res.Index, len(res.Data), res.Duration)
	}
	if len(failed) > 0 {
		sort.Slice(failed, func(i, j int) bool { return failed[i].Index < failed[j].Index })
		return nil, &ChunkError{Failed: failed}
	}
	return set, nil
}
