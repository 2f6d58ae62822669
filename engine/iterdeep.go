package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clanpj/lazysmp/position"
)

// IterativeDeepening searches depth 1, 2, 3... until cfg.ThinkTime has been
// used up, ctx is done or cfg.MaxDepth is reached, and returns the result of
// the last depth that finished. A depth is never interrupted once started.
// cfg.Depth is ignored. progress, if not nil, sees every finished depth.
func IterativeDeepening(ctx context.Context, pos position.Position, cfg Config, progress func(Result)) (Result, error) {
	if err := checkRoot(ctx, pos, cfg); err != nil {
		return Result{}, err
	}

	searchID := uuid.NewString()
	start := time.Now()
	budget := cfg.thinkTime()
	logSearchStart(searchID, cfg, cfg.maxDepth())

	// One cache for all depths - entries are keyed by exact depth anyway
	cache := NewCache(cfg.CacheShards)

	var best Result
	var hints []position.Move

	for depth := 1; depth <= cfg.maxDepth(); depth++ {
		job := &jobT{cfg: cfg, cache: cache, hints: hints}

		res, err := searchDepth(job, pos, depth)
		if err != nil {
			return best, err
		}
		res.SearchID = searchID
		res.Elapsed = time.Since(start)
		best = res

		hints = promoteHint(hints, res.Move)

		log.Debug().
			Str("search_id", searchID).
			Int("depth", depth).
			Stringer("move", res.Move).
			Int32("eval", int32(res.Eval)).
			Dur("elapsed", res.Elapsed).
			Uint64("nodes", res.Stats.Nodes).
			Msg("depth done")

		if progress != nil {
			progress(res)
		}

		if time.Since(start) > budget || ctx.Err() != nil {
			break
		}
	}

	log.Info().
		Str("search_id", searchID).
		Str("orchestrator", cfg.Orchestrator.String()).
		Int("depth", best.Depth).
		Stringer("move", best.Move).
		Int32("eval", int32(best.Eval)).
		Dur("elapsed", best.Elapsed).
		Msg("iterative deepening done")

	return best, nil
}

// promoteHint moves (or inserts) move to the front of the hint list.
func promoteHint(hints []position.Move, move position.Move) []position.Move {
	next := make([]position.Move, 0, maxHints)
	next = append(next, move)
	for _, hint := range hints {
		if hint != move && len(next) < maxHints {
			next = append(next, hint)
		}
	}
	return next
}
