package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clanpj/lazysmp/position"
)

var (
	ErrNoLegalMoves = errors.New("engine: no legal moves in the root position")
	ErrWorkerFailed = errors.New("engine: search worker failed")
)

type Result struct {
	SearchID string
	Move     position.Move
	Eval     EvalCp // from the root mover's perspective
	Depth    int
	Stats    SearchStatsT
	Elapsed  time.Duration
}

// Search runs the configured orchestrator once at cfg.Depth.
func Search(ctx context.Context, pos position.Position, cfg Config) (Result, error) {
	if err := checkRoot(ctx, pos, cfg); err != nil {
		return Result{}, err
	}

	searchID := uuid.NewString()
	logSearchStart(searchID, cfg, cfg.Depth)
	job := &jobT{cfg: cfg, cache: NewCache(cfg.CacheShards)}

	res, err := searchDepth(job, pos, cfg.Depth)
	if err != nil {
		return Result{}, err
	}
	res.SearchID = searchID

	log.Info().
		Str("search_id", searchID).
		Str("orchestrator", cfg.Orchestrator.String()).
		Int("depth", res.Depth).
		Stringer("move", res.Move).
		Int32("eval", int32(res.Eval)).
		Dur("elapsed", res.Elapsed).
		Object("stats", res.Stats).
		Msg("search done")

	return res, nil
}

func logSearchStart(searchID string, cfg Config, depth int) {
	log.Debug().
		Str("search_id", searchID).
		Str("orchestrator", cfg.Orchestrator.String()).
		Int("depth", depth).
		Int("workers", cfg.workers()).
		Msg("search start")
}

// checkRoot fails fast on anything that would make the search pointless.
func checkRoot(ctx context.Context, pos position.Position, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(pos.LegalMoves()) == 0 {
		return fmt.Errorf("%w: %s", ErrNoLegalMoves, pos.FEN())
	}
	return nil
}

func searchDepth(job *jobT, pos position.Position, depth int) (Result, error) {
	searcher, err := job.cfg.Orchestrator.searcher()
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	move, eval, stats, err := searcher.search(job, pos, depth)
	if err != nil {
		return Result{}, fmt.Errorf("%v at depth %d: %w", job.cfg.Orchestrator, depth, err)
	}

	return Result{
		Move:    move,
		Eval:    eval,
		Depth:   depth,
		Stats:   stats,
		Elapsed: time.Since(start),
	}, nil
}
