package engine

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/clanpj/lazysmp/position"
)

// jobT is what every worker of one search depth has in common.
type jobT struct {
	cfg   Config
	cache *CacheT
	hints []position.Move
}

func (j *jobT) newWorker() *SearchT {
	return NewSearch(j.cfg, j.cache, j.hints)
}

type searcherT interface {
	search(job *jobT, pos position.Position, depth int) (position.Move, EvalCp, SearchStatsT, error)
}

func (o OrchestratorT) searcher() (searcherT, error) {
	switch o {
	case Sequential:
		return sequentialT{}, nil
	case RootSplit:
		return rootSplitT{}, nil
	case TwoPlySplit:
		return twoPlySplitT{}, nil
	case LazySMP:
		return lazySMPT{}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownOrchestrator, o)
}

// runBatch runs work(0..n-1) on at most workers goroutines and waits for all
// of them. A panicking worker fails the whole batch.
func runBatch(workers int, n int, work func(i int)) error {
	var g errgroup.Group
	g.SetLimit(workers)

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: worker %d: %v", ErrWorkerFailed, i, r)
				}
			}()
			work(i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Int("batch", n).Msg("search batch failed")
		return err
	}
	return nil
}

type sequentialT struct{}

func (sequentialT) search(job *jobT, pos position.Position, depth int) (position.Move, EvalCp, SearchStatsT, error) {
	s := job.newWorker()
	move, eval := s.NegaMax(pos, depth, job.cfg.NullMove, -Infinity, Infinity)
	return move, eval, s.stats, nil
}

type childResultT struct {
	move  position.Move
	eval  EvalCp // from the opponent's point of view
	stats SearchStatsT
}

// rootSplitT searches every root move in its own worker with a full window.
type rootSplitT struct{}

func (rootSplitT) search(job *jobT, pos position.Position, depth int) (position.Move, EvalCp, SearchStatsT, error) {
	legalMoves := pos.LegalMoves()

	// Nothing to split if we can mate right now
	for _, move := range legalMoves {
		if pos.Play(move).IsCheckmate() {
			return move, job.cfg.decayMate(job.cfg.MateScore), SearchStatsT{Mates: 1}, nil
		}
	}

	children := lo.Map(legalMoves, func(move position.Move, _ int) childResultT {
		return childResultT{move: move}
	})

	err := runBatch(job.cfg.workers(), len(children), func(i int) {
		s := job.newWorker()
		_, children[i].eval = s.NegaMax(pos.Play(children[i].move), depth-1, job.cfg.NullMove, -Infinity, Infinity)
		children[i].stats = s.stats
	})
	if err != nil {
		return position.NoMove, 0, SearchStatsT{}, err
	}

	var stats SearchStatsT
	for _, child := range children {
		stats.Add(child.stats)
	}

	// The worst child for the opponent is our best move
	best := lo.MinBy(children, func(a, b childResultT) bool { return a.eval < b.eval })
	return best.move, job.cfg.decayMate(-best.eval), stats, nil
}

type plyLeafT struct {
	group uint64 // fingerprint of the position after the first ply
	pos   position.Position
	layer int    // 1 if the game ended after the first ply
	eval  EvalCp // for whoever is to move at pos until merged
	stats SearchStatsT
}

type groupBestT struct {
	group uint64
	eval  EvalCp
}

// twoPlySplitT searches every position two plies from the root in its own
// worker, then minimaxes the two plies by hand.
type twoPlySplitT struct{}

func (twoPlySplitT) search(job *jobT, pos position.Position, depth int) (position.Move, EvalCp, SearchStatsT, error) {
	if depth < 2 {
		return rootSplitT{}.search(job, pos, depth)
	}

	// Side table from the position after ply 1 back to the root move
	firstMoves := make(map[uint64]position.Move)
	var groupOrder []uint64
	var leaves []plyLeafT

	for _, move := range pos.LegalMoves() {
		pos1 := pos.Play(move)
		group := pos1.Fingerprint()
		firstMoves[group] = move
		groupOrder = append(groupOrder, group)

		replies := pos1.LegalMoves()
		if len(replies) == 0 {
			leaves = append(leaves, plyLeafT{group: group, pos: pos1, layer: 1})
			continue
		}
		for _, reply := range replies {
			leaves = append(leaves, plyLeafT{group: group, pos: pos1.Play(reply), layer: 2})
		}
	}

	err := runBatch(job.cfg.workers(), len(leaves), func(i int) {
		s := job.newWorker()
		_, leaves[i].eval = s.NegaMax(leaves[i].pos, depth-2, job.cfg.NullMove, -Infinity, Infinity)
		leaves[i].stats = s.stats
	})
	if err != nil {
		return position.NoMove, 0, SearchStatsT{}, err
	}

	var stats SearchStatsT
	for i := range leaves {
		stats.Add(leaves[i].stats)

		// Back to the root mover's point of view, one mate decay per ply.
		// Layer 1 evals belong to the opponent.
		if leaves[i].layer == 1 {
			leaves[i].eval = job.cfg.decayMate(-leaves[i].eval)
		} else {
			leaves[i].eval = job.cfg.decayMate(job.cfg.decayMate(leaves[i].eval))
		}
	}

	groups := lo.GroupBy(leaves, func(leaf plyLeafT) uint64 { return leaf.group })

	// The opponent picks the worst leaf of each group for us
	bests := lo.Map(groupOrder, func(group uint64, _ int) groupBestT {
		worst := lo.MinBy(groups[group], func(a, b plyLeafT) bool { return a.eval < b.eval })
		return groupBestT{group: group, eval: worst.eval}
	})
	best := lo.MaxBy(bests, func(a, b groupBestT) bool { return a.eval > b.eval })

	return firstMoves[best.group], best.eval, stats, nil
}

// lazySMPT runs the same full search on every worker and lets them race
// through the shared cache. Move shuffling is what keeps them apart.
type lazySMPT struct{}

func (lazySMPT) search(job *jobT, pos position.Position, depth int) (position.Move, EvalCp, SearchStatsT, error) {
	n := job.cfg.workers()
	log.Debug().Int("threads", n).Int("depth", depth).Msg("using-lazy-smp")

	workerStats := make([]SearchStatsT, n)
	err := runBatch(n, n, func(i int) {
		s := job.newWorker()
		s.NegaMax(pos, depth, job.cfg.NullMove, -Infinity, Infinity)
		workerStats[i] = s.stats
	})
	if err != nil {
		return position.NoMove, 0, SearchStatsT{}, err
	}

	var stats SearchStatsT
	for _, ws := range workerStats {
		stats.Add(ws)
	}

	entry, ok := job.cache.Probe(pos.Fingerprint(), depth)
	if !ok || entry.Move == position.NoMove {
		return position.NoMove, 0, stats, fmt.Errorf("%w: no root entry in the cache at depth %d", ErrWorkerFailed, depth)
	}
	return entry.Move, entry.Eval, stats, nil
}
