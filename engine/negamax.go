package engine

import (
	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/clanpj/lazysmp/position"
)

// SearchT is the state of one search worker. Workers never share a SearchT;
// the only thing they share is the cache.
type SearchT struct {
	cfg   Config
	cache *CacheT // nil when caching is off
	hints []position.Move
	stats SearchStatsT
}

func NewSearch(cfg Config, cache *CacheT, hints []position.Move) *SearchT {
	if !cfg.UseCache {
		cache = nil
	}
	return &SearchT{cfg: cfg, cache: cache, hints: hints}
}

func (s *SearchT) Stats() SearchStatsT { return s.stats }

func (s *SearchT) probe(zobrist uint64, depth int) (CacheEntryT, bool) {
	if s.cache == nil {
		return CacheEntryT{}, false
	}
	return s.cache.Probe(zobrist, depth)
}

func (s *SearchT) store(zobrist uint64, depth int, eval EvalCp, move position.Move) {
	if s.cache != nil {
		s.cache.Store(zobrist, depth, CacheEntryT{Eval: eval, Move: move})
	}
}

// NegaMax returns the best move and its eval for the side to move, searching
// depth plies and then quiescing. The move is NoMove only for terminal
// positions, the depth frontier and null move cut-offs.
func (s *SearchT) NegaMax(pos position.Position, depth int, nullMove bool, alpha EvalCp, beta EvalCp) (position.Move, EvalCp) {
	s.stats.Nodes++

	zobrist := pos.Fingerprint()
	if entry, ok := s.probe(zobrist, depth); ok {
		s.stats.CacheHits++
		return entry.Move, entry.Eval
	}

	legalMoves := pos.LegalMoves()
	inCheck := pos.InCheck()

	if len(legalMoves) == 0 {
		if inCheck {
			s.stats.Mates++
			s.store(zobrist, depth, -s.cfg.MateScore, position.NoMove)
			return position.NoMove, -s.cfg.MateScore
		}
		s.stats.Stalemates++
		s.store(zobrist, depth, DrawEval, position.NoMove)
		return position.NoMove, DrawEval
	}

	if depth <= 0 {
		eval := s.Quiesce(pos, alpha, beta, s.cfg.QuiescenceDepth)
		s.store(zobrist, depth, eval, position.NoMove)
		return position.NoMove, eval
	}

	// Null move: if we are still above beta after handing the opponent a free
	// move, assume the full search would cut too. Never in check.
	if nullMove && depth > s.cfg.NullMoveR+1 && !inCheck && Evaluate(pos) >= beta {
		_, nullEval := s.NegaMax(pos.PlayNull(), depth-1-s.cfg.NullMoveR, false, -beta, -beta+1)
		nullEval = -nullEval // back to our perspective

		if nullEval >= beta {
			s.stats.NullMoveCuts++
			s.store(zobrist, depth, beta, position.NoMove)
			return position.NoMove, beta
		}
	}

	bestMove := position.NoMove
	bestEval := -Infinity

	for _, move := range s.orderMoves(pos, legalMoves) {
		_, eval := s.NegaMax(pos.Play(move), depth-1, nullMove, -beta, -alpha)
		eval = s.cfg.decayMate(-eval) // back to our perspective

		if eval >= beta {
			s.stats.CutNodes++
			s.store(zobrist, depth, eval, move)
			return move, eval
		}

		// Strictly > so the first of equal moves wins
		if eval > bestEval {
			bestEval, bestMove = eval, move
		}
		if alpha < eval {
			alpha = eval
		}
		if alpha >= beta {
			break
		}
	}

	if bestMove == position.NoMove {
		s.stats.Fallbacks++
		bestMove = legalMoves[0]
		if s.cfg.ShuffleMoves {
			bestMove = legalMoves[frand.Intn(len(legalMoves))]
		}
		log.Warn().
			Str("fen", pos.FEN()).
			Int("depth", depth).
			Stringer("move", bestMove).
			Msg("no best move recorded, falling back to a legal move")
	}

	s.store(zobrist, depth, bestEval, bestMove)
	return bestMove, bestEval
}
