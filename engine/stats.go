package engine

import "github.com/rs/zerolog"

// Per-worker search counters. Each worker owns its own copy and the
// orchestrators sum them after the batch, so no atomics are needed.
type SearchStatsT struct {
	Nodes        uint64 // #negamax nodes visited
	QNodes       uint64 // #nodes visited in qsearch
	CacheHits    uint64 // #nodes answered straight from the cache
	Mates        uint64 // #checkmates found (main search and qsearch)
	Stalemates   uint64 // #stalemates found (main search and qsearch)
	NullMoveCuts uint64 // #nodes that cut due to null move heuristic
	CutNodes     uint64 // #(beta-)cut nodes
	QPatCuts     uint64 // #qnodes with stand pat cut
	Fallbacks    uint64 // #nodes that had to invent a best move
}

func (s *SearchStatsT) Add(o SearchStatsT) {
	s.Nodes += o.Nodes
	s.QNodes += o.QNodes
	s.CacheHits += o.CacheHits
	s.Mates += o.Mates
	s.Stalemates += o.Stalemates
	s.NullMoveCuts += o.NullMoveCuts
	s.CutNodes += o.CutNodes
	s.QPatCuts += o.QPatCuts
	s.Fallbacks += o.Fallbacks
}

// MarshalZerologObject lets a stats value be logged with Object("stats", s).
func (s SearchStatsT) MarshalZerologObject(e *zerolog.Event) {
	e.Uint64("nodes", s.Nodes).
		Uint64("qnodes", s.QNodes).
		Uint64("cache_hits", s.CacheHits).
		Uint64("mates", s.Mates).
		Uint64("stalemates", s.Stalemates).
		Uint64("null_cuts", s.NullMoveCuts).
		Uint64("cuts", s.CutNodes).
		Uint64("qpat_cuts", s.QPatCuts).
		Uint64("fallbacks", s.Fallbacks)
}
