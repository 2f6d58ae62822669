package engine

import "github.com/clanpj/lazysmp/position"

// Quiesce searches only the loud moves below the main search horizon so we
// don't evaluate in the middle of an exchange. depthCap is the only bound on
// it and should stay small.
//
// Fail-hard: the result is clamped to [alpha, beta].
func (s *SearchT) Quiesce(pos position.Position, alpha EvalCp, beta EvalCp, depthCap int) EvalCp {
	s.stats.QNodes++

	legalMoves := pos.LegalMoves()
	if len(legalMoves) == 0 {
		if pos.InCheck() {
			s.stats.Mates++
			return -s.cfg.MateScore
		}
		s.stats.Stalemates++
		return DrawEval
	}

	standPat := Evaluate(pos)
	if depthCap <= 0 {
		return standPat
	}

	if standPat >= beta {
		s.stats.QPatCuts++
		return beta
	}
	if alpha < standPat {
		alpha = standPat
	}

	for _, move := range orderMovesForQuiescence(pos, legalMoves) {
		eval := -s.Quiesce(pos.Play(move), -beta, -alpha, depthCap-1)

		if eval >= beta {
			return beta
		}
		if alpha < eval {
			alpha = eval
		}
	}

	return alpha
}
