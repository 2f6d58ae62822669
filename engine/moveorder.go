package engine

import (
	"sort"

	"lukechampine.com/frand"

	"github.com/clanpj/lazysmp/position"
)

// Max number of principal variation hints carried between iterations
const maxHints = 8

func shuffleMoves(moves []position.Move) {
	frand.Shuffle(len(moves), func(i, j int) { moves[i], moves[j] = moves[j], moves[i] })
}

// orderMoves puts the hint moves first (in hint order), then captures, then
// everything else. Captures and quiet moves are each shuffled when
// cfg.ShuffleMoves is set, which is what makes lazy SMP workers diverge.
func (s *SearchT) orderMoves(pos position.Position, legalMoves []position.Move) []position.Move {
	ordered := make([]position.Move, 0, len(legalMoves))
	var captures, quiets []position.Move

	for _, move := range legalMoves {
		if s.isHint(move) {
			continue
		}
		if pos.IsCapture(move) {
			captures = append(captures, move)
		} else {
			quiets = append(quiets, move)
		}
	}

	// Hints are only useful if they are legal here
	for _, hint := range s.hints {
		for _, move := range legalMoves {
			if move == hint {
				ordered = append(ordered, move)
				break
			}
		}
	}

	if s.cfg.ShuffleMoves {
		shuffleMoves(captures)
		shuffleMoves(quiets)
	}

	ordered = append(ordered, captures...)
	return append(ordered, quiets...)
}

func (s *SearchT) isHint(move position.Move) bool {
	for _, hint := range s.hints {
		if move == hint {
			return true
		}
	}
	return false
}

type scoredMoveT struct {
	move  position.Move
	score EvalCp
}

// orderMovesForQuiescence keeps the loud moves (captures, promotions and
// checks) and sorts them best-for-the-mover first.
func orderMovesForQuiescence(pos position.Position, legalMoves []position.Move) []position.Move {
	phase := gamePhase(pos)
	scored := make([]scoredMoveT, 0, len(legalMoves))

	for _, move := range legalMoves {
		if pos.IsCapture(move) || pos.IsPromotion(move) || pos.GivesCheck(move) {
			scored = append(scored, scoredMoveT{move, mvvLva(pos, move, phase)})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	moves := make([]position.Move, len(scored))
	for i := range scored {
		moves[i] = scored[i].move
	}
	return moves
}

// mvvLva scores a move by the table value it takes minus the table value it
// moves, plus the raw material swing of a capture. An en passant capture has
// no victim on the target square so only the table part counts.
func mvvLva(pos position.Position, move position.Move, phase int) EvalCp {
	from, to := move.From(), move.To()
	attacker, _ := pos.PieceAt(from)
	victim, _ := pos.PieceAt(to)

	score := squareEval(pos, to, phase) - squareEval(pos, from, phase)
	if victim != position.NoPiece {
		score += taper(mgPieceVals[victim]-mgPieceVals[attacker], egPieceVals[victim]-egPieceVals[attacker], phase)
	}
	return score
}
