package engine

import (
	"math/bits"

	"github.com/clanpj/lazysmp/position"
)

// Eval in centi-pawns, i.e. 100 === 1 pawn, always from the mover's perspective.
type EvalCp int32

// Search window bound. Must stay clear of any mate score so negation is safe.
const Infinity EvalCp = 1 << 30

const DrawEval EvalCp = 0

var mgPieceVals = [7]EvalCp{0, 82, 337, 365, 477, 1025, 24000}
var egPieceVals = [7]EvalCp{0, 94, 281, 297, 512, 936, 24000}

// Game phase weights of the non-pawn material
var phaseWeights = [7]int{0, 0, 1, 1, 2, 4, 0}

const totalPhase = 24 // 4 minors, 4 rooks, 2 queens
const endgamePhase = 256

// gamePhase is 0 with all the starting material on the board and 256 with
// only kings and pawns.
func gamePhase(pos position.Position) int {
	phase := totalPhase
	for color := position.White; color <= position.Black; color++ {
		for piece := position.Knight; piece <= position.Queen; piece++ {
			phase -= bits.OnesCount64(pos.Pieces(color, piece)) * phaseWeights[piece]
		}
	}
	// Extra promoted material can push this below zero
	if phase < 0 {
		phase = 0
	}
	return (phase*endgamePhase + totalPhase/2) / totalPhase
}

func taper(mg, eg EvalCp, phase int) EvalCp {
	return (mg*EvalCp(endgamePhase-phase) + eg*EvalCp(phase)) / endgamePhase
}

func pstIndex(color position.Color, sq int) int {
	if color == position.White {
		return sq ^ 56
	}
	return sq
}

// Evaluate returns the tapered PeSTO score of pos for the side to move.
func Evaluate(pos position.Position) EvalCp {
	var mg, eg [2]EvalCp

	for color := position.White; color <= position.Black; color++ {
		for piece := position.Pawn; piece <= position.King; piece++ {
			for bb := pos.Pieces(color, piece); bb != 0; bb &= bb - 1 {
				idx := pstIndex(color, bits.TrailingZeros64(bb))
				mg[color] += mgTables[piece][idx] + mgPieceVals[piece]
				eg[color] += egTables[piece][idx] + egPieceVals[piece]
			}
		}
	}

	us := pos.SideToMove()
	them := us.Other()
	return taper(mg[us]-mg[them], eg[us]-eg[them], gamePhase(pos))
}

// squareEval is the tapered table value of whatever stands on sq, or 0 for
// an empty square.
func squareEval(pos position.Position, sq uint8, phase int) EvalCp {
	piece, color := pos.PieceAt(sq)
	if piece == position.NoPiece {
		return 0
	}
	idx := pstIndex(color, int(sq))
	return taper(mgTables[piece][idx]+mgPieceVals[piece], egTables[piece][idx]+egPieceVals[piece], phase)
}
