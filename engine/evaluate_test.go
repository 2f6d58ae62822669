package engine

import (
	"strings"
	"testing"

	"github.com/clanpj/lazysmp/position"
)

var whiteUpAQueen = "4k3/pppppppp/8/8/8/8/PPPPPPPP/3QK3 w - - 0 1"
var blackUpARook = "r3k3/pppppppp/8/8/8/8/PPPPPPPP/4K3 w - - 0 1"
var kingsOnly = "4k3/8/8/8/8/8/8/4K3 w - - 0 1"
var middleGame = "r1bq1rk1/pp3ppp/2n1pn2/2bp4/2P5/2N1PN2/PP2BPPP/R1BQ1RK1 w - - 0 8"
var knightEndgame = "8/5k2/3n4/8/2N5/5P2/5K2/8 b - - 0 40"

var evalFixtures = []string{whiteUpAQueen, blackUpARook, kingsOnly, middleGame, knightEndgame}

func mustFEN(t testing.TB, fen string) position.Position {
	t.Helper()
	pos, err := position.FromFEN(fen)
	if err != nil {
		t.Fatalf("FromFEN(%q): %v", fen, err)
	}
	return pos
}

// mirrorFEN flips the board top to bottom and swaps the colours, including
// the side to move. Fixtures must not have castling rights.
func mirrorFEN(fen string) string {
	fields := strings.Fields(fen)
	ranks := strings.Split(fields[0], "/")
	for i, j := 0, len(ranks)-1; i < j; i, j = i+1, j-1 {
		ranks[i], ranks[j] = ranks[j], ranks[i]
	}
	swapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z':
			return r - 'A' + 'a'
		}
		return r
	}, strings.Join(ranks, "/"))

	side := "w"
	if fields[1] == "w" {
		side = "b"
	}
	ep := fields[3]
	if ep != "-" {
		ep = string(ep[0]) + map[byte]string{'3': "6", '6': "3"}[ep[1]]
	}
	return strings.Join([]string{swapped, side, fields[2], ep, fields[4], fields[5]}, " ")
}

func TestEvaluateStartIsBalanced(t *testing.T) {
	if eval := Evaluate(position.Start()); eval != 0 {
		t.Errorf("start position eval = %d, want 0", eval)
	}
}

func TestEvaluateMaterial(t *testing.T) {
	if eval := Evaluate(mustFEN(t, whiteUpAQueen)); eval < 800 {
		t.Errorf("%s: eval = %d, expected white to be about a queen up", whiteUpAQueen, eval)
	}
	if eval := Evaluate(mustFEN(t, blackUpARook)); eval > -400 {
		t.Errorf("%s: eval = %d, expected white to be about a rook down", blackUpARook, eval)
	}
}

func TestEvaluateIsMoverRelative(t *testing.T) {
	for _, fen := range evalFixtures {
		pos := mustFEN(t, fen)
		if eval, passed := Evaluate(pos), Evaluate(pos.PlayNull()); eval != -passed {
			t.Errorf("%s: eval %d but %d with the other side to move", fen, eval, passed)
		}
	}
}

func TestEvaluateMirrorSymmetry(t *testing.T) {
	for _, fen := range evalFixtures {
		mirrored := mirrorFEN(fen)
		if eval, mirrorEval := Evaluate(mustFEN(t, fen)), Evaluate(mustFEN(t, mirrored)); eval != mirrorEval {
			t.Errorf("%s: eval %d, mirrored %s: eval %d", fen, eval, mirrored, mirrorEval)
		}
	}
}

func TestGamePhase(t *testing.T) {
	var phaseFixtures = map[string]int{
		position.StartFEN: 0,
		kingsOnly:         endgamePhase,
		whiteUpAQueen:     (20*endgamePhase + totalPhase/2) / totalPhase,
		// Seven queens is more material than the start position
		"qqqqqqqk/8/8/8/8/8/8/4K3 w - - 0 1": 0,
	}
	for fen, want := range phaseFixtures {
		if got := gamePhase(mustFEN(t, fen)); got != want {
			t.Errorf("gamePhase(%s) = %d, want %d", fen, got, want)
		}
	}
}
