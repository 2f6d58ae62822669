// Package position adapts the dragontoothmg move generator to the handful of
// rules queries the search needs.
//
// A Position is a plain value: assigning it copies the whole board, so each
// search worker owns its positions outright and nothing here needs locking.
package position

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	dragon "github.com/dylhunn/dragontoothmg"
	"github.com/notnil/chess"
)

var (
	ErrInvalidFEN      = errors.New("position: invalid fen")
	ErrInvalidPosition = errors.New("position: invalid position")
	ErrIllegalMove     = errors.New("position: illegal move")
)

const StartFEN = dragon.Startpos

type Color int

const (
	White Color = iota
	Black
)

func (c Color) Other() Color { return c ^ 1 }

type Piece int

const (
	NoPiece Piece = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var pieceNames = [...]string{"none", "pawn", "knight", "bishop", "rook", "queen", "king"}

func (p Piece) String() string { return pieceNames[p] }

type Position struct {
	board dragon.Board
}

func Start() Position {
	return Position{board: dragon.ParseFen(dragon.Startpos)}
}

// FromFEN parses and sanity checks a FEN string. The syntax check is done
// before dragontoothmg sees the string since its parser trusts its input.
func FromFEN(fen string) (pos Position, err error) {
	fen = strings.TrimSpace(fen)
	if _, err := chess.FEN(fen); err != nil {
		return Position{}, fmt.Errorf("%w: %q: %v", ErrInvalidFEN, fen, err)
	}

	defer func() {
		if r := recover(); r != nil {
			pos, err = Position{}, fmt.Errorf("%w: %q: %v", ErrInvalidFEN, fen, r)
		}
	}()
	pos = Position{board: dragon.ParseFen(fen)}

	if err := pos.validate(); err != nil {
		return Position{}, fmt.Errorf("%w: %q", err, fen)
	}
	return pos, nil
}

func (p Position) validate() error {
	if bits.OnesCount64(p.board.White.Kings) != 1 || bits.OnesCount64(p.board.Black.Kings) != 1 {
		return fmt.Errorf("%w: need exactly one king per side", ErrInvalidPosition)
	}
	// The side that just moved may not be left in check.
	if p.PlayNull().InCheck() {
		return fmt.Errorf("%w: side not to move is in check", ErrInvalidPosition)
	}
	return nil
}

func (p Position) FEN() string {
	b := p.board
	return b.ToFen()
}

// Key is the FEN without the move counters, so transpositions reached at
// different move numbers share a key.
func (p Position) Key() string {
	return NormalizeFEN(p.FEN())
}

// NormalizeFEN strips the halfmove and fullmove counters from a FEN.
func NormalizeFEN(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

// Fingerprint is the Zobrist hash of the position.
func (p Position) Fingerprint() uint64 {
	b := p.board
	return b.Hash()
}

func (p Position) WhiteToMove() bool { return p.board.Wtomove }

func (p Position) SideToMove() Color {
	if p.board.Wtomove {
		return White
	}
	return Black
}

func (p Position) LegalMoves() []Move {
	b := p.board
	dmoves := b.GenerateLegalMoves()
	moves := make([]Move, len(dmoves))
	for i, dm := range dmoves {
		moves[i] = Move(dm)
	}
	return moves
}

// Play returns the position after m. The receiver is untouched, so undoing a
// move is just going back to the old value.
func (p Position) Play(m Move) Position {
	next := p
	next.board.Apply(dragon.Move(m))
	return next
}

// PlayNull passes the turn to the opponent.
func (p Position) PlayNull() Position {
	fields := strings.Fields(p.FEN())
	if fields[1] == "w" {
		fields[1] = "b"
	} else {
		fields[1] = "w"
	}
	fields[3] = "-"
	return Position{board: dragon.ParseFen(strings.Join(fields, " "))}
}

func (p Position) InCheck() bool {
	b := p.board
	return b.OurKingInCheck()
}

func (p Position) IsCheckmate() bool {
	return p.InCheck() && len(p.LegalMoves()) == 0
}

func (p Position) IsStalemate() bool {
	return !p.InCheck() && len(p.LegalMoves()) == 0
}

func (p Position) IsCapture(m Move) bool {
	to := m.To()
	if p.theirs().All&(uint64(1)<<to) != 0 {
		return true
	}
	return p.isEnPassant(m)
}

func (p Position) isEnPassant(m Move) bool {
	from, to := m.From(), m.To()
	if p.ours().Pawns&(uint64(1)<<from) == 0 {
		return false
	}
	return from%8 != to%8 && p.occupied()&(uint64(1)<<to) == 0
}

// IsZeroing reports whether m resets the fifty-move counter.
func (p Position) IsZeroing(m Move) bool {
	return p.ours().Pawns&(uint64(1)<<m.From()) != 0 || p.IsCapture(m)
}

func (p Position) IsPromotion(m Move) bool {
	if p.ours().Pawns&(uint64(1)<<m.From()) == 0 {
		return false
	}
	rank := m.To() / 8
	return rank == 0 || rank == 7
}

func (p Position) GivesCheck(m Move) bool {
	return p.Play(m).InCheck()
}

// Pieces returns the bitboard of the given color and piece type, square 0
// being a1.
func (p Position) Pieces(c Color, piece Piece) uint64 {
	bb := &p.board.White
	if c == Black {
		bb = &p.board.Black
	}
	switch piece {
	case Pawn:
		return bb.Pawns
	case Knight:
		return bb.Knights
	case Bishop:
		return bb.Bishops
	case Rook:
		return bb.Rooks
	case Queen:
		return bb.Queens
	case King:
		return bb.Kings
	}
	return 0
}

// PieceAt returns the piece on sq, or NoPiece if it is empty.
func (p Position) PieceAt(sq uint8) (Piece, Color) {
	mask := uint64(1) << sq
	color := White
	if p.board.Black.All&mask != 0 {
		color = Black
	} else if p.board.White.All&mask == 0 {
		return NoPiece, White
	}
	for piece := Pawn; piece <= King; piece++ {
		if p.Pieces(color, piece)&mask != 0 {
			return piece, color
		}
	}
	return NoPiece, White
}

func (p Position) ParseMove(uci string) (Move, error) {
	uci = strings.ToLower(strings.TrimSpace(uci))
	for _, m := range p.LegalMoves() {
		if m.String() == uci {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %s in %s", ErrIllegalMove, uci, p.FEN())
}

func (p Position) ours() *dragon.Bitboards {
	if p.board.Wtomove {
		return &p.board.White
	}
	return &p.board.Black
}

func (p Position) theirs() *dragon.Bitboards {
	if p.board.Wtomove {
		return &p.board.Black
	}
	return &p.board.White
}

func (p Position) occupied() uint64 {
	return p.board.White.All | p.board.Black.All
}
