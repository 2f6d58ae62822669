// Package book is a small position-keyed opening book. Keys are FENs without
// move counters, values are candidate moves with a weight (usually the
// number of games the move was played in).
package book

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/notnil/chess"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"lukechampine.com/frand"

	"github.com/clanpj/lazysmp/position"
)

var ErrNotFound = errors.New("book: position not in book")

// EntryT is one candidate move for a position.
type EntryT struct {
	Move   string `json:"move"`
	Weight int    `json:"weight"`
}

type Book struct {
	mu      sync.RWMutex
	entries map[string][]EntryT

	// When set Lookup picks a candidate at random, weighted, instead of
	// always returning the heaviest one.
	Random bool
}

func New() *Book {
	return &Book{entries: make(map[string][]EntryT)}
}

// Load reads a book written by Save.
func Load(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b := New()
	if err := json.NewDecoder(f).Decode(&b.entries); err != nil {
		return nil, fmt.Errorf("book: decoding %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("positions", b.Len()).Msg("opening book loaded")
	return b, nil
}

func (b *Book) Save(path string) error {
	b.mu.RLock()
	data, err := json.MarshalIndent(b.entries, "", "  ")
	b.mu.RUnlock()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Add bumps the weight of move in pos by weight, adding it if needed.
func (b *Book) Add(pos position.Position, move position.Move, weight int) {
	key := pos.Key()
	uci := move.String()

	b.mu.Lock()
	defer b.mu.Unlock()

	cands := b.entries[key]
	for i := range cands {
		if cands[i].Move == uci {
			cands[i].Weight += weight
			return
		}
	}
	b.entries[key] = append(cands, EntryT{Move: uci, Weight: weight})
}

// AddGame adds the first maxPly moves of game, one weight each. A game that
// does not start from the standard position is ignored.
func (b *Book) AddGame(game *chess.Game, maxPly int) error {
	positions := game.Positions()
	if len(positions) == 0 || positions[0].String() != chess.StartingPosition().String() {
		return nil
	}

	pos := position.Start()
	for i, m := range game.Moves() {
		if i >= maxPly {
			break
		}
		uci := chess.UCINotation{}.Encode(positions[i], m)
		move, err := pos.ParseMove(uci)
		if err != nil {
			return fmt.Errorf("book: ply %d: %w", i+1, err)
		}
		b.Add(pos, move, 1)
		pos = pos.Play(move)
	}
	return nil
}

// ImportPGN adds every game of a PGN stream and returns how many games were
// read. Games that fail to replay are skipped with a warning.
func (b *Book) ImportPGN(r io.Reader, maxPly int) (int, error) {
	scanner := chess.NewScanner(r)
	n := 0
	for scanner.Scan() {
		game := scanner.Next()
		if err := b.AddGame(game, maxPly); err != nil {
			log.Warn().Err(err).Int("game", n+1).Msg("skipping pgn game")
			continue
		}
		n++
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("book: reading pgn: %w", err)
	}
	return n, nil
}

// Lookup returns a book move for pos, or ErrNotFound. Candidates that are
// not legal in pos are never returned.
func (b *Book) Lookup(pos position.Position) (position.Move, error) {
	b.mu.RLock()
	cands := b.entries[pos.Key()]
	b.mu.RUnlock()

	type legalT struct {
		move   position.Move
		weight int
	}
	legal := lo.FilterMap(cands, func(e EntryT, _ int) (legalT, bool) {
		move, err := pos.ParseMove(e.Move)
		return legalT{move, e.Weight}, err == nil && e.Weight > 0
	})
	if len(legal) == 0 {
		return position.NoMove, ErrNotFound
	}

	if b.Random {
		total := lo.SumBy(legal, func(l legalT) int { return l.weight })
		pick := frand.Intn(total)
		for _, l := range legal {
			if pick < l.weight {
				return l.move, nil
			}
			pick -= l.weight
		}
	}

	// Ties go to the first candidate added
	best := lo.MaxBy(legal, func(a, b legalT) bool { return a.weight > b.weight })
	return best.move, nil
}
