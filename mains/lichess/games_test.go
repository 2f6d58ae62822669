package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/clanpj/lazysmp/book"
	"github.com/clanpj/lazysmp/engine"
	"github.com/clanpj/lazysmp/lichess"
	"github.com/clanpj/lazysmp/position"
)

var mateInOne = "7K/8/8/8/8/1R6/5R2/3k4 w - - 0 1"

type fakeLichessT struct {
	mu    sync.Mutex
	posts []string
}

func (f *fakeLichessT) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.posts = append(f.posts, r.Method+" "+r.URL.Path)
	f.mu.Unlock()
	fmt.Fprint(w, `{"ok":true}`)
}

func testState(t *testing.T, b *book.Book) (*State, *fakeLichessT) {
	fake := &fakeLichessT{}
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	cfg := engine.DefaultConfig()
	cfg.Orchestrator = engine.Sequential
	cfg.MaxDepth = 2
	cfg.ThinkTime = time.Minute
	return NewState(lichess.NewLichessClient("secret").WithHost(ts.URL), "lazysmp", cfg, b), fake
}

func gameFull(fen string, weAreWhite bool, moves string) lichess.GameStateMessage {
	full := lichess.GameFullGameState{
		ID:         "g1",
		InitialFen: fen,
		White:      lichess.User{ID: "someone"},
		Black:      lichess.User{ID: "LazySMP"},
		State:      lichess.GameStateGameState{Moves: moves, Status: "started", WTime: 60000, BTime: 60000},
	}
	if weAreWhite {
		full.White, full.Black = full.Black, full.White
	}
	return lichess.GameStateMessage{Type: lichess.GameFullGameStateType, Data: full}
}

func TestHandleMessagePlaysOnOurTurn(t *testing.T) {
	state, fake := testState(t, nil)
	game := &Game{ID: "g1"}

	if err := handleMessage(context.Background(), state, game, gameFull(mateInOne, true, "")); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if len(fake.posts) != 1 || fake.posts[0] != "POST /api/bot/game/g1/move/b3b1" {
		t.Errorf("posts %v, want the mating move", fake.posts)
	}
}

func TestHandleMessageWaitsForOpponent(t *testing.T) {
	state, fake := testState(t, nil)
	game := &Game{ID: "g1"}

	if err := handleMessage(context.Background(), state, game, gameFull(mateInOne, false, "")); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if len(fake.posts) != 0 {
		t.Errorf("moved on the opponent's turn: %v", fake.posts)
	}

	// The opponent moves their king, now it is black, i.e. us, to play
	update := lichess.GameStateMessage{
		Type: lichess.GameStateGameStateType,
		Data: lichess.GameStateGameState{Moves: "h8g8", Status: "started"},
	}
	if err := handleMessage(context.Background(), state, game, update); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if len(fake.posts) != 1 {
		t.Errorf("posts %v, want one move", fake.posts)
	}
}

func TestHandleMessageUsesBook(t *testing.T) {
	b := book.New()
	start := position.Start()
	move, err := start.ParseMove("d2d4")
	if err != nil {
		t.Fatal(err)
	}
	b.Add(start, move, 1)

	state, fake := testState(t, b)
	if err := handleMessage(context.Background(), state, &Game{ID: "g1"}, gameFull("startpos", true, "")); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if len(fake.posts) != 1 || fake.posts[0] != "POST /api/bot/game/g1/move/d2d4" {
		t.Errorf("posts %v, want the book move", fake.posts)
	}
}

func TestHandleInitialGameStateRejectsStrangers(t *testing.T) {
	state, _ := testState(t, nil)
	full := lichess.GameFullGameState{White: lichess.User{ID: "a"}, Black: lichess.User{ID: "b"}}
	if err := handleInitialGameState(state, &Game{ID: "g1"}, full); err == nil {
		t.Errorf("expected an error for a game we are not in")
	}
}

func TestGameIsOver(t *testing.T) {
	var overFixtures = []struct {
		game *Game
		want bool
	}{
		{&Game{InitialFen: position.StartFEN, Status: "started"}, false},
		{&Game{InitialFen: position.StartFEN, Status: "resign"}, true},
		{&Game{InitialFen: position.StartFEN, Moves: []string{"f2f3", "e7e5", "g2g4", "d8h4"}}, true},
		{&Game{InitialFen: "7K/8/8/8/8/8/5R2/1R1k4 b - - 0 1"}, true},
	}
	for i, f := range overFixtures {
		got, err := gameIsOver(f.game)
		if err != nil {
			t.Errorf("%d: %v", i, err)
			continue
		}
		if got != f.want {
			t.Errorf("%d: gameIsOver = %v, want %v", i, got, f.want)
		}
	}

	if _, err := gameIsOver(&Game{InitialFen: position.StartFEN, Moves: []string{"e2e5"}}); err == nil {
		t.Errorf("expected an error for an illegal move")
	}
}

func TestThinkTime(t *testing.T) {
	var thinkFixtures = []struct {
		game *Game
		want time.Duration
	}{
		{&Game{WeAreWhite: true, WTime: 32000, BTime: 1000}, 2 * time.Second},
		{&Game{WeAreWhite: false, WTime: 32000, BTime: 16000}, time.Second},
		{&Game{WeAreWhite: true, WTime: 10, WInc: 500}, 500 * time.Millisecond},
		{&Game{WeAreWhite: true}, 7 * time.Second},
	}
	for i, f := range thinkFixtures {
		if got := thinkTime(f.game, 7*time.Second); got != f.want {
			t.Errorf("%d: thinkTime = %v, want %v", i, got, f.want)
		}
	}
}

func TestChallengeQueue(t *testing.T) {
	state, _ := testState(t, nil)
	if state.PopChallenge() != nil {
		t.Fatalf("new state has a challenge")
	}
	state.PushChallenge(Challenge{ID: "a"})
	state.PushChallenge(Challenge{ID: "b"})
	if c := state.PopChallenge(); c == nil || c.ID != "a" {
		t.Errorf("first pop %+v, want a", c)
	}
	if c := state.PopChallenge(); c == nil || c.ID != "b" {
		t.Errorf("second pop %+v, want b", c)
	}
}

func TestAcceptChallenges(t *testing.T) {
	state, fake := testState(t, nil)
	state.PushChallenge(Challenge{ID: "std", Variant: lichess.Variant{Key: "standard"}})
	state.PushChallenge(Challenge{ID: "960", Variant: lichess.Variant{Key: "chess960"}})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go AcceptChallengesForever(ctx, state, &wg)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		fake.mu.Lock()
		n := len(fake.posts)
		fake.mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	wg.Wait()

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.posts) != 2 || fake.posts[0] != "POST /api/challenge/std/accept" || fake.posts[1] != "POST /api/challenge/960/decline" {
		t.Errorf("posts %v", fake.posts)
	}
}

func TestOpenBookIsWeightedByDefault(t *testing.T) {
	b := book.New()
	start := position.Start()
	move, err := start.ParseMove("e2e4")
	if err != nil {
		t.Fatal(err)
	}
	b.Add(start, move, 1)
	path := filepath.Join(t.TempDir(), "book.json")
	if err := b.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if weighted, err := openBook(path, false); err != nil || !weighted.Random {
		t.Errorf("openBook(path, false) = %+v, %v, want a weighted book", weighted, err)
	}
	if best, err := openBook(path, true); err != nil || best.Random {
		t.Errorf("openBook(path, true) = %+v, %v, want a heaviest-move book", best, err)
	}
	if b, err := openBook("", false); b != nil || err != nil {
		t.Errorf("empty path got %v, %v", b, err)
	}
}
