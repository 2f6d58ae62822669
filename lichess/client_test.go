package lichess

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.HandlerFunc) *LichessClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewLichessClient("secret").WithHost(ts.URL)
}

func shortCooloff(t *testing.T) {
	old := rateLimitCooloff
	rateLimitCooloff = time.Millisecond
	t.Cleanup(func() { rateLimitCooloff = old })
}

func TestGetAccount(t *testing.T) {
	lc := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/account" || r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"id":"lazysmp","username":"LazySMP","title":"BOT"}`)
	})

	account, err := lc.GetAccount(context.Background())
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if account.Username != "LazySMP" || !account.IsBot() {
		t.Errorf("got %+v", account)
	}
}

func TestRateLimitRetries(t *testing.T) {
	shortCooloff(t)
	var calls atomic.Int32
	lc := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	})

	if err := lc.PostMove(context.Background(), "abcd1234", "e2e4"); err != nil {
		t.Errorf("PostMove: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("%d calls, want 3", calls.Load())
	}
}

func TestRateLimitGivesUp(t *testing.T) {
	shortCooloff(t)
	lc := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	if err := lc.AcceptChallenge(context.Background(), "xyz"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("got %v, want ErrRateLimited", err)
	}
}

func TestErrorBody(t *testing.T) {
	lc := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"Not your turn, or game already over"}`)
	})

	err := lc.PostMove(context.Background(), "abcd1234", "e2e4")
	if err == nil || !strings.Contains(err.Error(), "Not your turn") {
		t.Errorf("got %v", err)
	}
}

func TestChallengeEndpoints(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	var reason string
	lc := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "post only", http.StatusMethodNotAllowed)
			return
		}
		r.ParseForm()
		mu.Lock()
		defer mu.Unlock()
		paths = append(paths, r.URL.Path)
		if r.Form.Get("reason") != "" {
			reason = r.Form.Get("reason")
		}
		fmt.Fprint(w, `{"ok":true}`)
	})

	ctx := context.Background()
	if err := lc.AcceptChallenge(ctx, "c1"); err != nil {
		t.Errorf("AcceptChallenge: %v", err)
	}
	if err := lc.DeclineChallenge(ctx, "c2", "variant"); err != nil {
		t.Errorf("DeclineChallenge: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 2 || paths[0] != "/api/challenge/c1/accept" || paths[1] != "/api/challenge/c2/decline" {
		t.Errorf("paths %v", paths)
	}
	if reason != "variant" {
		t.Errorf("decline reason %q", reason)
	}
}

func TestStreamEvents(t *testing.T) {
	lc := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"type":"challenge","challenge":{"id":"c1","variant":{"key":"standard"},"challenger":{"name":"bob"}}}`)
		fmt.Fprintln(w)
		fmt.Fprintln(w, `{"type":"gameStart","game":{"id":"g1"}}`)
		fmt.Fprintln(w, `{"type":"somethingNew"}`)
		fmt.Fprintln(w, `{"type":"gameFinish","game":{"id":"g1"}}`)
	})

	events, err := lc.StreamEvents(context.Background())
	if err != nil {
		t.Fatalf("StreamEvents: %v", err)
	}
	var got []EventMessage
	for msg := range events {
		got = append(got, msg)
	}

	if len(got) != 4 {
		t.Fatalf("got %d events: %+v", len(got), got)
	}
	challenge, ok := got[0].Data.(ChallengeEvent)
	if got[0].Type != ChallengeEventType || !ok || challenge.Challenge.ID != "c1" ||
		challenge.Challenge.Variant.Key != "standard" || challenge.Challenge.Challenger.Name != "bob" {
		t.Errorf("challenge event %+v", got[0])
	}
	if start, ok := got[1].Data.(GameStartEvent); got[1].Type != GameStartEventType || !ok || start.Game.ID != "g1" {
		t.Errorf("game start event %+v", got[1])
	}
	if got[2].Type != UnknownEventType {
		t.Errorf("unknown event %+v", got[2])
	}
	if got[3].Type != GameFinishEventType {
		t.Errorf("game finish event %+v", got[3])
	}
}

func TestStreamGameState(t *testing.T) {
	lc := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/bot/game/stream/g1" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintln(w, `{"type":"gameFull","id":"g1","white":{"name":"LazySMP"},"black":{"name":"bob"},"initialFen":"startpos","state":{"type":"gameState","moves":"e2e4","wtime":60000,"btime":60000}}`)
		fmt.Fprintln(w, `{"type":"gameState","moves":"e2e4 e7e5","wtime":59000,"btime":58000,"winc":1000,"status":"started"}`)
		fmt.Fprintln(w, `{"type":"chatLine","username":"bob","text":"hi","room":"player"}`)
	})

	states, err := lc.StreamGameState(context.Background(), "g1")
	if err != nil {
		t.Fatalf("StreamGameState: %v", err)
	}
	var got []GameStateMessage
	for msg := range states {
		got = append(got, msg)
	}

	if len(got) != 3 {
		t.Fatalf("got %d messages: %+v", len(got), got)
	}
	full, ok := got[0].Data.(GameFullGameState)
	if !ok || full.White.Name != "LazySMP" || full.State.Moves != "e2e4" || full.InitialFen != "startpos" {
		t.Errorf("game full %+v", got[0])
	}
	state, ok := got[1].Data.(GameStateGameState)
	if !ok || state.Moves != "e2e4 e7e5" || state.WTime != 59000 || state.WInc != 1000 {
		t.Errorf("game state %+v", got[1])
	}
	if chat, ok := got[2].Data.(ChatLineGameState); !ok || chat.Text != "hi" {
		t.Errorf("chat %+v", got[2])
	}
}

func TestStreamStopsOnCancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	lc := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"type":"gameStart","game":{"id":"g1"}}`)
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	events, err := lc.StreamEvents(ctx)
	if err != nil {
		t.Fatalf("StreamEvents: %v", err)
	}
	<-events
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Errorf("got an event after cancel")
		}
	case <-time.After(5 * time.Second):
		t.Errorf("stream not closed after cancel")
	}
}
