package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clanpj/lazysmp/engine"
	"github.com/clanpj/lazysmp/lichess"
	"github.com/clanpj/lazysmp/position"
)

type Game struct {
	ID         string
	InitialFen string
	WeAreWhite bool

	Moves []string // List of moves in UCI format.

	// Clocks in ms, zero for untimed games
	WTime, WInc int64
	BTime, BInc int64
	Status      string

	isPlaying bool
	mutex     sync.Mutex
}

func (state *State) PushGame(game *Game) {
	state.stateMu.Lock()
	defer state.stateMu.Unlock()

	state.activeGames = append(state.activeGames, game)
}

func (state *State) RemoveGame(gameID string) {
	state.stateMu.Lock()
	defer state.stateMu.Unlock()

	var games []*Game
	for _, game := range state.activeGames {
		if game.ID != gameID {
			games = append(games, game)
		}
	}

	state.activeGames = games
}

func (state *State) games() []*Game {
	state.stateMu.Lock()
	defer state.stateMu.Unlock()

	return append([]*Game(nil), state.activeGames...)
}

func lockGame(game *Game) bool {
	game.mutex.Lock()
	defer game.mutex.Unlock()

	acquiredLock := false
	if !game.isPlaying {
		acquiredLock = true
		game.isPlaying = true
	}

	return acquiredLock
}

func unlockGame(game *Game) {
	game.mutex.Lock()
	defer game.mutex.Unlock()

	game.isPlaying = false
}

func PlayGamesForever(ctx context.Context, state *State, waitGroup *sync.WaitGroup) {
	defer waitGroup.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		for _, game := range state.games() {
			go playGame(ctx, state, game)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func playGame(ctx context.Context, state *State, game *Game) {
	ok := lockGame(game)
	if !ok {
		return
	}
	defer unlockGame(game)

	logger := log.With().Str("game", game.ID).Logger()

	gameStateCh, err := state.client.StreamGameState(ctx, game.ID)
	if err != nil {
		logger.Error().Err(err).Msg("bot: error getting update stream")
		return
	}

	// Listen to game updates as long as we can.
	for msg := range gameStateCh {
		if err := handleMessage(ctx, state, game, msg); err != nil {
			logger.Error().Err(err).Msg("bot: error handling update message")
			return
		}

		isOver, err := gameIsOver(game)
		if err != nil {
			logger.Error().Err(err).Msg("bot: error determining if the game is over")
			return
		}
		if isOver {
			logger.Info().Str("status", game.Status).Msg("bot: game has finished")
			state.RemoveGame(game.ID)
			return
		}
	}
}

func handleMessage(ctx context.Context, state *State, game *Game, msg lichess.GameStateMessage) error {
	var anyErr error
	switch msg.Type {
	case lichess.GameFullGameStateType:
		anyErr = handleInitialGameState(state, game, msg.Data.(lichess.GameFullGameState))

	case lichess.GameStateGameStateType:
		handleGameUpdate(game, msg.Data.(lichess.GameStateGameState))

	case lichess.ChatLineGameStateType:
		chat := msg.Data.(lichess.ChatLineGameState)
		log.Info().Str("game", game.ID).Str("from", chat.Username).Str("text", chat.Text).Msg("bot: chat")
		return nil

	default:
		log.Debug().Str("game", game.ID).Interface("update", msg.Data).Msg("bot: ignoring unknown game update")
		return nil
	}

	if anyErr != nil {
		return anyErr
	}

	// If the game is not finished and it's our turn, we should move.
	isOver, err := gameIsOver(game)
	if err != nil {
		return err
	}

	ourTurn, err := isOurTurn(game)
	if err != nil {
		return err
	}

	if ourTurn && !isOver {
		return makeMove(ctx, state, game)
	}

	return nil
}

func handleInitialGameState(state *State, game *Game, initialState lichess.GameFullGameState) error {
	game.InitialFen = initialState.InitialFen
	if game.InitialFen == "" || game.InitialFen == "startpos" {
		game.InitialFen = position.StartFEN
	}

	switch state.botID {
	case strings.ToLower(initialState.White.ID):
		game.WeAreWhite = true
	case strings.ToLower(initialState.Black.ID):
		game.WeAreWhite = false
	default:
		return fmt.Errorf("bot: expected one of the players in game %s to be %s", game.ID, state.botID)
	}

	handleGameUpdate(game, initialState.State)
	return nil
}

func handleGameUpdate(game *Game, update lichess.GameStateGameState) {
	game.Moves = strings.Fields(update.Moves)
	game.WTime, game.WInc = update.WTime, update.WInc
	game.BTime, game.BInc = update.BTime, update.BInc
	game.Status = update.Status
}

func getPosition(game *Game) (position.Position, error) {
	pos, err := position.FromFEN(game.InitialFen)
	if err != nil {
		return pos, err
	}
	for _, moveStr := range game.Moves {
		move, err := pos.ParseMove(moveStr)
		if err != nil {
			return pos, err
		}
		pos = pos.Play(move)
	}

	return pos, nil
}

func isOurTurn(game *Game) (bool, error) {
	pos, err := getPosition(game)
	if err != nil {
		return false, err
	}
	return pos.WhiteToMove() == game.WeAreWhite, nil
}

func gameIsOver(game *Game) (bool, error) {
	if game.Status != "" && game.Status != "created" && game.Status != "started" {
		return true, nil
	}

	pos, err := getPosition(game)
	if err != nil {
		return false, err
	}

	return len(pos.LegalMoves()) == 0, nil
}

// Simple strategy - use 1/16th of the remaining time, or the increment when
// we are nearly out. Untimed games get the default think time.
func thinkTime(game *Game, fallback time.Duration) time.Duration {
	ourtime, ourinc := game.BTime, game.BInc
	if game.WeAreWhite {
		ourtime, ourinc = game.WTime, game.WInc
	}
	if ourtime <= 0 && ourinc <= 0 {
		return fallback
	}

	result := ourtime / 16
	if result <= 0 {
		result = ourinc
	}
	return time.Duration(result) * time.Millisecond
}

func chooseMove(ctx context.Context, state *State, game *Game) (position.Move, error) {
	pos, err := getPosition(game)
	if err != nil {
		return position.NoMove, err
	}

	if state.book != nil {
		if move, err := state.book.Lookup(pos); err == nil {
			log.Info().Str("game", game.ID).Stringer("move", move).Msg("bot: book move")
			return move, nil
		}
	}

	cfg := state.cfg
	cfg.ThinkTime = thinkTime(game, cfg.ThinkTime)

	res, err := engine.IterativeDeepening(ctx, pos, cfg, nil)
	if err != nil {
		return position.NoMove, err
	}
	return res.Move, nil
}

func makeMove(ctx context.Context, state *State, game *Game) error {
	move, err := chooseMove(ctx, state, game)
	if err != nil {
		return err
	}

	return state.client.PostMove(ctx, game.ID, move.String())
}
