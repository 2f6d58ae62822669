package lichess

import (
	"context"
	"encoding/json"
	"net/url"
)

type GameStateType int

const (
	UnknownGameStateType   GameStateType = 0
	GameFullGameStateType  GameStateType = 1
	GameStateGameStateType GameStateType = 2
	ChatLineGameStateType  GameStateType = 3
)

type GameFullGameState struct {
	ID    string
	Type  string
	Rated bool

	White   User
	Black   User
	Variant Variant
	Clock   Clock

	InitialFen string
	State      GameStateGameState
}

type GameStateGameState struct {
	Type   string
	Moves  string
	Status string

	WTime int64 // ms
	WInc  int64

	BTime int64 // ms
	BInc  int64
}

type ChatLineGameState struct {
	Type     string
	Username string
	Text     string
	Room     string
}

type GameStateMessage struct {
	Type GameStateType
	Data interface{}
}

func (msg *GameStateMessage) UnmarshalJSON(bytes []byte) error {
	var typed typedMessageT
	if err := json.Unmarshal(bytes, &typed); err != nil {
		return err
	}

	var err error
	switch typed.Type {
	case "gameFull":
		var gameFull GameFullGameState
		err = json.Unmarshal(bytes, &gameFull)
		msg.Type, msg.Data = GameFullGameStateType, gameFull

	case "gameState":
		var gameState GameStateGameState
		err = json.Unmarshal(bytes, &gameState)
		msg.Type, msg.Data = GameStateGameStateType, gameState

	case "chatLine":
		var chatLine ChatLineGameState
		err = json.Unmarshal(bytes, &chatLine)
		msg.Type, msg.Data = ChatLineGameStateType, chatLine

	default:
		msg.Type, msg.Data = UnknownGameStateType, typed.Type
	}

	return err
}

func (lc *LichessClient) StreamGameState(ctx context.Context, id string) (<-chan GameStateMessage, error) {
	req, err := lc.newRequest(ctx, "GET", "/api/bot/game/stream/"+id, nil)
	if err != nil {
		return nil, err
	}

	res, err := lc.doRequest(req)
	if err != nil {
		return nil, err
	}

	gameStateChannel := make(chan GameStateMessage)
	go func() {
		defer res.Body.Close()
		defer close(gameStateChannel)
		streamNDJSON(ctx, res.Body, gameStateChannel, "StreamGameState")
	}()

	return gameStateChannel, nil
}

func (lc *LichessClient) PostMove(ctx context.Context, id, moveUCI string) error {
	req, err := lc.newRequest(ctx, "POST", "/api/bot/game/"+id+"/move/"+moveUCI, nil)
	if err != nil {
		return err
	}
	return lc.doRequestNoBody(req)
}

func (lc *LichessClient) AcceptChallenge(ctx context.Context, id string) error {
	req, err := lc.newRequest(ctx, "POST", "/api/challenge/"+id+"/accept", nil)
	if err != nil {
		return err
	}
	return lc.doRequestNoBody(req)
}

// DeclineChallenge takes one of the lichess decline reasons, e.g. "variant".
func (lc *LichessClient) DeclineChallenge(ctx context.Context, id, reason string) error {
	req, err := lc.newRequest(ctx, "POST", "/api/challenge/"+id+"/decline", url.Values{"reason": {reason}})
	if err != nil {
		return err
	}
	return lc.doRequestNoBody(req)
}
