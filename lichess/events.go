package lichess

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog/log"
)

type EventType int

const (
	UnknownEventType    EventType = 0
	ChallengeEventType  EventType = 1
	GameStartEventType  EventType = 2
	GameFinishEventType EventType = 3
)

type ChallengeEvent struct {
	Type string

	Challenge struct {
		ID     string
		Status string
		Rated  bool

		Challenger User
		DestUser   User

		Variant Variant

		TimeControl struct {
			Type      string
			Limit     int64
			Increment int64
		}
	}
}

type GameStartEvent struct {
	Type string

	Game struct {
		ID string
	}
}

type EventMessage struct {
	Type EventType
	Data interface{}
}

type typedMessageT struct {
	Type string `json:"type"`
}

func (msg *EventMessage) UnmarshalJSON(bytes []byte) error {
	var typed typedMessageT
	if err := json.Unmarshal(bytes, &typed); err != nil {
		return err
	}

	switch typed.Type {
	case "challenge":
		var challenge ChallengeEvent
		if err := json.Unmarshal(bytes, &challenge); err != nil {
			return err
		}
		msg.Type = ChallengeEventType
		msg.Data = challenge

	case "gameStart", "gameFinish":
		var game GameStartEvent
		if err := json.Unmarshal(bytes, &game); err != nil {
			return err
		}
		msg.Type = GameStartEventType
		if typed.Type == "gameFinish" {
			msg.Type = GameFinishEventType
		}
		msg.Data = game

	default:
		msg.Type = UnknownEventType
		msg.Data = typed.Type
	}

	return nil
}

// StreamEvents follows the account's event stream until ctx is done or the
// server hangs up, then closes the channel.
func (lc *LichessClient) StreamEvents(ctx context.Context) (<-chan EventMessage, error) {
	req, err := lc.newRequest(ctx, "GET", "/api/stream/event", nil)
	if err != nil {
		return nil, err
	}

	res, err := lc.doRequest(req)
	if err != nil {
		return nil, err
	}

	eventChannel := make(chan EventMessage)
	go func() {
		defer res.Body.Close()
		defer close(eventChannel)
		streamNDJSON(ctx, res.Body, eventChannel, "StreamEvents")
	}()

	return eventChannel, nil
}

// streamNDJSON decodes one message per line into out. Lichess sends blank
// keep-alive lines, which the decoder skips.
func streamNDJSON[T any](ctx context.Context, body io.Reader, out chan<- T, what string) {
	decoder := json.NewDecoder(body)
	for {
		var msg T
		if err := decoder.Decode(&msg); err != nil {
			if err != io.EOF && ctx.Err() == nil {
				log.Warn().Err(err).Str("stream", what).Msg("api: stream ended")
			}
			return
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}
