package main

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/clanpj/lazysmp/lichess"
)

func ListenForEventsForever(ctx context.Context, state *State, waitGroup *sync.WaitGroup) {
	defer waitGroup.Done()

	eventsChannel, err := state.client.StreamEvents(ctx)
	if err != nil {
		log.Error().Err(err).Msg("bot: error getting events stream")
		return
	}

	for msg := range eventsChannel {
		switch msg.Type {
		case lichess.ChallengeEventType:
			challenge := msg.Data.(lichess.ChallengeEvent)
			state.PushChallenge(Challenge{
				ID:         challenge.Challenge.ID,
				Challenger: challenge.Challenge.Challenger,
				Variant:    challenge.Challenge.Variant,
			})

		case lichess.GameStartEventType:
			gameStart := msg.Data.(lichess.GameStartEvent)
			state.PushGame(&Game{
				ID: gameStart.Game.ID,
			})

		case lichess.GameFinishEventType:
			// the game stream tells us too

		default:
			log.Debug().Interface("event", msg.Data).Msg("bot: ignoring unknown event")
		}
	}
	log.Info().Msg("bot: event stream closed")
}
