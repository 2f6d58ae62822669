package main

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clanpj/lazysmp/lichess"
)

var maxChallengeRetries = 3

type Challenge struct {
	ID         string
	Challenger lichess.User
	Variant    lichess.Variant

	Retries int
}

func (state *State) PushChallenge(challenge Challenge) {
	state.stateMu.Lock()
	defer state.stateMu.Unlock()

	state.challenges = append(state.challenges, challenge)
}

func (state *State) PopChallenge() *Challenge {
	state.stateMu.Lock()
	defer state.stateMu.Unlock()

	if len(state.challenges) == 0 {
		return nil
	}

	challenge := state.challenges[0]
	state.challenges = state.challenges[1:]
	return &challenge
}

// AcceptChallengesForever accepts standard chess challenges and declines the
// rest until ctx is done.
func AcceptChallengesForever(ctx context.Context, state *State, waitGroup *sync.WaitGroup) {
	defer waitGroup.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		challenge := state.PopChallenge()
		if challenge == nil {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			continue
		}

		logger := log.With().Str("challenge", challenge.ID).Str("challenger", challenge.Challenger.Name).Logger()

		if challenge.Variant.Key != "standard" {
			logger.Info().Str("variant", challenge.Variant.Key).Msg("bot: declining challenge")
			if err := state.client.DeclineChallenge(ctx, challenge.ID, "variant"); err != nil {
				logger.Warn().Err(err).Msg("bot: error declining challenge")
			}
			continue
		}

		if challenge.Retries >= maxChallengeRetries {
			logger.Warn().Int("retries", challenge.Retries).Msg("bot: giving up on challenge")
			continue
		}

		if err := state.client.AcceptChallenge(ctx, challenge.ID); err != nil {
			logger.Warn().Err(err).Msg("bot: error accepting challenge")

			challenge.Retries += 1
			state.PushChallenge(*challenge)
			continue
		}
		logger.Info().Msg("bot: accepted challenge")
	}
}
