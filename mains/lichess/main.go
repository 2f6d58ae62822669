package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clanpj/lazysmp/book"
	"github.com/clanpj/lazysmp/engine"
	"github.com/clanpj/lazysmp/lichess"
)

var apiKey = flag.String("api-key", os.Getenv("LICHESS_API_KEY"), "The Lichess API key to use for this bot's requests.")
var bookPath = flag.String("book", os.Getenv("LAZYSMP_BOOK"), "opening book json file")
var bookBest = flag.Bool("book-best", false, "always play the heaviest book move instead of a weighted random one")
var algorithm = flag.String("algorithm", "lazy-smp", "search orchestrator")
var think = flag.Duration("think", engine.DefaultThinkTime, "think time for untimed games")

func main() {
	flag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if *apiKey == "" {
		fmt.Println("Lichess-Bot requires a Lichess API key in order to run.")
		flag.PrintDefaults()

		return
	}

	cfg := engine.DefaultConfig()
	cfg.ThinkTime = *think
	var err error
	if cfg.Orchestrator, err = engine.ParseOrchestrator(*algorithm); err != nil {
		log.Fatal().Err(err).Msg("bot: bad -algorithm")
	}

	b, err := openBook(*bookPath, *bookBest)
	if err != nil {
		log.Fatal().Err(err).Msg("bot: could not load the opening book")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := lichess.NewLichessClient(*apiKey)
	account, err := client.GetAccount(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("bot: could not fetch the bot account")
	}
	if !account.IsBot() {
		log.Warn().Str("user", account.Username).Msg("bot: account is not a BOT account, the bot api will refuse to play")
	}
	log.Info().Str("user", account.Username).Str("algorithm", cfg.Orchestrator.String()).Msg("bot: starting")

	state := NewState(client, strings.ToLower(account.ID), cfg, b)

	var waitGroup sync.WaitGroup
	waitGroup.Add(3)

	go ListenForEventsForever(ctx, state, &waitGroup)
	go AcceptChallengesForever(ctx, state, &waitGroup)
	go PlayGamesForever(ctx, state, &waitGroup)

	waitGroup.Wait()
}

// openBook loads the book at path, or returns nil for an empty path. Unless
// best is set, book moves are picked at random in proportion to their weight.
func openBook(path string, best bool) (*book.Book, error) {
	if path == "" {
		return nil, nil
	}
	b, err := book.Load(path)
	if err != nil {
		return nil, err
	}
	b.Random = !best
	return b, nil
}
