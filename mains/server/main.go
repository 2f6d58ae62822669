package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clanpj/lazysmp/book"
	"github.com/clanpj/lazysmp/engine"
	"github.com/clanpj/lazysmp/server"
)

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// configFromEnv starts from the engine defaults and applies LAZYSMP_* overrides.
func configFromEnv() (engine.Config, error) {
	cfg := engine.DefaultConfig()

	var err error
	if v := getenv("LAZYSMP_DEPTH", ""); v != "" {
		if cfg.Depth, err = strconv.Atoi(v); err != nil {
			return cfg, err
		}
	}
	if v := getenv("LAZYSMP_THREADS", ""); v != "" {
		if cfg.Workers, err = strconv.Atoi(v); err != nil {
			return cfg, err
		}
	}
	if cfg.Orchestrator, err = engine.ParseOrchestrator(getenv("LAZYSMP_ALGORITHM", "lazy-smp")); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
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

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg, err := configFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("server: bad configuration")
	}

	b, err := openBook(getenv("LAZYSMP_BOOK", ""), getenv("LAZYSMP_BOOK_BEST", "") != "")
	if err != nil {
		log.Fatal().Err(err).Msg("server: could not load the opening book")
	}

	addr := getenv("LAZYSMP_ADDR", ":8080")
	srv := &http.Server{
		Addr:    addr,
		Handler: server.New(cfg, b).Handler(),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	log.Info().Str("addr", addr).Str("algorithm", cfg.Orchestrator.String()).Int("depth", cfg.Depth).Msg("server: listening")
	select {
	case <-sigCtx.Done():
		log.Info().Msg("server: shutdown signal received")
	case err, ok := <-serverErrCh:
		if ok {
			log.Error().Err(err).Msg("server: listen failed")
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn().Err(err).Msg("server: graceful shutdown failed")
		if closeErr := srv.Close(); closeErr != nil && !errors.Is(closeErr, http.ErrServerClosed) {
			log.Error().Err(closeErr).Msg("server: forced close failed")
		}
	}
}
