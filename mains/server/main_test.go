package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/clanpj/lazysmp/book"
	"github.com/clanpj/lazysmp/engine"
	"github.com/clanpj/lazysmp/position"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LAZYSMP_DEPTH", "3")
	t.Setenv("LAZYSMP_THREADS", "2")
	t.Setenv("LAZYSMP_ALGORITHM", "parallel_alpha_beta_layer_2")

	cfg, err := configFromEnv()
	if err != nil {
		t.Fatalf("configFromEnv: %v", err)
	}
	if cfg.Depth != 3 || cfg.Workers != 2 || cfg.Orchestrator != engine.TwoPlySplit {
		t.Errorf("got %+v", cfg)
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("LAZYSMP_DEPTH", "")
	t.Setenv("LAZYSMP_THREADS", "")
	t.Setenv("LAZYSMP_ALGORITHM", "")

	cfg, err := configFromEnv()
	if err != nil {
		t.Fatalf("configFromEnv: %v", err)
	}
	if cfg.Depth != engine.DefaultConfig().Depth || cfg.Orchestrator != engine.LazySMP {
		t.Errorf("got %+v", cfg)
	}
}

func TestConfigFromEnvErrors(t *testing.T) {
	t.Setenv("LAZYSMP_DEPTH", "deep")
	if _, err := configFromEnv(); err == nil {
		t.Errorf("expected an error for a non numeric depth")
	}

	t.Setenv("LAZYSMP_DEPTH", "0")
	if _, err := configFromEnv(); !errors.Is(err, engine.ErrInvalidConfig) {
		t.Errorf("got %v, want ErrInvalidConfig", err)
	}

	t.Setenv("LAZYSMP_DEPTH", "")
	t.Setenv("LAZYSMP_ALGORITHM", "alphazero")
	if _, err := configFromEnv(); !errors.Is(err, engine.ErrUnknownOrchestrator) {
		t.Errorf("got %v, want ErrUnknownOrchestrator", err)
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
