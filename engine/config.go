package engine

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

var (
	ErrUnknownOrchestrator = errors.New("engine: unknown orchestrator")
	ErrInvalidConfig       = errors.New("engine: invalid config")
)

// Orchestrator selects how a search is spread across workers.
type OrchestratorT int

const (
	Sequential OrchestratorT = iota
	RootSplit
	TwoPlySplit
	LazySMP
)

var orchestratorNames = map[OrchestratorT]string{
	Sequential:  "sequential",
	RootSplit:   "root-split",
	TwoPlySplit: "two-ply-split",
	LazySMP:     "lazy-smp",
}

// Older front ends used these names.
var orchestratorAliases = map[string]OrchestratorT{
	"alpha_beta":                  Sequential,
	"parallel_alpha_beta_layer_1": RootSplit,
	"parallel_alpha_beta_layer_2": TwoPlySplit,
	"lazy_smp":                    LazySMP,
}

func (o OrchestratorT) String() string {
	if name, ok := orchestratorNames[o]; ok {
		return name
	}
	return fmt.Sprintf("orchestrator(%d)", int(o))
}

func ParseOrchestrator(name string) (OrchestratorT, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for o, n := range orchestratorNames {
		if n == name {
			return o, nil
		}
	}
	if o, ok := orchestratorAliases[name]; ok {
		return o, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOrchestrator, name)
}

const (
	DefaultMateScore     EvalCp = 100_000_000
	DefaultMateThreshold EvalCp = 9_990_000
	DefaultThinkTime            = 6 * time.Second
	DefaultMaxDepth             = 64
	DefaultCacheShards          = 256
)

// Config is passed by value into every entry point. Nothing in the engine
// reads settings from anywhere else.
type Config struct {
	Depth           int
	NullMove        bool
	NullMoveR       int
	QuiescenceDepth int
	MateScore       EvalCp
	MateThreshold   EvalCp
	Orchestrator    OrchestratorT

	Workers      int  // 0 means one per CPU
	ShuffleMoves bool // off for reproducible searches
	UseCache     bool
	CacheShards  int

	// Iterative deepening only
	ThinkTime time.Duration
	MaxDepth  int
}

func DefaultConfig() Config {
	return Config{
		Depth:           4,
		NullMove:        false,
		NullMoveR:       2,
		QuiescenceDepth: 3,
		MateScore:       DefaultMateScore,
		MateThreshold:   DefaultMateThreshold,
		Orchestrator:    LazySMP,
		ShuffleMoves:    true,
		UseCache:        true,
		CacheShards:     DefaultCacheShards,
		ThinkTime:       DefaultThinkTime,
		MaxDepth:        DefaultMaxDepth,
	}
}

// Validate reports configuration errors before any search work starts.
func (c Config) Validate() error {
	if _, ok := orchestratorNames[c.Orchestrator]; !ok {
		return fmt.Errorf("%w: %v", ErrUnknownOrchestrator, c.Orchestrator)
	}
	switch {
	case c.Depth < 1:
		return fmt.Errorf("%w: depth %d < 1", ErrInvalidConfig, c.Depth)
	case c.NullMoveR < 0:
		return fmt.Errorf("%w: null move reduction %d < 0", ErrInvalidConfig, c.NullMoveR)
	case c.QuiescenceDepth < 0:
		return fmt.Errorf("%w: quiescence depth %d < 0", ErrInvalidConfig, c.QuiescenceDepth)
	case c.MateThreshold <= 0 || c.MateScore <= c.MateThreshold:
		return fmt.Errorf("%w: mate score %d must exceed mate threshold %d > 0", ErrInvalidConfig, c.MateScore, c.MateThreshold)
	case c.MateScore >= Infinity:
		return fmt.Errorf("%w: mate score %d out of range", ErrInvalidConfig, c.MateScore)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers %d < 0", ErrInvalidConfig, c.Workers)
	case c.Orchestrator == LazySMP && !c.UseCache:
		// The lazy racers only meet in the cache.
		return fmt.Errorf("%w: lazy-smp needs the cache", ErrInvalidConfig)
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

func (c Config) maxDepth() int {
	if c.MaxDepth > 0 {
		return c.MaxDepth
	}
	return DefaultMaxDepth
}

func (c Config) thinkTime() time.Duration {
	if c.ThinkTime > 0 {
		return c.ThinkTime
	}
	return DefaultThinkTime
}

// decayMate pulls a mate score one unit towards zero so that a mate found
// one ply further away always scores lower.
func (c Config) decayMate(eval EvalCp) EvalCp {
	if eval > c.MateThreshold {
		return eval - 1
	}
	if eval < -c.MateThreshold {
		return eval + 1
	}
	return eval
}

// MateIn converts a root eval to a signed number of moves to mate, positive
// when the side to move is mating.
func (c Config) MateIn(eval EvalCp) (int, bool) {
	if eval <= c.MateThreshold && eval >= -c.MateThreshold {
		return 0, false
	}
	if eval > 0 {
		return int(c.MateScore-eval+1) / 2, true
	}
	return -int(c.MateScore+eval+1) / 2, true
}
