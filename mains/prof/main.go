package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/pkg/profile"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clanpj/lazysmp/engine"
	"github.com/clanpj/lazysmp/position"
)

var VersionString = "0.1 lazysmp prof " + runtime.GOOS + "-" + runtime.GOARCH

var fen = flag.String("fen", position.StartFEN, "position to search")
var depth = flag.Int("depth", 6, "search depth in plies")
var algorithm = flag.String("algorithm", "lazy-smp", "search orchestrator")
var threads = flag.Int("threads", 0, "search workers, 0 means one per CPU")
var mem = flag.Bool("mem", false, "memory profile instead of cpu")

func main() {
	flag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)

	if *mem {
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	} else {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	pos, err := position.FromFEN(*fen)
	if err != nil {
		log.Fatal().Err(err).Msg("prof: bad -fen")
	}

	cfg := engine.DefaultConfig()
	cfg.Depth = *depth
	cfg.Workers = *threads
	if cfg.Orchestrator, err = engine.ParseOrchestrator(*algorithm); err != nil {
		log.Fatal().Err(err).Msg("prof: bad -algorithm")
	}

	fmt.Println(VersionString)
	fmt.Println("Starting...")
	res, err := engine.Search(context.Background(), pos, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("prof: search failed")
	}
	printStats(res)
}

func perC(n uint64, N uint64) string {
	if N == 0 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%d [%.2f%%]", n, float64(n)/float64(N)*100)
}

func printStats(res engine.Result) {
	stats := res.Stats
	secs := res.Elapsed.Seconds()
	all := stats.Nodes + stats.QNodes

	fmt.Println("info string q-nodes:", perC(stats.QNodes, all), "q-pat-cuts:", perC(stats.QPatCuts, stats.QNodes))
	fmt.Println("info string nodes:", stats.Nodes, "cuts:", perC(stats.CutNodes, stats.Nodes), "null-cuts:", perC(stats.NullMoveCuts, stats.Nodes),
		"cache-hits:", perC(stats.CacheHits, stats.Nodes), "mates:", stats.Mates, "stalemates:", stats.Stalemates, "fallbacks:", stats.Fallbacks)

	nps := uint64(0)
	if secs > 0 {
		nps = uint64(float64(all) / secs)
	}
	fmt.Println("info depth", res.Depth, "score cp", res.Eval, "nodes", all, "time", res.Elapsed.Milliseconds(), "nps", nps, "pv", res.Move)
	fmt.Println("bestmove", res.Move)
}
