package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clanpj/lazysmp/book"
	"github.com/clanpj/lazysmp/engine"
	"github.com/clanpj/lazysmp/position"
)

var VersionString = "0.1 " + runtime.GOOS + "-" + runtime.GOARCH

// uciT is the state of one UCI session. Searches run synchronously so "stop"
// has nothing to interrupt.
type uciT struct {
	out     io.Writer
	pos     position.Position
	cfg     engine.Config
	book    *book.Book // nil without a book file
	ownBook bool
}

func newUCI(out io.Writer, cfg engine.Config, b *book.Book) *uciT {
	return &uciT{out: out, pos: position.Start(), cfg: cfg, book: b, ownBook: b != nil}
}

func (u *uciT) println(a ...any) {
	fmt.Fprintln(u.out, a...)
}

func (u *uciT) loop(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if !u.handle(scanner.Text()) {
			return
		}
	}
}

// handle runs one command line and returns false on "quit".
func (u *uciT) handle(line string) bool {
	tokens := strings.Fields(line)
	if len(tokens) == 0 { // ignore blank lines
		return true
	}
	switch strings.ToLower(tokens[0]) {
	case "uci":
		u.println("id name LazySMP", VersionString)
		u.println("id author Clan PJ")
		u.println("option name Algorithm type combo default", u.cfg.Orchestrator, "var sequential var root-split var two-ply-split var lazy-smp")
		u.println("option name Depth type spin default", u.cfg.Depth, "min 1 max", engine.DefaultMaxDepth)
		u.println("option name QuiescenceDepth type spin default", u.cfg.QuiescenceDepth, "min 0 max 32")
		u.println("option name NullMove type check default", u.cfg.NullMove)
		u.println("option name NullMoveR type spin default", u.cfg.NullMoveR, "min 0 max 8")
		u.println("option name Threads type spin default", u.cfg.Workers, "min 0 max 256")
		u.println("option name OwnBook type check default", u.ownBook)
		u.println("uciok")
	case "isready":
		u.println("readyok")
	case "ucinewgame":
		u.pos = position.Start()
	case "quit":
		return false
	case "stop":
		// searches are synchronous
	case "setoption":
		u.setOption(tokens)
	case "position":
		if err := u.setPosition(tokens[1:]); err != nil {
			u.println("info string", err)
		}
	case "go":
		params, err := parseGo(tokens[1:])
		if err != nil {
			u.println("info string", err)
			return true
		}
		u.search(params)
	default:
		u.println("info string Unknown command:", line)
	}
	return true
}

func (u *uciT) setOption(tokens []string) {
	if len(tokens) != 5 || tokens[1] != "name" || tokens[3] != "value" {
		u.println("info string Malformed setoption command")
		return
	}
	name, value := strings.ToLower(tokens[2]), tokens[4]

	ints := map[string]*int{
		"depth":           &u.cfg.Depth,
		"quiescencedepth": &u.cfg.QuiescenceDepth,
		"nullmover":       &u.cfg.NullMoveR,
		"threads":         &u.cfg.Workers,
	}
	bools := map[string]*bool{
		"nullmove": &u.cfg.NullMove,
		"ownbook":  &u.ownBook,
	}

	if dst, ok := ints[name]; ok {
		res, err := strconv.Atoi(value)
		if err != nil {
			u.println("info string", tokens[2], "value is not an int (", err, ")")
			return
		}
		*dst = res
	} else if dst, ok := bools[name]; ok {
		res, err := strconv.ParseBool(value)
		if err != nil {
			u.println("info string", tokens[2], "value is not a bool (", err, ")")
			return
		}
		*dst = res
	} else if name == "algorithm" {
		o, err := engine.ParseOrchestrator(value)
		if err != nil {
			u.println("info string Unrecognised Algorithm:", value)
			return
		}
		u.cfg.Orchestrator = o
	} else {
		u.println("info string Unknown UCI option", tokens[2])
		return
	}
	u.println("info string", tokens[2], "changed to", value)
}

// setPosition handles "startpos [moves ...]" and "fen <fen> [moves ...]".
func (u *uciT) setPosition(tokens []string) error {
	if len(tokens) == 0 {
		return errors.New("Malformed position command")
	}

	var pos position.Position
	rest := tokens[1:]
	switch strings.ToLower(tokens[0]) {
	case "startpos":
		pos = position.Start()
	case "fen":
		i := 0
		for i < len(rest) && strings.ToLower(rest[i]) != "moves" {
			i++
		}
		var err error
		if pos, err = position.FromFEN(strings.Join(rest[:i], " ")); err != nil {
			return err
		}
		rest = rest[i:]
	default:
		return errors.New("Invalid position subcommand")
	}

	if len(rest) > 0 && strings.ToLower(rest[0]) == "moves" {
		for _, uci := range rest[1:] {
			move, err := pos.ParseMove(uci)
			if err != nil {
				return err
			}
			pos = pos.Play(move)
		}
	}

	u.pos = pos
	return nil
}

type goParamsT struct {
	depth      int
	movetimeMs int
	wtime      int
	btime      int
	winc       int
	binc       int
	infinite   bool
}

func parseGo(tokens []string) (goParamsT, error) {
	var params goParamsT
	ints := map[string]*int{
		"depth":    &params.depth,
		"movetime": &params.movetimeMs,
		"wtime":    &params.wtime,
		"btime":    &params.btime,
		"winc":     &params.winc,
		"binc":     &params.binc,
	}
	for i := 0; i < len(tokens); i++ {
		token := strings.ToLower(tokens[i])
		if token == "infinite" {
			params.infinite = true
			continue
		}
		dst, ok := ints[token]
		if !ok {
			// movestogo, nodes and friends are ignored
			continue
		}
		if i+1 >= len(tokens) {
			return params, fmt.Errorf("Malformed go command option %s", token)
		}
		i++
		n, err := strconv.Atoi(tokens[i])
		if err != nil {
			return params, fmt.Errorf("Malformed go command option; could not convert %s", token)
		}
		*dst = n
	}
	return params, nil
}

// thinkTime is zero when the search should run to a fixed depth.
func (p goParamsT) thinkTime(whiteToMove bool) time.Duration {
	if p.depth > 0 || p.infinite {
		return 0
	}
	if p.movetimeMs > 0 {
		return time.Duration(p.movetimeMs) * time.Millisecond
	}
	ourtime, ourinc := p.btime, p.binc
	if whiteToMove {
		ourtime, ourinc = p.wtime, p.winc
	}
	if ourtime <= 0 {
		return 0
	}
	return time.Duration(uciCalculateAllowedTimeMs(ourtime, ourinc)) * time.Millisecond
}

// Simple strategy - use 1/16th of the remaining time
func uciCalculateAllowedTimeMs(ourtimeMs int, ourincMs int) int {
	result := ourtimeMs / 16
	if result <= 0 {
		return ourincMs
	}
	return result
}

func (u *uciT) search(params goParamsT) {
	if u.ownBook && u.book != nil {
		if move, err := u.book.Lookup(u.pos); err == nil {
			u.println("info string book move")
			u.println("bestmove", move)
			return
		}
	}

	cfg := u.cfg
	if params.depth > 0 {
		cfg.Depth = params.depth
	}

	var res engine.Result
	var err error
	if budget := params.thinkTime(u.pos.WhiteToMove()); budget > 0 {
		cfg.ThinkTime = budget
		res, err = engine.IterativeDeepening(context.Background(), u.pos, cfg, func(r engine.Result) {
			u.printInfo(cfg, r)
		})
	} else {
		res, err = engine.Search(context.Background(), u.pos, cfg)
		if err == nil {
			u.printInfo(cfg, res)
		}
	}

	if err != nil {
		log.Error().Err(err).Str("fen", u.pos.FEN()).Msg("search failed")
		u.println("info string", err)
		u.println("bestmove 0000")
		return
	}
	u.println("bestmove", res.Move)
}

// Scores are from the engine's point of view, as UCI wants.
func (u *uciT) printInfo(cfg engine.Config, res engine.Result) {
	score := fmt.Sprint("cp ", res.Eval)
	if n, ok := cfg.MateIn(res.Eval); ok {
		score = fmt.Sprint("mate ", n)
	}
	ms := res.Elapsed.Milliseconds()
	nps := uint64(0)
	if secs := res.Elapsed.Seconds(); secs > 0 {
		nps = uint64(float64(res.Stats.Nodes) / secs)
	}
	u.println("info depth", res.Depth, "score", score, "nodes", res.Stats.Nodes, "time", ms, "nps", nps, "pv", res.Move)
}
