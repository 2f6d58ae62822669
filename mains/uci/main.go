package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clanpj/lazysmp/book"
	"github.com/clanpj/lazysmp/engine"
)

var bookPath = flag.String("book", "", "opening book json file")
var bookBest = flag.Bool("book-best", false, "always play the heaviest book move instead of a weighted random one")
var verbose = flag.Bool("v", false, "debug logging")

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
	flag.Parse()

	// stdout belongs to the GUI
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	b, err := openBook(*bookPath, *bookBest)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the opening book")
	}

	newUCI(os.Stdout, engine.DefaultConfig(), b).loop(os.Stdin)
}
