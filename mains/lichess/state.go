package main

import (
	"sync"

	"github.com/clanpj/lazysmp/book"
	"github.com/clanpj/lazysmp/engine"
	"github.com/clanpj/lazysmp/lichess"
)

type State struct {
	client *lichess.LichessClient
	botID  string // lower case lichess user id
	cfg    engine.Config
	book   *book.Book // may be nil

	stateMu     sync.Mutex
	challenges  []Challenge
	activeGames []*Game
}

func NewState(client *lichess.LichessClient, botID string, cfg engine.Config, b *book.Book) *State {
	return &State{
		client: client,
		botID:  botID,
		cfg:    cfg,
		book:   b,
	}
}
