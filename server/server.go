// Package server exposes the engine over HTTP: a one shot move endpoint and
// a websocket that streams iterative deepening progress.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/clanpj/lazysmp/book"
	"github.com/clanpj/lazysmp/engine"
	"github.com/clanpj/lazysmp/position"
)

var errMissingFEN = errors.New("missing fen parameter")

// Longest think time a websocket client may ask for
const maxThinkTime = time.Minute

// Deepest fixed depth search a client may ask for. A fixed depth search
// cannot be interrupted, so this bounds how long a /move request can take.
const maxRequestDepth = 10

type Server struct {
	cfg    engine.Config
	book   *book.Book // may be nil
	router *gin.Engine
}

func New(cfg engine.Config, b *book.Book) *Server {
	s := &Server{cfg: cfg, book: b}

	router := gin.New()
	router.Use(gin.Recovery(), accessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/", s.move)
	router.GET("/move", s.move)
	router.GET("/healthz", health)
	router.GET("/ws/analyze", s.analyze)

	s.router = router
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("query", c.Request.URL.RawQuery).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http")
	}
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type moveResponse struct {
	Move     string `json:"move"`
	Source   string `json:"source"` // "book" or "engine"
	Score    int32  `json:"score"`
	Mate     int    `json:"mate,omitempty"`
	Depth    int    `json:"depth"`
	SearchID string `json:"search_id,omitempty"`
}

func errorJSON(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (s *Server) move(c *gin.Context) {
	pos, cfg, err := s.parseRequest(c)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}

	if s.book != nil {
		if move, err := s.book.Lookup(pos); err == nil {
			log.Debug().Str("fen", pos.FEN()).Stringer("move", move).Msg("book hit")
			c.JSON(http.StatusOK, moveResponse{Move: move.String(), Source: "book"})
			return
		}
	}

	res, err := engine.Search(c.Request.Context(), pos, cfg)
	switch {
	case errors.Is(err, engine.ErrNoLegalMoves):
		errorJSON(c, http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, s.engineResponse(cfg, res))
}

func (s *Server) engineResponse(cfg engine.Config, res engine.Result) moveResponse {
	mate, _ := cfg.MateIn(res.Eval)
	return moveResponse{
		Move:     res.Move.String(),
		Source:   "engine",
		Score:    int32(res.Eval),
		Mate:     mate,
		Depth:    res.Depth,
		SearchID: res.SearchID,
	}
}

// parseRequest reads the position and any per request overrides of the
// server's search settings.
func (s *Server) parseRequest(c *gin.Context) (position.Position, engine.Config, error) {
	cfg := s.cfg

	fen := c.Query("fen")
	if fen == "" {
		return position.Position{}, cfg, errMissingFEN
	}
	pos, err := position.FromFEN(fen)
	if err != nil {
		return position.Position{}, cfg, err
	}

	ints := map[string]*int{
		"depth":                   &cfg.Depth,
		"quiescence_search_depth": &cfg.QuiescenceDepth,
		"null_move_r":             &cfg.NullMoveR,
	}
	for name, dst := range ints {
		if v, ok := c.GetQuery(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return pos, cfg, errors.New("bad " + name + ": " + v)
			}
			*dst = n
		}
	}

	if _, ok := c.GetQuery("depth"); ok && cfg.Depth > maxRequestDepth {
		return pos, cfg, fmt.Errorf("bad depth: %d > %d", cfg.Depth, maxRequestDepth)
	}

	if v, ok := c.GetQuery("null_move"); ok {
		if cfg.NullMove, err = strconv.ParseBool(v); err != nil {
			return pos, cfg, errors.New("bad null_move: " + v)
		}
	}
	if v, ok := c.GetQuery("algorithm"); ok {
		if cfg.Orchestrator, err = engine.ParseOrchestrator(v); err != nil {
			return pos, cfg, err
		}
	}
	if v, ok := c.GetQuery("think_ms"); ok {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return pos, cfg, errors.New("bad think_ms: " + v)
		}
		cfg.ThinkTime = min(time.Duration(ms)*time.Millisecond, maxThinkTime)
	}

	return pos, cfg, cfg.Validate()
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type analyzeFrame struct {
	Type     string `json:"type"` // "depth", "done" or "error"
	Move     string `json:"move,omitempty"`
	Score    int32  `json:"score"`
	Mate     int    `json:"mate,omitempty"`
	Depth    int    `json:"depth"`
	Nodes    uint64 `json:"nodes"`
	TimeMs   int64  `json:"time_ms"`
	SearchID string `json:"search_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

func frameFor(kind string, cfg engine.Config, res engine.Result) analyzeFrame {
	mate, _ := cfg.MateIn(res.Eval)
	return analyzeFrame{
		Type:     kind,
		Move:     res.Move.String(),
		Score:    int32(res.Eval),
		Mate:     mate,
		Depth:    res.Depth,
		Nodes:    res.Stats.Nodes,
		TimeMs:   res.Elapsed.Milliseconds(),
		SearchID: res.SearchID,
	}
}

// analyze runs iterative deepening and sends one frame per finished depth,
// then a "done" frame with the final answer. Bad parameters are rejected
// before the upgrade.
func (s *Server) analyze(c *gin.Context) {
	pos, cfg, err := s.parseRequest(c)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	var writeErr error
	res, err := engine.IterativeDeepening(c.Request.Context(), pos, cfg, func(r engine.Result) {
		if writeErr == nil {
			writeErr = conn.WriteJSON(frameFor("depth", cfg, r))
		}
	})
	if writeErr != nil {
		log.Debug().Err(writeErr).Msg("analysis client went away")
		return
	}
	if err != nil {
		conn.WriteJSON(analyzeFrame{Type: "error", Error: err.Error()})
		return
	}

	conn.WriteJSON(frameFor("done", cfg, res))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
