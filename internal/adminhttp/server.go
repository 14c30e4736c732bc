// Package adminhttp serves read-only game state and metrics for operators.
package adminhttp

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/park285/chesscraft-go/internal/archive"
	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/obslog"
	"github.com/park285/chesscraft-go/internal/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// Runner executes fn on the game loop and waits for it.
type Runner interface {
	Do(ctx context.Context, fn func() error) error
}

// GameInfo is the JSON shape of one game.
type GameInfo struct {
	Name       string    `json:"name"`
	Board      string    `json:"board"`
	White      string    `json:"white,omitempty"`
	Black      string    `json:"black,omitempty"`
	State      string    `json:"state"`
	Result     string    `json:"result"`
	ResultType string    `json:"resultType,omitempty"`
	Moves      []string  `json:"moves"`
	FEN        string    `json:"fen"`
	Opening    string    `json:"opening,omitempty"`
	Stake      float64   `json:"stake"`
	Started    time.Time `json:"started,omitempty"`
	Finished   time.Time `json:"finished,omitempty"`
}

func infoOf(g *chessgame.Game) GameInfo {
	moves := g.UCIHistory()
	if moves == nil {
		moves = []string{}
	}
	var name string
	if code, title := archive.Opening(g.StartFEN(), moves); code != "" {
		name = code + " " + title
	}
	return GameInfo{
		Name:       g.Name(),
		Board:      g.Board(),
		White:      g.White(),
		Black:      g.Black(),
		State:      string(g.State()),
		Result:     g.PGNResult(),
		ResultType: string(g.ResultType()),
		Moves:      moves,
		FEN:        g.FEN(),
		Opening:    name,
		Stake:      g.Stake(),
		Started:    g.Started(),
		Finished:   g.Finished(),
	}
}

type Server struct {
	reg     *registry.Registry
	run     Runner
	header  chessgame.PGNHeader
	metrics fasthttp.RequestHandler
	timeout time.Duration
	srv     *fasthttp.Server
}

// New builds the server. gatherer may be nil to leave out /metrics.
func New(reg *registry.Registry, run Runner, gatherer prometheus.Gatherer, header chessgame.PGNHeader) *Server {
	s := &Server{reg: reg, run: run, header: header, timeout: 5 * time.Second}
	if gatherer != nil {
		s.metrics = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handler,
		Name:         "chesscraft-admin",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Handler routes a request.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() && !ctx.IsHead() {
		ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
		return
	}
	path := string(ctx.Path())
	switch {
	case path == "/healthz":
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("ok")
	case path == "/metrics" && s.metrics != nil:
		s.metrics(ctx)
	case path == "/games":
		s.games(ctx)
	case strings.HasPrefix(path, "/games/") && strings.HasSuffix(path, "/pgn"):
		s.pgn(ctx, strings.TrimSuffix(strings.TrimPrefix(path, "/games/"), "/pgn"))
	default:
		ctx.Error("not found", fasthttp.StatusNotFound)
	}
}

func (s *Server) games(ctx *fasthttp.RequestCtx) {
	var out []GameInfo
	err := s.onLoop(ctx, func() error {
		games := s.reg.Games()
		out = make([]GameInfo, 0, len(games))
		for _, g := range games {
			out = append(out, infoOf(g))
		}
		return nil
	})
	if err != nil {
		s.fail(ctx, err)
		return
	}
	b, err := json.Marshal(out)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(b)
}

var errNoGame = errors.New("no such game")

func (s *Server) pgn(ctx *fasthttp.RequestCtx, name string) {
	var text string
	err := s.onLoop(ctx, func() error {
		g, ok := s.reg.Game(name)
		if !ok {
			return errNoGame
		}
		text = g.PGN(s.header)
		return nil
	})
	if errors.Is(err, errNoGame) {
		ctx.Error("no such game", fasthttp.StatusNotFound)
		return
	}
	if err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.SetContentType("application/x-chess-pgn")
	ctx.SetBodyString(text)
}

func (s *Server) onLoop(ctx *fasthttp.RequestCtx, fn func() error) error {
	c, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.run.Do(c, fn)
}

func (s *Server) fail(ctx *fasthttp.RequestCtx, err error) {
	obslog.L().Warn("admin_http_error", zap.ByteString("path", ctx.Path()), zap.Error(err))
	ctx.Error("internal error", fasthttp.StatusInternalServerError)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	obslog.L().Info("admin_http_listen", zap.String("addr", ln.Addr().String()))
	return s.srv.Serve(ln)
}

// ListenAndServe listens on addr.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}
