package adminhttp

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/park285/chesscraft-go/internal/board"
	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/loop"
	"github.com/park285/chesscraft-go/internal/metrics"
	"github.com/park285/chesscraft-go/internal/registry"
	"github.com/park285/chesscraft-go/internal/store"
	"github.com/park285/chesscraft-go/internal/style"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type direct struct{}

func (direct) Do(_ context.Context, fn func() error) error { return fn() }

func newTestServer(t *testing.T) (*fasthttp.Client, *registry.Registry) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	lib, err := style.NewLibrary("")
	require.NoError(t, err)
	sched := loop.NewManual(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	reg := registry.New(st, lib, func(string) chessgame.Deps {
		return chessgame.Deps{Scheduler: sched, Now: sched.Now}
	})
	stl, err := lib.Get("")
	require.NoError(t, err)
	v, err := board.New("hall", "world", board.Point{}, board.North, stl)
	require.NoError(t, err)
	require.NoError(t, reg.AddBoard(v))

	m := metrics.New()
	m.Moves.Inc()
	s := New(reg, direct{}, m.Registry, chessgame.PGNHeader{Site: "test"})

	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = s.Serve(ln) }()
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
		_ = ln.Close()
	})
	return &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}, reg
}

func get(t *testing.T, c *fasthttp.Client, path string) (int, string) {
	t.Helper()
	status, body, err := c.Get(nil, "http://admin.test"+path)
	require.NoError(t, err)
	return status, string(body)
}

func TestHealthAndNotFound(t *testing.T) {
	c, _ := newTestServer(t)
	status, body := get(t, c, "/healthz")
	require.Equal(t, fasthttp.StatusOK, status)
	require.Equal(t, "ok", body)

	status, _ = get(t, c, "/nope")
	require.Equal(t, fasthttp.StatusNotFound, status)
}

func TestGamesAndPGN(t *testing.T) {
	c, reg := newTestServer(t)
	g, err := reg.CreateGame("hall", "", "alice")
	require.NoError(t, err)
	require.NoError(t, g.InvitePlayer("alice", "bob"))
	require.NoError(t, g.AddPlayer("bob"))
	require.NoError(t, g.Start(context.Background(), "alice"))
	require.NoError(t, g.Move(context.Background(), "alice", chessgame.NewSquare(4, 1), chessgame.NewSquare(4, 3)))
	require.NoError(t, g.Move(context.Background(), "bob", chessgame.NewSquare(2, 6), chessgame.NewSquare(2, 4)))

	status, body := get(t, c, "/games")
	require.Equal(t, fasthttp.StatusOK, status)
	var games []GameInfo
	require.NoError(t, json.Unmarshal([]byte(body), &games))
	require.Len(t, games, 1)
	require.Equal(t, "hall-1", games[0].Name)
	require.Equal(t, []string{"e2e4", "c7c5"}, games[0].Moves)
	require.Equal(t, "*", games[0].Result)
	require.Contains(t, games[0].Opening, "Sicilian")

	status, body = get(t, c, "/games/hall-1/pgn")
	require.Equal(t, fasthttp.StatusOK, status)
	require.Contains(t, body, `[White "alice"]`)
	require.Contains(t, body, "1. e4 c5")

	status, _ = get(t, c, "/games/ghost/pgn")
	require.Equal(t, fasthttp.StatusNotFound, status)
}

func TestMetricsEndpoint(t *testing.T) {
	c, _ := newTestServer(t)
	status, body := get(t, c, "/metrics")
	require.Equal(t, fasthttp.StatusOK, status)
	require.True(t, strings.Contains(body, "chesscraft_moves_total 1"), body)
}
