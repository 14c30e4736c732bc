package app

import (
	"context"
	"testing"
	"time"

	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/config"
	"github.com/park285/chesscraft-go/internal/hostlink"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.AppConfig{
		HostBaseURL:         "http://127.0.0.1:1",
		HostWSURL:           "ws://127.0.0.1:1/events",
		StoreBackend:        "file",
		DataDir:             dir,
		StyleDir:            dir + "/styles",
		MessagesDir:         dir + "/messages",
		AIConfig:            dir + "/ai.yml",
		AutoDeleteFinished:  30,
		Economy:             true,
		StakeSmallIncrement: 1,
		StakeLargeIncrement: 10,
		Currency:            "coins",
		ClockTickMS:         1000,
		ForfeitAfterSec:     60,
	}
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		a.Loop.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.Close(ctx)
	})
	return a
}

func TestGameDeps_FollowConfig(t *testing.T) {
	a := newTestApp(t)
	d := a.gameDeps("hall")
	require.Equal(t, 30*time.Second, d.Settings.AutoDelete)
	require.Equal(t, 100, d.Settings.FiftyMovePlies)
	require.NotNil(t, d.Ledger)
	require.NotNil(t, d.AI)
	require.True(t, a.panelSettings().Economy)
}

func TestDispatch_CommandAndPresence(t *testing.T) {
	a := newTestApp(t)

	a.dispatch(hostlink.Event{Type: hostlink.EventCommand, Player: "alice", Args: []string{"list", "game"}})
	require.Equal(t, 1.0, testutil.ToFloat64(a.Metrics.Commands.WithLabelValues("list game", "ok")))

	a.dispatch(hostlink.Event{Type: hostlink.EventPlayerQuit, Player: "bob"})
	_, away := a.Router.AwaySince("bob")
	require.True(t, away)
	a.dispatch(hostlink.Event{Type: hostlink.EventPlayerJoin, Player: "bob"})
	_, away = a.Router.AwaySince("bob")
	require.False(t, away)
}

func TestTickClocks_CountsGames(t *testing.T) {
	a := newTestApp(t)
	a.tickClocks()
	require.Equal(t, 0.0, testutil.ToFloat64(a.Metrics.GamesActive))
	require.Equal(t, chessgame.Settings{
		AutoDelete:     30 * time.Second,
		FiftyMovePlies: 100,
	}, a.settings)
}

func TestOffload_PostsDoneToLoop(t *testing.T) {
	a := newTestApp(t)
	require.NotNil(t, a.gameDeps("hall").Offload)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.Loop.Run(ctx) }()

	worked := false
	done := make(chan bool, 1)
	a.offload(func() { worked = true }, func() { done <- worked })
	select {
	case got := <-done:
		require.True(t, got)
	case <-time.After(2 * time.Second):
		t.Fatal("done was never run on the loop")
	}
}
