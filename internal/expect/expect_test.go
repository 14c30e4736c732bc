package expect

import (
	"context"
	"testing"
	"time"

	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/loop"
	"github.com/park285/chesscraft-go/internal/msgcat"
	"github.com/stretchr/testify/require"
)

type alerts map[string][]string

func (a alerts) Alert(player, msg string) { a[player] = append(a[player], msg) }
func (a alerts) Broadcast(string) {}

func runningGame(t *testing.T, black string) (*chessgame.Game, alerts) {
	t.Helper()
	sent := alerts{}
	sched := loop.NewManual(time.Unix(0, 0))
	g, err := chessgame.New("g1", "hall", "alice", chessgame.Deps{Scheduler: sched, Now: sched.Now, Notifier: sent})
	require.NoError(t, err)
	require.NoError(t, g.InvitePlayer("alice", black))
	require.NoError(t, g.AddPlayer(black))
	require.NoError(t, g.Start(context.Background(), "alice"))
	return g, sent
}

func newExpecter(t *testing.T) *Expecter {
	t.Helper()
	cat, err := msgcat.New("")
	require.NoError(t, err)
	return New(cat)
}

func TestOfferDraw_Accepted(t *testing.T) {
	g, _ := runningGame(t, "bob")
	e := newExpecter(t)
	require.NoError(t, e.OfferDraw(g, "alice"))

	action, ok := e.Pending("BOB")
	require.True(t, ok)
	require.Equal(t, DrawResponse, action)
	require.True(t, e.PendingIn("bob", "g1"))

	require.NoError(t, e.Resolve("bob", true))
	require.Equal(t, chessgame.StateFinished, g.State())
	require.Equal(t, chessgame.ResultDrawAgreed, g.ResultType())

	require.ErrorIs(t, e.Resolve("bob", true), ErrNothingPending)
}

func TestOfferDraw_Declined(t *testing.T) {
	g, sent := runningGame(t, "bob")
	e := newExpecter(t)
	require.NoError(t, e.OfferDraw(g, "alice"))
	require.Contains(t, sent["bob"][len(sent["bob"])-1], "alice has offered a draw")
	require.NoError(t, e.Resolve("bob", false))
	require.Equal(t, chessgame.StateRunning, g.State())
	require.Contains(t, sent["alice"][len(sent["alice"])-1], "bob has declined your draw offer")
}

func TestOfferDraw_AIDeclines(t *testing.T) {
	g, sent := runningGame(t, chessgame.AIPrefix+"easy")
	e := newExpecter(t)
	require.NoError(t, e.OfferDraw(g, "alice"))
	_, ok := e.Pending(chessgame.AIPrefix + "easy")
	require.False(t, ok)
	require.Contains(t, sent["alice"][len(sent["alice"])-1], "has declined your draw offer")
}

func TestOfferSwap(t *testing.T) {
	g, _ := runningGame(t, "bob")
	e := newExpecter(t)
	require.ErrorIs(t, e.OfferSwap(g, "mallory"), ErrNotInGame)
	require.NoError(t, e.OfferSwap(g, "bob"))
	require.NoError(t, e.Resolve("alice", true))
	require.Equal(t, "bob", g.White())
	require.Equal(t, "alice", g.Black())
}

func TestOfferSwap_AIDeclines(t *testing.T) {
	g, sent := runningGame(t, chessgame.AIPrefix+"easy")
	e := newExpecter(t)
	require.NoError(t, e.OfferSwap(g, "alice"))
	require.Equal(t, "alice", g.White())
	require.Equal(t, chessgame.AIPrefix+"easy", g.Black())
	require.Contains(t, sent["alice"][len(sent["alice"])-1], "has declined to swap colours")
}

func TestOfferSwap_RefusedWhenFinished(t *testing.T) {
	g, _ := runningGame(t, "bob")
	require.NoError(t, g.Resign("bob"))
	e := newExpecter(t)
	require.ErrorIs(t, e.OfferSwap(g, "alice"), ErrFinished)
	_, ok := e.Pending("bob")
	require.False(t, ok)
	require.Equal(t, "alice", g.White())
}

func TestOffer_FallsBackToKeysWithoutCatalog(t *testing.T) {
	g, sent := runningGame(t, "bob")
	e := New(nil)
	require.NoError(t, e.OfferDraw(g, "alice"))
	require.Contains(t, sent["bob"][len(sent["bob"])-1], "offer.draw_received")
}

func TestCancelGame(t *testing.T) {
	g, _ := runningGame(t, "bob")
	e := newExpecter(t)
	require.NoError(t, e.OfferDraw(g, "alice"))
	e.CancelGame("G1")
	_, ok := e.Pending("bob")
	require.False(t, ok)
}
