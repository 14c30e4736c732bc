package panel

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/park285/chesscraft-go/internal/board"
	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/expect"
	"github.com/park285/chesscraft-go/internal/loop"
	"github.com/park285/chesscraft-go/internal/style"
	"github.com/stretchr/testify/require"
)

type call struct {
	player, game string
	args         string
}

type recordingActions struct {
	calls []call
	told  []string
}

func (a *recordingActions) Run(_ context.Context, player, game string, args ...string) error {
	a.calls = append(a.calls, call{player: player, game: game, args: strings.Join(args, " ")})
	return nil
}

func (a *recordingActions) Tell(_ string, message string) { a.told = append(a.told, message) }

type recordingPainter struct {
	signs     int
	positions []string
}

func (p *recordingPainter) PaintSigns(_ string, signs []Sign) { p.signs += len(signs) }
func (p *recordingPainter) PaintPosition(_, _, fen string) { p.positions = append(p.positions, fen) }

func newTestPanel(t *testing.T) (*Panel, *recordingActions, *recordingPainter, *loop.Manual) {
	t.Helper()
	lib, err := style.NewLibrary("")
	require.NoError(t, err)
	st, err := lib.Get("")
	require.NoError(t, err)
	v, err := board.New("hall", "overworld", board.Point{X: 0, Y: 64, Z: 0}, board.North, st)
	require.NoError(t, err)
	actions := &recordingActions{}
	painter := &recordingPainter{}
	settings := Settings{Economy: true, SmallIncrement: 1, LargeIncrement: 10}
	return New(v, settings, expect.New(nil), painter, actions), actions, painter, loop.NewManual(time.Unix(0, 0))
}

func enabled(signs []Sign) map[Button]bool {
	out := make(map[Button]bool, len(signs))
	for _, s := range signs {
		out[s.Button] = s.Enabled
	}
	return out
}

func TestLayout_EmptyBoard(t *testing.T) {
	en := enabled(Layout(nil, Settings{Economy: true}, nil))
	require.True(t, en[ListBoard])
	require.True(t, en[Teleport])
	require.True(t, en[CreateGame])
	require.False(t, en[Stake])
	require.False(t, en[Start])
	require.False(t, en[ListGame])
	require.False(t, en[WhitePromote])
}

func TestLayout_SetupAndRunning(t *testing.T) {
	p, _, _, sched := newTestPanel(t)
	g, err := chessgame.New("g1", "hall", "alice", chessgame.Deps{Scheduler: sched, Now: sched.Now})
	require.NoError(t, err)
	p.Bind(g)

	en := enabled(p.Signs())
	require.False(t, en[CreateGame])
	require.True(t, en[Invite])
	require.True(t, en[InviteAnyone])
	require.True(t, en[Start])
	require.True(t, en[Stake])
	require.True(t, en[WhitePromote])
	require.False(t, en[BlackPromote])
	require.False(t, en[Resign])

	require.NoError(t, g.InvitePlayer("alice", "bob"))
	require.NoError(t, g.AddPlayer("bob"))
	require.NoError(t, g.Start(context.Background(), "alice"))

	en = enabled(p.Signs())
	require.False(t, en[Invite])
	require.False(t, en[Start])
	require.True(t, en[OfferDraw])
	require.True(t, en[Resign])
	require.True(t, en[BlackPromote])
}

func TestLayout_PositionsMatchPanelCells(t *testing.T) {
	p, _, _, _ := newTestPanel(t)
	for _, s := range p.Signs() {
		col, row, ok := p.view.PanelCell("overworld", s.Pos)
		require.True(t, ok, s.String())
		require.Equal(t, s.Col, col)
		require.Equal(t, s.Row, row)
		b, ok := ButtonAt(col, row)
		require.True(t, ok)
		require.Equal(t, s.Button, b)
	}
}

func TestClick_StakeIncrements(t *testing.T) {
	p, _, _, sched := newTestPanel(t)
	g, err := chessgame.New("g1", "hall", "alice", chessgame.Deps{Scheduler: sched, Now: sched.Now})
	require.NoError(t, err)
	p.Bind(g)
	ctx := context.Background()

	require.NoError(t, p.Click(ctx, "alice", Stake, false, false))
	require.NoError(t, p.Click(ctx, "alice", Stake, true, false))
	require.InDelta(t, 11.0, g.Stake(), 1e-9)
	require.NoError(t, p.Click(ctx, "alice", Stake, true, true))
	require.InDelta(t, 10.0, g.Stake(), 1e-9)

	// strangers can't touch it
	require.NoError(t, p.Click(ctx, "mallory", Stake, false, false))
	require.InDelta(t, 10.0, g.Stake(), 1e-9)

	require.NoError(t, g.InvitePlayer("alice", "bob"))
	require.NoError(t, g.AddPlayer("bob"))
	require.NoError(t, p.Click(ctx, "alice", Stake, false, false))
	require.InDelta(t, 10.0, g.Stake(), 1e-9, "stake is fixed once both players are bound")
}

func TestClick_DispatchesCommands(t *testing.T) {
	p, actions, painter, sched := newTestPanel(t)
	ctx := context.Background()

	require.NoError(t, p.Click(ctx, "alice", CreateGame, false, false))
	require.NoError(t, p.Click(ctx, "alice", Start, false, false), "disabled without a game")
	require.Len(t, actions.calls, 1)
	require.Equal(t, "create game - hall", actions.calls[0].args)

	g, err := chessgame.New("g1", "hall", "alice", chessgame.Deps{Scheduler: sched, Now: sched.Now})
	require.NoError(t, err)
	p.Bind(g)
	require.NotEmpty(t, painter.positions)
	require.NoError(t, p.Click(ctx, "alice", Start, false, false))
	require.Equal(t, call{player: "alice", game: "g1", args: "start"}, actions.calls[1])

	require.NoError(t, p.Click(ctx, "alice", Invite, false, false))
	require.Len(t, actions.told, 1)

	// promote signs answer only to their colour
	require.NoError(t, p.Click(ctx, "bob", WhitePromote, false, false))
	require.Len(t, actions.calls, 2)
	require.NoError(t, p.Click(ctx, "alice", WhitePromote, false, false))
	require.Equal(t, "promote", actions.calls[2].args)
}

func TestClick_YesNoNeedPendingQuestion(t *testing.T) {
	p, actions, _, sched := newTestPanel(t)
	g, err := chessgame.New("g1", "hall", "alice", chessgame.Deps{Scheduler: sched, Now: sched.Now})
	require.NoError(t, err)
	require.NoError(t, g.InvitePlayer("alice", "bob"))
	require.NoError(t, g.AddPlayer("bob"))
	require.NoError(t, g.Start(context.Background(), "alice"))
	p.Bind(g)

	require.NoError(t, p.Click(context.Background(), "bob", BlackYes, false, false))
	require.Empty(t, actions.calls)

	require.NoError(t, p.exp.OfferDraw(g, "alice"))
	require.True(t, enabled(p.Signs())[BlackYes])
	require.NoError(t, p.Click(context.Background(), "bob", BlackYes, false, false))
	require.Equal(t, "yes", actions.calls[0].args)
}

func TestClickAt_OutsidePanel(t *testing.T) {
	p, _, _, _ := newTestPanel(t)
	hit, err := p.ClickAt(context.Background(), "alice", "overworld", board.Point{X: 500, Y: 0, Z: 500}, false, false)
	require.NoError(t, err)
	require.False(t, hit)

	hit, err = p.ClickAt(context.Background(), "alice", "overworld", p.view.PanelSign(1, 2), false, false)
	require.NoError(t, err)
	require.True(t, hit)
}
