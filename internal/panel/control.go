package panel

import (
	"context"
	"strings"

	"github.com/park285/chesscraft-go/internal/board"
	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/expect"
	"github.com/park285/chesscraft-go/internal/obslog"
	"go.uber.org/zap"
)

// Actions runs the chess command a button stands for, as if player had
// typed "/chess <args>". game, when set, is the game the command acts on.
type Actions interface {
	Run(ctx context.Context, player, game string, args ...string) error
	Tell(player, message string)
}

// Painter pushes signs and positions to the host. Calls must not block.
type Painter interface {
	PaintSigns(world string, signs []Sign)
	PaintPosition(world, board, fen string)
}

// Panel is the control panel of one board. It implements chessgame.View for
// the game on that board. Loop-only.
type Panel struct {
	view     *board.View
	game     *chessgame.Game
	settings Settings
	exp      *expect.Expecter
	painter  Painter
	actions  Actions
}

func New(view *board.View, settings Settings, exp *expect.Expecter, painter Painter, actions Actions) *Panel {
	return &Panel{view: view, settings: settings, exp: exp, painter: painter, actions: actions}
}

func (p *Panel) View() *board.View { return p.view }
func (p *Panel) Game() *chessgame.Game { return p.game }
func (p *Panel) SetActions(a Actions) { p.actions = a }
func (p *Panel) SetSettings(s Settings) { p.settings = s }

// Bind attaches g (or nil) to the panel and repaints.
func (p *Panel) Bind(g *chessgame.Game) {
	p.game = g
	if g != nil {
		g.AttachView(p)
	}
	p.Repaint()
	p.paintPosition()
}

// Signs is the current layout with world positions filled in.
func (p *Panel) Signs() []Sign {
	signs := Layout(p.game, p.settings, p.exp)
	for i := range signs {
		signs[i].Pos = p.view.PanelSign(signs[i].Col, signs[i].Row)
	}
	return signs
}

func (p *Panel) Repaint() {
	if p.painter == nil {
		return
	}
	p.painter.PaintSigns(p.view.World, p.Signs())
}

func (p *Panel) paintPosition() {
	if p.painter == nil {
		return
	}
	fen := chessgame.StartFEN
	if p.game != nil {
		fen = p.game.FEN()
	}
	p.painter.PaintPosition(p.view.World, p.view.Name, fen)
}

func (p *Panel) repaintOnly(b Button) {
	if p.painter == nil {
		return
	}
	for _, s := range p.Signs() {
		if s.Button == b {
			p.painter.PaintSigns(p.view.World, []Sign{s})
			return
		}
	}
}

func (p *Panel) StateChanged(*chessgame.Game) { p.Repaint() }

func (p *Panel) Moved(*chessgame.Game, chessgame.Move) {
	p.Repaint()
	p.paintPosition()
}

func (p *Panel) ClockUpdated(_ *chessgame.Game, side chessgame.Color, _ int64) {
	if side == chessgame.White {
		p.repaintOnly(WhiteClock)
	} else {
		p.repaintOnly(BlackClock)
	}
}

func (p *Panel) PositionReset(*chessgame.Game) {
	p.Repaint()
	p.paintPosition()
}

// ClickAt handles a click on a panel block. It reports false when the block
// is not part of this panel.
func (p *Panel) ClickAt(ctx context.Context, player, world string, pos board.Point, sneaking, rightClick bool) (bool, error) {
	col, row, ok := p.view.PanelCell(world, pos)
	if !ok {
		return false, nil
	}
	b, ok := ButtonAt(col, row)
	if !ok {
		return true, nil
	}
	return true, p.Click(ctx, player, b, sneaking, rightClick)
}

// Click runs a button for player. Disabled and info signs do nothing.
func (p *Panel) Click(ctx context.Context, player string, b Button, sneaking, rightClick bool) error {
	sign, ok := find(Layout(p.game, p.settings, p.exp), b)
	if !ok || !sign.Enabled {
		return nil
	}
	obslog.L().Debug("panel_click", zap.String("board", p.view.Name), zap.String("player", player), zap.Stringer("sign", sign))

	g := p.game
	switch b {
	case ListBoard:
		return p.run(ctx, player, "", "list", "board", p.view.Name)
	case Teleport:
		return p.run(ctx, player, "", "teleport")
	case CreateGame:
		return p.run(ctx, player, "", "create", "game", "-", p.view.Name)
	case Invite:
		if p.actions != nil {
			p.actions.Tell(player, "Type /chess invite <player> to invite someone to "+g.Name()+".")
		}
		return nil
	case InviteAnyone:
		return p.run(ctx, player, g.Name(), "invite", "anyone")
	case Start:
		return p.run(ctx, player, g.Name(), "start")
	case OfferDraw:
		return p.run(ctx, player, g.Name(), "offer", "draw")
	case Resign:
		return p.run(ctx, player, g.Name(), "resign")
	case ListGame:
		return p.run(ctx, player, "", "list", "game", g.Name())
	case Stake:
		return p.clickStake(player, sneaking, rightClick)
	case WhitePromote, WhiteYes, WhiteNo:
		if !strings.EqualFold(player, g.White()) {
			return nil
		}
	case BlackPromote, BlackYes, BlackNo:
		if !strings.EqualFold(player, g.Black()) {
			return nil
		}
	}

	switch b {
	case WhitePromote, BlackPromote:
		return p.run(ctx, player, g.Name(), "promote")
	case WhiteYes, BlackYes:
		return p.run(ctx, player, g.Name(), "yes")
	case WhiteNo, BlackNo:
		return p.run(ctx, player, g.Name(), "no")
	}
	return nil
}

func (p *Panel) clickStake(player string, sneaking, rightClick bool) error {
	g := p.game
	if !g.IsPlayerInGame(player) || g.State() != chessgame.StateSettingUp {
		return nil
	}
	if g.White() != "" && g.Black() != "" {
		return nil
	}
	delta := p.settings.LargeIncrement
	if sneaking {
		delta = p.settings.SmallIncrement
	}
	if rightClick {
		delta = -delta
	}
	return g.AdjustStake(delta)
}

func (p *Panel) run(ctx context.Context, player, game string, args ...string) error {
	if p.actions == nil {
		return nil
	}
	return p.actions.Run(ctx, player, game, args...)
}
