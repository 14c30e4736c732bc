package command

import (
	"context"
	"time"

	"github.com/park285/chesscraft-go/internal/board"
	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/obslog"
	"go.uber.org/zap"
)

// Click is a player hitting a block.
type Click struct {
	Player     string
	World      string
	Pos        board.Point
	Sneaking   bool
	RightClick bool
}

// HandleClick routes a click to a control panel or a board square. It
// reports whether the click landed on anything the router owns.
func (r *Router) HandleClick(ctx context.Context, c Click) bool {
	for _, p := range r.panels {
		hit, err := p.ClickAt(ctx, c.Player, c.World, c.Pos, c.Sneaking, c.RightClick)
		if !hit {
			continue
		}
		if err != nil {
			r.tellError(c.Player, err)
		}
		if g := p.Game(); g != nil {
			r.afterChange(ctx, g)
		} else {
			p.Repaint()
		}
		return true
	}

	v, ok := r.d.Registry.BoardAt(c.World, c.Pos)
	if !ok {
		return false
	}
	sq, ok := v.SquareAt(c.World, c.Pos)
	if !ok {
		return true
	}
	g, ok := r.d.Registry.GameOnBoard(v.Name)
	if !ok {
		return true
	}
	if err := r.clickSquare(ctx, g, c.Player, sq); err != nil {
		r.tellError(c.Player, err)
	}
	r.afterChange(ctx, g)
	return true
}

// clickSquare selects one of the mover's pieces, or moves the selected piece
// to sq.
func (r *Router) clickSquare(ctx context.Context, g *chessgame.Game, player string, sq chessgame.Square) error {
	if g.State() != chessgame.StateRunning || !g.IsPlayerToMove(player) {
		return nil
	}
	kind, colour := g.Oracle().PieceAt(sq)
	if kind != chessgame.NoPiece && colour == g.PlayingAs(player) {
		g.SetFromSquare(sq)
		obslog.L().Debug("square_selected", zap.String("game", g.Name()), zap.String("square", sq.String()))
		return nil
	}
	if g.FromSquare() == chessgame.NoSquare {
		return nil
	}
	return g.DoMove(ctx, player, sq)
}

// PlayerJoined clears the away mark set when player left.
func (r *Router) PlayerJoined(player string) {
	delete(r.away, key(player))
}

// PlayerQuit records when player left, for "/chess win", and withdraws any
// question waiting on them.
func (r *Router) PlayerQuit(player string) {
	r.away[key(player)] = r.d.Now()
	r.d.Expect.Cancel(player)
	for _, g := range r.d.Registry.Games() {
		if g.State() != chessgame.StateRunning || !g.IsPlayerInGame(player) {
			continue
		}
		if other := g.OtherPlayer(player); other != "" {
			g.Alert(other, r.d.Messages.Text("cmd.opponent_left", map[string]any{
				"Player":  player,
				"Minutes": int(r.d.ForfeitAfter / time.Minute),
			}))
		}
	}
}

// AwaySince reports when player left, if they are away.
func (r *Router) AwaySince(player string) (time.Time, bool) {
	t, ok := r.away[key(player)]
	return t, ok
}
