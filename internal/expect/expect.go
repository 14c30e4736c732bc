package expect

import (
	"errors"
	"strings"

	"github.com/park285/chesscraft-go/internal/chessgame"
)

// Action is the question a player has been asked.
type Action int

const (
	DrawResponse Action = iota + 1
	SwapResponse
)

func (a Action) String() string {
	switch a {
	case DrawResponse:
		return "draw"
	case SwapResponse:
		return "swap"
	default:
		return "none"
	}
}

var (
	ErrNothingPending = errors.New("you have no pending questions")
	ErrNotInGame      = errors.New("you are not in that game")
	ErrNoOpponent     = errors.New("there is no opponent to ask")
	ErrNotRunning     = errors.New("the game is not running")
	ErrFinished       = errors.New("the game has finished")
)

// Messages renders player-facing text by catalog key.
type Messages interface {
	Text(key string, data any) string
}

type entry struct {
	action  Action
	game    string
	handler func(yes bool)
}

// Expecter tracks yes/no questions waiting on players. One question per
// player; asking again replaces it. Lives on the game loop.
type Expecter struct {
	pending  map[string]entry
	messages Messages
}

// New returns an Expecter; with nil messages offers are sent as their
// catalog keys.
func New(messages Messages) *Expecter {
	return &Expecter{pending: make(map[string]entry), messages: messages}
}

func (e *Expecter) text(key, player string) string {
	if e.messages == nil {
		return key
	}
	return e.messages.Text(key, map[string]any{"Player": player})
}

func key(p string) string { return strings.ToLower(strings.TrimSpace(p)) }

func (e *Expecter) Expect(player, game string, action Action, handler func(yes bool)) {
	e.pending[key(player)] = entry{action: action, game: game, handler: handler}
}

// Pending reports the question waiting on player, if any.
func (e *Expecter) Pending(player string) (Action, bool) {
	en, ok := e.pending[key(player)]
	return en.action, ok
}

// PendingIn is Pending limited to one game.
func (e *Expecter) PendingIn(player, game string) bool {
	en, ok := e.pending[key(player)]
	return ok && strings.EqualFold(en.game, game)
}

// Resolve answers the pending question and runs its handler.
func (e *Expecter) Resolve(player string, yes bool) error {
	en, ok := e.pending[key(player)]
	if !ok {
		return ErrNothingPending
	}
	delete(e.pending, key(player))
	if en.handler != nil {
		en.handler(yes)
	}
	return nil
}

func (e *Expecter) Cancel(player string) { delete(e.pending, key(player)) }

// Clear drops every pending question.
func (e *Expecter) Clear() { e.pending = make(map[string]entry) }

// CancelGame drops every question about game.
func (e *Expecter) CancelGame(game string) {
	for p, en := range e.pending {
		if strings.EqualFold(en.game, game) {
			delete(e.pending, p)
		}
	}
}

// OfferDraw asks offerer's opponent to accept a draw. Engine opponents
// decline straight away.
func (e *Expecter) OfferDraw(g *chessgame.Game, offerer string) error {
	if g.State() != chessgame.StateRunning {
		return ErrNotRunning
	}
	if !g.IsPlayerInGame(offerer) {
		return ErrNotInGame
	}
	other := g.OtherPlayer(offerer)
	if other == "" {
		return ErrNoOpponent
	}
	if chessgame.IsAIPlayer(other) {
		g.Alert(offerer, e.text("offer.draw_declined", other))
		return nil
	}
	g.Alert(offerer, e.text("offer.draw_sent", other))
	g.Alert(other, e.text("offer.draw_received", offerer))
	e.Expect(other, g.Name(), DrawResponse, func(yes bool) {
		if yes {
			g.Drawn()
			return
		}
		g.Alert(offerer, e.text("offer.draw_declined", other))
	})
	return nil
}

// OfferSwap asks the opponent to exchange colours. Without an opponent the
// swap happens at once; engine opponents decline.
func (e *Expecter) OfferSwap(g *chessgame.Game, offerer string) error {
	if g.State() == chessgame.StateFinished {
		return ErrFinished
	}
	if !g.IsPlayerInGame(offerer) {
		return ErrNotInGame
	}
	other := g.OtherPlayer(offerer)
	if other == "" {
		return g.SwapColours()
	}
	if chessgame.IsAIPlayer(other) {
		g.Alert(offerer, e.text("offer.swap_declined", other))
		return nil
	}
	g.Alert(offerer, e.text("offer.swap_sent", other))
	g.Alert(other, e.text("offer.swap_received", offerer))
	e.Expect(other, g.Name(), SwapResponse, func(yes bool) {
		if !yes {
			g.Alert(offerer, e.text("offer.swap_declined", other))
			return
		}
		if err := g.SwapColours(); err != nil {
			g.Alert(offerer, err.Error())
		}
	})
	return nil
}
