// Package command turns player commands, block clicks and sign clicks into
// calls on the registry and its games. Everything here runs on the game
// loop.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/park285/chesscraft-go/internal/archive"
	"github.com/park285/chesscraft-go/internal/board"
	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/expect"
	"github.com/park285/chesscraft-go/internal/msgcat"
	"github.com/park285/chesscraft-go/internal/obslog"
	"github.com/park285/chesscraft-go/internal/panel"
	"github.com/park285/chesscraft-go/internal/registry"
	"github.com/park285/chesscraft-go/internal/style"
	"go.uber.org/zap"
)

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrAmbiguousCommand = errors.New("ambiguous command")
	ErrUsage            = errors.New("bad command usage")
	ErrNotAdmin         = errors.New("you are not allowed to do that")
)

// Invocation is one "/chess ..." command. World, Pos and Facing describe
// where the player stood when typing it.
type Invocation struct {
	Player string
	Admin  bool
	Args   []string
	// Game, when set, is the game the command acts on instead of the
	// player's current one.
	Game   string
	World  string
	Pos    board.Point
	Facing string
}

// Poster runs fn on the game loop.
type Poster interface {
	Post(fn func())
}

// Host performs player-facing actions that need the host bridge. Calls must
// not block.
type Host interface {
	Teleport(player, world string, pos board.Point)
}

// Terrain saves and restores the ground under a board.
type Terrain interface {
	Save(ctx context.Context, v *board.View) error
	Restore(ctx context.Context, v *board.View) (bool, error)
}

// AIPlayers reports whether an AI player name can be invited.
type AIPlayers interface {
	CanPlay(name string) error
	Names() []string
}

// Deps wires a Router. Registry, Expect, Messages and Post are required.
type Deps struct {
	Registry      *registry.Registry
	Styles        *style.Library
	Expect        *expect.Expecter
	Messages      *msgcat.Catalog
	Notifier      chessgame.Notifier
	Painter       panel.Painter
	Host          Host
	Terrain       Terrain
	PGN           *archive.PGNWriter
	AI            AIPlayers
	Post          Poster
	PanelSettings panel.Settings
	// ForfeitAfter is how long an opponent must be away before "win"
	// may be claimed.
	ForfeitAfter time.Duration
	// Reloaders back "/chess reload <what>".
	Reloaders map[string]func(ctx context.Context) error
	// OnCommand, when set, observes every dispatched command.
	OnCommand func(name string, err error)
	Now       func() time.Time
}

// Router dispatches commands and clicks.
type Router struct {
	d      Deps
	root   *node
	panels map[string]*panel.Panel // board key -> panel
	away   map[string]time.Time    // player key -> quit time
	// tasks tracks background terrain work.
	tasks sync.WaitGroup
}

func New(d Deps) *Router {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.ForfeitAfter <= 0 {
		d.ForfeitAfter = 3 * time.Minute
	}
	r := &Router{
		d:      d,
		panels: make(map[string]*panel.Panel),
		away:   make(map[string]time.Time),
	}
	r.root = r.commands()
	r.installHooks()
	return r
}

func key(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// call is the state of one dispatch.
type call struct {
	inv     Invocation
	args    []string
	path    string
	touched *chessgame.Game
}

func (c *call) arg(i int) string {
	if i < len(c.args) {
		return c.args[i]
	}
	return ""
}

// touch marks g as changed so it is saved and repainted afterwards.
func (c *call) touch(g *chessgame.Game) { c.touched = g }

type handler func(ctx context.Context, c *call) error

// node is one level of the command tree. Leaves have run set.
type node struct {
	run      handler
	children map[string]*node
}

func leaf(h handler) *node { return &node{run: h} }

func branch(children map[string]*node) *node { return &node{children: children} }

// match resolves word against the node's children by unique prefix.
func (n *node) match(word string) (string, *node, error) {
	word = key(word)
	if child, ok := n.children[word]; ok {
		return word, child, nil
	}
	var found []string
	for name := range n.children {
		if strings.HasPrefix(name, word) {
			found = append(found, name)
		}
	}
	switch len(found) {
	case 0:
		return "", nil, ErrUnknownCommand
	case 1:
		return found[0], n.children[found[0]], nil
	default:
		sort.Strings(found)
		return "", nil, &ambiguousError{word: word, options: found}
	}
}

type ambiguousError struct {
	word    string
	options []string
}

func (e *ambiguousError) Error() string {
	return "\"" + e.word + "\" could mean " + strings.Join(e.options, ", ")
}

func (e *ambiguousError) Unwrap() error { return ErrAmbiguousCommand }

// Handle runs a typed command and reports any failure to the player.
func (r *Router) Handle(ctx context.Context, inv Invocation) {
	if err := r.dispatch(ctx, inv); err != nil {
		r.tellError(inv.Player, err)
	}
}

// Run implements panel.Actions.
func (r *Router) Run(ctx context.Context, player, game string, args ...string) error {
	return r.dispatch(ctx, Invocation{Player: player, Game: game, Args: args})
}

// Tell implements panel.Actions.
func (r *Router) Tell(player, message string) {
	if r.d.Notifier != nil && message != "" {
		r.d.Notifier.Alert(player, message)
	}
}

func (r *Router) say(player, k string, data map[string]any) {
	r.Tell(player, r.d.Messages.Text(k, data))
}

func (r *Router) tellError(player string, err error) {
	msg := err.Error()
	var gerr *chessgame.Error
	if errors.As(err, &gerr) {
		msg = gerr.Msg
	}
	r.say(player, "cmd.error", map[string]any{"Message": msg})
}

func (r *Router) dispatch(ctx context.Context, inv Invocation) error {
	if len(inv.Args) == 0 {
		r.usage(inv.Player)
		return nil
	}
	c := &call{inv: inv}
	n := r.root
	var path []string
	args := inv.Args
	for n.run == nil {
		if len(args) == 0 {
			return r.usageErr(path)
		}
		name, next, err := n.match(args[0])
		if err != nil {
			return err
		}
		path = append(path, name)
		n, args = next, args[1:]
	}
	c.args = args
	c.path = strings.Join(path, " ")

	err := n.run(ctx, c)
	if r.d.OnCommand != nil {
		r.d.OnCommand(c.path, err)
	}
	obslog.L().Debug("command",
		zap.String("player", inv.Player),
		zap.String("command", c.path),
		zap.Strings("args", args),
		zap.Error(err),
	)
	if c.touched != nil {
		r.afterChange(ctx, c.touched)
	}
	return err
}

// afterChange saves g and repaints its board's panel.
func (r *Router) afterChange(ctx context.Context, g *chessgame.Game) {
	if _, live := r.d.Registry.Game(g.Name()); !live {
		return
	}
	if err := r.d.Registry.SaveGame(ctx, g); err != nil {
		obslog.L().Warn("store_save_error", zap.String("game", g.Name()), zap.Error(err))
	}
	if p, ok := r.panels[key(g.Board())]; ok {
		p.Repaint()
	}
}

func (r *Router) usageErr(path []string) error {
	if len(path) == 0 {
		return ErrUsage
	}
	return fmt.Errorf("%w: try /chess %s <%s>", ErrUsage, strings.Join(path, " "), strings.Join(r.childNames(path), "|"))
}

func (r *Router) childNames(path []string) []string {
	n := r.root
	for _, p := range path {
		n = n.children[p]
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Router) usage(player string) {
	r.say(player, "cmd.usage", map[string]any{"Commands": strings.Join(r.childNames(nil), ", ")})
}

// Panel returns the control panel of a board.
func (r *Router) Panel(boardName string) (*panel.Panel, bool) {
	p, ok := r.panels[key(boardName)]
	return p, ok
}

// Wait blocks until background board work has finished and been posted.
func (r *Router) Wait() { r.tasks.Wait() }
