package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/park285/chesscraft-go/internal/board"
	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/obslog"
	"github.com/park285/chesscraft-go/internal/registry"
	"go.uber.org/zap"
)

var (
	ErrNoBoardHere  = errors.New("you are not standing on a chess board")
	ErrNoInvitation = errors.New("you have no invitation to join")
	ErrNoArchive    = errors.New("game archiving is not configured")
	ErrStillOnline  = errors.New("your opponent has not been away long enough")
)

func (r *Router) commands() *node {
	return branch(map[string]*node{
		"create": branch(map[string]*node{
			"game":  leaf(r.createGame),
			"board": leaf(r.createBoard),
		}),
		"delete": branch(map[string]*node{
			"game":  leaf(r.deleteGame),
			"board": leaf(r.deleteBoard),
		}),
		"join":    leaf(r.join),
		"invite":  leaf(r.invite),
		"start":   leaf(r.start),
		"move":    leaf(r.move),
		"resign":  leaf(r.resign),
		"offer":   branch(map[string]*node{"draw": leaf(r.offerDraw), "swap": leaf(r.offerSwap)}),
		"yes":     leaf(r.answer(true)),
		"no":      leaf(r.answer(false)),
		"promote": leaf(r.promote),
		"stake":   leaf(r.stake),
		"fen":     leaf(r.fen),
		"list": branch(map[string]*node{
			"game":  leaf(r.listGame),
			"board": leaf(r.listBoard),
			"ai":    leaf(r.listAI),
		}),
		"archive":  leaf(r.archive),
		"win":      leaf(r.claimWin),
		"teleport": leaf(r.teleport),
		"reload":   leaf(r.reload),
		"save":     leaf(r.save),
	})
}

// game resolves the game a command acts on: an explicit invocation game,
// else the player's current game.
func (r *Router) game(c *call) (*chessgame.Game, error) {
	if c.inv.Game != "" {
		g, ok := r.d.Registry.Game(c.inv.Game)
		if !ok {
			return nil, fmt.Errorf("%w: %s", registry.ErrGameNotFound, c.inv.Game)
		}
		return g, nil
	}
	return r.d.Registry.GameForPlayer(c.inv.Player)
}

// namedGame is like game but lets the first argument name it.
func (r *Router) namedGame(c *call, argIdx int) (*chessgame.Game, error) {
	if name := c.arg(argIdx); name != "" && name != "-" {
		g, ok := r.d.Registry.Game(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", registry.ErrGameNotFound, name)
		}
		return g, nil
	}
	return r.game(c)
}

func (r *Router) createGame(_ context.Context, c *call) error {
	name := c.arg(0)
	if name == "-" {
		name = ""
	}
	boardName := c.arg(1)
	if boardName == "" {
		v, ok := r.d.Registry.BoardAt(c.inv.World, c.inv.Pos)
		if !ok {
			return ErrNoBoardHere
		}
		boardName = v.Name
	}
	g, err := r.d.Registry.CreateGame(boardName, name, c.inv.Player)
	if err != nil {
		return err
	}
	c.touch(g)
	r.say(c.inv.Player, "cmd.game_created", map[string]any{"Game": g.Name(), "Board": g.Board()})
	return nil
}

func (r *Router) createBoard(ctx context.Context, c *call) error {
	if !c.inv.Admin {
		return ErrNotAdmin
	}
	name := c.arg(0)
	if name == "" {
		return fmt.Errorf("%w: /chess create board <name> [style] [direction]", ErrUsage)
	}
	if _, exists := r.d.Registry.Board(name); exists {
		return fmt.Errorf("%w: %s", registry.ErrBoardExists, name)
	}
	st, err := r.d.Styles.Get(c.arg(1))
	if err != nil {
		return err
	}
	dirName := c.arg(2)
	if dirName == "" {
		dirName = c.inv.Facing
	}
	dir, err := board.ParseDirection(dirName)
	if err != nil {
		return err
	}
	origin := c.inv.Pos.Add(board.Point{Y: -1})
	v, err := board.New(name, c.inv.World, origin, dir, st)
	if err != nil {
		return err
	}
	player := c.inv.Player
	if r.d.Terrain == nil {
		return r.finishBoard(ctx, player, v)
	}
	// Reading the terrain is a host round trip; do it off the loop and
	// register the board once it is safe to build over.
	r.tasks.Add(1)
	go func() {
		defer r.tasks.Done()
		err := r.d.Terrain.Save(context.WithoutCancel(ctx), v)
		r.d.Post.Post(func() {
			if err != nil {
				obslog.L().Warn("terrain_save_error", zap.String("board", v.Name), zap.Error(err))
				r.tellError(player, fmt.Errorf("could not back up the terrain: %w", err))
				return
			}
			if err := r.finishBoard(ctx, player, v); err != nil {
				r.tellError(player, err)
			}
		})
	}()
	return nil
}

func (r *Router) finishBoard(ctx context.Context, player string, v *board.View) error {
	if err := r.d.Registry.AddBoard(v); err != nil {
		return err
	}
	if err := r.d.Registry.SaveBoard(ctx, v); err != nil {
		obslog.L().Warn("store_save_error", zap.String("board", v.Name), zap.Error(err))
	}
	r.say(player, "cmd.board_created", map[string]any{"Board": v.Name, "Style": v.StyleName})
	return nil
}

func (r *Router) deleteGame(_ context.Context, c *call) error {
	name := c.arg(0)
	if name == "" {
		return fmt.Errorf("%w: /chess delete game <name>", ErrUsage)
	}
	g, ok := r.d.Registry.Game(name)
	if !ok {
		return fmt.Errorf("%w: %s", registry.ErrGameNotFound, name)
	}
	if !c.inv.Admin && !g.IsPlayerInGame(c.inv.Player) {
		return ErrNotAdmin
	}
	r.d.Expect.CancelGame(g.Name())
	g.AlertAll(r.d.Messages.Text("cmd.game_deleted_alert", map[string]any{"Player": c.inv.Player}))
	if err := r.d.Registry.RemoveGame(g.Name()); err != nil {
		return err
	}
	r.say(c.inv.Player, "cmd.game_deleted", map[string]any{"Game": g.Name()})
	return nil
}

func (r *Router) deleteBoard(ctx context.Context, c *call) error {
	if !c.inv.Admin {
		return ErrNotAdmin
	}
	name := c.arg(0)
	if name == "" {
		return fmt.Errorf("%w: /chess delete board <name>", ErrUsage)
	}
	v, err := r.d.Registry.RemoveBoard(ctx, name)
	if err != nil {
		return err
	}
	r.say(c.inv.Player, "cmd.board_deleted", map[string]any{"Board": v.Name})
	if r.d.Terrain == nil {
		return nil
	}
	player := c.inv.Player
	r.tasks.Add(1)
	go func() {
		defer r.tasks.Done()
		restored, err := r.d.Terrain.Restore(context.WithoutCancel(ctx), v)
		r.d.Post.Post(func() {
			switch {
			case err != nil:
				obslog.L().Warn("terrain_restore_error", zap.String("board", v.Name), zap.Error(err))
				r.tellError(player, fmt.Errorf("could not restore the terrain: %w", err))
			case restored:
				r.say(player, "cmd.terrain_restored", map[string]any{"Board": v.Name})
			}
		})
	}()
	return nil
}

func (r *Router) join(_ context.Context, c *call) error {
	var g *chessgame.Game
	if name := c.arg(0); name != "" {
		found, ok := r.d.Registry.Game(name)
		if !ok {
			return fmt.Errorf("%w: %s", registry.ErrGameNotFound, name)
		}
		g = found
	} else if c.inv.Game != "" {
		found, ok := r.d.Registry.Game(c.inv.Game)
		if !ok {
			return fmt.Errorf("%w: %s", registry.ErrGameNotFound, c.inv.Game)
		}
		g = found
	} else {
		// a personal invitation beats an open one
		var open *chessgame.Game
		for _, cand := range r.d.Registry.Games() {
			switch {
			case strings.EqualFold(cand.Invited(), c.inv.Player):
				g = cand
			case cand.Invited() == "*" && open == nil:
				open = cand
			}
			if g != nil {
				break
			}
		}
		if g == nil {
			g = open
		}
		if g == nil {
			return ErrNoInvitation
		}
	}
	if err := g.AddPlayer(c.inv.Player); err != nil {
		return err
	}
	c.touch(g)
	r.d.Registry.SetCurrent(c.inv.Player, g.Name())
	r.say(c.inv.Player, "cmd.joined", map[string]any{"Game": g.Name(), "Colour": g.PlayingAs(c.inv.Player).String()})
	return nil
}

func (r *Router) invite(_ context.Context, c *call) error {
	g, err := r.game(c)
	if err != nil {
		return err
	}
	who := c.arg(0)
	if who == "" || strings.EqualFold(who, "anyone") || who == "*" {
		if err := g.InviteOpen(c.inv.Player); err != nil {
			return err
		}
		c.touch(g)
		return nil
	}
	if chessgame.IsAIPlayer(who) {
		if r.d.AI == nil {
			return fmt.Errorf("no AI players are available")
		}
		if err := r.d.AI.CanPlay(who); err != nil {
			return err
		}
	}
	if err := g.InvitePlayer(c.inv.Player, who); err != nil {
		return err
	}
	c.touch(g)
	// engines accept straight away
	if chessgame.IsAIPlayer(who) {
		return g.AddPlayer(who)
	}
	r.say(c.inv.Player, "cmd.invited", map[string]any{"Player": who, "Game": g.Name()})
	return nil
}

func (r *Router) start(ctx context.Context, c *call) error {
	g, err := r.namedGame(c, 0)
	if err != nil {
		return err
	}
	if err := g.Start(ctx, c.inv.Player); err != nil {
		return err
	}
	c.touch(g)
	return nil
}

func (r *Router) move(ctx context.Context, c *call) error {
	if len(c.args) < 2 {
		return fmt.Errorf("%w: /chess move <from> <to>", ErrUsage)
	}
	g, err := r.game(c)
	if err != nil {
		return err
	}
	from, err := chessgame.ParseSquare(c.arg(0))
	if err != nil {
		return err
	}
	to, err := chessgame.ParseSquare(c.arg(1))
	if err != nil {
		return err
	}
	c.touch(g)
	return g.Move(ctx, c.inv.Player, from, to)
}

func (r *Router) resign(_ context.Context, c *call) error {
	g, err := r.namedGame(c, 0)
	if err != nil {
		return err
	}
	if err := g.Resign(c.inv.Player); err != nil {
		return err
	}
	r.d.Expect.CancelGame(g.Name())
	c.touch(g)
	return nil
}

func (r *Router) offerDraw(_ context.Context, c *call) error {
	g, err := r.game(c)
	if err != nil {
		return err
	}
	if err := r.d.Expect.OfferDraw(g, c.inv.Player); err != nil {
		return err
	}
	c.touch(g)
	return nil
}

func (r *Router) offerSwap(_ context.Context, c *call) error {
	g, err := r.game(c)
	if err != nil {
		return err
	}
	if err := r.d.Expect.OfferSwap(g, c.inv.Player); err != nil {
		return err
	}
	c.touch(g)
	return nil
}

func (r *Router) answer(yes bool) handler {
	return func(_ context.Context, c *call) error {
		g, _ := r.game(c)
		if err := r.d.Expect.Resolve(c.inv.Player, yes); err != nil {
			return err
		}
		if g != nil {
			c.touch(g)
		}
		return nil
	}
}

func (r *Router) promote(_ context.Context, c *call) error {
	g, err := r.game(c)
	if err != nil {
		return err
	}
	if c.arg(0) == "" {
		err = g.CyclePromotionPiece(c.inv.Player)
	} else {
		kind, ok := chessgame.ParsePieceKind(c.arg(0))
		if !ok {
			return fmt.Errorf("%w: /chess promote <q|r|b|n>", ErrUsage)
		}
		err = g.SetPromotionPiece(c.inv.Player, kind)
	}
	if err != nil {
		return err
	}
	c.touch(g)
	return nil
}

func (r *Router) stake(_ context.Context, c *call) error {
	g, err := r.game(c)
	if err != nil {
		return err
	}
	amount, err := strconv.ParseFloat(c.arg(0), 64)
	if err != nil {
		return fmt.Errorf("%w: /chess stake <amount>", ErrUsage)
	}
	if err := g.SetStake(c.inv.Player, amount); err != nil {
		return err
	}
	c.touch(g)
	r.say(c.inv.Player, "cmd.stake_set", map[string]any{"Amount": r.d.PanelSettings.FormatAmount(g.Stake())})
	return nil
}

func (r *Router) fen(_ context.Context, c *call) error {
	g, err := r.game(c)
	if err != nil {
		return err
	}
	if !g.IsPlayerInGame(c.inv.Player) {
		return ErrNotAdmin
	}
	if g.State() != chessgame.StateSettingUp {
		return errors.New("the position can only be set before the game starts")
	}
	if err := g.SetFEN(strings.Join(c.args, " ")); err != nil {
		return err
	}
	c.touch(g)
	return nil
}

func (r *Router) listGame(_ context.Context, c *call) error {
	if name := c.arg(0); name != "" {
		g, ok := r.d.Registry.Game(name)
		if !ok {
			return fmt.Errorf("%w: %s", registry.ErrGameNotFound, name)
		}
		for _, line := range g.Detail() {
			r.Tell(c.inv.Player, line)
		}
		return nil
	}
	games := r.d.Registry.Games()
	if len(games) == 0 {
		r.say(c.inv.Player, "cmd.no_games", nil)
		return nil
	}
	for _, g := range games {
		r.say(c.inv.Player, "cmd.game_line", map[string]any{
			"Game":  g.Name(),
			"Board": g.Board(),
			"White": orDash(g.White()),
			"Black": orDash(g.Black()),
			"State": string(g.State()),
		})
	}
	return nil
}

func (r *Router) listBoard(_ context.Context, c *call) error {
	if name := c.arg(0); name != "" {
		v, ok := r.d.Registry.Board(name)
		if !ok {
			return fmt.Errorf("%w: %s", registry.ErrBoardNotFound, name)
		}
		game := "-"
		if g, ok := r.d.Registry.GameOnBoard(v.Name); ok {
			game = g.Name()
		}
		r.say(c.inv.Player, "cmd.board_detail", map[string]any{
			"Board":     v.Name,
			"World":     v.World,
			"Origin":    v.Origin.String(),
			"Direction": v.Direction.String(),
			"Style":     v.StyleName,
			"Game":      game,
		})
		return nil
	}
	boards := r.d.Registry.Boards()
	if len(boards) == 0 {
		r.say(c.inv.Player, "cmd.no_boards", nil)
		return nil
	}
	for _, v := range boards {
		game := "-"
		if g, ok := r.d.Registry.GameOnBoard(v.Name); ok {
			game = g.Name()
		}
		r.say(c.inv.Player, "cmd.board_line", map[string]any{"Board": v.Name, "World": v.World, "Game": game})
	}
	return nil
}

func (r *Router) listAI(_ context.Context, c *call) error {
	if r.d.AI == nil {
		return errors.New("no AI players are available")
	}
	names := r.d.AI.Names()
	for i, n := range names {
		names[i] = chessgame.AIPrefix + n
	}
	r.say(c.inv.Player, "cmd.ai_list", map[string]any{"Players": strings.Join(names, ", ")})
	return nil
}

func (r *Router) archive(_ context.Context, c *call) error {
	if r.d.PGN == nil {
		return ErrNoArchive
	}
	g, err := r.namedGame(c, 0)
	if err != nil {
		return err
	}
	path, err := r.d.PGN.Write(g)
	if err != nil {
		return err
	}
	r.say(c.inv.Player, "cmd.archived", map[string]any{"Game": g.Name(), "File": path})
	return nil
}

func (r *Router) claimWin(_ context.Context, c *call) error {
	g, err := r.game(c)
	if err != nil {
		return err
	}
	if g.State() != chessgame.StateRunning {
		return errors.New("the game is not running")
	}
	if !g.IsPlayerInGame(c.inv.Player) {
		return ErrNotAdmin
	}
	other := g.OtherPlayer(c.inv.Player)
	if other == "" || chessgame.IsAIPlayer(other) {
		return ErrStillOnline
	}
	left, away := r.away[key(other)]
	if !away || r.d.Now().Sub(left) < r.d.ForfeitAfter {
		return ErrStillOnline
	}
	r.d.Expect.CancelGame(g.Name())
	g.WinByDefault(c.inv.Player)
	c.touch(g)
	return nil
}

func (r *Router) teleport(_ context.Context, c *call) error {
	var v *board.View
	if g, err := r.game(c); err == nil {
		v, _ = r.d.Registry.Board(g.Board())
	}
	if here, ok := r.d.Registry.BoardAt(c.inv.World, c.inv.Pos); ok {
		v = here
	}
	if v == nil {
		return ErrNoBoardHere
	}
	if r.d.Host != nil {
		r.d.Host.Teleport(c.inv.Player, v.World, v.StandingPoint())
	}
	return nil
}

func (r *Router) reload(ctx context.Context, c *call) error {
	if !c.inv.Admin {
		return ErrNotAdmin
	}
	what := key(c.arg(0))
	names := make([]string, 0, len(r.d.Reloaders))
	for n := range r.d.Reloaders {
		names = append(names, n)
	}
	sort.Strings(names)
	if what == "persist" {
		r.d.Expect.Clear()
		if err := r.d.Registry.Reload(ctx); err != nil {
			return err
		}
		r.say(c.inv.Player, "cmd.reloaded", map[string]any{"What": what})
		return nil
	}
	fn, ok := r.d.Reloaders[what]
	if !ok {
		return fmt.Errorf("%w: /chess reload <persist|%s>", ErrUsage, strings.Join(names, "|"))
	}
	if err := fn(ctx); err != nil {
		return err
	}
	r.repaintAll()
	r.say(c.inv.Player, "cmd.reloaded", map[string]any{"What": what})
	return nil
}

func (r *Router) save(ctx context.Context, c *call) error {
	if !c.inv.Admin {
		return ErrNotAdmin
	}
	if err := r.d.Registry.SaveAll(ctx); err != nil {
		return err
	}
	r.say(c.inv.Player, "cmd.saved", map[string]any{"Games": len(r.d.Registry.Games()), "Boards": len(r.d.Registry.Boards())})
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
