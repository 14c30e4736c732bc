package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/park285/chesscraft-go/internal/board"
	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/obslog"
	"github.com/park285/chesscraft-go/internal/store"
	"github.com/park285/chesscraft-go/internal/style"
	"go.uber.org/zap"
)

var (
	ErrBoardExists   = errors.New("board already exists")
	ErrBoardNotFound = errors.New("no such board")
	ErrBoardInUse    = errors.New("board has a game on it")
	ErrBoardOverlap  = errors.New("board would overlap another board")
	ErrBoardOccupied = errors.New("that board already has a game on it")
	ErrGameExists    = errors.New("game already exists")
	ErrGameNotFound  = errors.New("no such game")
	ErrNoCurrentGame = errors.New("you are not in any game")
)

// DepsFunc builds the collaborators for a game on the named board. The
// registry sets itself as the game's Owner.
type DepsFunc func(board string) chessgame.Deps

// Hooks observe registry changes, e.g. to repaint a board's control panel.
type Hooks struct {
	GameAdded    func(g *chessgame.Game)
	GameRemoved  func(g *chessgame.Game)
	BoardAdded   func(v *board.View)
	BoardRemoved func(v *board.View)
}

// Registry owns the boards and the games bound to them. A board carries at
// most one game. Not safe for concurrent use; it lives on the game loop.
type Registry struct {
	store  store.Store
	styles *style.Library
	deps   DepsFunc
	hooks  Hooks

	boards  map[string]*board.View
	games   map[string]*chessgame.Game
	onBoard map[string]string // board -> game
	current map[string]string // player -> game
}

func New(st store.Store, styles *style.Library, deps DepsFunc) *Registry {
	if deps == nil {
		deps = func(string) chessgame.Deps { return chessgame.Deps{} }
	}
	return &Registry{
		store:   st,
		styles:  styles,
		deps:    deps,
		boards:  make(map[string]*board.View),
		games:   make(map[string]*chessgame.Game),
		onBoard: make(map[string]string),
		current: make(map[string]string),
	}
}

func (r *Registry) SetHooks(h Hooks) { r.hooks = h }

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// AddBoard registers v. Its outer bounds must not overlap another board.
func (r *Registry) AddBoard(v *board.View) error {
	if _, ok := r.boards[key(v.Name)]; ok {
		return fmt.Errorf("%w: %s", ErrBoardExists, v.Name)
	}
	outer := v.OuterBounds()
	for _, other := range r.boards {
		if outer.Intersects(other.OuterBounds()) {
			return fmt.Errorf("%w: %s", ErrBoardOverlap, other.Name)
		}
	}
	r.boards[key(v.Name)] = v
	if r.hooks.BoardAdded != nil {
		r.hooks.BoardAdded(v)
	}
	obslog.L().Info("board_add", zap.String("board", v.Name), zap.String("world", v.World), zap.String("origin", v.Origin.String()))
	return nil
}

// RemoveBoard unregisters a board that has no game and deletes it from the
// store.
func (r *Registry) RemoveBoard(ctx context.Context, name string) (*board.View, error) {
	v, ok := r.boards[key(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBoardNotFound, name)
	}
	if g, busy := r.onBoard[key(name)]; busy {
		return nil, fmt.Errorf("%w: %s", ErrBoardInUse, g)
	}
	delete(r.boards, key(name))
	if r.store != nil {
		if err := r.store.DeleteBoard(ctx, v.Name); err != nil {
			obslog.L().Warn("store_delete_error", zap.String("board", v.Name), zap.Error(err))
		}
	}
	if r.hooks.BoardRemoved != nil {
		r.hooks.BoardRemoved(v)
	}
	obslog.L().Info("board_remove", zap.String("board", v.Name))
	return v, nil
}

func (r *Registry) Board(name string) (*board.View, bool) {
	v, ok := r.boards[key(name)]
	return v, ok
}

// Boards returns every board sorted by name.
func (r *Registry) Boards() []*board.View {
	out := make([]*board.View, 0, len(r.boards))
	for _, v := range r.boards {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i].Name) < key(out[j].Name) })
	return out
}

// BoardAt finds the board whose outer bounds hold p.
func (r *Registry) BoardAt(world string, p board.Point) (*board.View, bool) {
	for _, v := range r.boards {
		if v.OuterBounds().Contains(world, p) {
			return v, true
		}
	}
	return nil, false
}

// CreateGame starts a game in setup on boardName with creator as white. An
// empty name becomes the board name plus a counter.
func (r *Registry) CreateGame(boardName, name, creator string) (*chessgame.Game, error) {
	v, ok := r.boards[key(boardName)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBoardNotFound, boardName)
	}
	if _, busy := r.onBoard[key(v.Name)]; busy {
		return nil, ErrBoardOccupied
	}
	if strings.TrimSpace(name) == "" {
		name = r.nextGameName(v.Name)
	}
	if _, exists := r.games[key(name)]; exists {
		return nil, fmt.Errorf("%w: %s", ErrGameExists, name)
	}
	deps := r.deps(v.Name)
	deps.Owner = r
	g, err := chessgame.New(name, v.Name, creator, deps)
	if err != nil {
		return nil, err
	}
	r.attach(g)
	r.SetCurrent(creator, g.Name())
	return g, nil
}

func (r *Registry) nextGameName(base string) string {
	for n := 1; ; n++ {
		name := fmt.Sprintf("%s-%d", base, n)
		if _, taken := r.games[key(name)]; !taken {
			return name
		}
	}
}

func (r *Registry) attach(g *chessgame.Game) {
	r.games[key(g.Name())] = g
	r.onBoard[key(g.Board())] = g.Name()
	if r.hooks.GameAdded != nil {
		r.hooks.GameAdded(g)
	}
}

func (r *Registry) Game(name string) (*chessgame.Game, bool) {
	g, ok := r.games[key(name)]
	return g, ok
}

func (r *Registry) GameOnBoard(boardName string) (*chessgame.Game, bool) {
	name, ok := r.onBoard[key(boardName)]
	if !ok {
		return nil, false
	}
	return r.Game(name)
}

// Games returns every game sorted by name.
func (r *Registry) Games() []*chessgame.Game {
	out := make([]*chessgame.Game, 0, len(r.games))
	for _, g := range r.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i].Name()) < key(out[j].Name()) })
	return out
}

// RemoveGame detaches a game from its board and the store. It implements
// chessgame.Owner for auto-deletion.
func (r *Registry) RemoveGame(name string) error {
	g, ok := r.games[key(name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGameNotFound, name)
	}
	g.Detach()
	delete(r.games, key(name))
	if r.onBoard[key(g.Board())] == g.Name() {
		delete(r.onBoard, key(g.Board()))
	}
	for p, cur := range r.current {
		if strings.EqualFold(cur, g.Name()) {
			delete(r.current, p)
		}
	}
	if r.store != nil {
		ctx, cancel := storeContext()
		defer cancel()
		if err := r.store.DeleteGame(ctx, g.Name()); err != nil {
			obslog.L().Warn("store_delete_error", zap.String("game", g.Name()), zap.Error(err))
		}
	}
	if r.hooks.GameRemoved != nil {
		r.hooks.GameRemoved(g)
	}
	obslog.L().Info("game_remove", zap.String("game", g.Name()), zap.String("board", g.Board()))
	return nil
}

// SetCurrent records the game a player last worked with.
func (r *Registry) SetCurrent(player, game string) {
	if strings.TrimSpace(player) == "" {
		return
	}
	r.current[key(player)] = game
}

// GameForPlayer resolves the game commands without a game name act on: the
// player's current game, else the only game they play in.
func (r *Registry) GameForPlayer(player string) (*chessgame.Game, error) {
	if name, ok := r.current[key(player)]; ok {
		if g, ok := r.Game(name); ok {
			return g, nil
		}
	}
	var found *chessgame.Game
	for _, g := range r.Games() {
		if !g.IsPlayerInGame(player) {
			continue
		}
		if found != nil {
			return nil, errors.New("you are in more than one game; name the game")
		}
		found = g
	}
	if found == nil {
		return nil, ErrNoCurrentGame
	}
	return found, nil
}
