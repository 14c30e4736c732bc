package registry

import (
	"context"
	"errors"
	"time"

	"github.com/park285/chesscraft-go/internal/board"
	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/obslog"
	"go.uber.org/zap"
)

const storeTimeout = 5 * time.Second

func storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}

var errNoStore = errors.New("no store configured")

func (r *Registry) SaveGame(ctx context.Context, g *chessgame.Game) error {
	if r.store == nil {
		return errNoStore
	}
	if err := r.store.SaveGame(ctx, g.Name(), g.Freeze()); err != nil {
		obslog.L().Error("store_save_error", zap.String("game", g.Name()), zap.Error(err))
		return err
	}
	return nil
}

func (r *Registry) SaveBoard(ctx context.Context, v *board.View) error {
	if r.store == nil {
		return errNoStore
	}
	if err := r.store.SaveBoard(ctx, v.Freeze()); err != nil {
		obslog.L().Error("store_save_error", zap.String("board", v.Name), zap.Error(err))
		return err
	}
	return nil
}

// SaveAll writes every board and game. It keeps going past failures and
// returns them joined.
func (r *Registry) SaveAll(ctx context.Context) error {
	var errs []error
	for _, v := range r.Boards() {
		if err := r.SaveBoard(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}
	for _, g := range r.Games() {
		if err := r.SaveGame(ctx, g); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadAll reads boards then games from the store. Records that cannot be
// restored are logged and skipped.
func (r *Registry) LoadAll(ctx context.Context) error {
	if r.store == nil {
		return errNoStore
	}
	frozenBoards, err := r.store.LoadBoards(ctx)
	if err != nil {
		return err
	}
	for _, fb := range frozenBoards {
		v, err := board.Thaw(fb, r.styles)
		if err != nil {
			obslog.L().Warn("board_thaw_error", zap.String("board", fb.Name), zap.Error(err))
			continue
		}
		if err := r.AddBoard(v); err != nil {
			obslog.L().Warn("board_thaw_error", zap.String("board", fb.Name), zap.Error(err))
		}
	}

	frozenGames, err := r.store.LoadGames(ctx)
	if err != nil {
		return err
	}
	for _, fg := range frozenGames {
		boardName, _ := fg["boardview"].(string)
		gameName, _ := fg["name"].(string)
		if _, ok := r.boards[key(boardName)]; !ok {
			obslog.L().Warn("game_thaw_error", zap.String("game", gameName), zap.String("board", boardName), zap.Error(ErrBoardNotFound))
			continue
		}
		if _, busy := r.onBoard[key(boardName)]; busy {
			obslog.L().Warn("game_thaw_error", zap.String("game", gameName), zap.String("board", boardName), zap.Error(ErrBoardOccupied))
			continue
		}
		deps := r.deps(boardName)
		deps.Owner = r
		g, err := chessgame.Thaw(fg, deps)
		if err != nil {
			obslog.L().Warn("game_thaw_error", zap.String("game", gameName), zap.Error(err))
			continue
		}
		r.attach(g)
	}
	obslog.L().Info("registry_loaded", zap.Int("boards", len(r.boards)), zap.Int("games", len(r.games)))
	return nil
}

// Reload drops every game and board from memory and loads the store again.
// Unsaved changes are lost.
func (r *Registry) Reload(ctx context.Context) error {
	for _, g := range r.games {
		g.Detach()
	}
	r.games = make(map[string]*chessgame.Game)
	r.onBoard = make(map[string]string)
	r.current = make(map[string]string)
	r.boards = make(map[string]*board.View)
	return r.LoadAll(ctx)
}
