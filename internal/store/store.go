package store

import (
	"context"
	"errors"

	"github.com/park285/chesscraft-go/internal/board"
)

var ErrBadName = errors.New("invalid record name")

// Store persists frozen games and boards across restarts.
type Store interface {
	SaveGame(ctx context.Context, name string, frozen map[string]any) error
	LoadGames(ctx context.Context) ([]map[string]any, error)
	DeleteGame(ctx context.Context, name string) error

	SaveBoard(ctx context.Context, b board.Frozen) error
	LoadBoards(ctx context.Context) ([]board.Frozen, error)
	DeleteBoard(ctx context.Context, name string) error

	Close() error
}

func checkName(name string) error {
	if !board.ValidName(name) {
		return ErrBadName
	}
	return nil
}
