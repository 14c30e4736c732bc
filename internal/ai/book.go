package ai

import (
	"fmt"
	"os"
	"strings"

	chesslib "github.com/corentings/chess/v2"
	"github.com/park285/chesscraft-go/internal/chessgame"
)

// Book answers opening positions from a polyglot file so engine players do
// not spend a search on them.
type Book struct {
	poly *chesslib.PolyglotBook
}

// OpenBook loads a polyglot book. An empty path returns a nil book, which
// never has a move.
func OpenBook(path string) (*Book, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open polyglot book %q: %w", path, err)
	}
	defer f.Close()
	poly, err := chesslib.LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("load polyglot book %q: %w", path, err)
	}
	return &Book{poly: poly}, nil
}

// Lookup returns the heaviest book move for the position reached by playing
// moves (UCI) from fen. ok is false when the position is not in the book.
func (b *Book) Lookup(fen string, moves []string) (string, bool, error) {
	if b == nil || b.poly == nil {
		return "", false, nil
	}
	game, err := replay(fen, moves)
	if err != nil {
		return "", false, err
	}
	hash, err := chesslib.NewZobristHasher().HashPosition(game.FEN())
	if err != nil {
		return "", false, fmt.Errorf("compute polyglot hash: %w", err)
	}
	entries := b.poly.FindMoves(chesslib.ZobristHashToUint64(hash))
	if len(entries) == 0 {
		return "", false, nil
	}
	best := entries[0]
	for _, e := range entries[1:] {
		if e.Weight > best.Weight {
			best = e
		}
	}
	move := chesslib.DecodeMove(best.Move).ToMove()
	uciMove := move.String()
	if err := game.PushNotationMove(uciMove, chesslib.UCINotation{}, nil); err != nil {
		return "", false, fmt.Errorf("book move %q invalid for position: %w", uciMove, err)
	}
	return uciMove, true, nil
}

func replay(fen string, moves []string) (*chesslib.Game, error) {
	var game *chesslib.Game
	if strings.TrimSpace(fen) == "" || fen == chessgame.StartFEN {
		game = chesslib.NewGame()
	} else {
		opt, err := chesslib.FEN(fen)
		if err != nil {
			return nil, fmt.Errorf("parse fen %q: %w", fen, err)
		}
		game = chesslib.NewGame(opt)
	}
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, chesslib.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("apply move %q: %w", mv, err)
		}
	}
	return game, nil
}
