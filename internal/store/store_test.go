package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/chesscraft-go/internal/board"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	s, err := NewRedisStore(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func sampleGame(name string) map[string]any {
	return map[string]any{
		"name":        name,
		"boardview":   "hall",
		"playerWhite": "alice",
		"playerBlack": "bob",
		"state":       "RUNNING",
		"moves":       []int{796, 3356},
		"started":     int64(1714564800000),
		"stake":       2.5,
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if err := s.SaveGame(ctx, "g2", sampleGame("g2")); err != nil {
		t.Fatalf("SaveGame g2: %v", err)
	}
	if err := s.SaveGame(ctx, "g1", sampleGame("g1")); err != nil {
		t.Fatalf("SaveGame g1: %v", err)
	}
	updated := sampleGame("g1")
	updated["state"] = "FINISHED"
	if err := s.SaveGame(ctx, "g1", updated); err != nil {
		t.Fatalf("SaveGame overwrite: %v", err)
	}
	games, err := s.LoadGames(ctx)
	if err != nil {
		t.Fatalf("LoadGames: %v", err)
	}
	if len(games) != 2 || games[0]["name"] != "g1" || games[0]["state"] != "FINISHED" {
		t.Fatalf("games = %v", games)
	}
	moves, ok := games[1]["moves"].([]any)
	if !ok || len(moves) != 2 {
		t.Fatalf("moves = %#v", games[1]["moves"])
	}

	if err := s.DeleteGame(ctx, "g2"); err != nil {
		t.Fatalf("DeleteGame: %v", err)
	}
	if err := s.DeleteGame(ctx, "never"); err != nil {
		t.Fatalf("DeleteGame missing: %v", err)
	}
	games, _ = s.LoadGames(ctx)
	if len(games) != 1 {
		t.Fatalf("after delete: %v", games)
	}

	b := board.Frozen{Name: "hall", World: "world", Origin: board.Point{X: 1, Y: 64, Z: -3}, Direction: "east", Style: "standard"}
	if err := s.SaveBoard(ctx, b); err != nil {
		t.Fatalf("SaveBoard: %v", err)
	}
	boards, err := s.LoadBoards(ctx)
	if err != nil {
		t.Fatalf("LoadBoards: %v", err)
	}
	if len(boards) != 1 || boards[0] != b {
		t.Fatalf("boards = %+v", boards)
	}
	if err := s.DeleteBoard(ctx, "hall"); err != nil {
		t.Fatalf("DeleteBoard: %v", err)
	}
	boards, _ = s.LoadBoards(ctx)
	if len(boards) != 0 {
		t.Fatalf("board not deleted: %+v", boards)
	}

	if err := s.SaveGame(ctx, "../escape", sampleGame("x")); !errors.Is(err, ErrBadName) {
		t.Fatalf("path name accepted: %v", err)
	}
}

func TestRedisStore_RoundTrip(t *testing.T) {
	s, _ := newTestRedisStore(t)
	exerciseStore(t, s)
}

func TestFileStore_RoundTrip(t *testing.T) {
	exerciseStore(t, newTestFileStore(t))
}

func TestRedisStore_DropsStaleIndexEntries(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()
	if err := s.SaveGame(ctx, "g1", sampleGame("g1")); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	mr.Del(gameKey("g1"))
	games, err := s.LoadGames(ctx)
	if err != nil || len(games) != 0 {
		t.Fatalf("LoadGames = %v, %v", games, err)
	}
	if ok, _ := mr.SIsMember(gamesIndexKey(), "g1"); ok {
		t.Fatalf("stale index entry kept")
	}
}

func TestFileStore_SkipsBrokenFiles(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()
	if err := s.SaveGame(ctx, "ok", sampleGame("ok")); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, "games", "bad.yml"), []byte("name: [unclosed"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	games, err := s.LoadGames(ctx)
	if err != nil || len(games) != 1 {
		t.Fatalf("LoadGames = %v, %v", games, err)
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := ParseRedisURL("redis://:secret@localhost:6380/3")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 3 {
		t.Fatalf("opts = %+v", opts)
	}
	if _, err := ParseRedisURL("http://localhost"); err == nil {
		t.Fatalf("http scheme accepted")
	}
}
