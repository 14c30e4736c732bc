package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/chesscraft-go/internal/board"
	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/loop"
	"github.com/park285/chesscraft-go/internal/store"
	"github.com/park285/chesscraft-go/internal/style"
)

type testRig struct {
	reg    *Registry
	store  *store.FileStore
	styles *style.Library
	sched  *loop.Manual
}

func newTestRegistry(t *testing.T) *testRig {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	lib, err := style.NewLibrary("")
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	sched := loop.NewManual(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	deps := func(string) chessgame.Deps {
		return chessgame.Deps{
			Scheduler: sched,
			Now:       sched.Now,
			Settings:  chessgame.Settings{AutoDelete: time.Minute},
		}
	}
	return &testRig{reg: New(st, lib, deps), store: st, styles: lib, sched: sched}
}

func (r *testRig) addBoard(t *testing.T, name string, origin board.Point) *board.View {
	t.Helper()
	st, err := r.styles.Get("")
	if err != nil {
		t.Fatalf("style: %v", err)
	}
	v, err := board.New(name, "world", origin, board.North, st)
	if err != nil {
		t.Fatalf("board.New: %v", err)
	}
	if err := r.reg.AddBoard(v); err != nil {
		t.Fatalf("AddBoard: %v", err)
	}
	return v
}

func TestCreateGame_OneGamePerBoard(t *testing.T) {
	rig := newTestRegistry(t)
	rig.addBoard(t, "hall", board.Point{})

	g, err := rig.reg.CreateGame("hall", "", "alice")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if g.Name() != "hall-1" || g.White() != "alice" {
		t.Fatalf("game = %s white=%s", g.Name(), g.White())
	}
	if _, err := rig.reg.CreateGame("hall", "other", "bob"); !errors.Is(err, ErrBoardOccupied) {
		t.Fatalf("second game on board: %v", err)
	}
	if _, err := rig.reg.CreateGame("nowhere", "", "bob"); !errors.Is(err, ErrBoardNotFound) {
		t.Fatalf("missing board: %v", err)
	}
	if got, ok := rig.reg.GameOnBoard("HALL"); !ok || got != g {
		t.Fatalf("GameOnBoard mismatch")
	}
}

func TestAddBoard_RejectsOverlapAndDuplicates(t *testing.T) {
	rig := newTestRegistry(t)
	v := rig.addBoard(t, "hall", board.Point{})
	st, _ := rig.styles.Get("")

	dup, _ := board.New("HALL", "world", board.Point{X: 500}, board.North, st)
	if err := rig.reg.AddBoard(dup); !errors.Is(err, ErrBoardExists) {
		t.Fatalf("duplicate: %v", err)
	}
	near, _ := board.New("near", "world", board.Point{X: 10}, board.North, st)
	if err := rig.reg.AddBoard(near); !errors.Is(err, ErrBoardOverlap) {
		t.Fatalf("overlap: %v", err)
	}
	elsewhere, _ := board.New("near", "nether", board.Point{X: 10}, board.North, st)
	if err := rig.reg.AddBoard(elsewhere); err != nil {
		t.Fatalf("other world: %v", err)
	}
	if got, ok := rig.reg.BoardAt("world", v.Origin); !ok || got != v {
		t.Fatalf("BoardAt did not find hall")
	}
}

func TestRemoveBoard_RefusedWhileInUse(t *testing.T) {
	rig := newTestRegistry(t)
	rig.addBoard(t, "hall", board.Point{})
	g, _ := rig.reg.CreateGame("hall", "g1", "alice")
	ctx := context.Background()

	if _, err := rig.reg.RemoveBoard(ctx, "hall"); !errors.Is(err, ErrBoardInUse) {
		t.Fatalf("remove busy board: %v", err)
	}
	if err := rig.reg.RemoveGame(g.Name()); err != nil {
		t.Fatalf("RemoveGame: %v", err)
	}
	if _, err := rig.reg.RemoveBoard(ctx, "hall"); err != nil {
		t.Fatalf("RemoveBoard: %v", err)
	}
	if len(rig.reg.Boards()) != 0 {
		t.Fatalf("board still registered")
	}
}

func TestAutoDeleteRemovesFromRegistry(t *testing.T) {
	rig := newTestRegistry(t)
	rig.addBoard(t, "hall", board.Point{})
	g, _ := rig.reg.CreateGame("hall", "g1", "alice")
	_ = g.InvitePlayer("alice", "bob")
	_ = g.AddPlayer("bob")
	if err := g.Start(context.Background(), "bob"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := g.Resign("bob"); err != nil {
		t.Fatalf("Resign: %v", err)
	}
	rig.sched.Advance(time.Minute)
	if _, ok := rig.reg.Game("g1"); ok {
		t.Fatalf("game survived auto-delete")
	}
	if _, ok := rig.reg.GameOnBoard("hall"); ok {
		t.Fatalf("board still bound")
	}
}

func TestGameForPlayer(t *testing.T) {
	rig := newTestRegistry(t)
	rig.addBoard(t, "a", board.Point{})
	rig.addBoard(t, "b", board.Point{X: 200})
	ga, _ := rig.reg.CreateGame("a", "ga", "alice")
	_ = ga.InviteOpen("alice")
	_ = ga.AddPlayer("carol")

	if _, err := rig.reg.GameForPlayer("dave"); !errors.Is(err, ErrNoCurrentGame) {
		t.Fatalf("stranger: %v", err)
	}
	got, err := rig.reg.GameForPlayer("carol")
	if err != nil || got != ga {
		t.Fatalf("carol -> %v, %v", got, err)
	}
	gb, _ := rig.reg.CreateGame("b", "gb", "alice")
	got, _ = rig.reg.GameForPlayer("alice")
	if got != gb {
		t.Fatalf("current game should follow the last created")
	}
}

func TestSaveAllLoadAll(t *testing.T) {
	rig := newTestRegistry(t)
	rig.addBoard(t, "hall", board.Point{})
	g, _ := rig.reg.CreateGame("hall", "g1", "alice")
	_ = g.InvitePlayer("alice", "bob")
	_ = g.AddPlayer("bob")
	_ = g.Start(context.Background(), "alice")
	from, _ := chessgame.ParseSquare("e2")
	to, _ := chessgame.ParseSquare("e4")
	if err := g.Move(context.Background(), "alice", from, to); err != nil {
		t.Fatalf("Move: %v", err)
	}

	ctx := context.Background()
	if err := rig.reg.SaveAll(ctx); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if err := rig.reg.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	back, ok := rig.reg.GameOnBoard("hall")
	if !ok {
		t.Fatalf("game not restored")
	}
	if back == g || back.Black() != "bob" || len(back.History()) != 1 || back.State() != chessgame.StateRunning {
		t.Fatalf("restored game = %s %s %d", back.Black(), back.State(), len(back.History()))
	}
}
