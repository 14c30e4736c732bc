package ai

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/loop"
)

func TestLevels_DefaultsAndOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ai.yml")
	raw := "levels:\n  easy:\n    skill: 7\n    depth: 3\n  blitz:\n    skill: 12\n    movetime: 100\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	levels, err := NewLevels(path)
	if err != nil {
		t.Fatalf("NewLevels: %v", err)
	}
	easy, err := levels.Get("*AI-Easy")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if easy.Skill != 7 || easy.PlayerName() != "*AI-easy" {
		t.Fatalf("easy = %+v", easy)
	}
	if _, err := levels.Get("master"); err != nil {
		t.Fatalf("embedded level lost: %v", err)
	}
	if _, err := levels.Get("blitz"); err != nil {
		t.Fatalf("override level missing: %v", err)
	}
	if _, err := levels.Get("grandmaster"); !errors.Is(err, ErrUnknownLevel) {
		t.Fatalf("unknown level: %v", err)
	}
}

func TestLevels_RejectsBadSkill(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ai.yml")
	_ = os.WriteFile(path, []byte("levels:\n  silly:\n    skill: 40\n"), 0o644)
	if _, err := NewLevels(path); err == nil {
		t.Fatalf("skill 40 accepted")
	}
}

func TestLevel_LimitsFallback(t *testing.T) {
	if got := (Level{}).limits(); got.MoveTimeMillis != 1000 {
		t.Fatalf("fallback limits = %+v", got)
	}
	if got := (Level{}).options(); got.HashMB != 16 {
		t.Fatalf("fallback hash = %d", got.HashMB)
	}
}

type fixedSearcher struct{ move string }

func (f fixedSearcher) BestMove(context.Context, Level, chessgame.MoveRequest) (string, error) {
	return f.move, nil
}

func TestPlayer_PlaysThroughLoop(t *testing.T) {
	levels, err := NewLevels("")
	if err != nil {
		t.Fatalf("NewLevels: %v", err)
	}
	sched := loop.NewManual(time.Unix(0, 0))
	player := NewPlayer(fixedSearcher{move: "e7e5"}, levels, sched)
	var searched string
	player.OnSearch = func(level string, _ time.Duration, _ error) { searched = level }

	g, err := chessgame.New("vs-ai", "hall", "alice", chessgame.Deps{Scheduler: sched, Now: sched.Now, AI: player})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	_ = g.InvitePlayer("alice", "*AI-easy")
	if err := g.AddPlayer("*AI-easy"); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if err := g.Start(ctx, "alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	from, to, _, _ := chessgame.ParseUCI("e2e4")
	if err := g.Move(ctx, "alice", from, to); err != nil {
		t.Fatalf("Move: %v", err)
	}
	player.Wait()
	sched.Flush()

	if got := g.UCIHistory(); len(got) != 2 || got[1] != "e7e5" {
		t.Fatalf("history = %v", got)
	}
	if searched != "easy" {
		t.Fatalf("OnSearch level = %q", searched)
	}
}

func TestPlayer_NoEngine(t *testing.T) {
	levels, _ := NewLevels("")
	p := NewPlayer(nil, levels, loop.NewManual(time.Unix(0, 0)))
	if err := p.CanPlay("*AI-easy"); !errors.Is(err, ErrNoEngine) {
		t.Fatalf("CanPlay: %v", err)
	}
	if _, err := NewEngine(""); !errors.Is(err, ErrNoEngine) {
		t.Fatalf("NewEngine: %v", err)
	}
}

func TestPlayer_Names(t *testing.T) {
	levels, err := NewLevels("")
	if err != nil {
		t.Fatalf("NewLevels: %v", err)
	}
	p := NewPlayer(fixedSearcher{move: "e7e5"}, levels, loop.NewManual(time.Unix(0, 0)))
	names := p.Names()
	if len(names) == 0 {
		t.Fatal("no level names")
	}
	for _, n := range names {
		if err := p.CanPlay(chessgame.AIPrefix + n); err != nil {
			t.Fatalf("CanPlay(%q): %v", n, err)
		}
	}
	var nilPlayer *Player
	if got := nilPlayer.Names(); got != nil {
		t.Fatalf("nil player names = %v", got)
	}
}

// blockingPoster refuses to run anything until released, like a loop whose
// queue is full while the caller itself is the loop.
type blockingPoster struct {
	release chan struct{}
	posted  chan func()
}

func (b *blockingPoster) Post(fn func()) {
	<-b.release
	b.posted <- fn
}

func TestPlayer_UnplayableDoesNotPostInline(t *testing.T) {
	levels, _ := NewLevels("")
	post := &blockingPoster{release: make(chan struct{}), posted: make(chan func(), 1)}
	p := NewPlayer(nil, levels, post)

	returned := make(chan struct{})
	var gotErr error
	go func() {
		p.RequestMove(context.Background(), chessgame.MoveRequest{Game: "g", Player: "*AI-easy"}, func(_ string, err error) {
			gotErr = err
		})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("RequestMove blocked on Post")
	}

	close(post.release)
	p.Wait()
	(<-post.posted)()
	if !errors.Is(gotErr, ErrNoEngine) {
		t.Fatalf("deliver err = %v", gotErr)
	}
}

func TestBook_EmptyPathHasNoMoves(t *testing.T) {
	book, err := OpenBook("")
	if err != nil || book != nil {
		t.Fatalf("OpenBook(\"\") = %v, %v", book, err)
	}
	if _, ok, err := book.Lookup("", []string{"e2e4"}); ok || err != nil {
		t.Fatalf("nil book answered: ok=%v err=%v", ok, err)
	}
	if _, err := OpenBook(filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Fatalf("missing book file accepted")
	}
}

func TestReplay(t *testing.T) {
	game, err := replay("", []string{"e2e4", "e7e5"})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !strings.HasPrefix(game.FEN(), "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w") {
		t.Fatalf("fen = %s", game.FEN())
	}
	if _, err := replay("", []string{"e2e5"}); err == nil {
		t.Fatalf("illegal move replayed")
	}
}
