package chessgame

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/park285/chesscraft-go/internal/loop"
)

type recordingNotifier struct {
	alerts     map[string][]string
	broadcasts []string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{alerts: map[string][]string{}}
}

func (n *recordingNotifier) Alert(player, message string) {
	n.alerts[player] = append(n.alerts[player], message)
}

func (n *recordingNotifier) Broadcast(message string) {
	n.broadcasts = append(n.broadcasts, message)
}

func (n *recordingNotifier) got(player, substr string) bool {
	for _, m := range n.alerts[player] {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

var errNoFunds = errors.New("insufficient funds")

type testLedger struct {
	balances map[string]float64
	credits  int
}

func newTestLedger(balances map[string]float64) *testLedger {
	return &testLedger{balances: balances}
}

func (l *testLedger) Debit(_ context.Context, player string, amount float64) error {
	if l.balances[player] < amount {
		return errNoFunds
	}
	l.balances[player] -= amount
	return nil
}

func (l *testLedger) Credit(_ context.Context, player string, amount float64) error {
	l.balances[player] += amount
	l.credits++
	return nil
}

func (l *testLedger) Format(amount float64) string { return fmt.Sprintf("%.2f coins", amount) }

type testOwner struct{ removed []string }

func (o *testOwner) RemoveGame(name string) error {
	o.removed = append(o.removed, name)
	return nil
}

type testEnv struct {
	sched    *loop.Manual
	notifier *recordingNotifier
	ledger   *testLedger
	owner    *testOwner
	deps     Deps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sched := loop.NewManual(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	env := &testEnv{
		sched:    sched,
		notifier: newRecordingNotifier(),
		ledger:   newTestLedger(map[string]float64{"alice": 100, "bob": 100}),
		owner:    &testOwner{},
	}
	env.deps = Deps{
		Notifier:  env.notifier,
		Ledger:    env.ledger,
		Scheduler: sched,
		Owner:     env.owner,
		Now:       sched.Now,
		Settings:  Settings{AutoDelete: 30 * time.Second},
	}
	return env
}

// newRunningGame returns alice (white) vs bob (black), already started.
func newRunningGame(t *testing.T, env *testEnv) *Game {
	t.Helper()
	g := newSetupGame(t, env)
	if err := g.Start(context.Background(), "alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return g
}

func newSetupGame(t *testing.T, env *testEnv) *Game {
	t.Helper()
	g, err := New("g1", "board1", "alice", env.deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := g.InvitePlayer("alice", "bob"); err != nil {
		t.Fatalf("InvitePlayer: %v", err)
	}
	if err := g.AddPlayer("bob"); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	return g
}

// play runs coordinate moves alternately for whoever is to move.
func play(t *testing.T, g *Game, moves ...string) {
	t.Helper()
	for _, uci := range moves {
		from, to, _, err := ParseUCI(uci)
		if err != nil {
			t.Fatalf("ParseUCI(%s): %v", uci, err)
		}
		if err := g.Move(context.Background(), g.PlayerToMove(), from, to); err != nil {
			t.Fatalf("move %s: %v", uci, err)
		}
	}
}

func sq(t *testing.T, s string) Square {
	t.Helper()
	v, err := ParseSquare(s)
	if err != nil {
		t.Fatalf("ParseSquare(%s): %v", s, err)
	}
	return v
}
