package ledger

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/park285/chesscraft-go/internal/chessgame"
)

var (
	_ chessgame.Ledger = (*MemoryLedger)(nil)
	_ chessgame.Ledger = (*PgLedger)(nil)
)

func exerciseLedger(t *testing.T, l interface {
	chessgame.Ledger
	Balance(ctx context.Context, player string) (float64, error)
}) {
	t.Helper()
	ctx := context.Background()

	if err := l.Debit(ctx, "newcomer", 1); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("debit from empty account: %v", err)
	}
	if err := l.Credit(ctx, "Alice", 25.5); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := l.Debit(ctx, "alice", 10.25); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	bal, err := l.Balance(ctx, "ALICE")
	if err != nil || bal != 15.25 {
		t.Fatalf("balance = %v, %v", bal, err)
	}
	if err := l.Debit(ctx, "alice", 100); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("overdraw: %v", err)
	}
	for _, bad := range []float64{0, -3, 0.001} {
		if err := l.Credit(ctx, "alice", bad); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("Credit(%v): %v", bad, err)
		}
	}
	if err := l.Credit(ctx, " ", 1); !errors.Is(err, ErrInvalidPlayer) {
		t.Fatalf("blank player: %v", err)
	}
}

func TestMemoryLedger(t *testing.T) {
	l := NewMemoryLedger("coins")
	exerciseLedger(t, l)
	if got := l.Format(20); got != "20.00 coins" {
		t.Fatalf("Format = %q", got)
	}
}

func TestPgLedger(t *testing.T) {
	url := os.Getenv("LEDGER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LEDGER_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	l, err := NewPgLedger(ctx, url, "coins")
	if err != nil {
		t.Fatalf("NewPgLedger: %v", err)
	}
	t.Cleanup(l.Close)
	if _, err := l.db.Exec(ctx, `DELETE FROM chess_accounts WHERE player IN ('alice', 'newcomer')`); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	exerciseLedger(t, l)
}
