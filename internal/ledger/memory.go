package ledger

import (
	"context"
	"sync"
)

// MemoryLedger keeps balances in process. It backs tests and servers that
// run without a ledger database.
type MemoryLedger struct {
	mu       sync.Mutex
	cents    map[string]int64
	currency string
}

func NewMemoryLedger(currency string) *MemoryLedger {
	return &MemoryLedger{cents: make(map[string]int64), currency: currency}
}

func (l *MemoryLedger) Debit(_ context.Context, player string, amount float64) error {
	p, err := playerKey(player)
	if err != nil {
		return err
	}
	c, err := toCents(amount)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cents[p] < c {
		return ErrInsufficientFunds
	}
	l.cents[p] -= c
	return nil
}

func (l *MemoryLedger) Credit(_ context.Context, player string, amount float64) error {
	p, err := playerKey(player)
	if err != nil {
		return err
	}
	c, err := toCents(amount)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.cents[p] += c
	l.mu.Unlock()
	return nil
}

func (l *MemoryLedger) Balance(_ context.Context, player string) (float64, error) {
	p, err := playerKey(player)
	if err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return fromCents(l.cents[p]), nil
}

func (l *MemoryLedger) Format(amount float64) string { return format(amount, l.currency) }

func (l *MemoryLedger) Close() {}
