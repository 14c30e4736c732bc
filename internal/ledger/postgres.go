package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/park285/chesscraft-go/internal/obslog"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS chess_accounts (
    player        TEXT PRIMARY KEY,
    balance_cents BIGINT NOT NULL DEFAULT 0,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS chess_ledger (
    id           BIGSERIAL PRIMARY KEY,
    player       TEXT NOT NULL,
    amount_cents BIGINT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PgLedger keeps balances in Postgres. Every change is journalled in
// chess_ledger inside the same transaction.
type PgLedger struct {
	db       *pgxpool.Pool
	currency string
}

func NewPgLedger(ctx context.Context, databaseURL, currency string) (*PgLedger, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("LEDGER_DATABASE_URL is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ledger url: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnLifetime = 30 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ledger ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ledger schema: %w", err)
	}
	return &PgLedger{db: pool, currency: currency}, nil
}

func (l *PgLedger) Close() {
	if l != nil && l.db != nil {
		l.db.Close()
	}
}

func (l *PgLedger) Format(amount float64) string { return format(amount, l.currency) }

// Debit takes amount from player, failing with ErrInsufficientFunds when the
// balance is short or the account does not exist.
func (l *PgLedger) Debit(ctx context.Context, player string, amount float64) error {
	p, err := playerKey(player)
	if err != nil {
		return err
	}
	c, err := toCents(amount)
	if err != nil {
		return err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var balance int64
	err = tx.QueryRow(ctx, `SELECT balance_cents FROM chess_accounts WHERE player = $1 FOR UPDATE`, p).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInsufficientFunds
		}
		return err
	}
	if balance < c {
		return ErrInsufficientFunds
	}
	if _, err = tx.Exec(ctx, `UPDATE chess_accounts SET balance_cents = balance_cents - $1, updated_at = now() WHERE player = $2`, c, p); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `INSERT INTO chess_ledger (player, amount_cents) VALUES ($1, $2)`, p, -c); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return err
	}
	obslog.L().Info("ledger_debit", zap.String("player", p), zap.Int64("cents", c))
	return nil
}

// Credit adds amount to player, opening the account on first use.
func (l *PgLedger) Credit(ctx context.Context, player string, amount float64) error {
	p, err := playerKey(player)
	if err != nil {
		return err
	}
	c, err := toCents(amount)
	if err != nil {
		return err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `INSERT INTO chess_accounts (player, balance_cents) VALUES ($1, $2)
        ON CONFLICT (player) DO UPDATE SET balance_cents = chess_accounts.balance_cents + EXCLUDED.balance_cents, updated_at = now()`, p, c)
	if err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `INSERT INTO chess_ledger (player, amount_cents) VALUES ($1, $2)`, p, c); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return err
	}
	obslog.L().Info("ledger_credit", zap.String("player", p), zap.Int64("cents", c))
	return nil
}

func (l *PgLedger) Balance(ctx context.Context, player string) (float64, error) {
	p, err := playerKey(player)
	if err != nil {
		return 0, err
	}
	var c int64
	err = l.db.QueryRow(ctx, `SELECT balance_cents FROM chess_accounts WHERE player = $1`, p).Scan(&c)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return fromCents(c), nil
}
