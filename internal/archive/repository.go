package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS chess_games (
    game_id     UUID PRIMARY KEY,
    game_name   TEXT NOT NULL,
    board       TEXT NOT NULL,
    white_name  TEXT NOT NULL,
    black_name  TEXT NOT NULL,
    result      TEXT NOT NULL,
    result_type TEXT NOT NULL,
    moves_uci   JSONB NOT NULL,
    moves_san   JSONB NOT NULL,
    start_fen   TEXT NOT NULL,
    eco_code    TEXT NOT NULL DEFAULT '',
    eco_title   TEXT NOT NULL DEFAULT '',
    pgn         TEXT NOT NULL,
    stake       NUMERIC(18,2) NOT NULL DEFAULT 0,
    started_at  TIMESTAMPTZ NOT NULL,
    ended_at    TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL
)`

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts a finished game into chess_games.
func (r *Repository) SaveResult(ctx context.Context, rec Record) error {
	if r == nil || r.db == nil {
		return nil
	}
	movesUCI, _ := json.Marshal(nonNil(rec.MovesUCI))
	movesSAN, _ := json.Marshal(nonNil(rec.MovesSAN))
	duration := rec.EndedAt.Sub(rec.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO chess_games (
        game_id, game_name, board, white_name, black_name,
        result, result_type, moves_uci, moves_san, start_fen, eco_code, eco_title, pgn,
        stake, started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
      ) ON CONFLICT (game_id) DO UPDATE SET
        white_name=EXCLUDED.white_name,
        black_name=EXCLUDED.black_name,
        result=EXCLUDED.result,
        result_type=EXCLUDED.result_type,
        moves_uci=EXCLUDED.moves_uci,
        moves_san=EXCLUDED.moves_san,
        start_fen=EXCLUDED.start_fen,
        eco_code=EXCLUDED.eco_code,
        eco_title=EXCLUDED.eco_title,
        pgn=EXCLUDED.pgn,
        stake=EXCLUDED.stake,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		rec.ID.String(), rec.Game, rec.Board, rec.White, rec.Black,
		rec.Result, rec.ResultType, string(movesUCI), string(movesSAN), rec.StartFEN, rec.ECOCode, rec.ECOTitle, rec.PGN,
		rec.Stake, rec.StartedAt, rec.EndedAt, duration,
	)
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// MemoryRepository keeps records in process.
type MemoryRepository struct {
	mu   sync.Mutex
	recs map[string]Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{recs: make(map[string]Record)}
}

func (m *MemoryRepository) SaveResult(_ context.Context, rec Record) error {
	m.mu.Lock()
	m.recs[rec.ID.String()] = rec
	m.mu.Unlock()
	return nil
}

// Records returns the stored records ordered by end time.
func (m *MemoryRepository) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.recs))
	for _, r := range m.recs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndedAt.Before(out[j].EndedAt) })
	return out
}
