package ai

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/park285/chesscraft-go/internal/ai/uci"
	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/obslog"
	"go.uber.org/zap"
)

var ErrNoEngine = errors.New("no chess engine is configured")

const searchGrace = 30 * time.Second

// Searcher picks a move for a position at a given level.
type Searcher interface {
	BestMove(ctx context.Context, lv Level, req chessgame.MoveRequest) (string, error)
}

// Engine runs searches on a pool of UCI engine processes.
type Engine struct {
	pool *uci.Pool
}

func NewEngine(binaryPath string) (*Engine, error) {
	if binaryPath == "" {
		return nil, ErrNoEngine
	}
	pool, err := uci.NewPool(binaryPath, 0)
	if err != nil {
		return nil, err
	}
	return &Engine{pool: pool}, nil
}

func (e *Engine) BestMove(ctx context.Context, lv Level, req chessgame.MoveRequest) (string, error) {
	s, err := e.pool.Acquire(ctx, lv.options())
	if err != nil {
		return "", err
	}
	res, err := s.BestMove(ctx, uci.SearchRequest{FEN: req.StartFEN, Moves: req.Moves, Limits: lv.limits()})
	e.pool.Release(s, err)
	if err != nil {
		return "", err
	}
	obslog.L().Debug("uci_bestmove",
		zap.String("game", req.Game),
		zap.String("move", res.Move),
		zap.Int("depth", res.Depth),
		zap.Int("score_cp", res.ScoreCP),
		zap.Int("mate", res.Mate),
	)
	return res.Move, nil
}

func (e *Engine) Close() error { return e.pool.Close() }

// Poster runs fn on the game loop.
type Poster interface {
	Post(fn func())
}

// Player is the chessgame.MoveSource for engine opponents. Searches run on
// their own goroutine and the reply is posted back to the loop.
type Player struct {
	engine Searcher
	levels *Levels
	post   Poster

	// Book, when set, answers opening positions before the engine is asked.
	Book *Book
	// OnSearch, when set, observes every finished search.
	OnSearch func(level string, took time.Duration, err error)

	wg sync.WaitGroup
}

// NewPlayer returns a player; engine may be nil, in which case every request
// fails with ErrNoEngine.
func NewPlayer(engine Searcher, levels *Levels, post Poster) *Player {
	return &Player{engine: engine, levels: levels, post: post}
}

// CanPlay checks that name is an AI player this server can run.
func (p *Player) CanPlay(name string) error {
	if p == nil || p.engine == nil {
		return ErrNoEngine
	}
	_, err := p.levels.Get(name)
	return err
}

// Names lists the configured levels, without the AI prefix.
func (p *Player) Names() []string {
	if p == nil || p.levels == nil {
		return nil
	}
	return p.levels.Names()
}

func (p *Player) RequestMove(ctx context.Context, req chessgame.MoveRequest, deliver func(uci string, err error)) {
	if err := p.CanPlay(req.Player); err != nil {
		// The caller is on the loop; posting inline could block on a full queue.
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.post.Post(func() { deliver("", err) })
		}()
		return
	}
	lv, _ := p.levels.Get(req.Player)
	budget := searchGrace + time.Duration(lv.MoveTime)*time.Millisecond
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), budget)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		if move, ok := p.bookMove(lv, req); ok {
			p.post.Post(func() { deliver(move, nil) })
			return
		}
		start := time.Now()
		move, err := p.engine.BestMove(sctx, lv, req)
		took := time.Since(start)
		if p.OnSearch != nil {
			p.OnSearch(lv.Name, took, err)
		}
		if err != nil {
			obslog.L().Warn("ai_search_error", zap.String("game", req.Game), zap.String("level", lv.Name), zap.Error(err))
		} else {
			obslog.L().Debug("ai_search", zap.String("game", req.Game), zap.String("level", lv.Name), zap.String("move", move), zap.Duration("took", took))
		}
		p.post.Post(func() { deliver(move, err) })
	}()
}

func (p *Player) bookMove(lv Level, req chessgame.MoveRequest) (string, bool) {
	if p.Book == nil || len(req.Moves) >= lv.BookPlies {
		return "", false
	}
	move, ok, err := p.Book.Lookup(req.StartFEN, req.Moves)
	if err != nil {
		obslog.L().Warn("ai_book_error", zap.String("game", req.Game), zap.Error(err))
		return "", false
	}
	if ok {
		obslog.L().Debug("ai_book_move", zap.String("game", req.Game), zap.String("level", lv.Name), zap.String("move", move))
	}
	return move, ok
}

// Wait blocks until in-flight searches have posted their results.
func (p *Player) Wait() { p.wg.Wait() }
