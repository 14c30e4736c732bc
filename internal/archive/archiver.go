package archive

import (
	"context"
	"sync"
	"time"

	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/obslog"
	"go.uber.org/zap"
)

const saveTimeout = 10 * time.Second

// Archiver stores every finished game. The record is built on the caller's
// goroutine; database writes run in the background.
type Archiver struct {
	repo   Saver
	header chessgame.PGNHeader
	wg     sync.WaitGroup
}

func NewArchiver(repo Saver, header chessgame.PGNHeader) *Archiver {
	return &Archiver{repo: repo, header: header}
}

// Finished matches chessgame.Hooks.Finished.
func (a *Archiver) Finished(g *chessgame.Game) {
	if a == nil || a.repo == nil {
		return
	}
	rec := NewRecord(g, a.header)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := a.repo.SaveResult(ctx, rec); err != nil {
			obslog.L().Error("archive_save_error", zap.String("game", rec.Game), zap.Error(err))
			return
		}
		obslog.L().Info("archive_saved", zap.String("game", rec.Game), zap.String("id", rec.ID.String()), zap.String("result", rec.Result))
	}()
}

// Wait blocks until pending writes are done.
func (a *Archiver) Wait() { a.wg.Wait() }
