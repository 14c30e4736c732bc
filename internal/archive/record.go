package archive

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chesscraft-go/internal/chessgame"
)

// Record is the archived form of a finished game.
type Record struct {
	ID         uuid.UUID
	Game       string
	Board      string
	White      string
	Black      string
	Result     string
	ResultType string
	MovesUCI   []string
	MovesSAN   []string
	StartFEN   string
	ECOCode    string
	ECOTitle   string
	PGN        string
	Stake      float64
	StartedAt  time.Time
	EndedAt    time.Time
}

// Saver persists records. Saving the same record twice updates it.
type Saver interface {
	SaveResult(ctx context.Context, rec Record) error
}

// recordID is stable per game name and start time so re-archiving a game
// upserts the same row.
func recordID(game string, started time.Time) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("chesscraft:"+game+":"+strconv.FormatInt(started.UnixMilli(), 10)))
}

func NewRecord(g *chessgame.Game, h chessgame.PGNHeader) Record {
	ended := g.Finished()
	if ended.IsZero() {
		ended = time.Now()
	}
	if h.Date.IsZero() {
		h.Date = ended
	}
	moves := g.UCIHistory()
	code, title := Opening(g.StartFEN(), moves)
	return Record{
		ID:         recordID(g.Name(), g.Started()),
		Game:       g.Name(),
		Board:      g.Board(),
		White:      g.White(),
		Black:      g.Black(),
		Result:     g.PGNResult(),
		ResultType: string(g.ResultType()),
		MovesUCI:   moves,
		MovesSAN:   g.SANHistory(),
		StartFEN:   g.StartFEN(),
		ECOCode:    code,
		ECOTitle:   title,
		PGN:        g.PGN(h),
		Stake:      g.Stake(),
		StartedAt:  g.Started(),
		EndedAt:    ended,
	}
}
