package chessgame

import (
	"context"
	"strings"
	"time"

	"github.com/park285/chesscraft-go/internal/loop"
)

// AIPrefix marks player names that belong to engine opponents.
const AIPrefix = "*AI-"

// IsAIPlayer reports whether name belongs to an engine opponent.
func IsAIPlayer(name string) bool {
	return strings.HasPrefix(strings.ToUpper(name), strings.ToUpper(AIPrefix))
}

// Notifier delivers text to players. Implementations must not block the
// caller on network I/O.
type Notifier interface {
	Alert(player, message string)
	Broadcast(message string)
}

// Ledger moves stake money between players and the escrow.
type Ledger interface {
	Debit(ctx context.Context, player string, amount float64) error
	Credit(ctx context.Context, player string, amount float64) error
	Format(amount float64) string
}

// Owner detaches a finished game from its board when auto-deletion fires.
type Owner interface {
	RemoveGame(name string) error
}

// View is notified so board and control panel can be repainted.
type View interface {
	StateChanged(g *Game)
	Moved(g *Game, m Move)
	ClockUpdated(g *Game, side Color, ms int64)
	PositionReset(g *Game)
}

// Messages renders catalog templates by key.
type Messages interface {
	Render(key string, data any) (string, error)
}

// MoveRequest asks an engine opponent for a move.
type MoveRequest struct {
	Game     string
	Player   string
	StartFEN string
	Moves    []string
}

// MoveSource produces moves for AI players. RequestMove must not block; the
// reply is delivered through deliver on the game loop.
type MoveSource interface {
	RequestMove(ctx context.Context, req MoveRequest, deliver func(uci string, err error))
}

// Hooks observe game progress for archiving and metrics.
type Hooks struct {
	Started  func(g *Game)
	Moved    func(g *Game, m Move)
	Finished func(g *Game)
}

// Settings are the tunables a game reads.
type Settings struct {
	BroadcastResults bool
	AutoDelete       time.Duration
	DefaultStake     float64
	MaxStake         float64
	// FiftyMovePlies is the half-move clock value that ends the game.
	FiftyMovePlies int
}

// Deps are the collaborators a game is built with. Only Scheduler is
// required; everything else degrades to a no-op.
type Deps struct {
	Notifier  Notifier
	Ledger    Ledger
	Scheduler loop.Scheduler
	Owner     Owner
	View      View
	AI        MoveSource
	Hooks     Hooks
	Messages  Messages
	Settings  Settings
	Now       func() time.Time
	NewOracle OracleFactory
	// Offload runs blocking ledger work off the loop and then runs done on
	// it. Nil runs both inline.
	Offload func(work, done func())
}

func (d *Deps) fill() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewOracle == nil {
		d.NewOracle = NewOracle
	}
	if d.Settings.FiftyMovePlies <= 0 {
		d.Settings.FiftyMovePlies = 100
	}
}
