package chessgame

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/park285/chesscraft-go/internal/obslog"
	"go.uber.org/zap"
)

// Frozen map keys.
const (
	keyName           = "name"
	keyBoard          = "boardview"
	keyWhite          = "playerWhite"
	keyBlack          = "playerBlack"
	keyState          = "state"
	keyInvited        = "invited"
	keyMoves          = "moves"
	keyStarted        = "started"
	keyResult         = "result"
	keyResultType     = "resultType"
	keyPromotionWhite = "promotionWhite"
	keyPromotionBlack = "promotionBlack"
	keyTimeWhite      = "timeWhite"
	keyTimeBlack      = "timeBlack"
	keyStake          = "stake"
	keyFEN            = "fen"
)

// Freeze flattens the game into primitives suitable for YAML or JSON.
func (g *Game) Freeze() map[string]any {
	moves := make([]int, 0, len(g.history))
	for _, m := range g.history {
		moves = append(moves, int(m))
	}
	return map[string]any{
		keyName:           g.name,
		keyBoard:          g.board,
		keyWhite:          g.white,
		keyBlack:          g.black,
		keyState:          string(g.state),
		keyInvited:        g.invited,
		keyMoves:          moves,
		keyStarted:        g.started.UnixMilli(),
		keyResult:         int(g.result),
		keyResultType:     string(g.resultType),
		keyPromotionWhite: int(g.promotion[White]),
		keyPromotionBlack: int(g.promotion[Black]),
		keyTimeWhite:      g.clock.Elapsed(White),
		keyTimeBlack:      g.clock.Elapsed(Black),
		keyStake:          g.stake,
		keyFEN:            g.startFEN,
	}
}

// Thaw rebuilds a game from Freeze output, replaying the move history
// through a fresh oracle. A history that stops replaying is logged and the
// game keeps the moves that did apply.
func Thaw(m map[string]any, deps Deps) (*Game, error) {
	deps.fill()
	name := asString(m[keyName])
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("thaw: missing %s", keyName)
	}
	state, ok := parseState(asString(m[keyState]))
	if !ok {
		return nil, fmt.Errorf("thaw %s: bad state %q", name, asString(m[keyState]))
	}
	startFEN := asString(m[keyFEN])
	if startFEN == "" {
		startFEN = StartFEN
	}
	pos, err := deps.NewOracle(startFEN)
	if err != nil {
		return nil, fmt.Errorf("thaw %s: %w", name, err)
	}

	g := &Game{
		name:       name,
		board:      asString(m[keyBoard]),
		white:      asString(m[keyWhite]),
		black:      asString(m[keyBlack]),
		invited:    asString(m[keyInvited]),
		state:      state,
		fromSquare: NoSquare,
		clock:      newClock(deps.Now),
		result:     Result(asInt64(m[keyResult])),
		resultType: ResultType(asString(m[keyResultType])),
		promotion:  [2]PieceKind{Queen, Queen},
		stake:      asFloat64(m[keyStake]),
		startFEN:   pos.FEN(),
		pos:        pos,
		deps:       deps,
	}
	if ms := asInt64(m[keyStarted]); ms > 0 {
		g.started = time.UnixMilli(ms)
	} else {
		g.started = deps.Now()
	}
	if k := PieceKind(asInt64(m[keyPromotionWhite])); k.ValidPromotion() {
		g.promotion[White] = k
	}
	if k := PieceKind(asInt64(m[keyPromotionBlack])); k.ValidPromotion() {
		g.promotion[Black] = k
	}
	g.clock.set(asInt64(m[keyTimeWhite]), asInt64(m[keyTimeBlack]))

	for i, raw := range asSlice(m[keyMoves]) {
		mv := Move(uint32(asInt64(raw)))
		if _, err := g.replay(mv); err != nil {
			obslog.L().Error("game_thaw_replay_failed",
				zap.String("game", g.name),
				zap.Int("ply", i+1),
				zap.String("move", mv.LAN()),
				zap.Error(err),
			)
			break
		}
		g.history = append(g.history, mv)
	}
	switch g.state {
	case StateFinished:
		g.setupAutoDeletion(false)
	case StateRunning:
		g.requestAIMove(context.Background())
	}
	return g, nil
}

func (g *Game) replay(mv Move) (string, error) {
	for _, legal := range g.pos.LegalMoves() {
		if legal == mv {
			return g.pos.Apply(mv)
		}
	}
	return "", illegalErr("Illegal move: %s", mv.LAN())
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		if t > math.MaxInt64 {
			return math.MaxInt64
		}
		return int64(t)
	case float32:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func asFloat64(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return float64(asInt64(v))
	}
}

func asSlice(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out
	case []int64:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out
	case []uint32:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out
	default:
		return nil
	}
}
