package chessgame

import (
	"context"
	"time"

	"github.com/park285/chesscraft-go/internal/obslog"
	"go.uber.org/zap"
)

// payoutTimeout bounds the ledger call made when a game finishes.
const payoutTimeout = 5 * time.Second

func resultKey(rt ResultType) string {
	switch rt {
	case ResultCheckmate:
		return "result.checkmate"
	case ResultStalemate:
		return "result.stalemate"
	case ResultFiftyMoveRule:
		return "result.fifty_move"
	case ResultDrawAgreed:
		return "result.draw_agreed"
	case ResultResigned:
		return "result.resigned"
	case ResultForfeited:
		return "result.forfeited"
	case ResultAutoDraw:
		return "result.auto_draw"
	default:
		return "result.unknown"
	}
}

// finish records the result, announces it, settles the stake and arms the
// auto-delete timer. p1 is the winner for decisive results.
func (g *Game) finish(result Result, rt ResultType, p1, p2 string) {
	if g.state == StateFinished {
		return
	}
	g.chargeClock()
	g.result = result
	g.resultType = rt
	g.finished = g.deps.Now()
	g.fromSquare = NoSquare
	g.setState(StateFinished)

	msg := g.text(resultKey(rt), map[string]any{
		"Game":   g.name,
		"Winner": p1,
		"Loser":  p2,
		"P1":     p1,
		"P2":     p2,
	})
	if g.deps.Settings.BroadcastResults && g.deps.Notifier != nil {
		g.deps.Notifier.Broadcast(msg)
	} else {
		g.alertAll(msg)
	}

	obslog.L().Info("game_finished",
		zap.String("game", g.name),
		zap.String("result", result.PGN()),
		zap.String("result_type", string(rt)),
		zap.Int("plies", len(g.history)),
	)

	g.settleStake(p1)
	g.setupAutoDeletion(true)
	if g.deps.Hooks.Finished != nil {
		g.deps.Hooks.Finished(g)
	}
}

// settleStake returns the escrow to the winner of a checkmate or
// resignation. Other finishes keep it. Only human players were debited, so
// an AI opponent's share is never paid out.
func (g *Game) settleStake(winner string) {
	if g.stake <= 0 || g.deps.Ledger == nil {
		return
	}
	if !g.resultType.PaysOut() {
		// FIXME: draws and forfeits never return the stakes taken at start.
		obslog.L().Warn("stake_unreturned",
			zap.String("game", g.name),
			zap.String("result_type", string(g.resultType)),
			zap.Float64("stake", g.stake),
		)
		return
	}
	if IsAIPlayer(winner) {
		return
	}
	escrowed := 0
	for _, p := range []string{g.white, g.black} {
		if !IsAIPlayer(p) {
			escrowed++
		}
	}
	amount := g.stake * float64(escrowed)
	ledger, name := g.deps.Ledger, g.name
	var err error
	g.offload(func() {
		ctx, cancel := context.WithTimeout(context.Background(), payoutTimeout)
		defer cancel()
		err = ledger.Credit(ctx, winner, amount)
	}, func() {
		if err != nil {
			obslog.L().Error("stake_payout_error",
				zap.String("game", name),
				zap.String("winner", winner),
				zap.Float64("amount", amount),
				zap.Error(err),
			)
			return
		}
		g.alert(winner, g.text("stake.won", map[string]any{"Amount": ledger.Format(amount)}))
		obslog.L().Info("stake_payout", zap.String("game", name), zap.String("winner", winner), zap.Float64("amount", amount))
	})
}

// offload runs work through Deps.Offload, or inline without one.
func (g *Game) offload(work, done func()) {
	if g.deps.Offload == nil {
		work()
		done()
		return
	}
	g.deps.Offload(work, done)
}
