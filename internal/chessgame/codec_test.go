package chessgame

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/park285/chesscraft-go/internal/obslog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"
)

func TestFreezeThaw_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	g := newRunningGame(t, env)
	_ = g.SetPromotionPiece("bob", Rook)
	play(t, g, "e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "g8f6", "e1g1")

	back, err := Thaw(g.Freeze(), env.deps)
	if err != nil {
		t.Fatalf("Thaw: %v", err)
	}
	if back.Name() != "g1" || back.Board() != "board1" {
		t.Fatalf("identity = %s/%s", back.Name(), back.Board())
	}
	if back.White() != "alice" || back.Black() != "bob" || back.State() != StateRunning {
		t.Fatalf("players/state = %s/%s/%s", back.White(), back.Black(), back.State())
	}
	if strings.Join(back.UCIHistory(), " ") != strings.Join(g.UCIHistory(), " ") {
		t.Fatalf("history %v != %v", back.UCIHistory(), g.UCIHistory())
	}
	if back.FEN() != g.FEN() {
		t.Fatalf("fen %q != %q", back.FEN(), g.FEN())
	}
	if back.Promotion(Black) != Rook || back.Promotion(White) != Queen {
		t.Fatalf("promotion = %v/%v", back.Promotion(White), back.Promotion(Black))
	}
	if len(back.SANHistory()) != 7 || back.SANHistory()[6] != "O-O" {
		t.Fatalf("san = %v", back.SANHistory())
	}
}

func TestThaw_ToleratesJSONAndYAMLNumbers(t *testing.T) {
	env := newTestEnv(t)
	g := newSetupGame(t, env)
	g.stake = 12.5
	_ = g.Start(t.Context(), "alice")
	play(t, g, "d2d4", "d7d5")

	raw, err := json.Marshal(g.Freeze())
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	var fromJSON map[string]any
	if err := json.Unmarshal(raw, &fromJSON); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	back, err := Thaw(fromJSON, env.deps)
	if err != nil {
		t.Fatalf("Thaw(json): %v", err)
	}
	if len(back.History()) != 2 || back.Stake() != 12.5 {
		t.Fatalf("json thaw: history=%d stake=%v", len(back.History()), back.Stake())
	}

	rawYAML, err := yaml.Marshal(g.Freeze())
	if err != nil {
		t.Fatalf("yaml.Marshal: %v", err)
	}
	var fromYAML map[string]any
	if err := yaml.Unmarshal(rawYAML, &fromYAML); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	back, err = Thaw(fromYAML, env.deps)
	if err != nil {
		t.Fatalf("Thaw(yaml): %v", err)
	}
	if len(back.History()) != 2 || back.Started().UnixMilli() != g.Started().UnixMilli() {
		t.Fatalf("yaml thaw: history=%d started=%v", len(back.History()), back.Started())
	}
}

func TestThaw_CorruptHistoryKeepsPrefix(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	t.Cleanup(obslog.Replace(zap.New(core)))

	env := newTestEnv(t)
	g := newRunningGame(t, env)
	play(t, g, "e2e4", "e7e5")
	frozen := g.Freeze()
	bogus := NewMove(sq(t, "a1"), sq(t, "a8"), KindRegular, NoPiece, true)
	moves := frozen[keyMoves].([]int)
	frozen[keyMoves] = append(moves, int(bogus), int(NewMove(sq(t, "g1"), sq(t, "f3"), KindRegular, NoPiece, false)))

	back, err := Thaw(frozen, env.deps)
	if err != nil {
		t.Fatalf("Thaw: %v", err)
	}
	if len(back.History()) != 2 {
		t.Fatalf("history = %v, want the two valid moves", back.UCIHistory())
	}
	if logs.FilterMessage("game_thaw_replay_failed").Len() != 1 {
		t.Fatalf("replay failure not logged: %v", logs.All())
	}
}

func TestThaw_RejectsMissingFields(t *testing.T) {
	env := newTestEnv(t)
	if _, err := Thaw(map[string]any{"state": "RUNNING"}, env.deps); err == nil {
		t.Fatalf("expected error for missing name")
	}
	if _, err := Thaw(map[string]any{"name": "x", "state": "PAUSED"}, env.deps); err == nil {
		t.Fatalf("expected error for unknown state")
	}
}

func TestThaw_FinishedGameRearmsAutoDelete(t *testing.T) {
	env := newTestEnv(t)
	g := newRunningGame(t, env)
	_ = g.Resign("alice")
	g.CancelAutoDelete()
	alerts := len(env.notifier.alerts["alice"]) + len(env.notifier.alerts["bob"])

	back, err := Thaw(g.Freeze(), env.deps)
	if err != nil {
		t.Fatalf("Thaw: %v", err)
	}
	if back.Result() != ResultBlackWins || back.ResultType() != ResultResigned {
		t.Fatalf("result = %v/%s", back.Result(), back.ResultType())
	}
	if !back.AutoDeletePending() {
		t.Fatalf("thawed finished game has no auto-delete timer")
	}
	if got := len(env.notifier.alerts["alice"]) + len(env.notifier.alerts["bob"]); got != alerts {
		t.Fatalf("thaw re-sent %d alerts", got-alerts)
	}
}

func TestThaw_RunningGameAsksAIToMove(t *testing.T) {
	env := newTestEnv(t)
	g, _ := New("g1", "board1", "alice", env.deps)
	_ = g.InvitePlayer("alice", AIPrefix+"easy")
	_ = g.AddPlayer(AIPrefix + "easy")
	if err := g.Start(t.Context(), "alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	play(t, g, "f2f3")

	ai := &scriptedAI{replies: map[int]string{1: "e7e5"}}
	deps := env.deps
	deps.AI = ai
	back, err := Thaw(g.Freeze(), deps)
	if err != nil {
		t.Fatalf("Thaw: %v", err)
	}
	if ai.calls != 1 || strings.Join(back.UCIHistory(), " ") != "f2f3 e7e5" {
		t.Fatalf("calls=%d history=%v", ai.calls, back.UCIHistory())
	}
	back.ClockTick()
	if ai.calls != 1 {
		t.Fatalf("tick asked again with alice to move: calls=%d", ai.calls)
	}
}

func TestPGN_Movetext(t *testing.T) {
	env := newTestEnv(t)
	g := newRunningGame(t, env)
	play(t, g, "f2f3", "e7e5", "g2g4", "d8h4")
	pgn := g.PGN(PGNHeader{Event: "Club \"night\""})
	for _, want := range []string{
		`[Event "Club 'night'"]`,
		`[White "alice"]`,
		`[Black "bob"]`,
		`[Result "0-1"]`,
		`[Termination "checkmate"]`,
		"1. f3 e5 2. g4 Qh4# 0-1",
	} {
		if !strings.Contains(pgn, want) {
			t.Fatalf("pgn missing %q:\n%s", want, pgn)
		}
	}
	if strings.Contains(pgn, "[FEN ") {
		t.Fatalf("standard start should not carry a FEN tag")
	}
}

func TestPGN_BlackToMoveStart(t *testing.T) {
	got := movetext([]string{"Kg8", "Ra8+"}, "7k/8/8/8/8/8/8/R6K b - - 0 40")
	if got != "40... Kg8 41. Ra8+ " {
		t.Fatalf("movetext = %q", got)
	}
}
