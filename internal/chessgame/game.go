package chessgame

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/park285/chesscraft-go/internal/loop"
	"github.com/park285/chesscraft-go/internal/obslog"
	"go.uber.org/zap"
)

// Game is one chess session bound to one board. It is not safe for
// concurrent use; every call must come from the loop that owns it.
type Game struct {
	name  string
	board string

	white, black string
	invited      string
	state        State
	fromSquare   Square
	started      time.Time
	finished     time.Time
	clock        Clock
	history      []Move
	result       Result
	resultType   ResultType
	promotion    [2]PieceKind
	stake        float64
	startFEN     string

	pos      Oracle
	delTimer loop.Timer
	deps     Deps

	// aiAsked is len(history)+1 of the last position an AI move was
	// requested for; zero when none is outstanding.
	aiAsked  int
	starting bool
	detached bool
}

const noAIStake = "Games against AI players can't have a stake. Set the stake to 0 first."

// New creates a game in SETTING_UP with creator playing white. The caller
// (the registry) guarantees the board has no other game.
func New(name, board, creator string, deps Deps) (*Game, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, argErr("Game name must not be empty.")
	}
	if !ValidName(name) {
		return nil, argErr("Invalid game name: %s", name)
	}
	deps.fill()
	pos, err := deps.NewOracle("")
	if err != nil {
		return nil, err
	}
	g := &Game{
		name:       name,
		board:      board,
		white:      strings.TrimSpace(creator),
		state:      StateSettingUp,
		fromSquare: NoSquare,
		started:    deps.Now(),
		clock:      newClock(deps.Now),
		result:     ResultNotFinished,
		promotion:  [2]PieceKind{Queen, Queen},
		stake:      deps.Settings.DefaultStake,
		startFEN:   StartFEN,
		pos:        pos,
		deps:       deps,
	}
	if g.stake < 0 {
		g.stake = 0
	}
	obslog.L().Info("game_create",
		zap.String("game", g.name),
		zap.String("board", g.board),
		zap.String("creator", g.white),
	)
	return g, nil
}

func (g *Game) Name() string { return g.name }
func (g *Game) Board() string { return g.board }
func (g *Game) White() string { return g.white }
func (g *Game) Black() string { return g.black }
func (g *Game) Invited() string { return g.invited }
func (g *Game) State() State { return g.state }
func (g *Game) Result() Result { return g.result }
func (g *Game) ResultType() ResultType { return g.resultType }
func (g *Game) PGNResult() string { return g.result.PGN() }
func (g *Game) FromSquare() Square { return g.fromSquare }
func (g *Game) Started() time.Time { return g.started }
func (g *Game) Finished() time.Time { return g.finished }
func (g *Game) Stake() float64 { return g.stake }
func (g *Game) StartFEN() string { return g.startFEN }
func (g *Game) Oracle() Oracle { return g.pos }
func (g *Game) TimeWhite() int64 { return g.clock.Elapsed(White) }
func (g *Game) TimeBlack() int64 { return g.clock.Elapsed(Black) }
func (g *Game) FEN() string { return g.pos.FEN() }
func (g *Game) HalfMoveClock() int { return g.pos.HalfMoveClock() }
func (g *Game) PlyNumber() int { return g.pos.PlyNumber() }
func (g *Game) SANHistory() []string { return g.pos.SAN() }
func (g *Game) ToPlay() Color { return g.pos.Turn() }
func (g *Game) Promotion(c Color) PieceKind {
	if c == White || c == Black {
		return g.promotion[c]
	}
	return NoPiece
}

// History returns a copy of the moves played since the start position.
func (g *Game) History() []Move { return append([]Move(nil), g.history...) }

// UCIHistory returns the history in coordinate notation.
func (g *Game) UCIHistory() []string {
	out := make([]string, 0, len(g.history))
	for _, m := range g.history {
		out = append(out, m.UCI())
	}
	return out
}

func (g *Game) PlayerToMove() string {
	if g.pos.Turn() == White {
		return g.white
	}
	return g.black
}

func (g *Game) PlayerNotToMove() string {
	if g.pos.Turn() == Black {
		return g.white
	}
	return g.black
}

// PlayingAs returns the colour name plays, or NoColor.
func (g *Game) PlayingAs(name string) Color {
	switch {
	case name != "" && strings.EqualFold(name, g.white):
		return White
	case name != "" && strings.EqualFold(name, g.black):
		return Black
	default:
		return NoColor
	}
}

func (g *Game) IsPlayerInGame(name string) bool { return g.PlayingAs(name) != NoColor }

func (g *Game) IsPlayerToMove(name string) bool {
	return name != "" && strings.EqualFold(name, g.PlayerToMove())
}

func (g *Game) OtherPlayer(name string) string {
	if strings.EqualFold(name, g.white) {
		return g.black
	}
	return g.white
}

func (g *Game) setState(s State) {
	g.state = s
	if g.deps.View != nil {
		g.deps.View.StateChanged(g)
	}
}

// AttachView replaces the repaint hooks, e.g. once a board's control panel
// exists.
func (g *Game) AttachView(v View) { g.deps.View = v }

// AddPlayer binds name to the first free slot, black first.
func (g *Game) AddPlayer(name string) error {
	name = strings.TrimSpace(name)
	if g.state != StateSettingUp {
		return stateErr("Can only add players during game setup phase.")
	}
	if name == "" {
		return argErr("Player name must not be empty.")
	}
	if g.white != "" && g.black != "" {
		return stateErr("This game already has two players.")
	}
	if g.IsPlayerInGame(name) {
		return stateErr("You are already in this game.")
	}
	if g.invited != "*" && !strings.EqualFold(g.invited, name) {
		return permErr("You don't have an invitation for this game.")
	}
	if IsAIPlayer(name) && g.stake > 0 {
		return stateErr(noAIStake)
	}
	var other string
	if g.black == "" {
		g.black = name
		other = g.white
	} else {
		g.white = name
		other = g.black
	}
	if g.deps.View != nil {
		g.deps.View.StateChanged(g)
	}
	g.alert(other, g.text("game.joined", map[string]any{"Player": name}))
	g.invited = ""
	if g.white != "" && g.black != "" {
		g.alertAll(g.text("game.ready", map[string]any{"Game": g.name}))
	}
	obslog.L().Info("game_join", zap.String("game", g.name), zap.String("player", name))
	return nil
}

func (g *Game) inviteSanityCheck(inviter string) error {
	if g.state != StateSettingUp {
		return stateErr("This game has already been started!")
	}
	if !g.IsPlayerInGame(inviter) {
		return permErr("Can't invite a player to a game you're not in!")
	}
	if g.white != "" && g.black != "" {
		return stateErr("This game already has two players!")
	}
	return nil
}

// InvitePlayer invites one named player, withdrawing any earlier invitation.
func (g *Game) InvitePlayer(inviter, invitee string) error {
	if err := g.inviteSanityCheck(inviter); err != nil {
		return err
	}
	invitee = strings.TrimSpace(invitee)
	if invitee == "" || invitee == "*" {
		return argErr("Invalid player name.")
	}
	if strings.EqualFold(invitee, inviter) {
		return argErr("You can't invite yourself.")
	}
	if IsAIPlayer(invitee) && g.stake > 0 {
		return stateErr(noAIStake)
	}
	if strings.EqualFold(g.invited, invitee) {
		return nil
	}
	g.alert(invitee, g.text("invite.received", map[string]any{"Inviter": inviter}))
	g.alert(invitee, g.text("invite.howto", map[string]any{"Game": g.name}))
	if g.invited != "" && g.invited != "*" {
		g.alert(g.invited, g.text("invite.withdrawn", nil))
	}
	g.invited = invitee
	obslog.L().Info("game_invite", zap.String("game", g.name), zap.String("inviter", inviter), zap.String("invitee", invitee))
	return nil
}

// InviteOpen lets anyone join.
func (g *Game) InviteOpen(inviter string) error {
	if err := g.inviteSanityCheck(inviter); err != nil {
		return err
	}
	if g.deps.Notifier != nil {
		g.deps.Notifier.Broadcast(g.text("invite.open", map[string]any{"Inviter": inviter}))
		g.deps.Notifier.Broadcast(g.text("invite.open_howto", map[string]any{"Game": g.name}))
	}
	g.invited = "*"
	obslog.L().Info("game_invite_open", zap.String("game", g.name), zap.String("inviter", inviter))
	return nil
}

func (g *Game) ClearInvitation() { g.invited = "" }

// Start moves SETTING_UP to RUNNING and escrows the stake from both players.
// With Deps.Offload set the escrow runs off the loop: Start returns at once
// and the game starts, or the starter is told why not, when it completes.
func (g *Game) Start(ctx context.Context, player string) error {
	if g.state != StateSettingUp {
		return stateErr("This game has already been started!")
	}
	if g.starting {
		return stateErr("This game is already starting.")
	}
	if !g.IsPlayerInGame(player) {
		return permErr("Can't start a game you're not in!")
	}
	if g.white == "" {
		return stateErr("There is no white player yet.")
	}
	if g.black == "" {
		return stateErr("There is no black player yet.")
	}
	if g.stake <= 0 || g.deps.Ledger == nil {
		g.begin(ctx)
		return nil
	}
	if g.hasAIPlayer() {
		return stateErr(noAIStake)
	}
	if g.deps.Offload == nil {
		if err := collectStakes(ctx, g.deps.Ledger, g.name, g.stake, g.white, g.black); err != nil {
			return err
		}
		g.begin(ctx)
		return nil
	}

	ledger, name, stake := g.deps.Ledger, g.name, g.stake
	white, black := g.white, g.black
	bg := context.WithoutCancel(ctx)
	var err error
	g.starting = true
	g.deps.Offload(func() {
		err = collectStakes(bg, ledger, name, stake, white, black)
	}, func() {
		g.starting = false
		if err != nil {
			g.alert(player, err.Error())
			return
		}
		if g.detached || g.state != StateSettingUp {
			g.offload(func() { refundStakes(bg, ledger, name, stake, white, black) }, func() {})
			return
		}
		g.begin(bg)
	})
	return nil
}

func (g *Game) begin(ctx context.Context) {
	g.alert(g.white, g.text("game.started", map[string]any{"Colour": White.String()}))
	g.alert(g.black, g.text("game.started", map[string]any{"Colour": Black.String()}))
	if g.stake > 0 && g.deps.Ledger != nil {
		g.alertAll(g.text("stake.paid", map[string]any{"Amount": g.deps.Ledger.Format(g.stake)}))
	}
	g.clock.Reset()
	g.setState(StateRunning)
	obslog.L().Info("game_start",
		zap.String("game", g.name),
		zap.String("white", g.white),
		zap.String("black", g.black),
		zap.Float64("stake", g.stake),
	)
	if g.deps.Hooks.Started != nil {
		g.deps.Hooks.Started(g)
	}
	g.requestAIMove(ctx)
}

func (g *Game) hasAIPlayer() bool { return IsAIPlayer(g.white) || IsAIPlayer(g.black) }

// collectStakes debits stake from every player, refunding the ones already
// paid if any debit fails. It touches no game state, so it may run off the
// loop.
func collectStakes(ctx context.Context, ledger Ledger, game string, stake float64, players ...string) error {
	var paid []string
	for _, p := range players {
		if err := ledger.Debit(ctx, p, stake); err != nil {
			refundStakes(ctx, ledger, game, stake, paid...)
			obslog.L().Warn("stake_debit_error", zap.String("game", game), zap.String("player", p), zap.Error(err))
			return stateErr("Can't collect stake of %s from %s: %v", ledger.Format(stake), p, err)
		}
		paid = append(paid, p)
	}
	return nil
}

func refundStakes(ctx context.Context, ledger Ledger, game string, stake float64, players ...string) {
	for _, p := range players {
		if err := ledger.Credit(ctx, p, stake); err != nil {
			obslog.L().Error("stake_refund_error", zap.String("game", game), zap.String("player", p), zap.Error(err))
		}
	}
}

// SetFromSquare records the piece a player picked up.
func (g *Game) SetFromSquare(sq Square) { g.fromSquare = sq }

// Move selects from and plays to in one step.
func (g *Game) Move(ctx context.Context, player string, from, to Square) error {
	if !from.Valid() || !to.Valid() {
		return argErr("Invalid square.")
	}
	prev := g.fromSquare
	g.fromSquare = from
	if err := g.DoMove(ctx, player, to); err != nil {
		g.fromSquare = prev
		return err
	}
	return nil
}

// DoMove plays the pending from-square to to for player.
func (g *Game) DoMove(ctx context.Context, player string, to Square) error {
	if g.fromSquare == NoSquare {
		return nil
	}
	if g.state != StateRunning {
		return stateErr("Chess game '%s': Game is not running!", g.name)
	}
	if !g.IsPlayerToMove(player) {
		return permErr("Chess game '%s': It is not your move!", g.name)
	}
	mover := g.pos.Turn()
	move, err := g.checkMove(g.fromSquare, to)
	if err != nil {
		return err
	}
	san, err := g.pos.Apply(move)
	if err != nil {
		return illegalErr("Illegal move: %s", move.LAN())
	}
	g.fromSquare = NoSquare
	g.history = append(g.history, move)
	ms := g.clock.Charge(mover)
	if g.deps.View != nil {
		g.deps.View.ClockUpdated(g, mover, ms)
		g.deps.View.Moved(g, move)
	}
	if g.deps.Hooks.Moved != nil {
		g.deps.Hooks.Moved(g, move)
	}
	obslog.L().Info("game_move",
		zap.String("game", g.name),
		zap.String("player", player),
		zap.String("uci", move.UCI()),
		zap.String("san", san),
		zap.Int("ply", len(g.history)),
	)

	switch g.pos.Status() {
	case StatusCheckmate:
		g.finish(winFor(mover), ResultCheckmate, g.PlayerNotToMove(), g.PlayerToMove())
		return nil
	case StatusStalemate:
		g.finish(ResultDraw, ResultStalemate, g.PlayerNotToMove(), g.PlayerToMove())
		return nil
	}
	if g.pos.HalfMoveClock() >= g.deps.Settings.FiftyMovePlies {
		g.finish(ResultDraw, ResultFiftyMoveRule, g.PlayerNotToMove(), g.PlayerToMove())
		return nil
	}
	if g.pos.Status() == StatusAutoDraw {
		g.finish(ResultDraw, ResultAutoDraw, g.PlayerNotToMove(), g.PlayerToMove())
		return nil
	}

	next := g.PlayerToMove()
	if IsAIPlayer(next) {
		g.requestAIMove(ctx)
		return nil
	}
	check := ""
	if g.pos.InCheck() {
		check = g.text("move.check", nil)
	}
	g.alert(next, g.text("move.played", map[string]any{
		"Colour": mover.String(),
		"Move":   move.LAN(),
		"Check":  check,
	}))
	g.alert(next, g.text("move.your_turn", map[string]any{"Colour": g.pos.Turn().String()}))
	return nil
}

// checkMove builds the candidate for from->to, normalising castling,
// promotion and en passant, and confirms it is legal.
func (g *Game) checkMove(from, to Square) (Move, error) {
	piece, colour := g.pos.PieceAt(from)
	if piece == NoPiece {
		return 0, illegalErr("There is no piece on %s.", from)
	}
	toPlay := g.pos.Turn()
	if colour != toPlay {
		return 0, illegalErr("The piece on %s is not yours.", from)
	}
	target, _ := g.pos.PieceAt(to)
	capturing := target != NoPiece

	move := NewMove(from, to, KindRegular, NoPiece, capturing)
	switch {
	case piece == King:
		e1, g1, c1 := NewSquare(4, 0), NewSquare(6, 0), NewSquare(2, 0)
		e8, g8, c8 := NewSquare(4, 7), NewSquare(6, 7), NewSquare(2, 7)
		if (from == e1 && to == g1) || (from == e8 && to == g8) {
			move = NewMove(from, to, KindShortCastle, NoPiece, false)
		} else if (from == e1 && to == c1) || (from == e8 && to == c8) {
			move = NewMove(from, to, KindLongCastle, NoPiece, false)
		}
	case piece == Pawn && (to.Rank() == 7 || to.Rank() == 0):
		move = NewMove(from, to, KindPromotion, g.promotion[toPlay], capturing)
	case piece == Pawn && !capturing:
		df := to.File() - from.File()
		if (df == 1 || df == -1) &&
			((from.Rank() == 4 && to.Rank() == 5) || (from.Rank() == 3 && to.Rank() == 2)) {
			move = NewMove(from, to, KindEnPassant, NoPiece, true)
		}
	}

	for _, legal := range g.pos.LegalMoves() {
		if legal == move {
			return move, nil
		}
	}
	return 0, illegalErr("Illegal move: %s", move.LAN())
}

// Resign concedes the game to the opponent.
func (g *Game) Resign(player string) error {
	if g.state != StateRunning {
		return stateErr("The game has not yet started.")
	}
	loserSide := g.PlayingAs(player)
	if loserSide == NoColor {
		return permErr("Can't resign a game you're not in!")
	}
	loser := g.white
	winner := g.black
	if loserSide == Black {
		loser, winner = g.black, g.white
	}
	g.finish(winFor(loserSide.Other()), ResultResigned, winner, loser)
	return nil
}

// WinByDefault awards the game to player, e.g. when the opponent left.
func (g *Game) WinByDefault(player string) {
	winnerSide := White
	winner, loser := g.white, g.black
	if !strings.EqualFold(player, g.white) {
		winnerSide = Black
		winner, loser = g.black, g.white
	}
	g.finish(winFor(winnerSide), ResultForfeited, winner, loser)
}

// Drawn ends the game by agreement.
func (g *Game) Drawn() {
	g.finish(ResultDraw, ResultDrawAgreed, g.white, g.black)
}

// SwapColours exchanges the player slots of a game that has not finished.
// If the swap leaves an AI player to move, its move is requested.
func (g *Game) SwapColours() error {
	if g.state == StateFinished {
		return stateErr("Can't swap colours in a finished game.")
	}
	g.chargeClock()
	g.white, g.black = g.black, g.white
	g.alert(g.white, g.text("game.swapped", map[string]any{"Colour": White.String()}))
	g.alert(g.black, g.text("game.swapped", map[string]any{"Colour": Black.String()}))
	if g.deps.View != nil {
		g.deps.View.StateChanged(g)
	}
	g.requestAIMove(context.Background())
	return nil
}

// SetPromotionPiece sets the piece used when player's pawns promote.
func (g *Game) SetPromotionPiece(player string, kind PieceKind) error {
	if !kind.ValidPromotion() {
		return argErr("Invalid promotion piece: %s", kind.Letter())
	}
	if !g.IsPlayerInGame(player) {
		return permErr("Can't set promotion piece for a game you're not in!")
	}
	if strings.EqualFold(player, g.white) {
		g.promotion[White] = kind
	}
	if strings.EqualFold(player, g.black) {
		g.promotion[Black] = kind
	}
	if g.deps.View != nil {
		g.deps.View.StateChanged(g)
	}
	return nil
}

// CyclePromotionPiece steps Q, N, B, R for every colour player holds.
func (g *Game) CyclePromotionPiece(player string) error {
	if !g.IsPlayerInGame(player) {
		return permErr("Can't set promotion piece for a game you're not in!")
	}
	if strings.EqualFold(player, g.white) {
		g.promotion[White] = nextPromotion(g.promotion[White])
	}
	if strings.EqualFold(player, g.black) {
		g.promotion[Black] = nextPromotion(g.promotion[Black])
	}
	if g.deps.View != nil {
		g.deps.View.StateChanged(g)
	}
	return nil
}

// SetStake sets the wager. Only the creator can change it, and only while
// the game is still waiting for an opponent.
func (g *Game) SetStake(player string, amount float64) error {
	if !g.IsPlayerInGame(player) {
		return permErr("Can't set the stake for a game you're not in!")
	}
	return g.applyStake(amount)
}

// AdjustStake adds delta to the wager, as the stake sign button does.
func (g *Game) AdjustStake(delta float64) error {
	return g.applyStake(g.stake + delta)
}

func (g *Game) applyStake(amount float64) error {
	if g.state != StateSettingUp {
		return stateErr("Stake can only be changed during game setup.")
	}
	if g.white != "" && g.black != "" {
		return stateErr("Stake can't be changed once both players have joined.")
	}
	if amount < 0 {
		amount = 0
	}
	if limit := g.deps.Settings.MaxStake; limit > 0 && amount > limit {
		amount = limit
	}
	if amount > 0 && (g.hasAIPlayer() || IsAIPlayer(g.invited)) {
		return stateErr(noAIStake)
	}
	g.stake = amount
	if g.deps.View != nil {
		g.deps.View.StateChanged(g)
	}
	return nil
}

// SetFEN replaces the position. The move history no longer applies to it
// and is cleared; later replays start from fen.
func (g *Game) SetFEN(fen string) error {
	fen = strings.TrimSpace(fen)
	pos, err := g.deps.NewOracle(fen)
	if err != nil {
		return argErr("Invalid FEN: %v", err)
	}
	g.pos = pos
	g.history = nil
	g.aiAsked = 0
	g.startFEN = pos.FEN()
	g.fromSquare = NoSquare
	if g.deps.View != nil {
		g.deps.View.PositionReset(g)
	}
	obslog.L().Info("game_set_fen", zap.String("game", g.name), zap.String("fen", g.startFEN))
	return nil
}

// ClockTick charges elapsed time to the side to move. No-op unless running.
// An AI player to move that has not been asked for this position, e.g.
// after a reload, is asked now.
func (g *Game) ClockTick() {
	if g.state != StateRunning {
		return
	}
	g.chargeClock()
	if !g.detached && g.aiAsked != len(g.history)+1 {
		g.requestAIMove(context.Background())
	}
}

func (g *Game) chargeClock() {
	if g.state != StateRunning {
		return
	}
	side := g.pos.Turn()
	ms := g.clock.Charge(side)
	if g.deps.View != nil {
		g.deps.View.ClockUpdated(g, side, ms)
	}
}

// setupAutoDeletion arms the auto-delete timer. announce is false when the
// timer is re-armed for a game that was already announced, e.g. on load.
func (g *Game) setupAutoDeletion(announce bool) {
	autoDel := g.deps.Settings.AutoDelete
	if autoDel <= 0 || g.deps.Scheduler == nil {
		return
	}
	g.CancelAutoDelete()
	g.delTimer = g.deps.Scheduler.AfterFunc(autoDel, func() {
		g.delTimer = nil
		g.alertAll(g.text("game.auto_deleted", nil))
		if g.deps.Owner == nil {
			return
		}
		if err := g.deps.Owner.RemoveGame(g.name); err != nil {
			obslog.L().Warn("game_auto_delete_error", zap.String("game", g.name), zap.Error(err))
		}
	})
	if !announce {
		return
	}
	g.alertAll(g.text("game.auto_delete_in", map[string]any{"Seconds": int(autoDel / time.Second)}))
	g.alertAll(g.text("game.archive_hint", nil))
}

// CancelAutoDelete stops a pending auto-deletion.
func (g *Game) CancelAutoDelete() {
	if g.delTimer == nil {
		return
	}
	g.delTimer.Stop()
	g.delTimer = nil
}

// Detach marks the game as dropped from the registry. Pending auto-deletion
// stops and late escrow or AI replies are ignored.
func (g *Game) Detach() {
	g.detached = true
	g.CancelAutoDelete()
}

// AutoDeletePending reports whether an auto-delete timer is armed.
func (g *Game) AutoDeletePending() bool { return g.delTimer != nil }

func (g *Game) requestAIMove(ctx context.Context) {
	if g.state != StateRunning || g.deps.AI == nil {
		return
	}
	player := g.PlayerToMove()
	if !IsAIPlayer(player) {
		return
	}
	ply := len(g.history)
	g.aiAsked = ply + 1
	req := MoveRequest{
		Game:     g.name,
		Player:   player,
		StartFEN: g.startFEN,
		Moves:    g.UCIHistory(),
	}
	g.deps.AI.RequestMove(ctx, req, func(uci string, err error) {
		g.deliverAIMove(ctx, player, ply, uci, err)
	})
}

func (g *Game) deliverAIMove(ctx context.Context, player string, ply int, uci string, err error) {
	if g.detached || g.state != StateRunning || len(g.history) != ply || !strings.EqualFold(g.PlayerToMove(), player) {
		obslog.L().Debug("ai_move_stale", zap.String("game", g.name), zap.String("player", player))
		return
	}
	if err == nil {
		var from, to Square
		var promo PieceKind
		from, to, promo, err = ParseUCI(uci)
		if err == nil {
			side := g.pos.Turn()
			prev := g.promotion[side]
			if promo != NoPiece {
				g.promotion[side] = promo
			}
			err = g.Move(ctx, player, from, to)
			g.promotion[side] = prev
		}
	}
	if err != nil {
		obslog.L().Warn("ai_move_error", zap.String("game", g.name), zap.String("player", player), zap.String("uci", uci), zap.Error(err))
		g.alert(g.PlayerNotToMove(), g.text("ai.failed", map[string]any{"Player": player}))
	}
}

// Detail lists the game state for the info sign and /chess list game.
func (g *Game) Detail() []string {
	white, black := g.white, g.black
	if white == "" {
		white = "?"
	}
	if black == "" {
		black = "?"
	}
	lines := []string{
		fmt.Sprintf("Game %s (board %s)", g.name, g.board),
		fmt.Sprintf("White: %s  Black: %s", white, black),
		fmt.Sprintf("State: %s", g.state),
	}
	if g.invited == "*" {
		lines = append(lines, "Open invitation")
	} else if g.invited != "" {
		lines = append(lines, fmt.Sprintf("Invited: %s", g.invited))
	}
	if g.stake > 0 {
		amount := fmt.Sprintf("%.2f", g.stake)
		if g.deps.Ledger != nil {
			amount = g.deps.Ledger.Format(g.stake)
		}
		lines = append(lines, fmt.Sprintf("Stake: %s", amount))
	}
	if g.state == StateRunning {
		lines = append(lines, fmt.Sprintf("To move: %s (%s)", g.PlayerToMove(), g.pos.Turn()))
	}
	lines = append(lines,
		fmt.Sprintf("Clock: White %s  Black %s", FormatHMS(g.TimeWhite()), FormatHMS(g.TimeBlack())),
		fmt.Sprintf("Moves: %d  Half-move clock: %d", len(g.history), g.pos.HalfMoveClock()),
		fmt.Sprintf("Promotion: White %s  Black %s", g.promotion[White], g.promotion[Black]),
	)
	if g.state == StateFinished {
		lines = append(lines, fmt.Sprintf("Result: %s (%s)", g.result.PGN(), g.resultType))
	}
	return lines
}

func (g *Game) text(key string, data map[string]any) string {
	if g.deps.Messages == nil {
		return key
	}
	if data == nil {
		data = map[string]any{}
	}
	s, err := g.deps.Messages.Render(key, data)
	if err != nil {
		obslog.L().Warn("message_render_error", zap.String("key", key), zap.Error(err))
		return key
	}
	return s
}

func (g *Game) alert(player, message string) {
	if player == "" || IsAIPlayer(player) || g.deps.Notifier == nil || message == "" {
		return
	}
	if g.deps.Messages != nil {
		message = g.text("game.prefix", map[string]any{"Game": g.name, "Message": message})
	}
	g.deps.Notifier.Alert(player, message)
}

func (g *Game) alertAll(message string) {
	g.alert(g.white, message)
	if !strings.EqualFold(g.white, g.black) {
		g.alert(g.black, message)
	}
}

// Alert sends a game-prefixed message to one player.
func (g *Game) Alert(player, message string) { g.alert(player, message) }

// AlertAll sends a game-prefixed message to both players.
func (g *Game) AlertAll(message string) { g.alertAll(message) }
