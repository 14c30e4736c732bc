package chessgame

import (
	"fmt"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Status is the position state after a move.
type Status int

const (
	StatusOngoing Status = iota
	StatusCheckmate
	StatusStalemate
	// StatusAutoDraw is a draw the oracle declares on its own.
	StatusAutoDraw
)

// Oracle supplies move legality and position state. A Game never decides
// legality itself; it only asks whether a candidate is among LegalMoves.
type Oracle interface {
	Turn() Color
	PieceAt(sq Square) (PieceKind, Color)
	LegalMoves() []Move
	// Apply plays a move that LegalMoves returned and reports its SAN.
	Apply(m Move) (string, error)
	InCheck() bool
	Status() Status
	HalfMoveClock() int
	PlyNumber() int
	FEN() string
	SAN() []string
}

// OracleFactory builds an oracle for a starting position. An empty fen means
// the standard start.
type OracleFactory func(fen string) (Oracle, error)

// NewOracle returns the default oracle backed by corentings/chess.
func NewOracle(fen string) (Oracle, error) {
	return newBoardOracle(fen)
}

type boardOracle struct {
	game *nchess.Game
	san  []string
}

func newBoardOracle(fen string) (*boardOracle, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" || fen == StartFEN {
		return &boardOracle{game: nchess.NewGame()}, nil
	}
	option, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	return &boardOracle{game: nchess.NewGame(option)}, nil
}

func (o *boardOracle) Turn() Color {
	if o.game.Position().Turn() == nchess.White {
		return White
	}
	return Black
}

func (o *boardOracle) PieceAt(sq Square) (PieceKind, Color) {
	if !sq.Valid() {
		return NoPiece, NoColor
	}
	p := o.game.Position().Board().Piece(libSquare(sq))
	if p == nchess.NoPiece {
		return NoPiece, NoColor
	}
	c := White
	if p.Color() == nchess.Black {
		c = Black
	}
	return kindFromLib(p.Type()), c
}

func (o *boardOracle) LegalMoves() []Move {
	valid := o.game.ValidMoves()
	out := make([]Move, 0, len(valid))
	for _, mv := range valid {
		from, to := squareFromLib(mv.S1()), squareFromLib(mv.S2())
		capture := mv.HasTag(nchess.Capture) || mv.HasTag(nchess.EnPassant)
		switch {
		case mv.HasTag(nchess.KingSideCastle):
			out = append(out, NewMove(from, to, KindShortCastle, NoPiece, false))
		case mv.HasTag(nchess.QueenSideCastle):
			out = append(out, NewMove(from, to, KindLongCastle, NoPiece, false))
		case mv.HasTag(nchess.EnPassant):
			out = append(out, NewMove(from, to, KindEnPassant, NoPiece, true))
		case mv.Promo() != nchess.NoPieceType:
			out = append(out, NewMove(from, to, KindPromotion, kindFromLib(mv.Promo()), capture))
		default:
			out = append(out, NewMove(from, to, KindRegular, NoPiece, capture))
		}
	}
	return out
}

func (o *boardOracle) Apply(m Move) (string, error) {
	pos := o.game.Position()
	if err := o.game.PushNotationMove(m.UCI(), nchess.UCINotation{}, nil); err != nil {
		return "", fmt.Errorf("apply %s: %w", m.UCI(), err)
	}
	last := lastMove(o.game)
	if last == nil {
		return "", fmt.Errorf("apply %s: move not recorded", m.UCI())
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, last)
	o.san = append(o.san, san)
	return san, nil
}

func (o *boardOracle) InCheck() bool {
	last := lastMove(o.game)
	return last != nil && last.HasTag(nchess.Check)
}

func (o *boardOracle) Status() Status {
	if len(o.game.ValidMoves()) == 0 {
		if o.InCheck() {
			return StatusCheckmate
		}
		return StatusStalemate
	}
	if o.game.Outcome() == nchess.Draw {
		return StatusAutoDraw
	}
	return StatusOngoing
}

func (o *boardOracle) HalfMoveClock() int {
	return fenField(o.game.FEN(), 4)
}

// PlyNumber counts half-moves from the start of the game, derived from the
// full-move number so it survives a FEN override.
func (o *boardOracle) PlyNumber() int {
	full := fenField(o.game.FEN(), 5)
	if full < 1 {
		full = 1
	}
	ply := (full - 1) * 2
	if o.Turn() == Black {
		ply++
	}
	return ply
}

func (o *boardOracle) FEN() string { return o.game.FEN() }

func (o *boardOracle) SAN() []string { return append([]string(nil), o.san...) }

func lastMove(game *nchess.Game) *nchess.Move {
	moves := game.Moves()
	if len(moves) == 0 {
		return nil
	}
	return moves[len(moves)-1]
}

func fenField(fen string, idx int) int {
	parts := strings.Fields(fen)
	if idx >= len(parts) {
		return 0
	}
	n, err := strconv.Atoi(parts[idx])
	if err != nil {
		return 0
	}
	return n
}

func libSquare(sq Square) nchess.Square {
	return nchess.NewSquare(nchess.File(sq.File()), nchess.Rank(sq.Rank()))
}

func squareFromLib(sq nchess.Square) Square {
	return NewSquare(int(sq.File()), int(sq.Rank()))
}

func kindFromLib(pt nchess.PieceType) PieceKind {
	switch pt {
	case nchess.Pawn:
		return Pawn
	case nchess.Knight:
		return Knight
	case nchess.Bishop:
		return Bishop
	case nchess.Rook:
		return Rook
	case nchess.Queen:
		return Queen
	case nchess.King:
		return King
	default:
		return NoPiece
	}
}
