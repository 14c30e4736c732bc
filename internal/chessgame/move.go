package chessgame

import (
	"fmt"
	"strings"
)

// Square indexes the board: a1 = 0, b1 = 1, ... h8 = 63.
type Square int8

const NoSquare Square = -1

func NewSquare(file, rank int) Square {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare
	}
	return Square(file + rank*8)
}

func (s Square) File() int { return int(s) % 8 }
func (s Square) Rank() int { return int(s) / 8 }
func (s Square) Valid() bool {
	return s >= 0 && s < 64
}

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s.File()), byte('1' + s.Rank())})
}

// ParseSquare parses algebraic coordinates such as "e4".
func ParseSquare(s string) (Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, argErr("Invalid square: %s", s)
	}
	return NewSquare(int(s[0]-'a'), int(s[1]-'1')), nil
}

// MoveKind marks the special moves that need normalising before a legality
// check.
type MoveKind uint8

const (
	KindRegular MoveKind = iota
	KindShortCastle
	KindLongCastle
	KindEnPassant
	KindPromotion
)

// Move packs a move into 19 bits:
//
//	0-5   from square
//	6-11  to square
//	12-14 promotion piece
//	15    capture
//	16-18 kind
type Move uint32

const (
	moveFromShift  = 0
	moveToShift    = 6
	movePromoShift = 12
	moveCapShift   = 15
	moveKindShift  = 16
)

func NewMove(from, to Square, kind MoveKind, promo PieceKind, capture bool) Move {
	m := Move(uint32(from)&0x3f) << moveFromShift
	m |= Move(uint32(to)&0x3f) << moveToShift
	m |= Move(uint32(promo)&0x7) << movePromoShift
	if capture {
		m |= 1 << moveCapShift
	}
	m |= Move(uint32(kind)&0x7) << moveKindShift
	return m
}

func (m Move) From() Square { return Square((m >> moveFromShift) & 0x3f) }
func (m Move) To() Square { return Square((m >> moveToShift) & 0x3f) }
func (m Move) Promotion() PieceKind { return PieceKind((m >> movePromoShift) & 0x7) }
func (m Move) IsCapture() bool { return (m>>moveCapShift)&1 == 1 }
func (m Move) Kind() MoveKind { return MoveKind((m >> moveKindShift) & 0x7) }
func (m Move) IsCastle() bool { return m.Kind() == KindShortCastle || m.Kind() == KindLongCastle }

// UCI returns coordinate notation, e.g. "e7e8q".
func (m Move) UCI() string {
	s := m.From().String() + m.To().String()
	if m.Kind() == KindPromotion {
		s += strings.ToLower(m.Promotion().Letter())
	}
	return s
}

// LAN returns long algebraic notation as shown to players, e.g. "e2-e4",
// "e4xd5", "O-O", "e7-e8=Q".
func (m Move) LAN() string {
	switch m.Kind() {
	case KindShortCastle:
		return "O-O"
	case KindLongCastle:
		return "O-O-O"
	}
	sep := "-"
	if m.IsCapture() {
		sep = "x"
	}
	s := m.From().String() + sep + m.To().String()
	if m.Kind() == KindPromotion {
		s += "=" + m.Promotion().Letter()
	}
	if m.Kind() == KindEnPassant {
		s += " e.p."
	}
	return s
}

func (m Move) String() string { return fmt.Sprintf("%s(%d)", m.LAN(), uint32(m)) }

// ParseUCI splits a coordinate move into squares and promotion piece.
func ParseUCI(s string) (from, to Square, promo PieceKind, err error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return NoSquare, NoSquare, NoPiece, argErr("Invalid move: %s", s)
	}
	if from, err = ParseSquare(s[:2]); err != nil {
		return NoSquare, NoSquare, NoPiece, err
	}
	if to, err = ParseSquare(s[2:4]); err != nil {
		return NoSquare, NoSquare, NoPiece, err
	}
	if len(s) == 5 {
		k, ok := ParsePieceKind(s[4:])
		if !ok || !k.ValidPromotion() {
			return NoSquare, NoSquare, NoPiece, argErr("Invalid promotion piece: %s", s[4:])
		}
		promo = k
	}
	return from, to, promo, nil
}
