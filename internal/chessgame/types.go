package chessgame

import "strings"

// Color identifies a side. The zero value is White so arrays indexed by
// Color line up with the frozen promotionWhite/promotionBlack keys.
type Color int8

const (
	White Color = iota
	Black
	NoColor
)

func (c Color) Other() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

func (c Color) String() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return "???"
	}
}

// State is the lifecycle of a game.
type State string

const (
	StateSettingUp State = "SETTING_UP"
	StateRunning   State = "RUNNING"
	StateFinished  State = "FINISHED"
)

func parseState(s string) (State, bool) {
	switch State(strings.ToUpper(strings.TrimSpace(s))) {
	case StateSettingUp:
		return StateSettingUp, true
	case StateRunning:
		return StateRunning, true
	case StateFinished:
		return StateFinished, true
	}
	return "", false
}

// Result is the numeric result code stored with a game.
type Result int

const (
	ResultNotFinished Result = iota
	ResultWhiteWins
	ResultBlackWins
	ResultDraw
)

// PGN returns the result token used in PGN movetext and the Result tag.
func (r Result) PGN() string {
	switch r {
	case ResultWhiteWins:
		return "1-0"
	case ResultBlackWins:
		return "0-1"
	case ResultDraw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

func (r Result) Decisive() bool { return r == ResultWhiteWins || r == ResultBlackWins }

func winFor(c Color) Result {
	if c == White {
		return ResultWhiteWins
	}
	return ResultBlackWins
}

// ResultType classifies how a game finished.
type ResultType string

const (
	ResultNone          ResultType = ""
	ResultCheckmate     ResultType = "checkmate"
	ResultStalemate     ResultType = "stalemate"
	ResultFiftyMoveRule ResultType = "fifty_move_rule"
	ResultDrawAgreed    ResultType = "draw_agreed"
	ResultResigned      ResultType = "resigned"
	ResultForfeited     ResultType = "forfeited"
	// ResultAutoDraw covers draws the oracle declares by itself:
	// insufficient material, fivefold repetition, 75-move rule.
	ResultAutoDraw ResultType = "auto_draw"
)

// PaysOut reports whether a stake is paid to the winner for this finish.
func (rt ResultType) PaysOut() bool {
	return rt == ResultCheckmate || rt == ResultResigned
}

// PieceKind is a chess piece type without colour.
type PieceKind uint8

const (
	NoPiece PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

func (k PieceKind) Letter() string {
	switch k {
	case Pawn:
		return "P"
	case Knight:
		return "N"
	case Bishop:
		return "B"
	case Rook:
		return "R"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		return "?"
	}
}

func (k PieceKind) String() string {
	switch k {
	case Pawn:
		return "Pawn"
	case Knight:
		return "Knight"
	case Bishop:
		return "Bishop"
	case Rook:
		return "Rook"
	case Queen:
		return "Queen"
	case King:
		return "King"
	default:
		return "None"
	}
}

// ValidPromotion reports whether k is a piece a pawn may promote to.
func (k PieceKind) ValidPromotion() bool {
	return k == Queen || k == Rook || k == Bishop || k == Knight
}

// ParsePieceKind accepts a letter or a full name, any case.
func ParsePieceKind(s string) (PieceKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "p", "pawn":
		return Pawn, true
	case "n", "knight":
		return Knight, true
	case "b", "bishop":
		return Bishop, true
	case "r", "rook":
		return Rook, true
	case "q", "queen":
		return Queen, true
	case "k", "king":
		return King, true
	}
	return NoPiece, false
}

// nextPromotion cycles Q -> N -> B -> R -> Q.
func nextPromotion(k PieceKind) PieceKind {
	switch k {
	case Queen:
		return Knight
	case Knight:
		return Bishop
	case Bishop:
		return Rook
	default:
		return Queen
	}
}

// ValidName reports whether name is usable for a game or board: letters,
// digits, '-' and '_', at most 64 characters.
func ValidName(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for _, r := range name {
		ok := r == '-' || r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !ok {
			return false
		}
	}
	return true
}
