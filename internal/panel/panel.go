// Package panel lays out and drives the sign buttons standing in front of
// each board.
package panel

import (
	"fmt"
	"strconv"

	"github.com/park285/chesscraft-go/internal/board"
	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/expect"
)

// Button names a panel sign. Names starting with '*' belong to one colour;
// names starting with '=' are read-only info signs.
type Button string

const (
	ListBoard    Button = "list.board"
	Teleport     Button = "teleport"
	Stake        Button = "stake"
	CreateGame   Button = "create.game"
	Invite       Button = "invite"
	InviteAnyone Button = "invite.anyone"
	Start        Button = "start"
	OfferDraw    Button = "offer.draw"
	Resign       Button = "resign"
	ListGame     Button = "list.game"
	WhitePromote Button = "*white-promote"
	BlackPromote Button = "*black-promote"
	WhiteYes     Button = "*white-yes"
	WhiteNo      Button = "*white-no"
	BlackYes     Button = "*black-yes"
	BlackNo      Button = "*black-no"

	HalfMoveInfo Button = "=halfmove"
	PlyInfo      Button = "=ply"
	WhiteClock   Button = "=white-clock"
	BlackClock   Button = "=black-clock"
)

// Sign is one painted sign. Pos is filled in by Panel; Layout leaves it zero.
type Sign struct {
	Button  Button      `json:"button"`
	Col     int         `json:"col"`
	Row     int         `json:"row"`
	Pos     board.Point `json:"pos"`
	Lines   [4]string   `json:"lines"`
	Enabled bool        `json:"enabled"`
}

// Settings control the economy buttons.
type Settings struct {
	Economy        bool
	SmallIncrement float64
	LargeIncrement float64
	Format         func(amount float64) string
}

// FormatAmount renders a stake.
func (s Settings) FormatAmount(amount float64) string {
	if s.Format != nil {
		return s.Format(amount)
	}
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

type cell struct{ col, row int }

var positions = map[Button]cell{
	ListBoard:    {0, 2},
	Teleport:     {0, 1},
	Stake:        {7, 1},
	CreateGame:   {1, 2},
	Invite:       {2, 2},
	InviteAnyone: {3, 2},
	Start:        {4, 2},
	OfferDraw:    {5, 2},
	Resign:       {6, 2},
	ListGame:     {7, 2},
	WhitePromote: {1, 1},
	BlackPromote: {6, 1},
	WhiteYes:     {0, 0},
	WhiteNo:      {1, 0},
	BlackYes:     {6, 0},
	BlackNo:      {7, 0},
	HalfMoveInfo: {2, 0},
	PlyInfo:      {5, 0},
	WhiteClock:   {2, 1},
	BlackClock:   {5, 1},
}

// ButtonAt returns the button occupying a panel cell.
func ButtonAt(col, row int) (Button, bool) {
	for b, c := range positions {
		if c.col == col && c.row == row {
			return b, true
		}
	}
	return "", false
}

// Layout computes every sign for a board whose game is g (nil when the board
// is empty). exp may be nil.
func Layout(g *chessgame.Game, s Settings, exp *expect.Expecter) []Sign {
	var (
		hasGame   = g != nil
		settingUp = hasGame && g.State() == chessgame.StateSettingUp
		running   = hasGame && g.State() == chessgame.StateRunning
		slotFree  = settingUp && (g.White() == "" || g.Black() == "")
	)
	awaiting := func(player string) bool {
		if exp == nil || !hasGame || player == "" {
			return false
		}
		return exp.PendingIn(player, g.Name())
	}

	var out []Sign
	add := func(b Button, enabled bool, lines ...string) {
		c := positions[b]
		sg := Sign{Button: b, Col: c.col, Row: c.row, Enabled: enabled}
		copy(sg.Lines[:], lines)
		out = append(out, sg)
	}

	add(ListBoard, true, "", "List", "Board")
	add(Teleport, true, "", "Teleport", "Out")
	add(CreateGame, !hasGame, "", "Create", "Game")
	add(Invite, slotFree, "", "Invite", "Player")
	add(InviteAnyone, slotFree, "", "Invite", "ANYONE")
	add(Start, settingUp, "", "Start", "Game")
	add(OfferDraw, running, "", "Offer", "Draw")
	add(Resign, running, "", "Resign")
	add(ListGame, hasGame, "", "List", "Game")

	if s.Economy {
		stake := "-"
		if hasGame {
			stake = s.FormatAmount(g.Stake())
		}
		add(Stake, hasGame, "Stake", stake, "", "")
	}

	white, black := "", ""
	if hasGame {
		white, black = g.White(), g.Black()
	}
	promo := func(c chessgame.Color) string {
		if !hasGame {
			return ""
		}
		return g.Promotion(c).String()
	}
	add(WhitePromote, white != "", "White", "Promotion", promo(chessgame.White))
	add(BlackPromote, black != "", "Black", "Promotion", promo(chessgame.Black))

	add(WhiteYes, awaiting(white), "", "White", "Yes")
	add(WhiteNo, awaiting(white), "", "White", "No")
	add(BlackYes, awaiting(black), "", "Black", "Yes")
	add(BlackNo, awaiting(black), "", "Black", "No")

	halfMove, ply, tw, tb := "", "", "", ""
	if hasGame {
		halfMove = strconv.Itoa(g.HalfMoveClock())
		ply = strconv.Itoa(g.PlyNumber())
		tw = chessgame.FormatHMS(g.TimeWhite())
		tb = chessgame.FormatHMS(g.TimeBlack())
	}
	add(HalfMoveInfo, false, "Half-move", "clock", halfMove)
	add(PlyInfo, false, "Ply", "number", ply)
	add(WhiteClock, false, "White", tw, white)
	add(BlackClock, false, "Black", tb, black)
	return out
}

func find(signs []Sign, b Button) (Sign, bool) {
	for _, s := range signs {
		if s.Button == b {
			return s, true
		}
	}
	return Sign{}, false
}

// String is used in logs.
func (s Sign) String() string {
	return fmt.Sprintf("%s@%d,%d", s.Button, s.Col, s.Row)
}
