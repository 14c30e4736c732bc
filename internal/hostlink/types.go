package hostlink

import (
	"github.com/park285/chesscraft-go/internal/board"
	"github.com/park285/chesscraft-go/internal/panel"
	"github.com/park285/chesscraft-go/internal/terrain"
)

// Config is what the host bridge reports about itself.
type Config struct {
	ServerName string   `json:"serverName"`
	Version    string   `json:"version"`
	Worlds     []string `json:"worlds"`
	Online     int      `json:"online"`
}

type messageRequest struct {
	Player string `json:"player,omitempty"`
	Text   string `json:"text"`
}

type signsRequest struct {
	World string       `json:"world"`
	Signs []panel.Sign `json:"signs"`
}

type positionRequest struct {
	World string `json:"world"`
	Board string `json:"board"`
	FEN   string `json:"fen"`
}

type blocksRequest struct {
	Region board.Cuboid `json:"region"`
}

type blocksResponse struct {
	Blocks []terrain.Block `json:"blocks"`
}

type setBlocksRequest struct {
	World  string          `json:"world"`
	Blocks []terrain.Block `json:"blocks"`
}

type teleportRequest struct {
	Player string      `json:"player"`
	World  string      `json:"world"`
	Pos    board.Point `json:"pos"`
}

// EventType is the kind of an inbound host event.
type EventType string

const (
	EventCommand    EventType = "command"
	EventBlockClick EventType = "block_click"
	EventSignClick  EventType = "sign_click"
	EventPlayerJoin EventType = "player_join"
	EventPlayerQuit EventType = "player_quit"
)

// Event is one frame of the host's event stream. Commands carry the
// player's position and facing; clicks carry the clicked block.
type Event struct {
	ID         string    `json:"id,omitempty"`
	Type       EventType `json:"type"`
	Player     string    `json:"player"`
	Admin      bool      `json:"admin,omitempty"`
	Args       []string  `json:"args,omitempty"`
	World      string    `json:"world,omitempty"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Z          int       `json:"z"`
	Facing     string    `json:"facing,omitempty"`
	Sneaking   bool      `json:"sneaking,omitempty"`
	RightClick bool      `json:"rightClick,omitempty"`
}

func (e Event) Pos() board.Point { return board.Point{X: e.X, Y: e.Y, Z: e.Z} }

// State is the event stream connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)
