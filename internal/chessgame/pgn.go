package chessgame

import (
	"fmt"
	"strings"
	"time"
)

// PGNHeader carries the tags that do not come from the game itself.
type PGNHeader struct {
	Event string
	Site  string
	Round string
	Date  time.Time
}

// PGN renders the game with the seven tag roster, a FEN tag when the game
// did not start from the standard position, and numbered SAN movetext.
func (g *Game) PGN(h PGNHeader) string {
	date := h.Date
	if date.IsZero() {
		date = g.started
	}
	event := h.Event
	if strings.TrimSpace(event) == "" {
		event = "ChessCraft game " + g.name
	}
	site := h.Site
	if strings.TrimSpace(site) == "" {
		site = "?"
	}
	round := h.Round
	if strings.TrimSpace(round) == "" {
		round = "?"
	}
	result := g.result.PGN()

	var b strings.Builder
	writeTag(&b, "Event", event)
	writeTag(&b, "Site", site)
	writeTag(&b, "Date", fmt.Sprintf("%04d.%02d.%02d", date.Year(), int(date.Month()), date.Day()))
	writeTag(&b, "Round", round)
	writeTag(&b, "White", orUnknown(g.white))
	writeTag(&b, "Black", orUnknown(g.black))
	writeTag(&b, "Result", result)
	if g.startFEN != "" && g.startFEN != StartFEN {
		writeTag(&b, "SetUp", "1")
		writeTag(&b, "FEN", g.startFEN)
	}
	if g.resultType != ResultNone {
		writeTag(&b, "Termination", string(g.resultType))
	}
	b.WriteString("\n")
	b.WriteString(movetext(g.SANHistory(), g.startFEN))
	b.WriteString(result)
	b.WriteString("\n")
	return b.String()
}

func movetext(san []string, startFEN string) string {
	full := fenField(startFEN, 5)
	if full < 1 {
		full = 1
	}
	blackFirst := len(strings.Fields(startFEN)) > 1 && strings.Fields(startFEN)[1] == "b"

	var b strings.Builder
	i := 0
	if blackFirst && len(san) > 0 {
		fmt.Fprintf(&b, "%d... %s ", full, strings.TrimSpace(san[0]))
		full++
		i = 1
	}
	for ; i < len(san); i += 2 {
		fmt.Fprintf(&b, "%d. %s ", full, strings.TrimSpace(san[i]))
		if i+1 < len(san) {
			b.WriteString(strings.TrimSpace(san[i+1]))
			b.WriteString(" ")
		}
		full++
	}
	return b.String()
}

func writeTag(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "[%s \"%s\"]\n", name, sanitizePGN(value))
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "?"
	}
	return s
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
