package archive

import (
	"strings"
	"sync"

	chesslib "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
	"github.com/park285/chesscraft-go/internal/chessgame"
)

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

// Opening names the ECO opening reached by moves (UCI). Games that did not
// start from the initial position have no opening.
func Opening(startFEN string, moves []string) (code, title string) {
	if len(moves) == 0 {
		return "", ""
	}
	if fen := strings.TrimSpace(startFEN); fen != "" && fen != chessgame.StartFEN {
		return "", ""
	}
	game := chesslib.NewGame()
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, chesslib.UCINotation{}, nil); err != nil {
			break
		}
	}
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	eco := ecoBook.Find(game.Moves())
	if eco == nil {
		return "", ""
	}
	return eco.Code(), eco.Title()
}
