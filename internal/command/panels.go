package command

import (
	"github.com/park285/chesscraft-go/internal/board"
	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/panel"
	"github.com/park285/chesscraft-go/internal/registry"
)

// installHooks keeps one control panel per board and binds it to the game on
// that board.
func (r *Router) installHooks() {
	r.d.Registry.SetHooks(registry.Hooks{
		BoardAdded:   r.boardAdded,
		BoardRemoved: r.boardRemoved,
		GameAdded:    r.gameAdded,
		GameRemoved:  r.gameRemoved,
	})
}

func (r *Router) boardAdded(v *board.View) {
	p := panel.New(v, r.d.PanelSettings, r.d.Expect, r.d.Painter, r)
	r.panels[key(v.Name)] = p
	g, _ := r.d.Registry.GameOnBoard(v.Name)
	p.Bind(g)
}

func (r *Router) boardRemoved(v *board.View) {
	delete(r.panels, key(v.Name))
}

func (r *Router) gameAdded(g *chessgame.Game) {
	if p, ok := r.panels[key(g.Board())]; ok {
		p.Bind(g)
	}
}

func (r *Router) gameRemoved(g *chessgame.Game) {
	r.d.Expect.CancelGame(g.Name())
	if p, ok := r.panels[key(g.Board())]; ok && p.Game() == g {
		p.Bind(nil)
	}
}

func (r *Router) repaintAll() {
	for _, p := range r.panels {
		p.SetSettings(r.d.PanelSettings)
		p.Repaint()
	}
}

// SetPanelSettings replaces the economy settings of every panel.
func (r *Router) SetPanelSettings(s panel.Settings) {
	r.d.PanelSettings = s
	r.repaintAll()
}
