package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/style"
)

var (
	ErrBadName      = errors.New("invalid board name")
	ErrBadDirection = errors.New("invalid direction")
)

// Point is a block position in a world.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

func (p Point) Add(o Point) Point { return Point{p.X + o.X, p.Y + o.Y, p.Z + o.Z} }

func (p Point) Scale(n int) Point { return Point{p.X * n, p.Y * n, p.Z * n} }

func (p Point) String() string { return fmt.Sprintf("%d,%d,%d", p.X, p.Y, p.Z) }

// Cuboid is an inclusive block region.
type Cuboid struct {
	World string `json:"world"`
	Min   Point  `json:"min"`
	Max   Point  `json:"max"`
}

func newCuboid(world string, a, b Point) Cuboid {
	return Cuboid{
		World: world,
		Min:   Point{min(a.X, b.X), min(a.Y, b.Y), min(a.Z, b.Z)},
		Max:   Point{max(a.X, b.X), max(a.Y, b.Y), max(a.Z, b.Z)},
	}
}

func (c Cuboid) Contains(world string, p Point) bool {
	return strings.EqualFold(world, c.World) &&
		p.X >= c.Min.X && p.X <= c.Max.X &&
		p.Y >= c.Min.Y && p.Y <= c.Max.Y &&
		p.Z >= c.Min.Z && p.Z <= c.Max.Z
}

// Intersects reports whether two regions in the same world overlap.
func (c Cuboid) Intersects(o Cuboid) bool {
	return strings.EqualFold(c.World, o.World) &&
		c.Min.X <= o.Max.X && o.Min.X <= c.Max.X &&
		c.Min.Y <= o.Max.Y && o.Min.Y <= c.Max.Y &&
		c.Min.Z <= o.Max.Z && o.Min.Z <= c.Max.Z
}

// Volume counts the blocks in the region.
func (c Cuboid) Volume() int {
	return (c.Max.X - c.Min.X + 1) * (c.Max.Y - c.Min.Y + 1) * (c.Max.Z - c.Min.Z + 1)
}

// Direction is the way rank 8 lies from rank 1.
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

func (d Direction) String() string {
	switch d {
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	default:
		return "north"
	}
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "n", "north":
		return North, nil
	case "e", "east":
		return East, nil
	case "s", "south":
		return South, nil
	case "w", "west":
		return West, nil
	}
	return North, fmt.Errorf("%w: %s", ErrBadDirection, s)
}

// rankDir and fileDir are unit steps along the ranks and files.
func (d Direction) rankDir() Point {
	switch d {
	case East:
		return Point{1, 0, 0}
	case South:
		return Point{0, 0, 1}
	case West:
		return Point{-1, 0, 0}
	default:
		return Point{0, 0, -1}
	}
}

func (d Direction) fileDir() Point {
	switch d {
	case East:
		return Point{0, 0, 1}
	case South:
		return Point{-1, 0, 0}
	case West:
		return Point{0, 0, -1}
	default:
		return Point{1, 0, 0}
	}
}

// View is a chessboard placed in the world.
type View struct {
	Name      string
	World     string
	Origin    Point // a1 corner; files and ranks extend from here
	Direction Direction
	StyleName string
	Style     *style.Style
}

// ValidName reports whether name is usable as a board or file name.
func ValidName(name string) bool { return chessgame.ValidName(name) }

func New(name, world string, origin Point, dir Direction, st *style.Style) (*View, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	if st == nil {
		return nil, errors.New("board style is required")
	}
	return &View{Name: name, World: world, Origin: origin, Direction: dir, StyleName: st.Name, Style: st}, nil
}

func (v *View) span() int { return 8*v.Style.SquareSize - 1 }

// Bounds covers the 64 squares and the air above them up to the style height.
func (v *View) Bounds() Cuboid {
	far := v.Origin.
		Add(v.Direction.fileDir().Scale(v.span())).
		Add(v.Direction.rankDir().Scale(v.span())).
		Add(Point{0, v.Style.Height - 1, 0})
	return newCuboid(v.World, v.Origin, far)
}

// OuterBounds adds the frame on every side plus one layer below and above.
func (v *View) OuterBounds() Cuboid {
	fw := v.Style.FrameWidth
	fd, rd := v.Direction.fileDir(), v.Direction.rankDir()
	near := v.Origin.Add(fd.Scale(-fw)).Add(rd.Scale(-fw)).Add(Point{0, -1, 0})
	far := v.Origin.
		Add(fd.Scale(v.span() + fw)).
		Add(rd.Scale(v.span() + fw)).
		Add(Point{0, v.Style.Height, 0})
	return newCuboid(v.World, near, far)
}

// PanelOrigin is the bottom-left sign of the control panel, standing on the
// frame in front of the white side and centred on the board.
func (v *View) PanelOrigin() Point {
	fd, rd := v.Direction.fileDir(), v.Direction.rankDir()
	return v.Origin.
		Add(fd.Scale(4*v.Style.SquareSize - 4)).
		Add(rd.Scale(-v.Style.FrameWidth)).
		Add(Point{0, 1, 0})
}

// StandingPoint is where players are put when teleported to the board: on
// the ground two blocks in front of the control panel.
func (v *View) StandingPoint() Point {
	return v.PanelOrigin().Add(v.Direction.rankDir().Scale(-2)).Add(Point{0, -1, 0})
}

// PanelSign returns the block holding the sign at panel column col and row.
func (v *View) PanelSign(col, row int) Point {
	return v.PanelOrigin().Add(v.Direction.fileDir().Scale(col)).Add(Point{0, row, 0})
}

// PanelCell maps a clicked block back to a panel column and row.
func (v *View) PanelCell(world string, p Point) (col, row int, ok bool) {
	if !strings.EqualFold(world, v.World) {
		return 0, 0, false
	}
	d := Point{p.X - v.PanelOrigin().X, p.Y - v.PanelOrigin().Y, p.Z - v.PanelOrigin().Z}
	fd, rd := v.Direction.fileDir(), v.Direction.rankDir()
	if dot(d, rd) != 0 {
		return 0, 0, false
	}
	col, row = dot(d, fd), d.Y
	if col < 0 || col > 7 || row < 0 || row > 2 {
		return 0, 0, false
	}
	return col, row, true
}

// SquareAt maps a clicked block on the board surface, or a piece standing
// on it, to a chess square.
func (v *View) SquareAt(world string, p Point) (chessgame.Square, bool) {
	if !v.Bounds().Contains(world, p) {
		return chessgame.NoSquare, false
	}
	d := Point{p.X - v.Origin.X, 0, p.Z - v.Origin.Z}
	f := dot(d, v.Direction.fileDir())
	r := dot(d, v.Direction.rankDir())
	size := v.Style.SquareSize
	return chessgame.NewSquare(f/size, r/size), true
}

// SquareOrigin is the a1-side corner block of sq.
func (v *View) SquareOrigin(sq chessgame.Square) Point {
	size := v.Style.SquareSize
	return v.Origin.
		Add(v.Direction.fileDir().Scale(sq.File() * size)).
		Add(v.Direction.rankDir().Scale(sq.Rank() * size))
}

// SquareCuboid is the surface region of sq.
func (v *View) SquareCuboid(sq chessgame.Square) Cuboid {
	o := v.SquareOrigin(sq)
	size := v.Style.SquareSize - 1
	far := o.Add(v.Direction.fileDir().Scale(size)).Add(v.Direction.rankDir().Scale(size))
	return newCuboid(v.World, o, far)
}

func dot(a, b Point) int { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

// Frozen is the persisted form of a View.
type Frozen struct {
	Name      string `json:"name" yaml:"name"`
	World     string `json:"world" yaml:"world"`
	Origin    Point  `json:"origin" yaml:"origin"`
	Direction string `json:"direction" yaml:"direction"`
	Style     string `json:"style" yaml:"style"`
}

func (v *View) Freeze() Frozen {
	return Frozen{Name: v.Name, World: v.World, Origin: v.Origin, Direction: v.Direction.String(), Style: v.StyleName}
}

// Thaw rebuilds a view, resolving its style through lib. An unknown style
// falls back to the default one.
func Thaw(f Frozen, lib *style.Library) (*View, error) {
	dir, err := ParseDirection(f.Direction)
	if err != nil {
		return nil, err
	}
	st, err := lib.Get(f.Style)
	if err != nil {
		st, err = lib.Get(style.DefaultName)
		if err != nil {
			return nil, err
		}
	}
	v, err := New(f.Name, f.World, f.Origin, dir, st)
	if err != nil {
		return nil, err
	}
	v.StyleName = f.Style
	if v.StyleName == "" {
		v.StyleName = st.Name
	}
	return v, nil
}
