package board

import (
	"testing"

	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/style"
	"github.com/stretchr/testify/require"
)

func testStyle(t *testing.T) *style.Style {
	t.Helper()
	lib, err := style.NewLibrary("")
	require.NoError(t, err)
	st, err := lib.Get("")
	require.NoError(t, err)
	st.SquareSize = 3
	st.FrameWidth = 2
	st.Height = 5
	return st
}

func TestSquareAt_AllDirections(t *testing.T) {
	st := testStyle(t)
	for _, dir := range []Direction{North, East, South, West} {
		v, err := New("b1", "world", Point{100, 64, 100}, dir, st)
		require.NoError(t, err)
		for _, name := range []string{"a1", "h1", "e4", "a8", "h8"} {
			want, err := chessgame.ParseSquare(name)
			require.NoError(t, err)
			corner := v.SquareOrigin(want)
			got, ok := v.SquareAt("world", corner)
			require.True(t, ok, "%s %s", dir, name)
			require.Equal(t, want, got, "%s corner of %s", dir, name)

			far := v.SquareCuboid(want)
			got, ok = v.SquareAt("world", far.Max.Add(Point{0, 2, 0}))
			require.True(t, ok)
			require.Equal(t, want, got, "%s piece above %s", dir, name)
		}
		_, ok := v.SquareAt("other", v.Origin)
		require.False(t, ok)
	}
}

func TestBounds_Sizes(t *testing.T) {
	st := testStyle(t)
	v, err := New("b1", "world", Point{0, 10, 0}, North, st)
	require.NoError(t, err)

	b := v.Bounds()
	require.Equal(t, 24*24*5, b.Volume())
	require.Equal(t, Point{0, 10, -23}, b.Min)

	o := v.OuterBounds()
	require.Equal(t, 28*28*7, o.Volume())
	require.True(t, o.Contains("world", Point{-2, 9, 2}))
	require.False(t, o.Contains("world", Point{-3, 9, 2}))

	_, ok := v.SquareAt("world", Point{-1, 10, 0})
	require.False(t, ok, "frame is not a square")
}

func TestPanelCell_RoundTrip(t *testing.T) {
	st := testStyle(t)
	v, err := New("b1", "world", Point{5, 70, -5}, East, st)
	require.NoError(t, err)
	for col := 0; col < 8; col++ {
		for row := 0; row < 3; row++ {
			c, r, ok := v.PanelCell("world", v.PanelSign(col, row))
			require.True(t, ok)
			require.Equal(t, col, c)
			require.Equal(t, row, r)
		}
	}
	_, _, ok := v.PanelCell("world", v.PanelSign(8, 0))
	require.False(t, ok)
}

func TestFreezeThaw(t *testing.T) {
	lib, err := style.NewLibrary("")
	require.NoError(t, err)
	st, err := lib.Get("")
	require.NoError(t, err)
	v, err := New("hall", "world", Point{1, 2, 3}, West, st)
	require.NoError(t, err)

	back, err := Thaw(v.Freeze(), lib)
	require.NoError(t, err)
	require.Equal(t, v.Name, back.Name)
	require.Equal(t, v.Origin, back.Origin)
	require.Equal(t, West, back.Direction)
	require.Equal(t, style.DefaultName, back.StyleName)

	f := v.Freeze()
	f.Style = "gone"
	back, err = Thaw(f, lib)
	require.NoError(t, err)
	require.Equal(t, "gone", back.StyleName)
	require.Equal(t, style.DefaultName, back.Style.Name)

	_, err = New("bad name", "world", Point{}, North, st)
	require.ErrorIs(t, err, ErrBadName)
}
