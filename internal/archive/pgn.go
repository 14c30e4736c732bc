package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/park285/chesscraft-go/internal/chessgame"
)

var ErrExists = errors.New("archive file already exists")

// PGNWriter saves games as PGN files under dir.
type PGNWriter struct {
	dir    string
	header chessgame.PGNHeader
	now    func() time.Time
}

func NewPGNWriter(dir string, header chessgame.PGNHeader) *PGNWriter {
	return &PGNWriter{dir: dir, header: header, now: time.Now}
}

func (w *PGNWriter) Dir() string { return w.dir }

// Write saves g as <game>_<YYYY.MM.DD>_<n>.pgn using the first free n and
// returns the path.
func (w *PGNWriter) Write(g *chessgame.Game) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", err
	}
	date := w.now().Format("2006.01.02")
	for n := 1; n < 10000; n++ {
		path := filepath.Join(w.dir, fmt.Sprintf("%s_%s_%d.pgn", g.Name(), date, n))
		err := w.create(path, g, false)
		if errors.Is(err, ErrExists) {
			continue
		}
		return path, err
	}
	return "", fmt.Errorf("no free archive name for %s", g.Name())
}

// WriteAs saves g under an explicit file name, refusing to replace an
// existing file unless force is set.
func (w *PGNWriter) WriteAs(g *chessgame.Game, name string, force bool) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid archive name %q", name)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pgn") {
		name += ".pgn"
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(w.dir, name)
	return path, w.create(path, g, force)
}

func (w *PGNWriter) create(path string, g *chessgame.Game, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
		return err
	}
	h := w.header
	if h.Date.IsZero() {
		h.Date = w.now()
	}
	if _, err := f.WriteString(g.PGN(h)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
