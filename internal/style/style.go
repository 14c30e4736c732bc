package style

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/park285/chesscraft-go/internal/obslog"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"
)

//go:embed standard.yml
var defaultFiles embed.FS

// DefaultName is the style used when a board does not name one.
const DefaultName = "standard"

var (
	ErrUnknownStyle = errors.New("unknown board style")
	ErrBadName      = errors.New("invalid style name")
)

// Highlight styles understood by the board renderer.
var highlightStyles = map[string]bool{
	"none": true, "corners": true, "edges": true, "line": true, "checkered": true,
}

// Style describes how a board is built in the world.
type Style struct {
	Name                 string `yaml:"-"`
	SquareSize           int    `yaml:"square_size"`
	FrameWidth           int    `yaml:"frame_width"`
	Height               int    `yaml:"height"`
	WhiteSquare          string `yaml:"white_square"`
	BlackSquare          string `yaml:"black_square"`
	Frame                string `yaml:"frame"`
	Enclosure            string `yaml:"enclosure"`
	ControlPanel         string `yaml:"control_panel,omitempty"`
	Highlight            string `yaml:"highlight"`
	HighlightWhiteSquare string `yaml:"highlight_white_square,omitempty"`
	HighlightBlackSquare string `yaml:"highlight_black_square,omitempty"`
	HighlightStyle       string `yaml:"highlight_style"`
	LightLevel           int    `yaml:"light_level"`
	PieceStyle           string `yaml:"piece_style"`
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Normalize clamps the dimensions and fills derived materials.
func (s *Style) Normalize() {
	s.SquareSize = clamp(s.SquareSize, 1, 20)
	s.FrameWidth = clamp(s.FrameWidth, 2, 20)
	s.Height = clamp(s.Height, 3, 128)
	s.LightLevel = clamp(s.LightLevel, 0, 15)
	if s.ControlPanel == "" {
		s.ControlPanel = s.Frame
	}
	if s.HighlightWhiteSquare == "" {
		s.HighlightWhiteSquare = s.Highlight
	}
	if s.HighlightBlackSquare == "" {
		s.HighlightBlackSquare = s.Highlight
	}
	s.HighlightStyle = strings.ToLower(strings.TrimSpace(s.HighlightStyle))
	if !highlightStyles[s.HighlightStyle] {
		s.HighlightStyle = "corners"
	}
	if s.Enclosure == "" {
		s.Enclosure = "air"
	}
	if s.PieceStyle == "" {
		s.PieceStyle = DefaultName
	}
}

// Parse decodes one style document.
func Parse(name string, raw []byte) (*Style, error) {
	var s Style
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse style %s: %w", name, err)
	}
	for field, v := range map[string]string{"white_square": s.WhiteSquare, "black_square": s.BlackSquare, "frame": s.Frame} {
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("parse style %s: %s is required", name, field)
		}
	}
	s.Name = name
	s.Normalize()
	return &s, nil
}

// Library holds the known styles: the embedded standard style plus any
// *.yml files in dir.
type Library struct {
	mu     sync.RWMutex
	dir    string
	styles map[string]*Style
}

func NewLibrary(dir string) (*Library, error) {
	l := &Library{dir: strings.TrimSpace(dir)}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the style directory. A broken file is logged and skipped.
func (l *Library) Reload() error {
	styles := make(map[string]*Style)
	raw, err := fs.ReadFile(defaultFiles, DefaultName+".yml")
	if err != nil {
		return fmt.Errorf("read embedded style: %w", err)
	}
	std, err := Parse(DefaultName, raw)
	if err != nil {
		return err
	}
	styles[DefaultName] = std

	if l.dir != "" {
		entries, err := os.ReadDir(l.dir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read style dir: %w", err)
		}
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if e.IsDir() || (ext != ".yml" && ext != ".yaml") {
				continue
			}
			name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			b, err := os.ReadFile(filepath.Join(l.dir, e.Name()))
			if err != nil {
				obslog.L().Warn("style_read_error", zap.String("style", name), zap.Error(err))
				continue
			}
			s, err := Parse(name, b)
			if err != nil {
				obslog.L().Warn("style_parse_error", zap.String("style", name), zap.Error(err))
				continue
			}
			styles[strings.ToLower(name)] = s
		}
	}

	l.mu.Lock()
	l.styles = styles
	l.mu.Unlock()
	obslog.L().Info("styles_loaded", zap.Int("count", len(styles)))
	return nil
}

// Get returns a copy of the named style; an empty name means the default.
func (l *Library) Get(name string) (*Style, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultName
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.styles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStyle, name)
	}
	cp := *s
	return &cp, nil
}

func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.styles))
	for n := range l.styles {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Save writes s to <dir>/<name>.yml with a header comment and adds it to the
// library.
func (l *Library) Save(s *Style) error {
	if l.dir == "" {
		return errors.New("style dir not configured")
	}
	name := strings.ToLower(strings.TrimSpace(s.Name))
	if name == "" || strings.ContainsAny(name, `/\. `) {
		return fmt.Errorf("%w: %q", ErrBadName, s.Name)
	}
	cp := *s
	cp.Name = name
	cp.Normalize()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Board style %q.\n# square_size 1-20, frame_width 2-20, height 3-128, light_level 0-15.\n", name)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&cp); err != nil {
		return fmt.Errorf("encode style: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode style: %w", err)
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(l.dir, name+".yml"), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write style: %w", err)
	}
	l.mu.Lock()
	l.styles[name] = &cp
	l.mu.Unlock()
	return nil
}
