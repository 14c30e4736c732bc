package ai

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/park285/chesscraft-go/internal/ai/uci"
	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/obslog"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"
)

//go:embed ai.yml
var defaultLevels []byte

var ErrUnknownLevel = errors.New("no such AI level")

// Level is one engine strength setting.
type Level struct {
	Name      string `yaml:"-"`
	Skill     int    `yaml:"skill"`
	Depth     int    `yaml:"depth"`
	MoveTime  int    `yaml:"movetime"` // milliseconds
	Threads   int    `yaml:"threads"`
	HashMB    int    `yaml:"hash"`
	Elo       int    `yaml:"elo"`
	// BookPlies is how many plies into the game the opening book is used.
	BookPlies int    `yaml:"book"`
}

func (l Level) options() uci.Options {
	hash := l.HashMB
	if hash <= 0 {
		hash = 16
	}
	return uci.Options{Threads: l.Threads, SkillLevel: l.Skill, HashMB: hash, Elo: l.Elo}
}

func (l Level) limits() uci.Limits {
	lim := uci.Limits{Depth: l.Depth, MoveTimeMillis: l.MoveTime}
	if lim.Depth <= 0 && lim.MoveTimeMillis <= 0 {
		lim.MoveTimeMillis = 1000
	}
	return lim
}

// PlayerName is the in-game name of an engine playing at this level.
func (l Level) PlayerName() string { return chessgame.AIPrefix + l.Name }

type levelFile struct {
	Levels map[string]Level `yaml:"levels"`
}

// Levels holds the level table: embedded defaults overlaid by an optional
// file.
type Levels struct {
	path string

	mu     sync.RWMutex
	levels map[string]Level
}

func NewLevels(path string) (*Levels, error) {
	l := &Levels{path: strings.TrimSpace(path)}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the override file. A missing file leaves the defaults.
func (l *Levels) Reload() error {
	levels, err := parseLevels(defaultLevels)
	if err != nil {
		return fmt.Errorf("embedded ai levels: %w", err)
	}
	if l.path != "" {
		raw, err := os.ReadFile(l.path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			obslog.L().Debug("ai_levels_default", zap.String("path", l.path))
		case err != nil:
			return err
		default:
			extra, err := parseLevels(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", l.path, err)
			}
			for k, v := range extra {
				levels[k] = v
			}
		}
	}
	l.mu.Lock()
	l.levels = levels
	l.mu.Unlock()
	obslog.L().Info("ai_levels_loaded", zap.Int("count", len(levels)))
	return nil
}

func parseLevels(raw []byte) (map[string]Level, error) {
	var f levelFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	out := make(map[string]Level, len(f.Levels))
	for name, lv := range f.Levels {
		name = strings.ToLower(strings.TrimSpace(name))
		if !chessgame.ValidName(name) {
			return nil, fmt.Errorf("invalid level name %q", name)
		}
		if lv.Skill < 0 || lv.Skill > 20 {
			return nil, fmt.Errorf("level %s: skill %d out of range 0-20", name, lv.Skill)
		}
		lv.Name = name
		out[name] = lv
	}
	return out, nil
}

// Get accepts either a bare level name or an AI player name.
func (l *Levels) Get(name string) (Level, error) {
	name = strings.TrimSpace(name)
	if chessgame.IsAIPlayer(name) {
		name = name[len(chessgame.AIPrefix):]
	}
	l.mu.RLock()
	lv, ok := l.levels[strings.ToLower(name)]
	l.mu.RUnlock()
	if !ok {
		return Level{}, fmt.Errorf("%w: %s", ErrUnknownLevel, name)
	}
	return lv, nil
}

func (l *Levels) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.levels))
	for k := range l.levels {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
