package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/park285/chesscraft-go/internal/board"
	"github.com/park285/chesscraft-go/internal/obslog"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"
)

// FileStore writes one YAML file per record under dir/games and dir/boards.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("data dir required for file store")
	}
	for _, sub := range []string{"games", "boards"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", sub, err)
		}
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(kind, name string) string {
	return filepath.Join(s.dir, kind, name+".yml")
}

func (s *FileStore) SaveGame(_ context.Context, name string, frozen map[string]any) error {
	if err := checkName(name); err != nil {
		return err
	}
	return s.write(s.path("games", name), frozen)
}

func (s *FileStore) LoadGames(_ context.Context) ([]map[string]any, error) {
	var out []map[string]any
	err := s.each("games", func(path string, raw []byte) error {
		var m map[string]any
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return err
		}
		if m != nil {
			out = append(out, m)
		}
		return nil
	})
	return out, err
}

func (s *FileStore) DeleteGame(_ context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return remove(s.path("games", name))
}

func (s *FileStore) SaveBoard(_ context.Context, b board.Frozen) error {
	if err := checkName(b.Name); err != nil {
		return err
	}
	return s.write(s.path("boards", b.Name), b)
}

func (s *FileStore) LoadBoards(_ context.Context) ([]board.Frozen, error) {
	var out []board.Frozen
	err := s.each("boards", func(path string, raw []byte) error {
		var b board.Frozen
		if err := yaml.Unmarshal(raw, &b); err != nil {
			return err
		}
		out = append(out, b)
		return nil
	})
	return out, err
}

func (s *FileStore) DeleteBoard(_ context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return remove(s.path("boards", name))
}

// write replaces path atomically through a temp file in the same directory.
func (s *FileStore) write(path string, v any) error {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *FileStore) each(kind string, fn func(path string, raw []byte) error) error {
	entries, err := os.ReadDir(filepath.Join(s.dir, kind))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yml") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, n := range names {
		path := filepath.Join(s.dir, kind, n)
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := fn(path, raw); err != nil {
			obslog.L().Warn("store_decode_error", zap.String("path", path), zap.Error(err))
		}
	}
	return nil
}

func remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
