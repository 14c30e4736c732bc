package terrain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/park285/chesscraft-go/internal/board"
	"github.com/park285/chesscraft-go/internal/obslog"
	"go.uber.org/zap"
)

const formatVersion = 1

var ErrBadName = errors.New("unsafe terrain file name")

// Block is one block in the world.
type Block struct {
	Pos      board.Point `json:"pos"`
	Material string      `json:"material"`
}

// World reads and writes blocks on the host server.
type World interface {
	GetBlocks(ctx context.Context, region board.Cuboid) ([]Block, error)
	SetBlocks(ctx context.Context, world string, blocks []Block) error
}

// snapshot is the file body. Materials go through a palette so repeated
// names are stored once.
type snapshot struct {
	Version int          `json:"version"`
	Board   string       `json:"board"`
	Bounds  board.Cuboid `json:"bounds"`
	Palette []string     `json:"palette"`
	Blocks  [][4]int     `json:"blocks"` // x, y, z, palette index
}

// Backup saves the terrain a board is built over so it can be put back when
// the board is deleted.
type Backup struct {
	dir   string
	world World
}

func NewBackup(dir string, world World) *Backup {
	return &Backup{dir: dir, world: world}
}

func (b *Backup) path(name string) (string, error) {
	if !board.ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return filepath.Join(b.dir, name+".terrain.zst"), nil
}

// Exists reports whether a backup is stored for the board.
func (b *Backup) Exists(name string) bool {
	p, err := b.path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Save reads the blocks inside v's outer bounds and writes them to disk.
func (b *Backup) Save(ctx context.Context, v *board.View) error {
	path, err := b.path(v.Name)
	if err != nil {
		return err
	}
	bounds := v.OuterBounds()
	blocks, err := b.world.GetBlocks(ctx, bounds)
	if err != nil {
		return fmt.Errorf("read terrain: %w", err)
	}

	snap := snapshot{Version: formatVersion, Board: v.Name, Bounds: bounds}
	index := make(map[string]int)
	for _, blk := range blocks {
		i, ok := index[blk.Material]
		if !ok {
			i = len(snap.Palette)
			index[blk.Material] = i
			snap.Palette = append(snap.Palette, blk.Material)
		}
		snap.Blocks = append(snap.Blocks, [4]int{blk.Pos.X, blk.Pos.Y, blk.Pos.Z, i})
	}

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(b.dir, ".terrain-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	enc, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		_ = tmp.Close()
		return err
	}
	if err := json.NewEncoder(enc).Encode(&snap); err != nil {
		_ = enc.Close()
		_ = tmp.Close()
		return fmt.Errorf("encode terrain: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	obslog.L().Info("terrain_saved", zap.String("board", v.Name), zap.Int("blocks", len(blocks)), zap.Int("palette", len(snap.Palette)))
	return nil
}

// Restore puts the saved blocks back and deletes the backup. It reports
// false when there was nothing to restore.
func (b *Backup) Restore(ctx context.Context, v *board.View) (bool, error) {
	path, err := b.path(v.Name)
	if err != nil {
		return false, err
	}
	snap, err := load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	blocks := make([]Block, 0, len(snap.Blocks))
	for _, e := range snap.Blocks {
		if e[3] < 0 || e[3] >= len(snap.Palette) {
			return false, fmt.Errorf("terrain %s: palette index %d out of range", v.Name, e[3])
		}
		blocks = append(blocks, Block{Pos: board.Point{X: e[0], Y: e[1], Z: e[2]}, Material: snap.Palette[e[3]]})
	}
	if err := b.world.SetBlocks(ctx, snap.Bounds.World, blocks); err != nil {
		return false, fmt.Errorf("restore terrain: %w", err)
	}
	if err := os.Remove(path); err != nil {
		obslog.L().Warn("terrain_cleanup_error", zap.String("board", v.Name), zap.Error(err))
	}
	obslog.L().Info("terrain_restored", zap.String("board", v.Name), zap.Int("blocks", len(blocks)))
	return true, nil
}

func load(path string) (*snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	var snap snapshot
	if err := json.NewDecoder(dec).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode terrain: %w", err)
	}
	if snap.Version != formatVersion {
		return nil, fmt.Errorf("terrain file version %d not supported", snap.Version)
	}
	return &snap, nil
}
