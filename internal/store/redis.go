package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/park285/chesscraft-go/internal/board"
	"github.com/park285/chesscraft-go/internal/obslog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "cc:"

func gameKey(name string) string  { return keyPrefix + "game:" + strings.TrimSpace(name) }
func boardKey(name string) string { return keyPrefix + "board:" + strings.TrimSpace(name) }
func gamesIndexKey() string       { return keyPrefix + "games" }
func boardsIndexKey() string      { return keyPrefix + "boards" }

// RedisStore keeps one JSON value per record plus a set index per kind.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis store")
	}
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

// NewRedisStoreWithClient wraps an existing client; Close will close it.
func NewRedisStoreWithClient(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

// ParseRedisURL accepts redis:// and rediss:// URLs with an optional /db path.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}

func (s *RedisStore) SaveGame(ctx context.Context, name string, frozen map[string]any) error {
	if err := checkName(name); err != nil {
		return err
	}
	raw, err := json.Marshal(frozen)
	if err != nil {
		return fmt.Errorf("encode game %s: %w", name, err)
	}
	return s.put(ctx, gameKey(name), gamesIndexKey(), name, raw)
}

func (s *RedisStore) LoadGames(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	err := s.each(ctx, gamesIndexKey(), gameKey, func(name string, raw []byte) error {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return fmt.Errorf("decode game %s: %w", name, err)
		}
		out = append(out, m)
		return nil
	})
	return out, err
}

func (s *RedisStore) DeleteGame(ctx context.Context, name string) error {
	return s.del(ctx, gameKey(name), gamesIndexKey(), name)
}

func (s *RedisStore) SaveBoard(ctx context.Context, b board.Frozen) error {
	if err := checkName(b.Name); err != nil {
		return err
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode board %s: %w", b.Name, err)
	}
	return s.put(ctx, boardKey(b.Name), boardsIndexKey(), b.Name, raw)
}

func (s *RedisStore) LoadBoards(ctx context.Context) ([]board.Frozen, error) {
	var out []board.Frozen
	err := s.each(ctx, boardsIndexKey(), boardKey, func(name string, raw []byte) error {
		var b board.Frozen
		if err := json.Unmarshal(raw, &b); err != nil {
			return fmt.Errorf("decode board %s: %w", name, err)
		}
		out = append(out, b)
		return nil
	})
	return out, err
}

func (s *RedisStore) DeleteBoard(ctx context.Context, name string) error {
	return s.del(ctx, boardKey(name), boardsIndexKey(), name)
}

func (s *RedisStore) put(ctx context.Context, key, index, name string, raw []byte) error {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key, raw, 0)
	pipe.SAdd(ctx, index, name)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) del(ctx context.Context, key, index, name string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, index, name)
	_, err := pipe.Exec(ctx)
	return err
}

// each visits every indexed record in name order. Index entries whose value
// has gone are dropped from the index. A record that fails to decode is
// logged and skipped.
func (s *RedisStore) each(ctx context.Context, index string, keyFn func(string) string, fn func(name string, raw []byte) error) error {
	names, err := s.rdb.SMembers(ctx, index).Result()
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		raw, err := s.rdb.Get(ctx, keyFn(name)).Bytes()
		if errors.Is(err, redis.Nil) {
			_ = s.rdb.SRem(ctx, index, name).Err()
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(name, raw); err != nil {
			obslog.L().Warn("store_decode_error", zap.String("key", keyFn(name)), zap.Error(err))
		}
	}
	return nil
}
