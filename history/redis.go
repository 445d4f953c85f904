package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"go-soilsync/models"
)

// DefaultRedisPrefix 列表 key 前缀
const DefaultRedisPrefix = "soilsync:history"

// RedisStore 每个 owner 一个 Redis 列表，LPUSH + LTRIM 保持倒序和上限
type RedisStore struct {
	rdb    *goredis.Client
	prefix string
	max    int
}

var _ Store = (*RedisStore)(nil)

// DialRedis 连接 Redis 并 Ping 确认可用
func DialRedis(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewRedisStore 使用已连接的客户端
func NewRedisStore(rdb *goredis.Client, prefix string, max int) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix, max: normalizeMax(max)}
}

func (s *RedisStore) key(owner string) string {
	if owner == "" {
		owner = "anonymous"
	}
	return s.prefix + ":" + owner
}

func (s *RedisStore) Append(ctx context.Context, entry models.HistoryEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	key := s.key(entry.UserID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LPush(ctx, key, raw)
		pipe.LTrim(ctx, key, 0, int64(s.max-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, owner string, limit int) ([]models.HistoryEntry, error) {
	limit = normalizeLimit(limit, s.max)
	raws, err := s.rdb.LRange(ctx, s.key(owner), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	return decodeEntries(raws)
}

func (s *RedisStore) Get(ctx context.Context, owner, id string) (models.HistoryEntry, error) {
	raws, err := s.rdb.LRange(ctx, s.key(owner), 0, -1).Result()
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("redis get: %w", err)
	}
	entries, err := decodeEntries(raws)
	if err != nil {
		return models.HistoryEntry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return models.HistoryEntry{}, models.ErrNotFound
}

func (s *RedisStore) MaxEntries() int { return s.max }

func (s *RedisStore) Close() error { return s.rdb.Close() }

func decodeEntries(raws []string) ([]models.HistoryEntry, error) {
	out := make([]models.HistoryEntry, 0, len(raws))
	for _, raw := range raws {
		var e models.HistoryEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}
