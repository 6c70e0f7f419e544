package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"krypto_store/internal/models"
)

// RedisStore keeps each snapshot as a JSON string under <prefix>snapshot:<key>.
type RedisStore struct {
	rdb    *goredis.Client
	prefix string
}

// NewRedisStore connects and pings the server before returning.
func NewRedisStore(addr, prefix string) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb, prefix: prefix}, nil
}

func (r *RedisStore) snapshotKey(key string) string { return r.prefix + "snapshot:" + key }

func (r *RedisStore) activeKey() string { return r.prefix + activeAccountSetting }

func (r *RedisStore) Save(ctx context.Context, key string, snap models.Snapshot) error {
	snap.Normalize()
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return r.rdb.Set(ctx, r.snapshotKey(key), raw, 0).Err()
}

func (r *RedisStore) Load(ctx context.Context, key string) (models.Snapshot, bool, error) {
	raw, err := r.rdb.Get(ctx, r.snapshotKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return models.Snapshot{}, false, nil
	}
	if err != nil {
		return models.Snapshot{}, false, fmt.Errorf("load snapshot %q: %w", key, err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("decode snapshot %q: %w", key, err)
	}
	snap.Normalize()
	return snap, true, nil
}

func (r *RedisStore) SaveActiveAccount(ctx context.Context, key string) error {
	return r.rdb.Set(ctx, r.activeKey(), key, 0).Err()
}

func (r *RedisStore) LoadActiveAccount(ctx context.Context) (string, bool, error) {
	key, err := r.rdb.Get(ctx, r.activeKey()).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return key, key != "", nil
}

func (r *RedisStore) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}
