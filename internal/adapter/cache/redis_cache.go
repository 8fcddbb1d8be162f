package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JackDiSalvatore/EOS-DEX/internal/domain"
	"github.com/JackDiSalvatore/EOS-DEX/internal/port"
)

// RedisCache caches book snapshots and pair stats as JSON with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ port.Cache = (*RedisCache)(nil)

func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: rdb, ttl: ttl}
}

func bookKey(pair string) string { return "book:" + pair }
func statKey(pair string) string { return "stat:" + pair }

func (c *RedisCache) SetBook(ctx context.Context, pair string, snap *domain.BookSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, bookKey(pair), b, c.ttl).Err()
}

func (c *RedisCache) GetBook(ctx context.Context, pair string) (*domain.BookSnapshot, error) {
	b, err := c.client.Get(ctx, bookKey(pair)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap domain.BookSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *RedisCache) SetStat(ctx context.Context, pair string, stat *domain.PairStat) error {
	b, err := json.Marshal(stat)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statKey(pair), b, c.ttl).Err()
}

func (c *RedisCache) GetStat(ctx context.Context, pair string) (*domain.PairStat, error) {
	b, err := c.client.Get(ctx, statKey(pair)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stat domain.PairStat
	if err := json.Unmarshal(b, &stat); err != nil {
		return nil, err
	}
	return &stat, nil
}

func (c *RedisCache) Invalidate(ctx context.Context, pair string) error {
	return c.client.Del(ctx, bookKey(pair), statKey(pair)).Err()
}
