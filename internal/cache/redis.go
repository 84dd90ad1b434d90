package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCartCache keeps cart entries as JSON under cart:<userID>:<generation>
// and the current generation under cart:<userID>:gen. Entries expire after the
// base TTL plus up to a minute of jitter so carts filled together do not all
// expire together.
type RedisCartCache struct {
	client  *redis.Client
	baseTTL time.Duration
	genTTL  time.Duration
}

func NewRedisCartCache(client *redis.Client, ttl time.Duration) *RedisCartCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	// The generation counter must outlive every entry written under it.
	genTTL := 24 * time.Hour
	if floor := 2 * (ttl + time.Minute); genTTL < floor {
		genTTL = floor
	}
	return &RedisCartCache{client: client, baseTTL: ttl, genTTL: genTTL}
}

func (r *RedisCartCache) Get(ctx context.Context, userID string) ([]CartEntry, int64, error) {
	gen, err := r.client.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		gen, err = 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("redis get generation failed: %w", err)
	}

	data, err := r.client.Get(ctx, entriesKey(userID, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, ErrCacheMiss
	}
	if err != nil {
		return nil, 0, fmt.Errorf("redis get failed: %w", err)
	}

	var entries []CartEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, 0, fmt.Errorf("unmarshal cart entries failed: %w", err)
	}
	return entries, gen, nil
}

func (r *RedisCartCache) Set(ctx context.Context, userID string, generation int64, entries []CartEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal cart entries failed: %w", err)
	}
	jitter := time.Duration(rand.Int63n(int64(time.Minute)))
	if err := r.client.Set(ctx, entriesKey(userID, generation), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate bumps the generation. Entries of older generations are left to
// expire on their own.
func (r *RedisCartCache) Invalidate(ctx context.Context, userID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(userID))
		pipe.Expire(ctx, generationKey(userID), r.genTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}

func generationKey(userID string) string {
	return fmt.Sprintf("cart:%s:gen", userID)
}

func entriesKey(userID string, generation int64) string {
	return fmt.Sprintf("cart:%s:%d", userID, generation)
}
