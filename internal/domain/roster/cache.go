package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache holds recently read doctors so the availability write path does not
// hit Postgres for the affiliation check on every save.
type Cache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, id int64) (*Doctor, error)
	Set(ctx context.Context, d *Doctor) error
	Invalidate(ctx context.Context, id int64) error
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache returns a Cache backed by client. Entries expire after ttl.
func NewRedisCache(client *redis.Client, ttl time.Duration) Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisCache{client: client, ttl: ttl, prefix: "roster:doctor:"}
}

func (c *redisCache) key(id int64) string {
	return fmt.Sprintf("%s%d", c.prefix, id)
}

func (c *redisCache) Get(ctx context.Context, id int64) (*Doctor, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get doctor %d: %w", id, err)
	}
	var d Doctor
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode cached doctor %d: %w", id, err)
	}
	return &d, nil
}

func (c *redisCache) Set(ctx context.Context, d *Doctor) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(d.ID), raw, c.ttl).Err()
}

func (c *redisCache) Invalidate(ctx context.Context, id int64) error {
	return c.client.Del(ctx, c.key(id)).Err()
}
