package studyblog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// detailCache is an optional Redis-backed cache-aside for single published
// posts. A nil *detailCache is valid and means caching is disabled.
type detailCache struct {
	client *redis.Client
	ttl    time.Duration
}

func newDetailCache(url string, ttl time.Duration) (*detailCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &detailCache{client: client, ttl: ttl}, nil
}

func (c *detailCache) key(id string) string {
	return "post:" + id
}

// Get returns the cached post, or nil on a miss.
func (c *detailCache) Get(ctx context.Context, id string) (*Post, error) {
	if c == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, c.key(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p Post
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Set stores a post with the configured TTL.
func (c *detailCache) Set(ctx context.Context, p Post) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(p.ID), data, c.ttl).Err()
}

// Invalidate drops a post from the cache. Called on update and delete.
func (c *detailCache) Invalidate(ctx context.Context, id string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, c.key(id)).Err()
}

// Close releases the Redis connection.
func (c *detailCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
