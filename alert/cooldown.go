package alert

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore tracks which APIs alerted recently. A key present in the
// store suppresses further alerts for that API until its TTL expires.
type CooldownStore interface {
	// Active reports whether the cooldown key is present.
	Active(ctx context.Context, key string) (bool, error)

	// Set writes the cooldown key with the given TTL.
	Set(ctx context.Context, key string, ttl time.Duration) error
}

// RedisCooldown stores cooldown keys in Redis with native expiry.
type RedisCooldown struct {
	client *redis.Client
}

// NewRedisCooldown creates a cooldown store over the given Redis client.
func NewRedisCooldown(client *redis.Client) *RedisCooldown {
	return &RedisCooldown{client: client}
}

func (c *RedisCooldown) Active(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisCooldown) Set(ctx context.Context, key string, ttl time.Duration) error {
	return c.client.Set(ctx, key, "1", ttl).Err()
}

// MemoryCooldown is an in-process cooldown store for tests and
// single-process deployments.
type MemoryCooldown struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryCooldown creates an empty in-memory cooldown store.
func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (c *MemoryCooldown) Active(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, ok := c.expires[key]
	if !ok {
		return false, nil
	}
	if c.now().After(deadline) {
		delete(c.expires, key)
		return false, nil
	}
	return true, nil
}

func (c *MemoryCooldown) Set(ctx context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expires[key] = c.now().Add(ttl)
	return nil
}
