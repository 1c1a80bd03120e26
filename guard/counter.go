package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coursehub/logger"

	goredis "github.com/redis/go-redis/v9"
)

// Counter increments the hit count of key for the current window and
// returns the new count.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter shares fixed windows across every process using the same
// Redis.
type RedisCounter struct {
	rdb    *goredis.Client
	prefix string
}

func NewRedisCounter(addr string, log *logger.Logger) (*RedisCounter, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("rate limit counters backed by redis", "addr", addr)
	return &RedisCounter{rdb: rdb, prefix: "ratelimit:"}, nil
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := c.prefix + windowKey(key, window, time.Now())

	var incr *goredis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", k, err)
	}
	return incr.Val(), nil
}

func (c *RedisCounter) Close() error {
	return c.rdb.Close()
}

// MemoryCounter keeps windows in process memory. Limits are per instance.
type MemoryCounter struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets map[string]*bucket
}

type bucket struct {
	count   int64
	expires time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{now: time.Now, buckets: make(map[string]*bucket)}
}

func (c *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	now := c.now()
	k := windowKey(key, window, now)

	c.mu.Lock()
	defer c.mu.Unlock()

	for name, b := range c.buckets {
		if !now.Before(b.expires) {
			delete(c.buckets, name)
		}
	}

	b, ok := c.buckets[k]
	if !ok {
		b = &bucket{expires: time.Unix(0, (now.UnixNano()/int64(window)+1)*int64(window))}
		c.buckets[k] = b
	}
	b.count++
	return b.count, nil
}

// windowKey names the fixed window containing now.
func windowKey(key string, window time.Duration, now time.Time) string {
	return fmt.Sprintf("%s:%d", key, now.UnixNano()/int64(window))
}
