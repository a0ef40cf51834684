package uploader

import (
	"context"

	redis "github.com/redis/go-redis/v9"
)

// GoRedisEvaler wraps a real github.com/redis/go-redis/v9 client so it can
// back an IdempotencyStore in production.
type GoRedisEvaler struct{ c *redis.Client }

// NewGoRedisEvaler dials addr (e.g. "127.0.0.1:6379") lazily; go-redis
// itself defers the actual connection until first use.
func NewGoRedisEvaler(addr string) *GoRedisEvaler {
	return &GoRedisEvaler{c: redis.NewClient(&redis.Options{Addr: addr})}
}

func (g *GoRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return g.c.Eval(ctx, script, keys, args...).Result()
}
