package uploader

import (
	"context"
	"fmt"
	"time"
)

// RedisEvaler abstracts the minimal surface needed from a Redis client,
// mirroring the persistence layer's own idempotency-marker contract so
// either a real client or a logging stand-in can back it in tests.
type RedisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// markerScript sets a commit marker once and reports whether it was newly
// applied (1) or had already been recorded (0).
const markerScript = `
local markerKey = KEYS[1]
local ttlSeconds = tonumber(ARGV[1])
local set = redis.call('SETNX', markerKey, 1)
if set == 1 and ttlSeconds and ttlSeconds > 0 then
  redis.call('EXPIRE', markerKey, ttlSeconds)
end
return set
`

// IdempotencyStore records cycle commit ids so a cycled chunk that is
// re-delivered after a crash (same commit id) is recognized as already
// applied and dropped rather than requeued a second time.
type IdempotencyStore struct {
	client RedisEvaler
	ttl    time.Duration
}

// NewIdempotencyStore builds a store with the given marker TTL; ttl <= 0
// defaults to 24 hours, comfortably longer than any cycling window.
func NewIdempotencyStore(client RedisEvaler, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func markerKey(commitID string) string { return fmt.Sprintf("procem:uploader:cycle:%s", commitID) }

// MarkOnce returns true the first time it is called for a commit id, and
// false on every subsequent call for the same id (within the TTL window).
func (s *IdempotencyStore) MarkOnce(ctx context.Context, commitID string) (bool, error) {
	result, err := s.client.Eval(ctx, markerScript, []string{markerKey(commitID)}, int(s.ttl.Seconds()))
	if err != nil {
		return false, fmt.Errorf("uploader: checking idempotency marker for %s: %w", commitID, err)
	}
	applied, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("uploader: unexpected marker result %T for %s", result, commitID)
	}
	return applied == 1, nil
}

// LoggingRedisEvaler is a dependency-free stand-in for RedisEvaler, useful
// when no Redis instance is available; it keeps markers in memory for the
// lifetime of the process instead of talking to a real server.
type LoggingRedisEvaler struct {
	seen map[string]bool
}

// NewLoggingRedisEvaler builds an in-memory marker evaler for demos and tests.
func NewLoggingRedisEvaler() *LoggingRedisEvaler {
	return &LoggingRedisEvaler{seen: make(map[string]bool)}
}

func (l *LoggingRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	key := keys[0]
	if l.seen[key] {
		return int64(0), nil
	}
	l.seen[key] = true
	return int64(1), nil
}
