package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Each entry is a hash holding the version it reflects and the encoded view.
// An empty data field is a tombstone.
const (
	versionField = "v"
	dataField    = "d"
)

// storeScript writes an entry only when its version is newer than the one
// already held, so a slow reader cannot overwrite a later update or delete.
var storeScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'v')
if current and tonumber(current) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'd', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// ViewCache is a JSON-backed Redis cache for one view type whose entries are
// ordered by version. A zero TTL stores keys without expiry.
type ViewCache[T any] struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewViewCache returns a ViewCache over client. A nil logger discards warnings.
func NewViewCache[T any](client *redis.Client, ttl time.Duration, logger *zap.Logger) *ViewCache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewCache[T]{client: client, ttl: ttl, logger: logger}
}

// Get returns (nil, false) on a miss, a tombstone, or when the stored value
// cannot be decoded.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.HGet(ctx, key, dataField).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Warn("cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &v, true
}

// Store writes value as of version unless key already holds the same or a
// newer version. It reports whether the write happened. Failures are logged,
// never returned.
func (c *ViewCache[T]) Store(ctx context.Context, key string, version int64, value *T) bool {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return c.store(ctx, key, version, data)
}

// Tombstone marks key deleted as of version. Older views are then refused
// until the tombstone expires.
func (c *ViewCache[T]) Tombstone(ctx context.Context, key string, version int64) bool {
	return c.store(ctx, key, version, []byte{})
}

func (c *ViewCache[T]) store(ctx context.Context, key string, version int64, data []byte) bool {
	written, err := storeScript.Run(ctx, c.client, []string{key}, version, data, c.ttl.Milliseconds()).Int()
	if err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Int64("version", version), zap.Error(err))
		return false
	}
	return written == 1
}
