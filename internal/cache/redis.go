package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// fieldData поле hash с сериализованным документом.
const fieldData = "doc"

// setIfNewerScript записывает документ в hash, только если сохраненная версия меньше новой.
var setIfNewerScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'rev')
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'rev', ARGV[1], 'doc', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// RedisCache кеш в Redis. Запись хранится в hash с версией и документом, ключ получает префикс и TTL.
type RedisCache[V any] struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCache[V any](rdb *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisCache[V] {
	return &RedisCache[V]{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RedisCache[V]) key(key string) string {
	return c.prefix + ":" + key
}

func (c *RedisCache[V]) Get(ctx context.Context, key string) (*V, bool) {
	b, err := c.rdb.HGet(ctx, c.key(key), fieldData).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis cache get", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	v, err := decode[V](b)
	if err != nil {
		c.logger.Warn("drop broken cache entry", zap.String("key", key), zap.Error(err))
		c.Delete(ctx, key)
		return nil, false
	}
	return v, true
}

// SetIfNewer сохраняет v, если в Redis нет записи с той же или более новой версией.
// Сравнение и запись выполняются одним скриптом.
func (c *RedisCache[V]) SetIfNewer(ctx context.Context, key string, v *V, version uint64) {
	b, err := encode(v)
	if err != nil {
		c.logger.Error("cache set", zap.String("key", key), zap.Error(err))
		return
	}
	err = setIfNewerScript.Run(ctx, c.rdb,
		[]string{c.key(key)},
		strconv.FormatUint(version, 10), b, c.ttl.Milliseconds(),
	).Err()
	if err != nil {
		c.logger.Warn("redis cache set", zap.String("key", key), zap.Error(err))
	}
}

func (c *RedisCache[V]) Delete(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, c.key(key)).Err(); err != nil {
		c.logger.Warn("redis cache delete", zap.String("key", key), zap.Error(err))
	}
}

func (c *RedisCache[V]) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}
