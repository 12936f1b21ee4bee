package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

type lruEntry struct {
	version uint64
	data    []byte
}

// LRUCache кеш в памяти процесса: не больше size записей, каждая живет не дольше ttl.
type LRUCache[V any] struct {
	mu     sync.Mutex // сравнение версий и запись выполняются атомарно
	lru    *expirable.LRU[string, lruEntry]
	logger *zap.Logger
}

func NewLRUCache[V any](size int, ttl time.Duration, logger *zap.Logger) *LRUCache[V] {
	return &LRUCache[V]{
		lru:    expirable.NewLRU[string, lruEntry](size, nil, ttl),
		logger: logger,
	}
}

func (c *LRUCache[V]) Get(_ context.Context, key string) (*V, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	v, err := decode[V](e.data)
	if err != nil {
		c.logger.Warn("drop broken cache entry", zap.String("key", key), zap.Error(err))
		c.lru.Remove(key)
		return nil, false
	}
	return v, true
}

// SetIfNewer сохраняет v, если в кеше нет записи с той же или более новой версией.
func (c *LRUCache[V]) SetIfNewer(_ context.Context, key string, v *V, version uint64) {
	b, err := encode(v)
	if err != nil {
		c.logger.Error("cache set", zap.String("key", key), zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.lru.Peek(key); ok && cur.version >= version {
		return
	}
	c.lru.Add(key, lruEntry{version: version, data: b})
}

func (c *LRUCache[V]) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

func (c *LRUCache[V]) Len() int {
	return c.lru.Len()
}

// Ping кеш в памяти всегда доступен.
func (c *LRUCache[V]) Ping(ctx context.Context) error {
	return ctx.Err() //nolint:wrapcheck
}
