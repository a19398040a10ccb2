package evaluator

import (
	"database/sql"
	"sync"
	"time"
)

// connectionCache keeps opened handles keyed by driver and DSN so repeated
// read_sql calls reuse one pool. Entries expire after ttl; the least
// recently used entry is evicted when the cache is full.
type connectionCache[T any] struct {
	mu          sync.Mutex
	conns       map[string]*cachedConn[T]
	maxSize     int
	ttl         time.Duration
	healthCheck func(T) error
	closeFunc   func(T) error
	now         func() time.Time
}

type cachedConn[T any] struct {
	conn      T
	createdAt time.Time
	lastUsed  time.Time
}

func newConnectionCache[T any](maxSize int, ttl time.Duration, healthCheck func(T) error, closeFunc func(T) error) *connectionCache[T] {
	return &connectionCache[T]{
		conns:       make(map[string]*cachedConn[T]),
		maxSize:     maxSize,
		ttl:         ttl,
		healthCheck: healthCheck,
		closeFunc:   closeFunc,
		now:         time.Now,
	}
}

// get returns a live cached connection. Expired or unhealthy entries are
// closed and dropped.
func (c *connectionCache[T]) get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	cached, ok := c.conns[key]
	if !ok {
		return zero, false
	}
	now := c.now()
	if now.Sub(cached.createdAt) > c.ttl {
		c.drop(key)
		return zero, false
	}
	if c.healthCheck != nil {
		if err := c.healthCheck(cached.conn); err != nil {
			c.drop(key)
			return zero, false
		}
	}
	cached.lastUsed = now
	return cached.conn, true
}

// put stores conn, first clearing expired entries and then the least
// recently used one if the cache is still full.
func (c *connectionCache[T]) put(key string, conn T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, cached := range c.conns {
		if now.Sub(cached.createdAt) > c.ttl {
			c.drop(k)
		}
	}
	if _, replacing := c.conns[key]; replacing {
		c.drop(key)
	}
	if len(c.conns) >= c.maxSize {
		c.evictLRU()
	}
	c.conns[key] = &cachedConn[T]{conn: conn, createdAt: now, lastUsed: now}
}

// evictLRU removes the least recently used entry. Caller holds mu.
func (c *connectionCache[T]) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, cached := range c.conns {
		if oldestKey == "" || cached.lastUsed.Before(oldest) {
			oldestKey, oldest = key, cached.lastUsed
		}
	}
	if oldestKey != "" {
		c.drop(oldestKey)
	}
}

// drop closes and forgets one entry. Close errors are ignored; the handle
// is unusable either way. Caller holds mu.
func (c *connectionCache[T]) drop(key string) {
	if cached, ok := c.conns[key]; ok {
		_ = c.closeFunc(cached.conn)
		delete(c.conns, key)
	}
}

// closeAll closes every cached connection and empties the cache.
func (c *connectionCache[T]) closeAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for key, cached := range c.conns {
		if err := c.closeFunc(cached.conn); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.conns, key)
	}
	return firstErr
}

func (c *connectionCache[T]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conns)
}

type dbCache = connectionCache[*sql.DB]

// defaultDBCache is shared by every interpreter in the process.
var defaultDBCache = newConnectionCache[*sql.DB](
	16,
	30*time.Minute,
	func(db *sql.DB) error { return db.Ping() },
	func(db *sql.DB) error { return db.Close() },
)

// CloseDatabases closes the connections read_sql has opened.
func CloseDatabases() error {
	return defaultDBCache.closeAll()
}
