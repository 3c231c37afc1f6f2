package cache

import "time"

// RedisConfig holds the connection settings for NewRedisCache.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	PoolTimeout  time.Duration
	MinIdleConns int
	DialTimeout  time.Duration
	Prefix       string
}

// RedisOption configures Redis cache.
type RedisOption func(*RedisConfig)

// WithRedisServer sets the address, password and logical database.
func WithRedisServer(addr, password string, db int) RedisOption {
	return func(c *RedisConfig) {
		if addr != "" {
			c.Addr = addr
		}
		c.Password = password
		c.DB = db
	}
}

// WithRedisPool sizes the pool. Zero values keep the defaults.
func WithRedisPool(size, minIdle int) RedisOption {
	return func(c *RedisConfig) {
		if size > 0 {
			c.PoolSize = size
		}
		if minIdle > 0 {
			c.MinIdleConns = minIdle
		}
	}
}

// WithRedisDialTimeout bounds the startup ping.
func WithRedisDialTimeout(d time.Duration) RedisOption {
	return func(c *RedisConfig) {
		if d > 0 {
			c.DialTimeout = d
		}
	}
}

// WithRedisPrefix namespaces every key, e.g. per traded symbol.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}

// MemoryOption configures MemoryCache.
type MemoryOption func(*MemoryCache)

// WithMemoryMaxSize caps the number of keys before LRU eviction kicks in.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(mc *MemoryCache) {
		if size > 0 {
			mc.maxSize = size
		}
	}
}
