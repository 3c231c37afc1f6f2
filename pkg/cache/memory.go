package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryItem struct {
	data     []byte
	set      map[string]struct{}
	expireAt time.Time // zero means no expiry
	access   time.Time
}

func (m *memoryItem) expired(now time.Time) bool {
	return !m.expireAt.IsZero() && now.After(m.expireAt)
}

// MemoryCache implements Service in process memory with LRU eviction.
// Values are stored encoded so Get behaves like the Redis implementation.
type MemoryCache struct {
	mu            sync.Mutex
	items         map[string]*memoryItem
	maxSize       int
	cleanupTicker *time.Ticker
	done          chan struct{}
	closeOnce     sync.Once
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	mc := &MemoryCache{
		items:   make(map[string]*memoryItem),
		maxSize: 10000,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(mc)
	}
	mc.cleanupTicker = time.NewTicker(5 * time.Minute)

	go mc.cleanupExpired()
	return mc
}

func (mc *MemoryCache) Ping(_ context.Context) error { return nil }

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encodeValue(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	if _, ok := mc.items[key]; !ok && len(mc.items) >= mc.maxSize {
		mc.evictLRU()
	}
	item := &memoryItem{data: data, access: now}
	if expiration > 0 {
		item.expireAt = now.Add(expiration)
	}
	mc.items[key] = item
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	item, ok := mc.lookup(key)
	var data []byte
	if ok && item.set == nil {
		data = append([]byte(nil), item.data...)
	}
	mc.mu.Unlock()

	if data == nil {
		return ErrCacheMiss
	}
	return decodeValue(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		delete(mc.items, key)
	}
	return nil
}

func (mc *MemoryCache) ClaimMembers(_ context.Context, key string, members ...string) ([]string, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	item, ok := mc.lookup(key)
	if !ok {
		if len(mc.items) >= mc.maxSize {
			mc.evictLRU()
		}
		item = &memoryItem{set: make(map[string]struct{}), access: time.Now()}
		mc.items[key] = item
	}
	if item.set == nil {
		return nil, fmt.Errorf("key %s does not hold a set", key)
	}

	var added []string
	for _, m := range members {
		if _, exists := item.set[m]; !exists {
			item.set[m] = struct{}{}
			added = append(added, m)
		}
	}
	return added, nil
}

func (mc *MemoryCache) IsMember(_ context.Context, key, member string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	item, ok := mc.lookup(key)
	if !ok || item.set == nil {
		return false, nil
	}
	_, exists := item.set[member]
	return exists, nil
}

func (mc *MemoryCache) Members(_ context.Context, key string) ([]string, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	item, ok := mc.lookup(key)
	if !ok || item.set == nil {
		return nil, nil
	}
	out := make([]string, 0, len(item.set))
	for m := range item.set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.lookup(key); ok {
		return "", false, nil
	}
	token := uuid.NewString()
	now := time.Now()
	mc.items[key] = &memoryItem{data: []byte(token), expireAt: now.Add(ttl), access: now}
	return token, true, nil
}

func (mc *MemoryCache) Unlock(_ context.Context, key, token string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	item, ok := mc.lookup(key)
	if !ok || item.set != nil || string(item.data) != token {
		return ErrLockNotHeld
	}
	delete(mc.items, key)
	return nil
}

// lookup returns a live item and refreshes its access time. Caller holds mu.
func (mc *MemoryCache) lookup(key string) (*memoryItem, bool) {
	item, ok := mc.items[key]
	if !ok {
		return nil, false
	}
	now := time.Now()
	if item.expired(now) {
		delete(mc.items, key)
		return nil, false
	}
	item.access = now
	return item, true
}

func (mc *MemoryCache) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, item := range mc.items {
		if oldestKey == "" || item.access.Before(oldest) {
			oldestKey = key
			oldest = item.access
		}
	}
	if oldestKey != "" {
		delete(mc.items, oldestKey)
	}
}

func (mc *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.cleanupTicker.C:
			mc.mu.Lock()
			now := time.Now()
			for key, item := range mc.items {
				if item.expired(now) {
					delete(mc.items, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() {
		mc.cleanupTicker.Stop()
		close(mc.done)
	})
	return nil
}
