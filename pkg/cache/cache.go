package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
	// ErrLockNotHeld is returned by Unlock when the lock expired or another
	// holder took it over.
	ErrLockNotHeld = errors.New("cache: lock not held")
)

// Service defines the key/value and set operations the service persists through.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	// ClaimMembers adds members to the set at key in one atomic step and
	// returns the ones that were not present before.
	ClaimMembers(ctx context.Context, key string, members ...string) ([]string, error)
	IsMember(ctx context.Context, key, member string) (bool, error)
	Members(ctx context.Context, key string) ([]string, error)
	// TryLock takes the lock at key and returns the token that owns it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Unlock releases the lock only if token still owns it.
	Unlock(ctx context.Context, key, token string) error
	Ping(ctx context.Context) error
}
