package repository

import (
	"context"
	"fmt"
	"time"

	domrepo "AgentTrader/internal/domain/repository"
	"AgentTrader/pkg/cache"
)

// CacheLedger records consumed outcome IDs in a cache set and guards the
// learning cycle with a token-owned cache lock.
type CacheLedger struct {
	cache   cache.Service
	setKey  string
	lockKey string
}

func NewCacheLedger(c cache.Service, symbol string) *CacheLedger {
	return &CacheLedger{
		cache:   c,
		setKey:  cache.GenerateKeyWithParams("ledger", symbol, "consumed"),
		lockKey: cache.GenerateKeyWithParams("ledger", symbol, "lock"),
	}
}

// Claim atomically adds ids to the consumed set and returns the ones that
// were new.
func (l *CacheLedger) Claim(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	fresh, err := l.cache.ClaimMembers(ctx, l.setKey, ids...)
	if err != nil {
		return nil, fmt.Errorf("ledger claim: %w", err)
	}
	return fresh, nil
}

func (l *CacheLedger) Lock(ctx context.Context, ttl time.Duration) (string, bool, error) {
	return l.cache.TryLock(ctx, l.lockKey, ttl)
}

// Unlock releases the lock if token still owns it. A lock that expired and
// was retaken elsewhere is left alone and cache.ErrLockNotHeld is returned.
func (l *CacheLedger) Unlock(ctx context.Context, token string) error {
	return l.cache.Unlock(ctx, l.lockKey, token)
}

var _ domrepo.OutcomeLedger = (*CacheLedger)(nil)
