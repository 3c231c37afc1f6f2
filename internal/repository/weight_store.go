package repository

import (
	"context"
	"errors"
	"fmt"
	"math"

	"AgentTrader/internal/domain/models"
	domrepo "AgentTrader/internal/domain/repository"
	"AgentTrader/pkg/cache"
)

// CacheWeightStore persists the weight vector as one JSON value.
type CacheWeightStore struct {
	cache cache.Service
	key   string
}

func NewCacheWeightStore(c cache.Service, symbol string) *CacheWeightStore {
	return &CacheWeightStore{cache: c, key: cache.GenerateKeyWithParams("weights", symbol)}
}

// Load returns the saved vector back-filled with defaults. When nothing was
// saved it returns the defaults and ErrNotFound; when the store fails or
// holds garbage it returns the defaults and the cause.
func (s *CacheWeightStore) Load(ctx context.Context) (models.WeightVector, error) {
	var w models.WeightVector
	if err := s.cache.Get(ctx, s.key, &w); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return models.DefaultWeights(), domrepo.ErrNotFound
		}
		return models.DefaultWeights(), fmt.Errorf("load weights: %w", err)
	}
	for k, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.DefaultWeights(), fmt.Errorf("load weights: non-finite %s", k)
		}
	}
	return w.WithDefaults(), nil
}

// Save replaces the stored vector.
func (s *CacheWeightStore) Save(ctx context.Context, w models.WeightVector) error {
	if err := s.cache.Set(ctx, s.key, w, 0); err != nil {
		return fmt.Errorf("save weights: %w", err)
	}
	return nil
}

var _ domrepo.WeightStore = (*CacheWeightStore)(nil)
