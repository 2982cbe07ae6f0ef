package utils

import (
	"context"
	"time"
)

const stateKeyPrefix = "oauth:state:"

// StateStore keeps single-use OAuth state tokens to mitigate CSRF.
type StateStore struct {
	cache Cache
}

// NewStateStore creates a StateStore on top of cache.
func NewStateStore(cache Cache) *StateStore {
	return &StateStore{cache: cache}
}

// Save stores a state token with TTL.
func (s *StateStore) Save(ctx context.Context, state string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return s.cache.Set(ctx, stateKeyPrefix+state, "1", ttl)
}

// Consume validates and removes a state token.
func (s *StateStore) Consume(ctx context.Context, state string) bool {
	if state == "" {
		return false
	}
	_, ok, err := s.cache.GetDel(ctx, stateKeyPrefix+state)
	return err == nil && ok
}
