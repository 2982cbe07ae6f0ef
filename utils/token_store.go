package utils

import (
	"context"
	"strings"
	"time"
)

const (
	refreshKeyPrefix   = "jwt:refresh:"
	blacklistKeyPrefix = "jwt:blacklist:"
)

// TokenStore keeps the current refresh token per username and the access tokens
// revoked before their natural expiry.
type TokenStore struct {
	cache Cache
}

// NewTokenStore creates a TokenStore on top of cache.
func NewTokenStore(cache Cache) *TokenStore {
	return &TokenStore{cache: cache}
}

func refreshKey(username string) string {
	return refreshKeyPrefix + strings.ToLower(username)
}

// SaveRefresh replaces the refresh token stored for username.
func (s *TokenStore) SaveRefresh(ctx context.Context, username, token string, ttl time.Duration) error {
	return s.cache.Set(ctx, refreshKey(username), token, ttl)
}

// RefreshToken returns the refresh token stored for username.
func (s *TokenStore) RefreshToken(ctx context.Context, username string) (string, bool, error) {
	return s.cache.Get(ctx, refreshKey(username))
}

// DeleteRefresh forgets the refresh token of username.
func (s *TokenStore) DeleteRefresh(ctx context.Context, username string) error {
	return s.cache.Delete(ctx, refreshKey(username))
}

// Blacklist revokes an access token until expiresAt.
func (s *TokenStore) Blacklist(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, blacklistKeyPrefix+token, "1", ttl)
}

// IsBlacklisted checks if a token was revoked. Cache errors fail open to avoid
// locking everybody out when Redis hiccups.
func (s *TokenStore) IsBlacklisted(ctx context.Context, token string) bool {
	_, ok, err := s.cache.Get(ctx, blacklistKeyPrefix+token)
	if err != nil {
		return false
	}
	return ok
}
