package services

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/bbsforum/repository"
	"github.com/cppla/bbsforum/utils"
)

const statsCacheKey = "stats:totals"

// StatsService reports site totals, cached briefly.
type StatsService struct {
	stats repository.StatsRepository
	cache utils.Cache
	ttl   time.Duration
}

// NewStatsService creates a StatsService.
func NewStatsService(stats repository.StatsRepository, cache utils.Cache, ttl time.Duration) *StatsService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatsService{stats: stats, cache: cache, ttl: ttl}
}

// Totals counts live members, posts, comments and attachments.
func (s *StatsService) Totals(ctx context.Context) (repository.Totals, error) {
	if raw, ok, err := s.cache.Get(ctx, statsCacheKey); err == nil && ok {
		var t repository.Totals
		if json.Unmarshal([]byte(raw), &t) == nil {
			return t, nil
		}
	}
	t, err := s.stats.Totals(ctx)
	if err != nil {
		return repository.Totals{}, err
	}
	if b, err := json.Marshal(t); err == nil {
		if err := s.cache.Set(ctx, statsCacheKey, string(b), s.ttl); err != nil {
			utils.Logger.Debug("cache stats failed", zap.Error(err))
		}
	}
	return t, nil
}
