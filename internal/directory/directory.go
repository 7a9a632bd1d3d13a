package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/spigell/talent-agent/internal/logger"
	"go.uber.org/zap"
)

// Service returns merged candidate lists, serving repeated calls from the cache.
type Service struct {
	upstream Upstream
	cache    *Cache
	logger   *zap.Logger
}

func NewService(upstream Upstream, cache *Cache, log *zap.Logger) *Service {
	if cache == nil {
		cache = NewCache(DefaultTTL, nil)
	}
	return &Service{upstream: upstream, cache: cache, logger: logger.OrNop(log)}
}

// CacheKey builds the cache key for a credential and user scope.
func CacheKey(token, userID string) string {
	prefix := token
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	scope := strings.TrimSpace(userID)
	if scope == "" {
		scope = "no-user"
	}
	return "candidates_" + prefix + "_" + scope
}

// Fetch returns the merged candidates for token and userID. Upstream failures degrade to empty
// record sets; Fetch never fails. Empty lists are not cached.
func (s *Service) Fetch(ctx context.Context, token, userID string) []Candidate {
	key := CacheKey(token, userID)
	if cached, ok := s.cache.Get(key); ok {
		s.logger.Debug("candidates served from cache", zap.String("key", key), zap.Int("count", len(cached)))
		return cached
	}

	var (
		wg       sync.WaitGroup
		rawUsers []map[string]any
		rawOffer []map[string]any
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		items, err := s.upstream.Users(ctx, token)
		if err != nil {
			s.logger.Warn("fetching users failed", zap.Error(err))
			return
		}
		rawUsers = items
	}()
	go func() {
		defer wg.Done()
		items, err := s.upstream.Offers(ctx, token, userID)
		if err != nil {
			s.logger.Warn("fetching offers failed", zap.Error(err))
			return
		}
		rawOffer = items
	}()
	wg.Wait()

	var users []userRecord
	if err := decodeRecords(rawUsers, &users); err != nil {
		s.logger.Warn("decoding users failed", zap.Error(err))
		users = nil
	}
	var offers []offerRecord
	if err := decodeRecords(rawOffer, &offers); err != nil {
		s.logger.Warn("decoding offers failed", zap.Error(err))
		offers = nil
	}

	var results []resultRecord
	if len(users) > 0 || len(offers) > 0 {
		rawResults, err := s.upstream.Results(ctx, resultsRequest(users, offers))
		if err != nil {
			s.logger.Warn("fetching results failed", zap.Error(err))
		} else if err := decodeRecords(rawResults, &results); err != nil {
			s.logger.Warn("decoding results failed", zap.Error(err))
			results = nil
		}
	}

	candidates := merge(users, offers, results)
	s.logger.Info("candidates fetched",
		zap.Int("users", len(users)),
		zap.Int("offers", len(offers)),
		zap.Int("results", len(results)),
		zap.Int("candidates", len(candidates)),
	)

	if len(candidates) > 0 {
		s.cache.Set(key, candidates)
	}
	return candidates
}

// Cached returns the candidates already cached for token and userID without calling upstream.
func (s *Service) Cached(token, userID string) []Candidate {
	cached, _ := s.cache.Get(CacheKey(token, userID))
	return cached
}

func (s *Service) ClearCache() {
	s.cache.Invalidate()
	s.logger.Info("candidate cache cleared")
}

func (s *Service) Stats() CacheStats {
	return s.cache.Stats()
}
