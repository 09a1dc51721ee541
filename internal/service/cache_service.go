package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

const (
	cacheFailureThreshold = 3
	cacheCooldown         = 30 * time.Second
)

// CacheRepository is the JSON store behind CacheService.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
}

// CacheService is a best-effort read-through cache. After a run of backend
// errors it stops calling the backend for a cooldown period and reports
// misses instead, so a dead Redis costs one timeout per cooldown rather than
// one per request. A nil service is a permanent miss.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
	now        func() time.Time

	mu        sync.Mutex
	failures  int
	openUntil time.Time
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		repo:       repo,
		metrics:    metrics,
		defaultTTL: defaultTTL,
		logger:     logger.Named("cache"),
		enabled:    enabled && repo != nil,
		now:        time.Now,
	}
}

// Enabled reports whether the backend is configured and not tripped.
func (s *CacheService) Enabled() bool {
	if s == nil || !s.enabled {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.now().Before(s.openUntil)
}

// observe feeds a backend result into the breaker.
func (s *CacheService) observe(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil || errors.Is(err, appErrors.ErrCacheMiss) {
		s.failures = 0
		return
	}
	s.failures++
	if s.failures >= cacheFailureThreshold {
		s.openUntil = s.now().Add(cacheCooldown)
		s.failures = 0
		s.logger.Warn("cache backend failing, bypassing", zap.Duration("cooldown", cacheCooldown), zap.Error(err))
	}
}

// Get decodes the entry at key into dest and reports a hit. Backend errors
// are returned but callers may treat them as a miss.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.observe(err)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, appErrors.ErrCacheMiss) {
		return false, nil
	}
	s.logger.Debug("cache get failed", zap.String("key", key), zap.Error(err))
	return false, err
}

// Set stores value under key. A non-positive ttl uses the default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.observe(err)
	s.metrics.ObserveCacheWrite(time.Since(start))
	return err
}

// Invalidate removes every key matching pattern. It runs even while the
// breaker is open so stale entries cannot outlive an outage.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if s == nil || !s.enabled {
		return nil
	}
	n, err := s.repo.DeleteByPattern(ctx, pattern)
	s.observe(err)
	if err != nil {
		return err
	}
	s.logger.Debug("cache invalidated", zap.String("pattern", pattern), zap.Int64("keys", n))
	return nil
}
