package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

const scanPageSize = 250

// CacheRepository stores JSON documents in Redis under a namespace. A nil
// client turns every read into a miss and every write into a no-op.
type CacheRepository struct {
	client    redis.UniversalClient
	namespace string
	logger    *zap.Logger
}

// NewCacheRepository constructs a cache repository. Keys are stored as
// "<namespace>:<key>".
func NewCacheRepository(client redis.UniversalClient, namespace string, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, namespace: strings.TrimSuffix(namespace, ":"), logger: logger}
}

func (r *CacheRepository) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

// Get decodes the value at key into dest. appErrors.ErrCacheMiss is returned
// when the key is absent.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return appErrors.ErrCacheMiss
	case err != nil:
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// a payload of an older shape is as good as no payload
		r.logger.Debug("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = r.client.Unlink(ctx, r.key(key)).Err()
		return appErrors.ErrCacheMiss
	}
	return nil
}

// Set stores value as JSON for ttl.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.key(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// DeleteByPattern unlinks every key in the namespace matching pattern, one
// SCAN page at a time, and returns how many were removed.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	if r.client == nil {
		return 0, nil
	}
	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.key(pattern), scanPageSize).Result()
		if err != nil {
			return removed, fmt.Errorf("cache scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := r.client.Unlink(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("cache unlink %s: %w", pattern, err)
			}
			removed += n
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

// Delete unlinks the given keys.
func (r *CacheRepository) Delete(ctx context.Context, keys ...string) error {
	if r.client == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Unlink(ctx, full...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Ping checks connectivity. Without a client there is nothing to check.
func (r *CacheRepository) Ping(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Ping(ctx).Err()
}
