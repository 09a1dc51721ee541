package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type flakyCache struct {
	err   error
	calls int
	data  map[string]string
}

func (f *flakyCache) Get(ctx context.Context, key string, dest interface{}) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	v, ok := f.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*string)) = v
	return nil
}

func (f *flakyCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.data[key] = value.(string)
	return nil
}

func (f *flakyCache) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	f.calls++
	return int64(len(f.data)), f.err
}

func TestCacheServiceHitAndMiss(t *testing.T) {
	backend := &flakyCache{data: map[string]string{}}
	svc := NewCacheService(backend, nil, time.Minute, zap.NewNop(), true)

	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	hit, err = svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v", out)
}

func TestCacheServiceBreakerOpensAndRecovers(t *testing.T) {
	backend := &flakyCache{data: map[string]string{}, err: errors.New("connection refused")}
	svc := NewCacheService(backend, nil, time.Minute, zap.NewNop(), true)
	clock := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	var out string
	for i := 0; i < cacheFailureThreshold; i++ {
		_, err := svc.Get(context.Background(), "k", &out)
		require.Error(t, err)
	}
	assert.False(t, svc.Enabled())

	hit, err := svc.Get(context.Background(), "k", &out)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, cacheFailureThreshold, backend.calls)

	backend.err = nil
	clock = clock.Add(cacheCooldown)
	assert.True(t, svc.Enabled())
	_, err = svc.Get(context.Background(), "k", &out)
	assert.NoError(t, err)
	assert.Equal(t, cacheFailureThreshold+1, backend.calls)
}

func TestCacheServiceInvalidateWhileTripped(t *testing.T) {
	backend := &flakyCache{data: map[string]string{"a": "1"}}
	svc := NewCacheService(backend, nil, time.Minute, zap.NewNop(), true)
	svc.openUntil = time.Now().Add(time.Hour)

	require.NoError(t, svc.Invalidate(context.Background(), "chart:*"))
	assert.Equal(t, 1, backend.calls)
}

func TestCacheServiceDisabled(t *testing.T) {
	var nilSvc *CacheService
	hit, err := nilSvc.Get(context.Background(), "k", new(string))
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, nilSvc.Invalidate(context.Background(), "*"))

	svc := NewCacheService(nil, nil, 0, nil, true)
	assert.False(t, svc.Enabled())
	assert.NoError(t, svc.Set(context.Background(), "k", "v", 0))
}
