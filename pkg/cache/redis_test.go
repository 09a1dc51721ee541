package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-lms-api/pkg/config"
)

func TestOptionsFromConfig(t *testing.T) {
	opts := Options(config.RedisConfig{Host: "cache.internal", Port: 6380, Password: "pw", DB: 2})
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "pw", opts.Password)
}

func TestNewRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client, err := NewRedis(ctx, config.RedisConfig{Host: "127.0.0.1", Port: 1})
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
