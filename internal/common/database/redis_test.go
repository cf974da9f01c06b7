package database

import (
	"context"
	"testing"
	"time"

	"application-workflow/internal/common/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis_UsesConfiguredPool(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedis(config.RedisConfig{
		Address:      mr.Addr(),
		PoolSize:     7,
		MinIdleConns: 1,
		DialTimeout:  250,
		ReadTimeout:  100,
		WriteTimeout: 100,
	})
	require.NoError(t, err)
	defer c.Close()

	opts := c.Client.Options()
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 250*time.Millisecond, opts.DialTimeout)
	assert.Equal(t, 100*time.Millisecond, opts.ReadTimeout)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestNewRedis_RequiresAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}
