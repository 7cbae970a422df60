package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "40001", cfg.Server.Port)
	assert.Equal(t, StoreBackendBadger, cfg.Store.Backend)
	assert.Equal(t, "server", cfg.Discovery.RendezvousTopic)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	base, err := LoadConfig()
	require.NoError(t, err)

	cfg := *base
	cfg.Redis.PoolSize = 0
	assert.Error(t, cfg.Validate())

	cfg = *base
	cfg.Redis.DialTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = *base
	cfg.Store.Backend = "etcd"
	assert.Error(t, cfg.Validate())
}
