package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_USER", "golf")
	t.Setenv("DB_NAME", "golf_ops")
	t.Setenv("JWT_SECRET", "s3cret")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequired(t)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "3306", c.DBPort)
	assert.Equal(t, 15, c.AccessTTLMin)
	assert.Equal(t, "golf.events", c.EventsExchange)
	assert.True(t, c.SpareReplenish)
	assert.False(t, c.OTelEnabled)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DB_USER", "golf")
	t.Setenv("DB_NAME", "golf_ops")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadBcryptCost(t *testing.T) {
	setRequired(t)
	t.Setenv("BCRYPT_COST", "2")

	_, err := Load()
	assert.ErrorContains(t, err, "BCRYPT_COST")
}

func TestRateLimitConfigNormalizes(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c, err := LoadRateLimitConfig()
	require.NoError(t, err)
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 10*time.Second, c.TTL)
	assert.Equal(t, "ip_user_route", c.KeyStrategy)
}

func TestCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")

	c, err := LoadCacheConfig()
	require.NoError(t, err)
	assert.True(t, c.Methods["GET"])
	assert.True(t, c.Methods["HEAD"])
	assert.False(t, c.Methods["POST"])
	assert.Equal(t, 30*time.Second, c.TTL)
}

func TestRedisAddress(t *testing.T) {
	assert.Equal(t, "localhost:6379", RedisConfig{Addr: "localhost:6379"}.Address())
	assert.Equal(t, "redis:6380", RedisConfig{Host: "redis", Port: "6380", Addr: "x:1"}.Address())
}
