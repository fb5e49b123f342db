package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRedisConfig_ReadsPortFromItsOwnKey(t *testing.T) {
	t.Setenv("R_HOST", "cache.internal")
	t.Setenv("R_PORT", "6380")

	host, port, password := RedisConfig()
	assert.Equal(t, "cache.internal", host)
	assert.Equal(t, "6380", port)
	assert.Empty(t, password)
}

func TestStorageBackend(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	assert.Equal(t, StorageMemory, StorageBackend())

	t.Setenv("STORAGE", "sqlite")
	assert.Equal(t, StoragePostgres, StorageBackend())
}

func TestNotificationConfig_Defaults(t *testing.T) {
	t.Setenv("NOTIFY_RATE_PER_MINUTE", "not-a-number")
	t.Setenv("NOTIFY_POLL_TIMEOUT", "")

	perMinute, poll, from := NotificationConfig()
	assert.Equal(t, 30, perMinute)
	assert.Equal(t, 5*time.Second, poll)
	assert.NotEmpty(t, from)
}

func TestNotificationConfig_Overrides(t *testing.T) {
	t.Setenv("NOTIFY_RATE_PER_MINUTE", "120")
	t.Setenv("NOTIFY_POLL_TIMEOUT", "250ms")
	t.Setenv("NOTIFY_FROM", "studio@example.org")

	perMinute, poll, from := NotificationConfig()
	assert.Equal(t, 120, perMinute)
	assert.Equal(t, 250*time.Millisecond, poll)
	assert.Equal(t, "studio@example.org", from)
}

func TestNotificationRetry(t *testing.T) {
	t.Setenv("NOTIFY_MAX_ATTEMPTS", "")
	t.Setenv("NOTIFY_RETRY_DELAY", "")

	attempts, delay := NotificationRetry()
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 5*time.Second, delay)

	t.Setenv("NOTIFY_MAX_ATTEMPTS", "5")
	t.Setenv("NOTIFY_RETRY_DELAY", "30s")

	attempts, delay = NotificationRetry()
	assert.Equal(t, 5, attempts)
	assert.Equal(t, 30*time.Second, delay)
}
