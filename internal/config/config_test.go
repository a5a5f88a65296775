// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"PORT", "LOG_LEVEL", "ALLOWED_ORIGINS", "REDIS_ADDR", "REDIS_DB", "HISTORIAN_QUEUE_NAME",
		"VERIFY_CLAIMS", "AUTO_RESUME_DELAY_MS", "WS_MESSAGE_RATE", "WS_MESSAGE_BURST",
		"HISTORIAN_BATCH_SIZE", "HISTORIAN_FLUSH_MS",
	} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "tombola_actions", cfg.QueueName)
	assert.Equal(t, 20, cfg.HistorianBatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.HistorianFlush)
	assert.False(t, cfg.VerifyClaims)
	assert.Equal(t, 5*time.Second, cfg.AutoResumeDelay)
	assert.Equal(t, float64(10), cfg.MessageRate)
	assert.Equal(t, 20, cfg.MessageBurst)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("ALLOWED_ORIGINS", "example.com, ,tombola.dev")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("VERIFY_CLAIMS", "true")
	t.Setenv("AUTO_RESUME_DELAY_MS", "1500")
	t.Setenv("WS_MESSAGE_RATE", "2.5")
	t.Setenv("WS_MESSAGE_BURST", "not-a-number")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, logrus.WarnLevel, cfg.LogLevel)
	assert.Equal(t, []string{"example.com", "tombola.dev"}, cfg.AllowedOrigins)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.True(t, cfg.VerifyClaims)
	assert.Equal(t, 1500*time.Millisecond, cfg.AutoResumeDelay)
	assert.Equal(t, 2.5, cfg.MessageRate)
	assert.Equal(t, 20, cfg.MessageBurst, "bad values fall back")
}
