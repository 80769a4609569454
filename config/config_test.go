package config

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "GO_ENV", "DB_DRIVER", "ISSUE_DAILY_LIMIT", "RATE_LIMIT_WINDOW_MS", "STORAGE_DRIVER", "BACKEND_URL"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "mongo", cfg.DBDriver)
	assert.Equal(t, "http://localhost:5000", cfg.BackendURL)
	assert.Equal(t, 10, cfg.IssueDailyLimit)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, "local", cfg.StorageDriver)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("GO_ENV", "production")
	t.Setenv("ISSUE_DAILY_LIMIT", "3")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "60000")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("EMAIL_PORT", "not-used-as-int")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 3, cfg.IssueDailyLimit)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, "not-used-as-int", cfg.EmailPort)
}

func TestOpenStore_Memory(t *testing.T) {
	store, err := OpenStore(context.Background(), Config{DBDriver: "memory"}, zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, store.Ping(context.Background()))
	assert.NoError(t, store.Close(context.Background()))

	_, err = OpenStore(context.Background(), Config{DBDriver: "postgres"}, zerolog.Nop())
	assert.Error(t, err)
}
