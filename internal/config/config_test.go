package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PGHOST", "db")
	t.Setenv("PGDATABASE", "cars")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.Storage)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "postgres://carswipe_user:carswipe_pass@db:5432/cars?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, "carswipe.chat", cfg.NATS.SubjectPrefix)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadConfigExplicitURL(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://u:p@h:1/d")
	t.Setenv("STORAGE", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h:1/d", cfg.DatabaseURL)
	assert.Equal(t, "memory", cfg.Storage)
}

func TestLoadConfigRejectsUnknownStorage(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE", "mongo")

	_, err := LoadConfig()
	assert.Error(t, err)
}
