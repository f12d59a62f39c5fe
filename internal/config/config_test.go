package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MemoryDriverDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("AUTH_OPTIONAL", "true")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Jobs.IntegritySweepInterval)
	assert.Equal(t, 5*time.Minute, cfg.Cache.BinTTL)
	assert.Equal(t, time.Minute, cfg.Jobs.ArchiveSettle)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_PostgresRequiresURL(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	assert.ErrorContains(t, err, "unsupported STORE_DRIVER")
}

func TestLoad_RequiresAuthUnlessOptional(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("AUTH_JWKS_URL", "")
	t.Setenv("AUTH_OPTIONAL", "false")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_ParsesDurationsAndSlices(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JOBS_ARCHIVE_INTERVAL", "90s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("JOBS_INTEGRITY_SWEEP_INTERVAL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Jobs.ArchiveInterval)
	assert.Equal(t, 15*time.Minute, cfg.Jobs.IntegritySweepInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_RejectsNegativeArchiveSettle(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("AUTH_OPTIONAL", "true")
	t.Setenv("JOBS_ARCHIVE_SETTLE", "-5s")

	_, err := Load()
	assert.ErrorContains(t, err, "JOBS_ARCHIVE_SETTLE")
}
