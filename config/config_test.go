package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/progress")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("RECONCILE_INTERVAL", "not-a-duration")
	t.Setenv("PROFILE_SYNC_INTERVAL", "30s")
	t.Setenv("CATALOG_SOURCE", "s3://catalogs/progress.json")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "5200", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.ReconcileInterval)
	assert.Equal(t, 30*time.Second, cfg.ProfileSyncInterval)
	assert.Equal(t, "/api/v1/public/profiles", cfg.ProfileSyncPath)
	assert.True(t, cfg.CatalogFromBucket())
}
