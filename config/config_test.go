package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_NAME", "file::memory:")

	require.NoError(t, LoadConfig())
	assert.Equal(t, "development", AppConfig.Environment)
	assert.Equal(t, 60*time.Minute, AppConfig.AccessTokenLifetime)
	assert.Equal(t, 7*24*time.Hour, AppConfig.RefreshTokenLifetime)
	assert.Equal(t, 5, AppConfig.RateLimitAuth)
	assert.Equal(t, []string{"http://localhost:3000"}, AppConfig.AllowedOrigins)
	assert.False(t, AppConfig.Redis.Enabled)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("JWT_ACCESS_TOKEN_LIFETIME_MINUTES", "15")
	t.Setenv("JWT_REFRESH_TOKEN_LIFETIME_DAYS", "1")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TOKEN_CLEANUP_INTERVAL", "10m")
	t.Setenv("REDIS_ENABLED", "true")

	require.NoError(t, LoadConfig())
	assert.Equal(t, 15*time.Minute, AppConfig.AccessTokenLifetime)
	assert.Equal(t, 24*time.Hour, AppConfig.RefreshTokenLifetime)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, AppConfig.AllowedOrigins)
	assert.Equal(t, 10*time.Minute, AppConfig.TokenCleanupInterval)
	assert.True(t, AppConfig.Redis.Enabled)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	assert.Error(t, LoadConfig())

	t.Setenv("SECRET_KEY", "s")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_PASSWORD", "")
	assert.Error(t, LoadConfig())

	t.Setenv("DB_DRIVER", "mysql")
	assert.Error(t, LoadConfig())
}

func TestOpenSqliteAndMigrate(t *testing.T) {
	db, err := Open(Config{DBDriver: "sqlite", DBName: "file:config_test?mode=memory&cache=shared"})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	assert.True(t, db.Migrator().HasTable("teams"))
	assert.True(t, db.Migrator().HasIndex("channels", "idx_channel_team_name"))
}

func TestMaskPassword(t *testing.T) {
	assert.Equal(t, "host=x password=***** dbname=y", maskPassword("host=x password=secret dbname=y"))
	assert.Equal(t, "host=x", maskPassword("host=x"))
}
