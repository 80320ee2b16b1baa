package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("STOCKROOM_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/stockroom")
	t.Setenv("STOCKROOM_API_KEY_PEPPER", "pepper")
	t.Setenv("PORT", "9090")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/stockroom", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
	assert.EqualValues(t, 16, cfg.DB.MaxConns)
	assert.Equal(t, 5*time.Second, cfg.DB.TxTimeout)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("STOCKROOM_DATABASE_URL", "postgres://db/stockroom")
	t.Setenv("DATABASE_URL", "postgres://ignored/stockroom")
	t.Setenv("STOCKROOM_API_KEY_PEPPER", "pepper")
	t.Setenv("STOCKROOM_DB_MAX_CONNS", "4")
	t.Setenv("STOCKROOM_RATE_LIMIT_MAX", "7")
	t.Setenv("PORT", "")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)

	assert.Equal(t, "postgres://db/stockroom", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.EqualValues(t, 4, cfg.DB.MaxConns)
	assert.Equal(t, 7, cfg.RateLimit.Max)
}

func TestLoadConfig_Flags(t *testing.T) {
	t.Setenv("STOCKROOM_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STOCKROOM_API_KEY_PEPPER", "pepper")

	cfg, err := loadConfig([]string{
		"-database-url", "postgres://flag/stockroom",
		"-db.max-conns", "8",
		"-db.saturation", "0.5",
	})
	require.NoError(t, err)

	assert.Equal(t, "postgres://flag/stockroom", cfg.DatabaseURL)
	assert.EqualValues(t, 8, cfg.DB.MaxConns)
	assert.InDelta(t, 0.5, cfg.DB.Saturation, 1e-9)
}

func TestLoadConfig_Required(t *testing.T) {
	t.Setenv("STOCKROOM_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STOCKROOM_API_KEY_PEPPER", "pepper")

	_, err := loadConfig([]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")

	t.Setenv("DATABASE_URL", "postgres://localhost/stockroom")
	t.Setenv("STOCKROOM_API_KEY_PEPPER", "")
	_, err = loadConfig([]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pepper")
}
