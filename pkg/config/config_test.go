package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Cartera-api/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.StorePostgres, cfg.Wallet.Store)
	assert.Equal(t, 50, cfg.Wallet.PageDefault)
	assert.Equal(t, 100, cfg.Wallet.PageMax)
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
	assert.False(t, cfg.Redis.Enabled(), "sin REDIS_URL la caché queda deshabilitada")
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_DesdeEntorno(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WALLET_STORE", "SQLite")
	t.Setenv("WALLET_SQLITE_PATH", "/tmp/cartera.db")
	t.Setenv("WALLET_PAGE_DEFAULT", "20")
	t.Setenv("WALLET_PAGE_MAX", "40")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("REDIS_CACHE_TTL_SECONDS", "30")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.StoreSQLite, cfg.Wallet.Store)
	assert.Equal(t, "/tmp/cartera.db", cfg.Wallet.SQLitePath)
	assert.Equal(t, 20, cfg.Wallet.PageDefault)
	assert.Equal(t, 40, cfg.Wallet.PageMax)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, 9090, cfg.HTTP.Port)
}

func TestLoad_AlmacenInvalido(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WALLET_STORE", "mongo")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_LimitesIncoherentes(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WALLET_PAGE_DEFAULT", "200")
	t.Setenv("WALLET_PAGE_MAX", "100")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDSN_EscapaContrasena(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:w/rd", DBName: "cartera", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aw%2Frd@db:5432/cartera?sslmode=disable", c.DSN())
	assert.Equal(t, c.DSN(), c.ConnectionString())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
