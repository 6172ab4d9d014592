//go:build integration

// Pruebas contra Redis real vía testcontainers.
// Ejecutar con: go test -tags integration ./internal/infrastructure/redis/...
package redis_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/jhoicas/Cartera-api/internal/domain/entity"
	"github.com/jhoicas/Cartera-api/internal/domain/wallet"
	infraredis "github.com/jhoicas/Cartera-api/internal/infrastructure/redis"
)

func startRedis(t *testing.T) *goredis.Client {
	t.Helper()
	ctx := context.Background()

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	url, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	rdb, err := infraredis.NewClient(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func snapshotWithCash(amount string) *entity.BalanceSnapshot {
	snap := wallet.Aggregate([]entity.BalanceRow{
		{Method: entity.MethodCash, State: entity.StateAvailable, Total: decimal.RequireFromString(amount)},
	})
	snap.ComputedAt = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	return &snap
}

func TestBalanceCache_Generaciones(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()
	cache := infraredis.NewBalanceCache(rdb, time.Minute, "test")

	_, gen, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "caché vacía")
	assert.Equal(t, int64(0), gen)

	require.NoError(t, cache.Store(ctx, gen, snapshotWithCash("150.25")))
	snap, _, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "150.25", snap.ByMethod[entity.MethodCash].Available.String())
	assert.Equal(t, "150.25", snap.AvailableTotal.String())

	require.NoError(t, cache.Invalidate(ctx))
	_, gen, ok, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "tras invalidar no se sirve el snapshot viejo")
	assert.Equal(t, int64(1), gen)
}

func TestBalanceCache_StoreTardioSeDescarta(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()
	cache := infraredis.NewBalanceCache(rdb, time.Minute, "test")

	_, gen, _, err := cache.Get(ctx)
	require.NoError(t, err)

	// una escritura ocurre mientras el lector calculaba
	require.NoError(t, cache.Invalidate(ctx))
	require.NoError(t, cache.Store(ctx, gen, snapshotWithCash("1")))

	_, _, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "un snapshot de una generación vieja no se guarda")
}

func TestLocker_Exclusivo(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()
	locker := infraredis.NewLocker(rdb)

	first, err := locker.Obtain(ctx, "wallet:backfill", 10*time.Second)
	require.NoError(t, err)

	_, err = locker.Obtain(ctx, "wallet:backfill", 10*time.Second)
	assert.ErrorIs(t, err, infraredis.ErrLocked)

	require.NoError(t, first.Refresh(ctx))
	require.NoError(t, first.Release(ctx))

	again, err := locker.Obtain(ctx, "wallet:backfill", 10*time.Second)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}
