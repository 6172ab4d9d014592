package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Cartera-api/internal/domain"
	"github.com/jhoicas/Cartera-api/internal/domain/entity"
	"github.com/jhoicas/Cartera-api/internal/domain/repository"
	"github.com/jhoicas/Cartera-api/internal/infrastructure/sqlite"
	"github.com/jhoicas/Cartera-api/internal/infrastructure/storetest"
)

func openTemp(t *testing.T) *sqlite.MovementRepository {
	t.Helper()
	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "cartera.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestMovementRepository_Contrato(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.MovementRepository {
		return openTemp(t)
	})
}

func TestMovementRepository_PersisteAlReabrir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cartera.db")
	ctx := context.Background()
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	repo, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, storetest.Movement("p-1", at, entity.DirectionIn, entity.MethodCash, entity.StateAvailable, "19.99")))
	require.NoError(t, repo.Close())

	repo, err = sqlite.Open(path)
	require.NoError(t, err)
	defer repo.Close()

	rows, err := repo.SumByMethodState(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "19.99", rows[0].Total.String())
}

func TestMovementRepository_BatchAtomico(t *testing.T) {
	repo := openTemp(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	ok := storetest.Movement("b-1", at, entity.DirectionOut, entity.MethodCard, entity.StatePending, "10")
	bad := storetest.Movement("b-2", at, entity.DirectionIn, entity.MethodCash, entity.StatePending, "10")

	err := repo.AppendBatch(ctx, []*entity.Movement{ok, bad})
	assert.ErrorIs(t, err, domain.ErrStorage)

	page, err := repo.ListPage(ctx, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMovementRepository_SinCentavosPerdidos(t *testing.T) {
	repo := openTemp(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		id := string(rune('a' + i))
		require.NoError(t, repo.Append(ctx, storetest.Movement(id, at, entity.DirectionIn, entity.MethodTransfer, entity.StateAvailable, "0.1")))
	}
	rows, err := repo.SumByMethodState(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].Total.String(), "0.1 x 10 debe dar exactamente 1")
}
