// Package storetest contiene la batería de pruebas que todo almacén de movimientos debe pasar
// (memoria, SQLite, Postgres). Cada implementación la invoca desde su propio _test.go.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/Cartera-api/internal/domain/entity"
	"github.com/jhoicas/Cartera-api/internal/domain/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory crea un almacén vacío y aislado para cada subtest.
type Factory func(t *testing.T) repository.MovementRepository

var base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// Movement arma un movimiento válido para pruebas de almacén.
func Movement(id string, at time.Time, dir entity.Direction, method entity.Method, state entity.State, amount string) *entity.Movement {
	return &entity.Movement{
		ID:        id,
		Amount:    decimal.RequireFromString(amount),
		Direction: dir,
		Method:    method,
		State:     state,
		Kind:      entity.KindManual,
		Note:      "prueba",
		Origin:    entity.Origin{Type: entity.OriginManual},
		CreatedAt: at.UTC().Truncate(time.Microsecond),
	}
}

// Run ejecuta el contrato completo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("conserva todos los campos", func(t *testing.T) { roundTrip(t, newRepo(t)) })
	t.Run("orden createdAt desc con desempate por id", func(t *testing.T) { ordering(t, newRepo(t)) })
	t.Run("paginación sin huecos ni repetidos", func(t *testing.T) { pagination(t, newRepo(t)) })
	t.Run("insert-if-absent devuelve el existente", func(t *testing.T) { insertIfAbsent(t, newRepo(t)) })
	t.Run("insert-if-absent concurrente crea uno solo", func(t *testing.T) { concurrentInsert(t, newRepo(t)) })
	t.Run("append batch", func(t *testing.T) { appendBatch(t, newRepo(t)) })
	t.Run("suma por método y estado", func(t *testing.T) { sums(t, newRepo(t)) })
}

func roundTrip(t *testing.T, repo repository.MovementRepository) {
	ctx := context.Background()
	at := time.Date(2025, 3, 10, 12, 30, 45, 123456000, time.UTC)
	m := &entity.Movement{
		ID:             "0195a1b2-0000-7000-8000-000000000001",
		Amount:         decimal.RequireFromString("1234.56"),
		Direction:      entity.DirectionOut,
		Method:         entity.MethodTransfer,
		State:          entity.StateAvailable,
		Kind:           entity.KindExpense,
		Category:       "Insumos",
		Supplier:       "Distribuidora Central",
		Note:           "harina",
		Origin:         entity.Origin{Type: entity.OriginPurchase, RefID: "compra-77"},
		CreatedAt:      at,
		CreatedByUID:   "u-1",
		CreatedByEmail: "caja@pos.co",
	}
	require.NoError(t, repo.Append(ctx, m))

	page, err := repo.ListPage(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	got := page[0]
	assert.Equal(t, m.ID, got.ID)
	assert.True(t, m.Amount.Equal(got.Amount), "monto exacto: %s", got.Amount)
	assert.Equal(t, m.Direction, got.Direction)
	assert.Equal(t, m.Method, got.Method)
	assert.Equal(t, m.State, got.State)
	assert.Equal(t, m.Kind, got.Kind)
	assert.Equal(t, m.Category, got.Category)
	assert.Equal(t, m.Supplier, got.Supplier)
	assert.Equal(t, m.Note, got.Note)
	assert.Equal(t, m.Origin, got.Origin)
	assert.True(t, at.Equal(got.CreatedAt), "createdAt con microsegundos: %s", got.CreatedAt)
	assert.Equal(t, m.CreatedByUID, got.CreatedByUID)
	assert.Equal(t, m.CreatedByEmail, got.CreatedByEmail)
}

func ordering(t *testing.T, repo repository.MovementRepository) {
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, Movement("a", base, entity.DirectionIn, entity.MethodCash, entity.StateAvailable, "1")))
	require.NoError(t, repo.Append(ctx, Movement("c", base.Add(time.Minute), entity.DirectionIn, entity.MethodCash, entity.StateAvailable, "1")))
	require.NoError(t, repo.Append(ctx, Movement("b", base, entity.DirectionIn, entity.MethodCash, entity.StateAvailable, "1")))
	require.NoError(t, repo.Append(ctx, Movement("d", base.Add(-time.Minute), entity.DirectionIn, entity.MethodCash, entity.StateAvailable, "1")))

	page, err := repo.ListPage(ctx, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a", "d"}, ids(page))
}

func pagination(t *testing.T, repo repository.MovementRepository) {
	ctx := context.Background()
	want := make([]string, 0, 25)
	for i := 0; i < 25; i++ {
		// cada 5 comparten createdAt para ejercitar el desempate por id
		at := base.Add(time.Duration(i/5) * time.Second)
		id := fmt.Sprintf("m-%02d", i)
		require.NoError(t, repo.Append(ctx, Movement(id, at, entity.DirectionIn, entity.MethodCard, entity.StatePending, "10")))
	}
	for i := 24; i >= 0; i-- {
		want = append(want, fmt.Sprintf("m-%02d", i))
	}

	var got []string
	var after *entity.PageCursor
	for {
		page, err := repo.ListPage(ctx, after, 7)
		require.NoError(t, err)
		got = append(got, ids(page)...)
		if len(page) < 7 {
			break
		}
		last := page[len(page)-1]
		after = &entity.PageCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	assert.Equal(t, want, got)
}

func insertIfAbsent(t *testing.T, repo repository.MovementRepository) {
	ctx := context.Background()
	first := Movement("s-1", base, entity.DirectionIn, entity.MethodCash, entity.StateAvailable, "50")
	first.Kind = entity.KindSale
	first.Origin = entity.Origin{Type: entity.OriginSale, RefID: "venta-1"}

	stored, created, err := repo.InsertIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "s-1", stored.ID)

	retry := Movement("s-2", base.Add(time.Second), entity.DirectionIn, entity.MethodCash, entity.StateAvailable, "50")
	retry.Kind = entity.KindSale
	retry.Origin = entity.Origin{Type: entity.OriginSale, RefID: "venta-1"}

	stored, created, err = repo.InsertIfAbsent(ctx, retry)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "s-1", stored.ID, "debe devolver el movimiento original")

	page, err := repo.ListPage(ctx, nil, 10)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func concurrentInsert(t *testing.T, repo repository.MovementRepository) {
	ctx := context.Background()
	const workers = 16
	var wg sync.WaitGroup
	results := make([]bool, workers)
	storedIDs := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := Movement(fmt.Sprintf("c-%02d", i), base, entity.DirectionIn, entity.MethodCard, entity.StatePending, "99.90")
			m.Kind = entity.KindSale
			m.Origin = entity.Origin{Type: entity.OriginSale, RefID: "venta-concurrente"}
			stored, created, err := repo.InsertIfAbsent(ctx, m)
			errs[i] = err
			results[i] = created
			if stored != nil {
				storedIDs[i] = stored.ID
			}
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		if results[i] {
			created++
		}
	}
	assert.Equal(t, 1, created, "exactamente una inserción")
	for i := 1; i < workers; i++ {
		assert.Equal(t, storedIDs[0], storedIDs[i], "todos ven el mismo movimiento")
	}

	page, err := repo.ListPage(ctx, nil, 100)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func appendBatch(t *testing.T, repo repository.MovementRepository) {
	ctx := context.Background()
	out := Movement("x-1", base, entity.DirectionOut, entity.MethodCard, entity.StatePending, "30")
	in := Movement("x-2", base, entity.DirectionIn, entity.MethodCard, entity.StateAvailable, "30")
	out.Kind, in.Kind = entity.KindSettlement, entity.KindSettlement
	require.NoError(t, repo.AppendBatch(ctx, []*entity.Movement{out, in}))

	page, err := repo.ListPage(ctx, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"x-2", "x-1"}, ids(page))
}

func sums(t *testing.T, repo repository.MovementRepository) {
	ctx := context.Background()
	rows, err := repo.SumByMethodState(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows, "almacén vacío no tiene grupos")

	require.NoError(t, repo.Append(ctx, Movement("1", base, entity.DirectionIn, entity.MethodCash, entity.StateAvailable, "100.10")))
	require.NoError(t, repo.Append(ctx, Movement("2", base, entity.DirectionOut, entity.MethodCash, entity.StateAvailable, "0.10")))
	require.NoError(t, repo.Append(ctx, Movement("3", base, entity.DirectionIn, entity.MethodCard, entity.StatePending, "45.5")))
	require.NoError(t, repo.Append(ctx, Movement("4", base, entity.DirectionOut, entity.MethodTransfer, entity.StateAvailable, "20")))

	rows, err = repo.SumByMethodState(ctx)
	require.NoError(t, err)
	got := map[string]string{}
	for _, r := range rows {
		got[string(r.Method)+"/"+string(r.State)] = r.Total.StringFixed(2)
	}
	assert.Equal(t, map[string]string{
		"cash/available":     "100.00",
		"card/pending":       "45.50",
		"transfer/available": "-20.00",
	}, got)
}

func ids(ms []*entity.Movement) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}
