package wallet_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appwallet "github.com/jhoicas/Cartera-api/internal/application/wallet"
	"github.com/jhoicas/Cartera-api/internal/domain"
	"github.com/jhoicas/Cartera-api/internal/domain/entity"
	"github.com/jhoicas/Cartera-api/internal/infrastructure/memory"
	"github.com/jhoicas/Cartera-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Dobles de test
// ──────────────────────────────────────────────────────────────────────────────

// fakeCache caché en memoria con generación, equivalente a la de Redis.
type fakeCache struct {
	mu             sync.Mutex
	gen            int64
	snap           *entity.BalanceSnapshot
	snapGen        int64
	failInvalidate bool
	failGet        bool
	hits           int
}

func (c *fakeCache) Get(context.Context) (*entity.BalanceSnapshot, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, 0, false, errors.New("redis caído")
	}
	if c.snap != nil && c.snapGen == c.gen {
		c.hits++
		cp := *c.snap
		return &cp, c.gen, true, nil
	}
	return nil, c.gen, false, nil
}

func (c *fakeCache) Store(_ context.Context, gen int64, snap *entity.BalanceSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *snap
	c.snap, c.snapGen = &cp, gen
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failInvalidate {
		return errors.New("redis caído")
	}
	c.gen++
	return nil
}

func (c *fakeCache) setFailInvalidate(v bool) {
	c.mu.Lock()
	c.failInvalidate = v
	c.mu.Unlock()
}

// brokenRepo almacén que falla en todas las operaciones.
type brokenRepo struct{ *memory.MovementRepository }

func (brokenRepo) Append(context.Context, *entity.Movement) error {
	return domain.NewStorageError("append", errors.New("conexión rechazada"))
}

func (brokenRepo) InsertIfAbsent(context.Context, *entity.Movement) (*entity.Movement, bool, error) {
	return nil, false, domain.NewStorageError("insert_if_absent", errors.New("conexión rechazada"))
}

func newUseCase(t *testing.T, cache appwallet.BalanceCache) (*appwallet.UseCase, *memory.MovementRepository) {
	t.Helper()
	repo := memory.NewMovementRepository()
	uc := appwallet.NewUseCase(repo, appwallet.NewFactory(), cache, logger.Nop(), appwallet.Config{PageDefault: 50, PageMax: 100})
	return uc, repo
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireDec(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "%s: se esperaba %s, se obtuvo %s", msg, want, got)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ventas e idempotencia
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordSale_ReintentoNoDuplica(t *testing.T) {
	uc, repo := newUseCase(t, nil)
	ctx := context.Background()
	sale := appwallet.SaleOrigin{ClientSaleID: "pos-1-000123", Method: "card", Total: dec("80000")}

	first, err := uc.RecordSale(ctx, sale)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Equal(t, entity.StatePending, first.Movement.State, "venta con tarjeta queda pendiente")

	second, err := uc.RecordSale(ctx, sale)
	require.NoError(t, err)
	assert.True(t, second.Duplicate, "el reintento debe marcarse como duplicado")
	assert.Equal(t, first.Movement.ID, second.Movement.ID)
	assert.Equal(t, 1, repo.Len(), "un solo movimiento por venta")

	snap, err := uc.Balances(ctx)
	require.NoError(t, err)
	requireDec(t, "80000", snap.ByMethod[entity.MethodCard].Pending, "card.pending")
}

func TestRecordSale_ConcurrenteUnSoloMovimiento(t *testing.T) {
	uc, repo := newUseCase(t, nil)
	ctx := context.Background()
	sale := appwallet.SaleOrigin{ClientSaleID: "pos-7", Method: "cash", Total: dec("1500")}

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := uc.RecordSale(ctx, sale)
			if !assert.NoError(t, err) {
				return
			}
			if !res.Duplicate {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, repo.Len())
}

func TestRecordSale_SinReferencia(t *testing.T) {
	uc, repo := newUseCase(t, nil)
	_, err := uc.RecordSale(context.Background(), appwallet.SaleOrigin{ClientSaleID: "  ", Method: "cash", Total: dec("10")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, repo.Len())
}

func TestRecordSale_ValidacionNoEscribe(t *testing.T) {
	uc, repo := newUseCase(t, nil)
	_, err := uc.RecordSale(context.Background(), appwallet.SaleOrigin{ClientSaleID: "v-9", Method: "cash", Total: dec("-1")})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Equal(t, 0, repo.Len())
}

// ──────────────────────────────────────────────────────────────────────────────
// Otros orígenes
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordPurchase_SalidaDisponible(t *testing.T) {
	uc, _ := newUseCase(t, nil)
	m, err := uc.RecordPurchase(context.Background(), appwallet.PurchaseOrigin{
		PurchaseID: "c-1", Method: "transfer", Total: dec("120000"), Category: "Insumos", Supplier: "Molinos",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.DirectionOut, m.Direction)
	assert.Equal(t, entity.StateAvailable, m.State)
	assert.Equal(t, entity.KindExpense, m.Kind)
	assert.Equal(t, entity.Origin{Type: entity.OriginPurchase, RefID: "c-1"}, m.Origin)
}

func TestRecordExpense_CategoriaPorDefecto(t *testing.T) {
	uc, _ := newUseCase(t, nil)
	m, err := uc.RecordExpense(context.Background(), appwallet.ExpenseOrigin{Amount: dec("9000"), Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, appwallet.DefaultExpenseCategory, m.Category)
	assert.Equal(t, entity.StateAvailable, m.State)
	assert.Equal(t, entity.OriginExpense, m.Origin.Type)
}

func TestRecordManual(t *testing.T) {
	uc, repo := newUseCase(t, nil)
	ctx := context.Background()

	m, err := uc.RecordManual(ctx, appwallet.ManualOrigin{
		Direction: "in", Method: "transfer", State: "available", Amount: dec("50000"), Note: "aporte",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.KindManual, m.Kind)
	assert.Equal(t, entity.OriginManual, m.Origin.Type)

	m, err = uc.RecordManual(ctx, appwallet.ManualOrigin{
		Kind: "cash_count", Direction: "out", Method: "cash", Amount: dec("300"),
	})
	require.NoError(t, err, "el arqueo no exige nota ni estado en efectivo")
	assert.Equal(t, entity.OriginCashCount, m.Origin.Type)

	_, err = uc.RecordManual(ctx, appwallet.ManualOrigin{
		Direction: "in", Method: "card", Amount: dec("1"), Note: "x",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState, "estado obligatorio fuera de efectivo")

	_, err = uc.RecordManual(ctx, appwallet.ManualOrigin{
		Kind: "sale", Direction: "in", Method: "cash", Amount: dec("1"), Note: "x",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidKind, "la captura manual no registra ventas")

	assert.Equal(t, 2, repo.Len())
}

func TestRecordManual_CadaEnvioEsNuevo(t *testing.T) {
	uc, repo := newUseCase(t, nil)
	in := appwallet.ManualOrigin{Direction: "in", Method: "cash", Amount: dec("10"), Note: "propina"}
	_, err := uc.RecordManual(context.Background(), in)
	require.NoError(t, err)
	_, err = uc.RecordManual(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.Len())
}

func TestRecordSettlement(t *testing.T) {
	uc, _ := newUseCase(t, nil)
	ctx := context.Background()
	_, err := uc.RecordSale(ctx, appwallet.SaleOrigin{ClientSaleID: "v-1", Method: "card", Total: dec("100")})
	require.NoError(t, err)

	ms, err := uc.RecordSettlement(ctx, appwallet.SettlementOrigin{Method: "card", Amount: dec("100"), RefID: "lote-1"})
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, entity.DirectionOut, ms[0].Direction)
	assert.Equal(t, entity.StatePending, ms[0].State)
	assert.Equal(t, entity.DirectionIn, ms[1].Direction)
	assert.Equal(t, entity.StateAvailable, ms[1].State)

	snap, err := uc.Balances(ctx)
	require.NoError(t, err)
	requireDec(t, "0", snap.ByMethod[entity.MethodCard].Pending, "card.pending liquidado")
	requireDec(t, "100", snap.ByMethod[entity.MethodCard].Available, "card.available")

	_, err = uc.RecordSettlement(ctx, appwallet.SettlementOrigin{Method: "cash", Amount: dec("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidMethod, "el efectivo no se liquida")
}

func TestErrorDeAlmacen(t *testing.T) {
	repo := brokenRepo{memory.NewMovementRepository()}
	uc := appwallet.NewUseCase(repo, nil, nil, logger.Nop(), appwallet.Config{})

	_, err := uc.RecordManual(context.Background(), appwallet.ManualOrigin{Direction: "in", Method: "cash", Amount: dec("1"), Note: "x"})
	assert.ErrorIs(t, err, domain.ErrStorage)

	var se *domain.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "append", se.Op)
}

// ──────────────────────────────────────────────────────────────────────────────
// Saldos
// ──────────────────────────────────────────────────────────────────────────────

func TestBalances_Vacio(t *testing.T) {
	uc, _ := newUseCase(t, nil)
	snap, err := uc.Balances(context.Background())
	require.NoError(t, err)
	for _, m := range entity.Methods {
		requireDec(t, "0", snap.ByMethod[m].Available, string(m)+".available")
		requireDec(t, "0", snap.ByMethod[m].Pending, string(m)+".pending")
	}
	requireDec(t, "0", snap.AvailableTotal, "availableTotal")
	requireDec(t, "0", snap.BankSubtotal.Total, "bank.total")
	assert.False(t, snap.ComputedAt.IsZero())
}

func TestBalances_Escenario(t *testing.T) {
	uc, _ := newUseCase(t, nil)
	ctx := context.Background()

	_, err := uc.RecordSale(ctx, appwallet.SaleOrigin{ClientSaleID: "v-1", Method: "cash", Total: dec("100")})
	require.NoError(t, err)
	_, err = uc.RecordSale(ctx, appwallet.SaleOrigin{ClientSaleID: "v-2", Method: "card", Total: dec("250.50")})
	require.NoError(t, err)
	_, err = uc.RecordSale(ctx, appwallet.SaleOrigin{ClientSaleID: "v-3", Method: "transfer", Total: dec("40")})
	require.NoError(t, err)
	_, err = uc.RecordExpense(ctx, appwallet.ExpenseOrigin{Amount: dec("30"), Method: "cash"})
	require.NoError(t, err)
	_, err = uc.RecordExpense(ctx, appwallet.ExpenseOrigin{Amount: dec("15.25"), Method: "transfer"})
	require.NoError(t, err)

	snap, err := uc.Balances(ctx)
	require.NoError(t, err)
	requireDec(t, "70", snap.ByMethod[entity.MethodCash].Available, "cash.available")
	requireDec(t, "24.75", snap.ByMethod[entity.MethodTransfer].Available, "transfer.available")
	requireDec(t, "250.50", snap.ByMethod[entity.MethodCard].Pending, "card.pending")
	requireDec(t, "94.75", snap.AvailableTotal, "availableTotal")
	requireDec(t, "250.5", snap.PendingTotal, "pendingTotal")
	requireDec(t, "24.75", snap.BankSubtotal.Available, "bank.available")
	requireDec(t, "250.5", snap.BankSubtotal.Pending, "bank.pending")
	requireDec(t, "275.25", snap.BankSubtotal.Total, "bank.total")
}

func TestBalances_PuedeSerNegativo(t *testing.T) {
	uc, _ := newUseCase(t, nil)
	_, err := uc.RecordExpense(context.Background(), appwallet.ExpenseOrigin{Amount: dec("500"), Method: "cash"})
	require.NoError(t, err, "un gasto sin fondos no se rechaza")
	snap, err := uc.Balances(context.Background())
	require.NoError(t, err)
	requireDec(t, "-500", snap.ByMethod[entity.MethodCash].Available, "cash.available")
}

func TestBalances_CacheLeeLoPropioEscrito(t *testing.T) {
	cache := &fakeCache{}
	uc, _ := newUseCase(t, cache)
	ctx := context.Background()

	_, err := uc.Balances(ctx)
	require.NoError(t, err)
	_, err = uc.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits, "la segunda lectura sale de caché")

	_, err = uc.RecordExpense(ctx, appwallet.ExpenseOrigin{Amount: dec("10"), Method: "cash"})
	require.NoError(t, err)
	snap, err := uc.Balances(ctx)
	require.NoError(t, err)
	requireDec(t, "-10", snap.ByMethod[entity.MethodCash].Available, "tras escribir no se sirve el snapshot viejo")
}

func TestBalances_InvalidacionFallida(t *testing.T) {
	cache := &fakeCache{}
	uc, _ := newUseCase(t, cache)
	ctx := context.Background()

	_, err := uc.Balances(ctx)
	require.NoError(t, err)

	cache.setFailInvalidate(true)
	_, err = uc.RecordExpense(ctx, appwallet.ExpenseOrigin{Amount: dec("10"), Method: "cash"})
	require.NoError(t, err, "la falla de caché no afecta la escritura")

	snap, err := uc.Balances(ctx)
	require.NoError(t, err)
	requireDec(t, "-10", snap.ByMethod[entity.MethodCash].Available, "con invalidación fallida se recalcula")

	cache.setFailInvalidate(false)
	snap, err = uc.Balances(ctx)
	require.NoError(t, err)
	requireDec(t, "-10", snap.ByMethod[entity.MethodCash].Available, "tras recuperar la caché sigue coherente")
}

func TestBalances_CacheCaida(t *testing.T) {
	cache := &fakeCache{failGet: true}
	uc, _ := newUseCase(t, cache)
	_, err := uc.RecordExpense(context.Background(), appwallet.ExpenseOrigin{Amount: dec("3"), Method: "card"})
	require.NoError(t, err)
	snap, err := uc.Balances(context.Background())
	require.NoError(t, err)
	requireDec(t, "-3", snap.ByMethod[entity.MethodCard].Available, "card.available")
}

// ──────────────────────────────────────────────────────────────────────────────
// Paginación
// ──────────────────────────────────────────────────────────────────────────────

func seed(t *testing.T, uc *appwallet.UseCase, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := uc.RecordSale(context.Background(), appwallet.SaleOrigin{
			ClientSaleID: fmt.Sprintf("v-%03d", i), Method: "cash", Total: dec("1"),
		})
		require.NoError(t, err)
	}
}

func TestListMovements_RecorridoCompleto(t *testing.T) {
	uc, _ := newUseCase(t, nil)
	seed(t, uc, 23)
	ctx := context.Background()

	seen := map[string]bool{}
	var cursor string
	pages := 0
	var prev *entity.Movement
	for {
		page, err := uc.ListMovements(ctx, 10, cursor)
		require.NoError(t, err)
		pages++
		for _, m := range page.Items {
			assert.False(t, seen[m.ID], "movimiento repetido entre páginas")
			seen[m.ID] = true
			if prev != nil {
				ok := prev.CreatedAt.After(m.CreatedAt) || (prev.CreatedAt.Equal(m.CreatedAt) && prev.ID > m.ID)
				assert.True(t, ok, "orden (createdAt desc, id desc)")
			}
			prev = m
		}
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}
	assert.Len(t, seen, 23)
	assert.Equal(t, 3, pages)
}

func TestListMovements_PaginaExacta(t *testing.T) {
	uc, _ := newUseCase(t, nil)
	seed(t, uc, 10)
	page, err := uc.ListMovements(context.Background(), 10, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.Nil(t, page.NextCursor, "sin más elementos no hay cursor")
}

func TestListMovements_Limites(t *testing.T) {
	uc, _ := newUseCase(t, nil)
	seed(t, uc, 120)
	ctx := context.Background()

	page, err := uc.ListMovements(ctx, 0, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 50, "límite por defecto")

	page, err = uc.ListMovements(ctx, 500, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 100, "límite recortado al máximo")
	assert.NotNil(t, page.NextCursor)
}

func TestListMovements_Vacio(t *testing.T) {
	uc, _ := newUseCase(t, nil)
	page, err := uc.ListMovements(context.Background(), 10, "")
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.NextCursor)
}

func TestListMovements_CursorInvalido(t *testing.T) {
	uc, _ := newUseCase(t, nil)
	_, err := uc.ListMovements(context.Background(), 10, "%%%no-es-cursor")
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}

func TestListMovements_EscriturasConcurrentesNoAlteranPaginasViejas(t *testing.T) {
	uc, _ := newUseCase(t, nil)
	seed(t, uc, 15)
	ctx := context.Background()

	first, err := uc.ListMovements(ctx, 10, "")
	require.NoError(t, err)
	require.NotNil(t, first.NextCursor)

	time.Sleep(2 * time.Millisecond)
	_, err = uc.RecordSale(ctx, appwallet.SaleOrigin{ClientSaleID: "nuevo", Method: "cash", Total: dec("1")})
	require.NoError(t, err)

	second, err := uc.ListMovements(ctx, 10, *first.NextCursor)
	require.NoError(t, err)
	assert.Len(t, second.Items, 5, "el movimiento nuevo queda antes del cursor")
	for _, m := range second.Items {
		assert.NotEqual(t, "nuevo", m.Origin.RefID)
	}
}
