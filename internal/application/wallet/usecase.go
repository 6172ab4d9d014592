package wallet

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/jhoicas/Cartera-api/internal/domain"
	"github.com/jhoicas/Cartera-api/internal/domain/entity"
	"github.com/jhoicas/Cartera-api/internal/domain/repository"
	"github.com/jhoicas/Cartera-api/internal/domain/wallet"
	"github.com/jhoicas/Cartera-api/pkg/logger"
)

// Config límites de paginación del listado de movimientos.
type Config struct {
	PageDefault int
	PageMax     int
}

// Page página del listado. NextCursor es nil cuando no hay más movimientos.
type Page struct {
	Items      []*entity.Movement
	NextCursor *string
}

// UseCase orquesta la cartera: construye movimientos con el Factory, los agrega (pasando por la
// guarda cuando el tipo tiene clave de origen), calcula saldos y pagina el historial.
type UseCase struct {
	repo    repository.MovementRepository
	factory *Factory
	guard   *IdempotencyGuard
	cache   BalanceCache
	log     *logger.Logger

	pageDefault int
	pageMax     int

	// cacheDirty se activa cuando una invalidación falló: los saldos se recalculan
	// sin caché hasta que una invalidación posterior tenga éxito.
	cacheDirty atomic.Bool
}

// NewUseCase construye el caso de uso. cache nil deshabilita la caché de saldos.
func NewUseCase(repo repository.MovementRepository, factory *Factory, cache BalanceCache, log *logger.Logger, cfg Config) *UseCase {
	if factory == nil {
		factory = NewFactory()
	}
	if cache == nil {
		cache = NoopCache{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.PageDefault <= 0 {
		cfg.PageDefault = 50
	}
	if cfg.PageMax <= 0 {
		cfg.PageMax = 100
	}
	if cfg.PageDefault > cfg.PageMax {
		cfg.PageDefault = cfg.PageMax
	}
	return &UseCase{
		repo:        repo,
		factory:     factory,
		guard:       NewIdempotencyGuard(repo),
		cache:       cache,
		log:         log.Component("wallet"),
		pageDefault: cfg.PageDefault,
		pageMax:     cfg.PageMax,
	}
}

// CreateMovement valida, construye y agrega un movimiento. Los tipos con clave de origen
// (ventas) pasan por la guarda: un reintento devuelve el existente con Duplicate=true.
func (uc *UseCase) CreateMovement(ctx context.Context, in MovementInput) (*Result, error) {
	if wallet.Guarded(entity.Kind(in.Kind)) {
		key := OriginKey{Kind: entity.Kind(in.Kind), RefID: strings.TrimSpace(in.Origin.RefID)}
		res, err := uc.guard.EnsureOnce(ctx, key, func() (*entity.Movement, error) {
			return uc.factory.CreateMovement(in)
		})
		if err != nil {
			return nil, err
		}
		if !res.Duplicate {
			uc.invalidateBalances(ctx)
		}
		return res, nil
	}

	m, err := uc.factory.CreateMovement(in)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Append(ctx, m); err != nil {
		return nil, err
	}
	uc.invalidateBalances(ctx)
	return &Result{Movement: m}, nil
}

// RecordSale registra la entrada de una venta. Idempotente por ClientSaleID.
func (uc *UseCase) RecordSale(ctx context.Context, s SaleOrigin) (*Result, error) {
	return uc.CreateMovement(ctx, s.input())
}

// RecordPurchase registra la salida de una compra de insumos.
func (uc *UseCase) RecordPurchase(ctx context.Context, p PurchaseOrigin) (*entity.Movement, error) {
	res, err := uc.CreateMovement(ctx, p.input())
	if err != nil {
		return nil, err
	}
	return res.Movement, nil
}

// RecordExpense registra un gasto capturado en la cartera.
func (uc *UseCase) RecordExpense(ctx context.Context, e ExpenseOrigin) (*entity.Movement, error) {
	res, err := uc.CreateMovement(ctx, e.input())
	if err != nil {
		return nil, err
	}
	return res.Movement, nil
}

// RecordManual registra una captura manual (manual, adjustment o cash_count).
func (uc *UseCase) RecordManual(ctx context.Context, m ManualOrigin) (*entity.Movement, error) {
	in, err := m.input()
	if err != nil {
		return nil, err
	}
	res, err := uc.CreateMovement(ctx, in)
	if err != nil {
		return nil, err
	}
	return res.Movement, nil
}

// RecordSettlement pasa fondos de pendiente a disponible para transferencia o tarjeta:
// una salida pending y una entrada available por el mismo monto, agregadas juntas.
// El efectivo nunca está pendiente, así que no se liquida.
func (uc *UseCase) RecordSettlement(ctx context.Context, s SettlementOrigin) ([]*entity.Movement, error) {
	method := entity.Method(s.Method)
	if !method.Valid() || method == entity.MethodCash {
		return nil, domain.ErrInvalidMethod
	}
	base := MovementInput{
		Amount: s.Amount,
		Method: s.Method,
		Kind:   string(entity.KindSettlement),
		Note:   s.Note,
		Origin: entity.Origin{Type: entity.OriginSettlement, RefID: s.RefID},
		Actor:  s.Actor,
	}

	out := base
	out.Direction = string(entity.DirectionOut)
	out.State = string(entity.StatePending)
	release, err := uc.factory.CreateMovement(out)
	if err != nil {
		return nil, err
	}

	in := base
	in.Direction = string(entity.DirectionIn)
	in.State = string(entity.StateAvailable)
	in.CreatedAt = &release.CreatedAt
	credit, err := uc.factory.CreateMovement(in)
	if err != nil {
		return nil, err
	}

	batch := []*entity.Movement{release, credit}
	if err := uc.repo.AppendBatch(ctx, batch); err != nil {
		return nil, err
	}
	uc.invalidateBalances(ctx)
	return batch, nil
}

// Balances devuelve el snapshot de saldos. Usa la caché cuando está sana; si no, recalcula
// desde el almacén. Siempre refleja todos los movimientos agregados antes de la llamada.
func (uc *UseCase) Balances(ctx context.Context) (*entity.BalanceSnapshot, error) {
	useCache := uc.cacheUsable(ctx)
	var gen int64
	if useCache {
		snap, current, ok, err := uc.cache.Get(ctx)
		switch {
		case err != nil:
			uc.log.Warn().Err(err).Msg("caché de saldos no disponible, se recalcula")
			useCache = false
		case ok:
			return snap, nil
		default:
			gen = current
		}
	}

	rows, err := uc.repo.SumByMethodState(ctx)
	if err != nil {
		return nil, err
	}
	snap := wallet.Aggregate(rows)
	snap.ComputedAt = uc.factory.now().UTC()

	if useCache {
		if err := uc.cache.Store(ctx, gen, &snap); err != nil {
			uc.log.Warn().Err(err).Int64("gen", gen).Msg("no se pudo guardar el snapshot de saldos")
		}
	}
	return &snap, nil
}

// ListMovements devuelve una página del historial (más reciente primero).
// limit <= 0 usa el valor por defecto; valores mayores al máximo se recortan.
// Se pide un elemento de más para saber si hay página siguiente.
func (uc *UseCase) ListMovements(ctx context.Context, limit int, cursor string) (*Page, error) {
	limit = wallet.ClampLimit(limit, uc.pageDefault, uc.pageMax)

	var after *entity.PageCursor
	if cursor != "" {
		c, err := wallet.DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		after = &c
	}

	items, err := uc.repo.ListPage(ctx, after, limit+1)
	if err != nil {
		return nil, err
	}
	page := &Page{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		next := wallet.EncodeCursor(wallet.CursorOf(page.Items[limit-1]))
		page.NextCursor = &next
	}
	if page.Items == nil {
		page.Items = []*entity.Movement{}
	}
	return page, nil
}

func (uc *UseCase) invalidateBalances(ctx context.Context) {
	if err := uc.cache.Invalidate(ctx); err != nil {
		uc.cacheDirty.Store(true)
		uc.log.Warn().Err(err).Msg("no se pudo invalidar la caché de saldos; se omite hasta recuperar")
	}
}

func (uc *UseCase) cacheUsable(ctx context.Context) bool {
	if !uc.cacheDirty.Load() {
		return true
	}
	if err := uc.cache.Invalidate(ctx); err != nil {
		return false
	}
	uc.cacheDirty.Store(false)
	return true
}
