// Package memory implementa el almacén de la cartera en memoria (desarrollo y tests).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/Cartera-api/internal/domain/entity"
	"github.com/jhoicas/Cartera-api/internal/domain/repository"
	"github.com/jhoicas/Cartera-api/internal/domain/wallet"
)

var _ repository.MovementRepository = (*MovementRepository)(nil)

type originKey struct {
	kind  entity.Kind
	refID string
}

// MovementRepository almacén append-only en memoria. movements se mantiene ordenado
// (createdAt DESC, id DESC) para que la paginación sea una búsqueda binaria.
type MovementRepository struct {
	mu        sync.RWMutex
	movements []*entity.Movement
	byOrigin  map[originKey]*entity.Movement
}

// NewMovementRepository crea un almacén vacío.
func NewMovementRepository() *MovementRepository {
	return &MovementRepository{byOrigin: make(map[originKey]*entity.Movement)}
}

// Append agrega un movimiento.
func (r *MovementRepository) Append(_ context.Context, m *entity.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendLocked(m)
	return nil
}

// AppendBatch agrega todos los movimientos bajo el mismo lock.
func (r *MovementRepository) AppendBatch(_ context.Context, ms []*entity.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range ms {
		r.appendLocked(m)
	}
	return nil
}

// InsertIfAbsent busca e inserta bajo el mismo lock exclusivo.
func (r *MovementRepository) InsertIfAbsent(_ context.Context, m *entity.Movement) (*entity.Movement, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byOrigin[originKey{kind: m.Kind, refID: m.Origin.RefID}]; ok {
		return clone(existing), false, nil
	}
	r.appendLocked(m)
	return clone(m), true, nil
}

func (r *MovementRepository) appendLocked(m *entity.Movement) {
	stored := clone(m)
	i := sort.Search(len(r.movements), func(i int) bool {
		return wallet.Newer(stored, r.movements[i])
	})
	r.movements = append(r.movements, nil)
	copy(r.movements[i+1:], r.movements[i:])
	r.movements[i] = stored

	if wallet.Guarded(stored.Kind) && stored.Origin.RefID != "" {
		k := originKey{kind: stored.Kind, refID: stored.Origin.RefID}
		if _, ok := r.byOrigin[k]; !ok {
			r.byOrigin[k] = stored
		}
	}
}

// ListPage devuelve hasta limit movimientos posteriores al cursor.
func (r *MovementRepository) ListPage(_ context.Context, after *entity.PageCursor, limit int) ([]*entity.Movement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := 0
	if after != nil {
		start = sort.Search(len(r.movements), func(i int) bool {
			return wallet.After(r.movements[i], *after)
		})
	}
	end := start + limit
	if end > len(r.movements) {
		end = len(r.movements)
	}
	out := make([]*entity.Movement, 0, end-start)
	for _, m := range r.movements[start:end] {
		out = append(out, clone(m))
	}
	return out, nil
}

// SumByMethodState recorre todo el historial.
func (r *MovementRepository) SumByMethodState(_ context.Context) ([]entity.BalanceRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc := wallet.NewAccumulator()
	for _, m := range r.movements {
		acc.Add(m)
	}
	return acc.Rows(), nil
}

// Len cantidad de movimientos almacenados.
func (r *MovementRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.movements)
}

func clone(m *entity.Movement) *entity.Movement {
	c := *m
	return &c
}
