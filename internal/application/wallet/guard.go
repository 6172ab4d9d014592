package wallet

import (
	"context"
	"fmt"

	"github.com/jhoicas/Cartera-api/internal/domain"
	"github.com/jhoicas/Cartera-api/internal/domain/entity"
	"github.com/jhoicas/Cartera-api/internal/domain/repository"
)

// OriginKey clave de idempotencia: (kind, origin.refId).
type OriginKey struct {
	Kind  entity.Kind
	RefID string
}

// Result movimiento persistido y si la llamada fue un reintento del mismo origen.
type Result struct {
	Movement  *entity.Movement
	Duplicate bool
}

// IdempotencyGuard garantiza como máximo un movimiento por evento de negocio de origen
// (ej. una venta reenviada por el POS offline). El find-or-insert lo resuelve el almacén
// en una sola operación atómica, nunca leer-y-luego-escribir.
type IdempotencyGuard struct {
	repo repository.MovementRepository
}

// NewIdempotencyGuard construye la guarda sobre el almacén.
func NewIdempotencyGuard(repo repository.MovementRepository) *IdempotencyGuard {
	return &IdempotencyGuard{repo: repo}
}

// EnsureOnce construye el movimiento con build y lo inserta solo si no existe otro con la misma clave.
// Si ya existía devuelve el existente con Duplicate=true y no escribe nada.
// Los errores de build (validación) se devuelven sin tocar el almacén.
func (g *IdempotencyGuard) EnsureOnce(ctx context.Context, key OriginKey, build func() (*entity.Movement, error)) (*Result, error) {
	if key.RefID == "" {
		return nil, fmt.Errorf("%w: referencia de origen requerida para %s", domain.ErrInvalidInput, key.Kind)
	}
	m, err := build()
	if err != nil {
		return nil, err
	}
	if m.Kind != key.Kind || m.Origin.RefID != key.RefID {
		return nil, fmt.Errorf("%w: el movimiento no corresponde a la clave de origen", domain.ErrInvalidInput)
	}
	stored, created, err := g.repo.InsertIfAbsent(ctx, m)
	if err != nil {
		return nil, err
	}
	return &Result{Movement: stored, Duplicate: !created}, nil
}
