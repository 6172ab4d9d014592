package wallet

import (
	"context"

	"github.com/jhoicas/Cartera-api/internal/domain/entity"
)

// BalanceCache vista derivada e invalidable del snapshot de saldos. Nunca es autoritativa.
//
// Cada snapshot se guarda etiquetado con la generación vigente al empezar a calcularlo;
// Invalidate avanza la generación, así un cálculo concurrente que termine tarde no se sirve.
type BalanceCache interface {
	// Get devuelve el snapshot si corresponde a la generación actual, y la generación actual.
	Get(ctx context.Context) (snap *entity.BalanceSnapshot, gen int64, ok bool, err error)
	// Store guarda el snapshot calculado bajo la generación gen.
	Store(ctx context.Context, gen int64, snap *entity.BalanceSnapshot) error
	// Invalidate avanza la generación.
	Invalidate(ctx context.Context) error
}

// NoopCache caché deshabilitada: siempre recalcula.
type NoopCache struct{}

func (NoopCache) Get(context.Context) (*entity.BalanceSnapshot, int64, bool, error) {
	return nil, 0, false, nil
}

func (NoopCache) Store(context.Context, int64, *entity.BalanceSnapshot) error { return nil }

func (NoopCache) Invalidate(context.Context) error { return nil }
