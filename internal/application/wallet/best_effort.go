package wallet

import (
	"context"

	"github.com/jhoicas/Cartera-api/internal/domain"
	"github.com/jhoicas/Cartera-api/internal/domain/entity"
)

// Outcome resultado de un registro best-effort. Err nunca se propaga al flujo que lo disparó
// (la venta o la compra ya quedaron registradas); se registra en el log y se devuelve para
// que el llamador decida cómo informarlo.
type Outcome struct {
	Movement  *entity.Movement
	Duplicate bool
	Err       error
}

// Recorded indica si la cartera quedó con el movimiento (nuevo o ya existente).
func (o Outcome) Recorded() bool {
	return o.Err == nil && o.Movement != nil
}

// TrySale registra la venta en la cartera sin fallar nunca al llamador.
func (uc *UseCase) TrySale(ctx context.Context, s SaleOrigin) Outcome {
	res, err := uc.RecordSale(ctx, s)
	if err != nil {
		uc.reportSkipped(err, s.input())
		return Outcome{Err: err}
	}
	if res.Duplicate {
		uc.log.Debug().Str("client_sale_id", s.ClientSaleID).Str("movement_id", res.Movement.ID).Msg("venta ya registrada en cartera")
	}
	return Outcome{Movement: res.Movement, Duplicate: res.Duplicate}
}

// TryPurchase registra la compra en la cartera sin fallar nunca al llamador.
func (uc *UseCase) TryPurchase(ctx context.Context, p PurchaseOrigin) Outcome {
	m, err := uc.RecordPurchase(ctx, p)
	if err != nil {
		uc.reportSkipped(err, p.input())
		return Outcome{Err: err}
	}
	return Outcome{Movement: m}
}

// reportSkipped deja en el log lo necesario para conciliar el hueco en la cartera.
func (uc *UseCase) reportSkipped(err error, in MovementInput) {
	uc.log.Error().Err(err).
		Bool("validation", domain.IsValidation(err)).
		Str("origin_type", in.Origin.Type).
		Str("ref_id", in.Origin.RefID).
		Str("kind", in.Kind).
		Str("method", in.Method).
		Str("amount", in.Amount.String()).
		Msg("movimiento de cartera no registrado")
}
