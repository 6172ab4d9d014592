package dto

import (
	"encoding/json"
	"time"

	"github.com/jhoicas/Cartera-api/internal/domain/entity"
)

// ManualMovementRequest captura manual (manual, adjustment o cash_count).
// amount acepta número o texto decimal.
type ManualMovementRequest struct {
	Kind      string          `json:"kind"` // vacío = manual
	Direction string          `json:"direction"`
	Method    string          `json:"method"`
	State     string          `json:"state"` // obligatorio salvo efectivo
	Amount    json.RawMessage `json:"amount"`
	Note      string          `json:"note"`
	Category  string          `json:"category"`
}

// ExpenseRequest gasto directo.
type ExpenseRequest struct {
	Amount   json.RawMessage `json:"amount"`
	Method   string          `json:"method"`
	State    string          `json:"state"`    // vacío = available
	Category string          `json:"category"` // vacío = Insumos
	Supplier string          `json:"supplier"`
	Note     string          `json:"note"`
	RefID    string          `json:"ref_id"`
}

// SettlementRequest liquidación de pendientes (transfer o card).
type SettlementRequest struct {
	Method string          `json:"method"`
	Amount json.RawMessage `json:"amount"`
	Note   string          `json:"note"`
	RefID  string          `json:"ref_id"`
}

// SaleEventRequest venta completada en el POS.
type SaleEventRequest struct {
	ClientSaleID  string          `json:"client_sale_id" validate:"required,max=128"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	Total         json.RawMessage `json:"total" validate:"required"`
	CreatedAt     *time.Time      `json:"created_at"`
}

// PurchaseEventRequest compra de insumos registrada.
type PurchaseEventRequest struct {
	PurchaseID    string          `json:"purchase_id" validate:"required,max=128"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	Total         json.RawMessage `json:"total" validate:"required"`
	Category      string          `json:"category" validate:"max=120"`
	Supplier      string          `json:"supplier" validate:"max=200"`
	CreatedAt     *time.Time      `json:"created_at"`
}

// EventResponse respuesta de los eventos best-effort.
type EventResponse struct {
	OK         bool   `json:"ok"`
	Recorded   bool   `json:"recorded"`
	Duplicate  bool   `json:"duplicate"`
	MovementID string `json:"movement_id,omitempty"`
}

// OriginDTO origen del movimiento.
type OriginDTO struct {
	Type  string `json:"type"`
	RefID string `json:"ref_id,omitempty"`
}

// MovementDTO movimiento en respuestas. Montos como texto decimal.
type MovementDTO struct {
	ID             string    `json:"id"`
	Amount         string    `json:"amount"`
	Direction      string    `json:"direction"`
	Method         string    `json:"method"`
	State          string    `json:"state"`
	Kind           string    `json:"kind"`
	Category       string    `json:"category,omitempty"`
	Supplier       string    `json:"supplier,omitempty"`
	Note           string    `json:"note,omitempty"`
	Origin         OriginDTO `json:"origin"`
	CreatedAt      time.Time `json:"created_at"`
	CreatedByUID   string    `json:"created_by_uid,omitempty"`
	CreatedByEmail string    `json:"created_by_email,omitempty"`
}

// MovementPageResponse página del historial. NextCursor null = no hay más.
type MovementPageResponse struct {
	Items      []MovementDTO `json:"items"`
	NextCursor *string       `json:"next_cursor"`
}

// StateBalanceDTO saldos de un medio de pago.
type StateBalanceDTO struct {
	Available string `json:"available"`
	Pending   string `json:"pending"`
}

// BankSubtotalDTO transferencia + tarjeta.
type BankSubtotalDTO struct {
	Available string `json:"available"`
	Pending   string `json:"pending"`
	Total     string `json:"total"`
}

// BalancesResponse snapshot de saldos.
type BalancesResponse struct {
	ByMethod       map[string]StateBalanceDTO `json:"by_method"`
	AvailableTotal string                     `json:"available_total"`
	PendingTotal   string                     `json:"pending_total"`
	BankSubtotal   BankSubtotalDTO            `json:"bank_subtotal"`
	ComputedAt     time.Time                  `json:"computed_at"`
}

// MovementFromEntity convierte el movimiento a su representación HTTP.
func MovementFromEntity(m *entity.Movement) MovementDTO {
	return MovementDTO{
		ID:             m.ID,
		Amount:         m.Amount.String(),
		Direction:      string(m.Direction),
		Method:         string(m.Method),
		State:          string(m.State),
		Kind:           string(m.Kind),
		Category:       m.Category,
		Supplier:       m.Supplier,
		Note:           m.Note,
		Origin:         OriginDTO{Type: m.Origin.Type, RefID: m.Origin.RefID},
		CreatedAt:      m.CreatedAt,
		CreatedByUID:   m.CreatedByUID,
		CreatedByEmail: m.CreatedByEmail,
	}
}

// MovementsFromEntities convierte una lista; nunca devuelve nil.
func MovementsFromEntities(ms []*entity.Movement) []MovementDTO {
	out := make([]MovementDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, MovementFromEntity(m))
	}
	return out
}

// BalancesFromEntity convierte el snapshot; siempre incluye los tres medios de pago.
func BalancesFromEntity(s *entity.BalanceSnapshot) BalancesResponse {
	byMethod := make(map[string]StateBalanceDTO, len(entity.Methods))
	for _, m := range entity.Methods {
		b := s.ByMethod[m]
		byMethod[string(m)] = StateBalanceDTO{Available: b.Available.String(), Pending: b.Pending.String()}
	}
	return BalancesResponse{
		ByMethod:       byMethod,
		AvailableTotal: s.AvailableTotal.String(),
		PendingTotal:   s.PendingTotal.String(),
		BankSubtotal: BankSubtotalDTO{
			Available: s.BankSubtotal.Available.String(),
			Pending:   s.BankSubtotal.Pending.String(),
			Total:     s.BankSubtotal.Total.String(),
		},
		ComputedAt: s.ComputedAt,
	}
}
