package wallet

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/Cartera-api/internal/domain"
	"github.com/jhoicas/Cartera-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Actor usuario que registra el movimiento (auditoría).
type Actor struct {
	UID   string
	Email string
}

// MovementInput entrada laxa del Factory. Los enumerados llegan como texto y se validan en CreateMovement.
// State vacío significa "según la política" salvo que StateRequired esté activo (captura manual:
// el usuario debe indicarlo, excepto en efectivo). CreatedAt nil significa "ahora".
type MovementInput struct {
	Amount        decimal.Decimal
	Direction     string
	Method        string
	State         string
	StateRequired bool
	Kind          string
	Category      string
	Supplier      string
	Note          string
	Origin        entity.Origin
	CreatedAt     *time.Time
	Actor         Actor
}

// SaleOrigin venta completada en el POS. ClientSaleID es el id generado por el cliente
// (puede reenviarse tras un corte de red) y es la clave de idempotencia.
type SaleOrigin struct {
	ClientSaleID string
	Method       string
	Total        decimal.Decimal
	At           *time.Time
	Actor        Actor
}

func (s SaleOrigin) input() MovementInput {
	return MovementInput{
		Amount:    s.Total,
		Direction: string(entity.DirectionIn),
		Method:    s.Method,
		Kind:      string(entity.KindSale),
		Origin:    entity.Origin{Type: entity.OriginSale, RefID: strings.TrimSpace(s.ClientSaleID)},
		CreatedAt: s.At,
		Actor:     s.Actor,
	}
}

// PurchaseOrigin compra de insumos registrada. Los gastos siempre salen de disponible.
type PurchaseOrigin struct {
	PurchaseID string
	Method     string
	Total      decimal.Decimal
	Category   string
	Supplier   string
	At         *time.Time
	Actor      Actor
}

func (p PurchaseOrigin) input() MovementInput {
	return MovementInput{
		Amount:    p.Total,
		Direction: string(entity.DirectionOut),
		Method:    p.Method,
		State:     string(entity.StateAvailable),
		Kind:      string(entity.KindExpense),
		Category:  p.Category,
		Supplier:  p.Supplier,
		Origin:    entity.Origin{Type: entity.OriginPurchase, RefID: strings.TrimSpace(p.PurchaseID)},
		CreatedAt: p.At,
		Actor:     p.Actor,
	}
}

// DefaultExpenseCategory categoría de los gastos capturados sin categoría.
const DefaultExpenseCategory = "Insumos"

// ExpenseOrigin gasto capturado directamente en la cartera.
type ExpenseOrigin struct {
	Amount   decimal.Decimal
	Method   string
	State    string // vacío = available
	Category string
	Supplier string
	Note     string
	RefID    string
	Actor    Actor
}

func (e ExpenseOrigin) input() MovementInput {
	category := strings.TrimSpace(e.Category)
	if category == "" {
		category = DefaultExpenseCategory
	}
	state := e.State
	if state == "" {
		state = string(entity.StateAvailable)
	}
	return MovementInput{
		Amount:    e.Amount,
		Direction: string(entity.DirectionOut),
		Method:    e.Method,
		State:     state,
		Kind:      string(entity.KindExpense),
		Category:  category,
		Supplier:  e.Supplier,
		Note:      e.Note,
		Origin:    entity.Origin{Type: entity.OriginExpense, RefID: strings.TrimSpace(e.RefID)},
		Actor:     e.Actor,
	}
}

// ManualOrigin captura manual de un usuario (manual, adjustment o cash_count).
// Cada envío es un movimiento nuevo e intencional; no pasa por la guarda de idempotencia.
type ManualOrigin struct {
	Kind      string
	Direction string
	Method    string
	State     string
	Amount    decimal.Decimal
	Note      string
	Category  string
	Actor     Actor
}

// manualKinds tipos aceptados desde la captura manual.
var manualKinds = map[entity.Kind]string{
	entity.KindManual:     entity.OriginManual,
	entity.KindAdjustment: entity.OriginManual,
	entity.KindCashCount:  entity.OriginCashCount,
}

func (m ManualOrigin) input() (MovementInput, error) {
	kind := entity.Kind(m.Kind)
	if kind == "" {
		kind = entity.KindManual
	}
	originType, ok := manualKinds[kind]
	if !ok {
		return MovementInput{}, domain.ErrInvalidKind
	}
	return MovementInput{
		Amount:        m.Amount,
		Direction:     m.Direction,
		Method:        m.Method,
		State:         m.State,
		StateRequired: true,
		Kind:          string(kind),
		Category:      m.Category,
		Note:          m.Note,
		Origin:        entity.Origin{Type: originType},
		Actor:         m.Actor,
	}, nil
}

// SettlementOrigin liquidación de fondos pendientes (tarjeta o transferencia) a disponibles.
type SettlementOrigin struct {
	Method string
	Amount decimal.Decimal
	Note   string
	RefID  string
	Actor  Actor
}

// ParseAmount convierte un monto JSON (número o texto) a decimal.
// Falla con ErrInvalidAmount si no es un número finito.
func ParseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	if strings.HasPrefix(s, `"`) {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return decimal.Zero, domain.ErrInvalidAmount
		}
		s = strings.TrimSpace(unq)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	return d, nil
}
