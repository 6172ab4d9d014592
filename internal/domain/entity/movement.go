package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction sentido del movimiento: in suma, out resta.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Method medio de pago por el que se movió el dinero.
type Method string

const (
	MethodCash     Method = "cash"
	MethodTransfer Method = "transfer"
	MethodCard     Method = "card"
)

// Methods orden canónico de los medios de pago.
var Methods = []Method{MethodCash, MethodTransfer, MethodCard}

// State estado de liquidación de los fondos.
type State string

const (
	StateAvailable State = "available" // disponible ya
	StatePending   State = "pending"   // prometido, aún sin liquidar (ej. pagos con tarjeta)
)

// States orden canónico de los estados.
var States = []State{StateAvailable, StatePending}

// Kind evento de negocio que originó el movimiento. Solo informativo; no afecta los saldos.
type Kind string

const (
	KindSale       Kind = "sale"
	KindExpense    Kind = "expense"
	KindManual     Kind = "manual"
	KindCashCount  Kind = "cash_count"
	KindAdjustment Kind = "adjustment"
	KindSettlement Kind = "settlement"
)

// Tipos de origen (registro de negocio que disparó el movimiento).
const (
	OriginSale       = "sale"
	OriginExpense    = "expense"
	OriginManual     = "manual"
	OriginPurchase   = "purchase"
	OriginCashCount  = "cash_count"
	OriginSettlement = "settlement"
)

// Origin referencia al registro de negocio que originó el movimiento.
// RefID es, por ejemplo, el clientSaleId generado por el POS.
type Origin struct {
	Type  string
	RefID string
}

// Movement asiento inmutable de la cartera. Una vez agregado al almacén no se modifica ni se borra;
// las correcciones se hacen con movimientos nuevos (kind adjustment).
type Movement struct {
	ID             string
	Amount         decimal.Decimal // siempre > 0; el signo lo da Direction
	Direction      Direction
	Method         Method
	State          State
	Kind           Kind
	Category       string
	Supplier       string
	Note           string
	Origin         Origin
	CreatedAt      time.Time
	CreatedByUID   string
	CreatedByEmail string
}

// Signed devuelve el monto con signo: +amount para in, -amount para out.
func (m *Movement) Signed() decimal.Decimal {
	if m.Direction == DirectionOut {
		return m.Amount.Neg()
	}
	return m.Amount
}

// Valid* indican si el valor pertenece al enumerado.

func (d Direction) Valid() bool { return d == DirectionIn || d == DirectionOut }

func (m Method) Valid() bool {
	return m == MethodCash || m == MethodTransfer || m == MethodCard
}

func (s State) Valid() bool { return s == StateAvailable || s == StatePending }

func (k Kind) Valid() bool {
	switch k {
	case KindSale, KindExpense, KindManual, KindCashCount, KindAdjustment, KindSettlement:
		return true
	}
	return false
}
