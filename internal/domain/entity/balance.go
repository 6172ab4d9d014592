package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceRow total con signo de un grupo (método, estado). Lo produce el almacén al agregar.
type BalanceRow struct {
	Method Method
	State  State
	Total  decimal.Decimal
}

// StateBalance saldo disponible y pendiente de un medio de pago.
type StateBalance struct {
	Available decimal.Decimal
	Pending   decimal.Decimal
}

// BankSubtotal saldo de los medios no efectivo (transferencia + tarjeta).
type BankSubtotal struct {
	Available decimal.Decimal
	Pending   decimal.Decimal
	Total     decimal.Decimal
}

// BalanceSnapshot saldos derivados del historial completo de movimientos.
type BalanceSnapshot struct {
	ByMethod       map[Method]StateBalance
	AvailableTotal decimal.Decimal
	PendingTotal   decimal.Decimal
	BankSubtotal   BankSubtotal
	ComputedAt     time.Time
}

// PageCursor posición (createdAt, id) del último elemento de una página.
type PageCursor struct {
	CreatedAt time.Time
	ID        string
}
