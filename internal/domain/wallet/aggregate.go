package wallet

import (
	"github.com/jhoicas/Cartera-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

type cell struct {
	method entity.Method
	state  entity.State
}

// Accumulator suma montos con signo agrupando por (método, estado).
// Lo usan los almacenes que no pueden agregar en la base (memoria, SQLite).
type Accumulator struct {
	totals map[cell]decimal.Decimal
}

// NewAccumulator crea un acumulador vacío.
func NewAccumulator() *Accumulator {
	return &Accumulator{totals: make(map[cell]decimal.Decimal)}
}

// Add suma el movimiento a su grupo.
func (a *Accumulator) Add(m *entity.Movement) {
	a.AddSigned(m.Method, m.State, m.Signed())
}

// AddSigned suma un monto ya firmado al grupo (método, estado).
func (a *Accumulator) AddSigned(method entity.Method, state entity.State, signed decimal.Decimal) {
	k := cell{method: method, state: state}
	a.totals[k] = a.totals[k].Add(signed)
}

// Rows devuelve un BalanceRow por grupo con al menos un movimiento, en orden canónico.
func (a *Accumulator) Rows() []entity.BalanceRow {
	rows := make([]entity.BalanceRow, 0, len(a.totals))
	for _, m := range entity.Methods {
		for _, s := range entity.States {
			if t, ok := a.totals[cell{method: m, state: s}]; ok {
				rows = append(rows, entity.BalanceRow{Method: m, State: s, Total: t})
			}
		}
	}
	return rows
}

// Aggregate arma el snapshot de saldos a partir de los totales por (método, estado).
// Las celdas sin movimientos quedan en cero; filas con método o estado desconocido se ignoran.
//
//	availableTotal = Σ available      pendingTotal = Σ pending
//	bank = transfer + card (sin efectivo), bank.total = bank.available + bank.pending
func Aggregate(rows []entity.BalanceRow) entity.BalanceSnapshot {
	byMethod := make(map[entity.Method]entity.StateBalance, len(entity.Methods))
	for _, m := range entity.Methods {
		byMethod[m] = entity.StateBalance{Available: decimal.Zero, Pending: decimal.Zero}
	}
	for _, r := range rows {
		b, ok := byMethod[r.Method]
		if !ok {
			continue
		}
		switch r.State {
		case entity.StateAvailable:
			b.Available = b.Available.Add(r.Total)
		case entity.StatePending:
			b.Pending = b.Pending.Add(r.Total)
		default:
			continue
		}
		byMethod[r.Method] = b
	}

	snap := entity.BalanceSnapshot{
		ByMethod:       byMethod,
		AvailableTotal: decimal.Zero,
		PendingTotal:   decimal.Zero,
	}
	for _, m := range entity.Methods {
		snap.AvailableTotal = snap.AvailableTotal.Add(byMethod[m].Available)
		snap.PendingTotal = snap.PendingTotal.Add(byMethod[m].Pending)
	}
	transfer, card := byMethod[entity.MethodTransfer], byMethod[entity.MethodCard]
	snap.BankSubtotal.Available = transfer.Available.Add(card.Available)
	snap.BankSubtotal.Pending = transfer.Pending.Add(card.Pending)
	snap.BankSubtotal.Total = snap.BankSubtotal.Available.Add(snap.BankSubtotal.Pending)
	return snap
}
