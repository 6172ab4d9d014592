package wallet

import "github.com/jhoicas/Cartera-api/internal/domain/entity"

// PolicyKey combinación (tipo, método) de la tabla de estados por defecto.
type PolicyKey struct {
	Kind   entity.Kind
	Method entity.Method
}

// StatePolicy estado por defecto cuando el origen no indica uno.
// Lo que no está en la tabla queda disponible.
type StatePolicy map[PolicyKey]entity.State

// DefaultStatePolicy: las ventas con tarjeta quedan pendientes hasta que el procesador liquide.
func DefaultStatePolicy() StatePolicy {
	return StatePolicy{
		{Kind: entity.KindSale, Method: entity.MethodCard}: entity.StatePending,
	}
}

// StateFor devuelve el estado por defecto para (kind, method), ya normalizado.
func (p StatePolicy) StateFor(kind entity.Kind, method entity.Method) entity.State {
	st, ok := p[PolicyKey{Kind: kind, Method: method}]
	if !ok {
		st = entity.StateAvailable
	}
	return NormalizeState(method, st)
}

// NormalizeState aplica la regla de negocio: el efectivo nunca está pendiente.
func NormalizeState(method entity.Method, state entity.State) entity.State {
	if method == entity.MethodCash {
		return entity.StateAvailable
	}
	return state
}

// Guarded indica si el tipo tiene una clave natural de origen y pasa por la guarda de idempotencia.
func Guarded(kind entity.Kind) bool {
	return kind == entity.KindSale
}

// NoteRequired indica si el tipo es de captura manual y exige nota.
func NoteRequired(kind entity.Kind) bool {
	return kind == entity.KindManual || kind == entity.KindAdjustment
}
