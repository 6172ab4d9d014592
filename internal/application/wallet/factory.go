package wallet

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Cartera-api/internal/domain"
	"github.com/jhoicas/Cartera-api/internal/domain/entity"
	"github.com/jhoicas/Cartera-api/internal/domain/wallet"
)

// Factory valida y normaliza entradas de cualquier origen y construye el Movement canónico.
// No persiste nada: la escritura la hace el UseCase (directo o a través de la guarda).
type Factory struct {
	policy wallet.StatePolicy
	now    func() time.Time
	newID  func() (string, error)
}

// FactoryOption configura el Factory.
type FactoryOption func(*Factory)

// WithStatePolicy reemplaza la tabla de estados por defecto.
func WithStatePolicy(p wallet.StatePolicy) FactoryOption {
	return func(f *Factory) { f.policy = p }
}

// WithClock fija el reloj (tests).
func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) { f.now = now }
}

// WithIDGenerator fija el generador de IDs (tests).
func WithIDGenerator(gen func() (string, error)) FactoryOption {
	return func(f *Factory) { f.newID = gen }
}

// NewFactory construye el Factory con la política por defecto, reloj real e IDs UUIDv7.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		policy: wallet.DefaultStatePolicy(),
		now:    time.Now,
		newID:  newMovementID,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// newMovementID usa UUIDv7: ordenado por tiempo, nunca se reutiliza.
func newMovementID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// CreateMovement valida la entrada y devuelve el movimiento listo para agregar.
// Orden de validación: kind, amount, direction, method, state, note.
// Si method es cash el estado se fuerza a available (normalización, no error).
func (f *Factory) CreateMovement(in MovementInput) (*entity.Movement, error) {
	kind := entity.Kind(strings.TrimSpace(in.Kind))
	if !kind.Valid() {
		return nil, domain.ErrInvalidKind
	}
	if !in.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	direction := entity.Direction(strings.TrimSpace(in.Direction))
	if !direction.Valid() {
		return nil, domain.ErrInvalidDirection
	}
	method := entity.Method(strings.TrimSpace(in.Method))
	if !method.Valid() {
		return nil, domain.ErrInvalidMethod
	}

	var state entity.State
	switch raw := strings.TrimSpace(in.State); {
	case raw != "":
		state = entity.State(raw)
		if !state.Valid() {
			return nil, domain.ErrInvalidState
		}
		state = wallet.NormalizeState(method, state)
	case in.StateRequired && method != entity.MethodCash:
		return nil, domain.ErrInvalidState
	default:
		state = f.policy.StateFor(kind, method)
	}

	note := strings.TrimSpace(in.Note)
	if wallet.NoteRequired(kind) && note == "" {
		return nil, domain.ErrNoteRequired
	}

	id, err := f.newID()
	if err != nil {
		return nil, fmt.Errorf("generar id de movimiento: %w", err)
	}
	createdAt := f.now()
	if in.CreatedAt != nil && !in.CreatedAt.IsZero() {
		createdAt = *in.CreatedAt
	}

	return &entity.Movement{
		ID:        id,
		Amount:    in.Amount,
		Direction: direction,
		Method:    method,
		State:     state,
		Kind:      kind,
		Category:  strings.TrimSpace(in.Category),
		Supplier:  strings.TrimSpace(in.Supplier),
		Note:      note,
		Origin: entity.Origin{
			Type:  strings.TrimSpace(in.Origin.Type),
			RefID: strings.TrimSpace(in.Origin.RefID),
		},
		// los almacenes guardan microsegundos; el cursor debe coincidir con lo persistido
		CreatedAt:      createdAt.UTC().Truncate(time.Microsecond),
		CreatedByUID:   strings.TrimSpace(in.Actor.UID),
		CreatedByEmail: strings.TrimSpace(in.Actor.Email),
	}, nil
}
