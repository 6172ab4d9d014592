package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
)

// Errores de validación de movimientos de cartera. Se reportan al llamador y no escriben nada.
var (
	ErrInvalidAmount    = errors.New("monto inválido")
	ErrInvalidDirection = errors.New("dirección inválida")
	ErrInvalidMethod    = errors.New("método de pago inválido")
	ErrInvalidState     = errors.New("estado inválido")
	ErrInvalidKind      = errors.New("tipo de movimiento inválido")
	ErrNoteRequired     = errors.New("la nota es obligatoria")
	ErrInvalidCursor    = errors.New("cursor inválido")
)

// ErrStorage identifica fallas de infraestructura al leer o escribir la cartera.
var ErrStorage = errors.New("almacenamiento no disponible")

// StorageError envuelve una falla del almacén indicando la operación que la produjo.
// errors.Is(err, ErrStorage) es verdadero para cualquier *StorageError.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError construye el error; devuelve nil si err es nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is permite errors.Is(err, ErrStorage).
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// IsValidation indica si err es un error de validación de entrada (error del llamador).
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidDirection) ||
		errors.Is(err, ErrInvalidMethod) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrNoteRequired) ||
		errors.Is(err, ErrInvalidCursor) ||
		errors.Is(err, ErrInvalidInput)
}
