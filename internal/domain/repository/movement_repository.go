package repository

import (
	"context"

	"github.com/jhoicas/Cartera-api/internal/domain/entity"
)

// MovementRepository puerto de persistencia de la cartera. Es append-only: no hay Update ni Delete.
// Las fallas de infraestructura se devuelven como *domain.StorageError.
type MovementRepository interface {
	// Append agrega un movimiento.
	Append(ctx context.Context, m *entity.Movement) error

	// AppendBatch agrega varios movimientos de forma atómica (todos o ninguno).
	AppendBatch(ctx context.Context, ms []*entity.Movement) error

	// InsertIfAbsent agrega m salvo que ya exista un movimiento con el mismo (kind, origin.refId).
	// La búsqueda y la inserción son una sola operación atómica del almacén.
	// Devuelve el movimiento persistido (el nuevo o el existente) y si fue creado.
	InsertIfAbsent(ctx context.Context, m *entity.Movement) (*entity.Movement, bool, error)

	// ListPage devuelve hasta limit movimientos en orden (createdAt DESC, id DESC),
	// estrictamente posteriores a after si no es nil.
	ListPage(ctx context.Context, after *entity.PageCursor, limit int) ([]*entity.Movement, error)

	// SumByMethodState devuelve el total con signo por (método, estado). Solo lectura.
	SumByMethodState(ctx context.Context) ([]entity.BalanceRow, error)
}
