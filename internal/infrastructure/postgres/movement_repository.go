package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Cartera-api/internal/domain"
	"github.com/jhoicas/Cartera-api/internal/domain/entity"
	"github.com/jhoicas/Cartera-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepository)(nil)

const movementColumns = `id, amount, direction, method, state, kind, category, supplier, note,
	origin_type, origin_ref_id, created_at, created_by_uid, created_by_email`

// MovementRepository implementación sobre PostgreSQL (usable con pool o tx).
// runner es nil cuando el repositorio ya está atado a una transacción.
type MovementRepository struct {
	q      Querier
	runner *TxRunner
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier); runner habilita AppendBatch
// atómico sobre el pool.
func NewMovementRepository(q Querier, runner *TxRunner) *MovementRepository {
	return &MovementRepository{q: q, runner: runner}
}

// Append persiste un movimiento.
func (r *MovementRepository) Append(ctx context.Context, m *entity.Movement) error {
	query := `INSERT INTO wallet_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query, insertArgs(m)...)
	return storageErr("append wallet movement", err)
}

// AppendBatch persiste todos los movimientos en una sola transacción.
func (r *MovementRepository) AppendBatch(ctx context.Context, ms []*entity.Movement) error {
	if r.runner == nil {
		for _, m := range ms {
			if err := r.Append(ctx, m); err != nil {
				return err
			}
		}
		return nil
	}
	err := r.runner.Run(ctx, func(tx *MovementRepository) error {
		return tx.AppendBatch(ctx, ms)
	})
	var se *domain.StorageError
	if err == nil || errors.As(err, &se) {
		return err
	}
	return storageErr("append wallet batch", err)
}

// InsertIfAbsent inserta con ON CONFLICT DO NOTHING sobre el índice único parcial de ventas.
// Si hubo conflicto, lee el existente: la fila en conflicto ya está confirmada cuando el
// INSERT termina, así que el SELECT siguiente la ve.
func (r *MovementRepository) InsertIfAbsent(ctx context.Context, m *entity.Movement) (*entity.Movement, bool, error) {
	query := `INSERT INTO wallet_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (kind, origin_ref_id) WHERE kind = 'sale' DO NOTHING
		RETURNING id`
	var id string
	err := r.q.QueryRow(ctx, query, insertArgs(m)...).Scan(&id)
	if err == nil {
		stored := *m
		return &stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, storageErr("insert wallet movement", err)
	}

	existing, err := r.q.Query(ctx,
		`SELECT `+movementColumns+` FROM wallet_movements WHERE kind = $1 AND origin_ref_id = $2`,
		string(m.Kind), m.Origin.RefID)
	if err != nil {
		return nil, false, storageErr("find wallet movement by origin", err)
	}
	found, err := collectMovements(existing)
	if err != nil {
		return nil, false, storageErr("find wallet movement by origin", err)
	}
	if len(found) == 0 {
		return nil, false, storageErr("find wallet movement by origin", errors.New("conflicto sin fila existente"))
	}
	return found[0], false, nil
}

// ListPage usa comparación de tuplas (created_at, id) sobre el índice de paginación.
func (r *MovementRepository) ListPage(ctx context.Context, after *entity.PageCursor, limit int) ([]*entity.Movement, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if after == nil {
		rows, err = r.q.Query(ctx, `SELECT `+movementColumns+` FROM wallet_movements
			ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	} else {
		rows, err = r.q.Query(ctx, `SELECT `+movementColumns+` FROM wallet_movements
			WHERE (created_at, id) < ($1, $2)
			ORDER BY created_at DESC, id DESC LIMIT $3`, after.CreatedAt, after.ID, limit)
	}
	if err != nil {
		return nil, storageErr("list wallet movements", err)
	}
	items, err := collectMovements(rows)
	if err != nil {
		return nil, storageErr("list wallet movements", err)
	}
	return items, nil
}

// SumByMethodState agrega en la base: un total con signo por (método, estado).
func (r *MovementRepository) SumByMethodState(ctx context.Context) ([]entity.BalanceRow, error) {
	rows, err := r.q.Query(ctx, `
		SELECT method, state,
			SUM(CASE WHEN direction = 'in' THEN amount ELSE -amount END) AS total
		FROM wallet_movements
		GROUP BY method, state`)
	if err != nil {
		return nil, storageErr("sum wallet balances", err)
	}
	defer rows.Close()

	var out []entity.BalanceRow
	for rows.Next() {
		var method, state string
		var row entity.BalanceRow
		if err := rows.Scan(&method, &state, &row.Total); err != nil {
			return nil, storageErr("sum wallet balances", err)
		}
		row.Method, row.State = entity.Method(method), entity.State(state)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("sum wallet balances", err)
	}
	return out, nil
}

func insertArgs(m *entity.Movement) []any {
	return []any{
		m.ID, m.Amount, string(m.Direction), string(m.Method), string(m.State), string(m.Kind),
		m.Category, m.Supplier, m.Note, m.Origin.Type, m.Origin.RefID,
		m.CreatedAt, m.CreatedByUID, m.CreatedByEmail,
	}
}

func collectMovements(rows pgx.Rows) ([]*entity.Movement, error) {
	defer rows.Close()
	var out []*entity.Movement
	for rows.Next() {
		var m entity.Movement
		var direction, method, state, kind string
		var createdAt time.Time
		if err := rows.Scan(
			&m.ID, &m.Amount, &direction, &method, &state, &kind,
			&m.Category, &m.Supplier, &m.Note, &m.Origin.Type, &m.Origin.RefID,
			&createdAt, &m.CreatedByUID, &m.CreatedByEmail,
		); err != nil {
			return nil, err
		}
		m.Direction = entity.Direction(direction)
		m.Method = entity.Method(method)
		m.State = entity.State(state)
		m.Kind = entity.Kind(kind)
		m.CreatedAt = createdAt.UTC()
		out = append(out, &m)
	}
	return out, rows.Err()
}
