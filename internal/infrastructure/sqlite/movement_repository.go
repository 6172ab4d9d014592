/*
Package sqlite implementa el almacén de la cartera sobre SQLite para despliegues de una sola caja
(el POS offline con su base local) y para desarrollo.

Montos como TEXT decimal y agregación en Go: SQLite no tiene NUMERIC exacto y SUM() sobre REAL
perdería centavos. created_at se guarda con ancho fijo en UTC (microsegundos), así el orden
lexicográfico de la columna coincide con el cronológico y el cursor compara bien.

La guarda de idempotencia de ventas es el índice único parcial (kind, origin_ref_id) con
INSERT OR IGNORE: búsqueda e inserción en una sola sentencia.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Cartera-api/internal/domain"
	"github.com/jhoicas/Cartera-api/internal/domain/entity"
	"github.com/jhoicas/Cartera-api/internal/domain/repository"
	"github.com/jhoicas/Cartera-api/internal/domain/wallet"
)

var _ repository.MovementRepository = (*MovementRepository)(nil)

// timeLayout ancho fijo: ordenable como texto.
const timeLayout = "2006-01-02T15:04:05.000000Z"

const movementColumns = `id, amount, direction, method, state, kind, category, supplier, note,
	origin_type, origin_ref_id, created_at, created_by_uid, created_by_email`

// MovementRepository almacén append-only sobre SQLite.
type MovementRepository struct {
	db *sql.DB
}

// Open abre (o crea) la base en path con WAL y migra el esquema.
func Open(path string) (*MovementRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("abrir base sqlite: %w", err)
	}
	// un solo escritor: evita SQLITE_BUSY entre conexiones del mismo proceso
	db.SetMaxOpenConns(1)

	r := &MovementRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrar base sqlite: %w", err)
	}
	return r, nil
}

// Close cierra la base.
func (r *MovementRepository) Close() error {
	return r.db.Close()
}

// Ping verifica la conexión (health).
func (r *MovementRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *MovementRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS wallet_movements (
		id               TEXT PRIMARY KEY,
		amount           TEXT NOT NULL,
		direction        TEXT NOT NULL CHECK (direction IN ('in', 'out')),
		method           TEXT NOT NULL CHECK (method IN ('cash', 'transfer', 'card')),
		state            TEXT NOT NULL CHECK (state IN ('available', 'pending')),
		kind             TEXT NOT NULL,
		category         TEXT NOT NULL DEFAULT '',
		supplier         TEXT NOT NULL DEFAULT '',
		note             TEXT NOT NULL DEFAULT '',
		origin_type      TEXT NOT NULL DEFAULT '',
		origin_ref_id    TEXT NOT NULL DEFAULT '',
		created_at       TEXT NOT NULL,
		created_by_uid   TEXT NOT NULL DEFAULT '',
		created_by_email TEXT NOT NULL DEFAULT '',
		CHECK (method <> 'cash' OR state = 'available')
	);

	CREATE INDEX IF NOT EXISTS idx_wallet_movements_page
		ON wallet_movements (created_at DESC, id DESC);

	CREATE UNIQUE INDEX IF NOT EXISTS ux_wallet_movements_sale_origin
		ON wallet_movements (kind, origin_ref_id) WHERE kind = 'sale';

	CREATE INDEX IF NOT EXISTS idx_wallet_movements_method_state
		ON wallet_movements (method, state);
	`
	_, err := r.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Append agrega un movimiento.
func (r *MovementRepository) Append(ctx context.Context, m *entity.Movement) error {
	return domain.NewStorageError("append wallet movement", r.insert(ctx, r.db, "INSERT", m))
}

// AppendBatch agrega todos los movimientos en una transacción.
func (r *MovementRepository) AppendBatch(ctx context.Context, ms []*entity.Movement) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("append wallet batch", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range ms {
		if err := r.insert(ctx, tx, "INSERT", m); err != nil {
			return domain.NewStorageError("append wallet batch", err)
		}
	}
	return domain.NewStorageError("append wallet batch", tx.Commit())
}

// InsertIfAbsent INSERT OR IGNORE sobre el índice único de ventas; si no afectó filas, lee el existente.
func (r *MovementRepository) InsertIfAbsent(ctx context.Context, m *entity.Movement) (*entity.Movement, bool, error) {
	res, err := r.insertResult(ctx, r.db, "INSERT OR IGNORE", m)
	if err != nil {
		return nil, false, domain.NewStorageError("insert wallet movement", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, domain.NewStorageError("insert wallet movement", err)
	}
	if n == 1 {
		stored := *m
		return &stored, true, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM wallet_movements WHERE kind = ? AND origin_ref_id = ?`,
		string(m.Kind), m.Origin.RefID)
	if err != nil {
		return nil, false, domain.NewStorageError("find wallet movement by origin", err)
	}
	found, err := scanMovements(rows)
	if err != nil {
		return nil, false, domain.NewStorageError("find wallet movement by origin", err)
	}
	if len(found) == 0 {
		// INSERT OR IGNORE también ignora violaciones de CHECK o de PK
		return nil, false, domain.NewStorageError("insert wallet movement", fmt.Errorf("movimiento %s rechazado por el almacén", m.ID))
	}
	return found[0], false, nil
}

// ListPage página en orden (created_at DESC, id DESC).
func (r *MovementRepository) ListPage(ctx context.Context, after *entity.PageCursor, limit int) ([]*entity.Movement, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if after == nil {
		rows, err = r.db.QueryContext(ctx, `SELECT `+movementColumns+` FROM wallet_movements
			ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	} else {
		at := formatTime(after.CreatedAt)
		rows, err = r.db.QueryContext(ctx, `SELECT `+movementColumns+` FROM wallet_movements
			WHERE created_at < ? OR (created_at = ? AND id < ?)
			ORDER BY created_at DESC, id DESC LIMIT ?`, at, at, after.ID, limit)
	}
	if err != nil {
		return nil, domain.NewStorageError("list wallet movements", err)
	}
	items, err := scanMovements(rows)
	if err != nil {
		return nil, domain.NewStorageError("list wallet movements", err)
	}
	return items, nil
}

// SumByMethodState lee (método, estado, dirección, monto) y acumula en decimal exacto.
func (r *MovementRepository) SumByMethodState(ctx context.Context) ([]entity.BalanceRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT method, state, direction, amount FROM wallet_movements`)
	if err != nil {
		return nil, domain.NewStorageError("sum wallet balances", err)
	}
	defer rows.Close()

	acc := wallet.NewAccumulator()
	for rows.Next() {
		var method, state, direction, amount string
		if err := rows.Scan(&method, &state, &direction, &amount); err != nil {
			return nil, domain.NewStorageError("sum wallet balances", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, domain.NewStorageError("sum wallet balances", fmt.Errorf("monto corrupto %q: %w", amount, err))
		}
		if entity.Direction(direction) == entity.DirectionOut {
			d = d.Neg()
		}
		acc.AddSigned(entity.Method(method), entity.State(state), d)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("sum wallet balances", err)
	}
	return acc.Rows(), nil
}

func (r *MovementRepository) insert(ctx context.Context, db execer, verb string, m *entity.Movement) error {
	_, err := r.insertResult(ctx, db, verb, m)
	return err
}

func (r *MovementRepository) insertResult(ctx context.Context, db execer, verb string, m *entity.Movement) (sql.Result, error) {
	query := verb + ` INTO wallet_movements (` + movementColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return db.ExecContext(ctx, query,
		m.ID, m.Amount.String(), string(m.Direction), string(m.Method), string(m.State), string(m.Kind),
		m.Category, m.Supplier, m.Note, m.Origin.Type, m.Origin.RefID,
		formatTime(m.CreatedAt), m.CreatedByUID, m.CreatedByEmail,
	)
}

func scanMovements(rows *sql.Rows) ([]*entity.Movement, error) {
	defer rows.Close()
	var out []*entity.Movement
	for rows.Next() {
		var m entity.Movement
		var amount, direction, method, state, kind, createdAt string
		if err := rows.Scan(
			&m.ID, &amount, &direction, &method, &state, &kind,
			&m.Category, &m.Supplier, &m.Note, &m.Origin.Type, &m.Origin.RefID,
			&createdAt, &m.CreatedByUID, &m.CreatedByEmail,
		); err != nil {
			return nil, err
		}
		var err error
		if m.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("monto corrupto en %s: %w", m.ID, err)
		}
		if m.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("fecha corrupta en %s: %w", m.ID, err)
		}
		m.Direction = entity.Direction(direction)
		m.Method = entity.Method(method)
		m.State = entity.State(state)
		m.Kind = entity.Kind(kind)
		out = append(out, &m)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
