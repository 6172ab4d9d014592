package postgres

import (
	"context"
	"fmt"
)

// walletSchema tabla append-only de la cartera.
//
// id usa collation "C" para que el desempate por id ordene igual que la comparación de strings en Go.
// El índice único parcial sobre (kind, origin_ref_id) es la guarda de idempotencia de las ventas.
const walletSchema = `
CREATE TABLE IF NOT EXISTS wallet_movements (
	id               TEXT COLLATE "C" PRIMARY KEY,
	amount           NUMERIC NOT NULL CHECK (amount > 0),
	direction        TEXT NOT NULL CHECK (direction IN ('in', 'out')),
	method           TEXT NOT NULL CHECK (method IN ('cash', 'transfer', 'card')),
	state            TEXT NOT NULL CHECK (state IN ('available', 'pending')),
	kind             TEXT NOT NULL CHECK (kind IN ('sale', 'expense', 'manual', 'cash_count', 'adjustment', 'settlement')),
	category         TEXT NOT NULL DEFAULT '',
	supplier         TEXT NOT NULL DEFAULT '',
	note             TEXT NOT NULL DEFAULT '',
	origin_type      TEXT NOT NULL DEFAULT '',
	origin_ref_id    TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
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

CREATE INDEX IF NOT EXISTS idx_wallet_movements_origin
	ON wallet_movements (origin_type, origin_ref_id) WHERE origin_ref_id <> '';
`

// EnsureSchema crea la tabla e índices si no existen. Es idempotente.
func EnsureSchema(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, walletSchema); err != nil {
		return fmt.Errorf("crear esquema de cartera: %w", err)
	}
	return nil
}
