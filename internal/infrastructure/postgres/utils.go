package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/Cartera-api/internal/domain"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// storageErr envuelve fallas del driver como *domain.StorageError.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		err = fmt.Errorf("movimiento duplicado: %w", err)
	}
	return domain.NewStorageError(op, err)
}
