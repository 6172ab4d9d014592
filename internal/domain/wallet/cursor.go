package wallet

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/jhoicas/Cartera-api/internal/domain"
	"github.com/jhoicas/Cartera-api/internal/domain/entity"
)

const cursorSep = "|"

// EncodeCursor serializa (createdAt, id) en un token opaco y autodescriptivo.
func EncodeCursor(c entity.PageCursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + cursorSep + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor valida y decodifica un token producido por EncodeCursor.
func DecodeCursor(token string) (entity.PageCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return entity.PageCursor{}, domain.ErrInvalidCursor
	}
	ts, id, ok := strings.Cut(string(raw), cursorSep)
	if !ok || id == "" {
		return entity.PageCursor{}, domain.ErrInvalidCursor
	}
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return entity.PageCursor{}, domain.ErrInvalidCursor
	}
	return entity.PageCursor{CreatedAt: at.UTC(), ID: id}, nil
}

// CursorOf devuelve la posición de un movimiento.
func CursorOf(m *entity.Movement) entity.PageCursor {
	return entity.PageCursor{CreatedAt: m.CreatedAt, ID: m.ID}
}

// After indica si m va después del cursor en el orden total (createdAt DESC, id DESC),
// es decir (m.createdAt, m.id) < (c.createdAt, c.id).
func After(m *entity.Movement, c entity.PageCursor) bool {
	if m.CreatedAt.Equal(c.CreatedAt) {
		return m.ID < c.ID
	}
	return m.CreatedAt.Before(c.CreatedAt)
}

// Newer es el comparador del orden de lectura: verdadero si a va antes que b.
func Newer(a, b *entity.Movement) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// ClampLimit aplica el valor por defecto si limit <= 0 y recorta al máximo sin rechazar.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return limit
}
