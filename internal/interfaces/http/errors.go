package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Cartera-api/internal/application/dto"
	"github.com/jhoicas/Cartera-api/internal/domain"
)

var validationCodes = []struct {
	err  error
	code string
}{
	{domain.ErrInvalidAmount, "INVALID_AMOUNT"},
	{domain.ErrInvalidDirection, "INVALID_DIRECTION"},
	{domain.ErrInvalidMethod, "INVALID_METHOD"},
	{domain.ErrInvalidState, "INVALID_STATE"},
	{domain.ErrInvalidKind, "INVALID_KIND"},
	{domain.ErrNoteRequired, "NOTE_REQUIRED"},
	{domain.ErrInvalidCursor, "INVALID_CURSOR"},
	{domain.ErrInvalidInput, "VALIDATION"},
}

// errorStatus traduce un error de dominio a status y código HTTP.
func errorStatus(err error) (int, dto.ErrorResponse) {
	for _, vc := range validationCodes {
		if errors.Is(err, vc.err) {
			return fiber.StatusBadRequest, dto.ErrorResponse{Code: vc.code, Message: err.Error()}
		}
	}
	if errors.Is(err, domain.ErrStorage) {
		return fiber.StatusServiceUnavailable, dto.ErrorResponse{Code: "STORAGE_UNAVAILABLE", Message: "almacén de cartera no disponible"}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
}

func writeError(c *fiber.Ctx, err error) error {
	status, body := errorStatus(err)
	return c.Status(status).JSON(body)
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
