package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Cartera-api/internal/application/dto"
	appwallet "github.com/jhoicas/Cartera-api/internal/application/wallet"
	"github.com/jhoicas/Cartera-api/internal/domain"
)

var validate = validator.New()

// WalletHandler maneja las peticiones HTTP de la cartera (protegido).
type WalletHandler struct {
	uc *appwallet.UseCase
}

// NewWalletHandler construye el handler.
func NewWalletHandler(uc *appwallet.UseCase) *WalletHandler {
	return &WalletHandler{uc: uc}
}

func actor(c *fiber.Ctx) appwallet.Actor {
	return appwallet.Actor{UID: GetUserID(c), Email: GetEmail(c)}
}

// Balances godoc
// @Summary      Saldos de la cartera
// @Description  Saldos por medio de pago y estado, totales y subtotal bancario (transferencia + tarjeta).
// @Tags         wallet
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.BalancesResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/wallet/balances [get]
func (h *WalletHandler) Balances(c *fiber.Ctx) error {
	snap, err := h.uc.Balances(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.BalancesFromEntity(snap))
}

// Movements godoc
// @Summary      Historial de movimientos
// @Description  Más reciente primero. next_cursor null indica que no hay más páginas.
// @Tags         wallet
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int     false  "Tamaño de página (por defecto 50, máximo 100)"
// @Param        cursor  query  string  false  "Cursor opaco devuelto por la página anterior"
// @Success      200  {object}  dto.MovementPageResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/wallet/movements [get]
func (h *WalletHandler) Movements(c *fiber.Ctx) error {
	page, err := h.uc.ListMovements(c.Context(), c.QueryInt("limit", 0), c.Query("cursor"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MovementPageResponse{
		Items:      dto.MovementsFromEntities(page.Items),
		NextCursor: page.NextCursor,
	})
}

// Manual godoc
// @Summary      Captura manual
// @Description  Movimiento manual, ajuste o arqueo de caja. El estado es obligatorio salvo en efectivo.
// @Tags         wallet
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ManualMovementRequest  true  "kind, direction, method, state, amount, note"
// @Success      201   {object}  dto.MovementDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/wallet/manual [post]
func (h *WalletHandler) Manual(c *fiber.Ctx) error {
	var in dto.ManualMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	amount, err := appwallet.ParseAmount(in.Amount)
	if err != nil {
		return writeError(c, err)
	}
	m, err := h.uc.RecordManual(c.Context(), appwallet.ManualOrigin{
		Kind:      in.Kind,
		Direction: in.Direction,
		Method:    in.Method,
		State:     in.State,
		Amount:    amount,
		Note:      in.Note,
		Category:  in.Category,
		Actor:     actor(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MovementFromEntity(m))
}

// Expense godoc
// @Summary      Registrar gasto
// @Tags         wallet
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ExpenseRequest  true  "amount, method, category, supplier"
// @Success      201   {object}  dto.MovementDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/wallet/expense [post]
func (h *WalletHandler) Expense(c *fiber.Ctx) error {
	var in dto.ExpenseRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	amount, err := appwallet.ParseAmount(in.Amount)
	if err != nil {
		return writeError(c, err)
	}
	m, err := h.uc.RecordExpense(c.Context(), appwallet.ExpenseOrigin{
		Amount:   amount,
		Method:   in.Method,
		State:    in.State,
		Category: in.Category,
		Supplier: in.Supplier,
		Note:     in.Note,
		RefID:    in.RefID,
		Actor:    actor(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MovementFromEntity(m))
}

// Settlement godoc
// @Summary      Liquidar pendientes
// @Description  Pasa fondos de pendiente a disponible en transferencia o tarjeta. Escribe los dos movimientos juntos.
// @Tags         wallet
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SettlementRequest  true  "method, amount"
// @Success      201   {array}   dto.MovementDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/wallet/settlements [post]
func (h *WalletHandler) Settlement(c *fiber.Ctx) error {
	var in dto.SettlementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	amount, err := appwallet.ParseAmount(in.Amount)
	if err != nil {
		return writeError(c, err)
	}
	ms, err := h.uc.RecordSettlement(c.Context(), appwallet.SettlementOrigin{
		Method: in.Method,
		Amount: amount,
		Note:   in.Note,
		RefID:  in.RefID,
		Actor:  actor(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MovementsFromEntities(ms))
}

// SaleEvent godoc
// @Summary      Venta completada
// @Description  Registro best-effort: una falla del almacén no rechaza la venta (recorded=false).
// @Description  Reenviar la misma venta devuelve duplicate=true sin crear otro movimiento.
// @Tags         wallet
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SaleEventRequest  true  "client_sale_id, payment_method, total"
// @Success      200   {object}  dto.EventResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/wallet/events/sale [post]
func (h *WalletHandler) SaleEvent(c *fiber.Ctx) error {
	var in dto.SaleEventRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validate.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	total, err := appwallet.ParseAmount(in.Total)
	if err != nil {
		return writeError(c, err)
	}
	out := h.uc.TrySale(c.Context(), appwallet.SaleOrigin{
		ClientSaleID: in.ClientSaleID,
		Method:       in.PaymentMethod,
		Total:        total,
		At:           in.CreatedAt,
		Actor:        actor(c),
	})
	return eventResponse(c, out)
}

// PurchaseEvent godoc
// @Summary      Compra registrada
// @Description  Registro best-effort del gasto de una compra de insumos.
// @Tags         wallet
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PurchaseEventRequest  true  "purchase_id, payment_method, total"
// @Success      200   {object}  dto.EventResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/wallet/events/purchase [post]
func (h *WalletHandler) PurchaseEvent(c *fiber.Ctx) error {
	var in dto.PurchaseEventRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validate.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	total, err := appwallet.ParseAmount(in.Total)
	if err != nil {
		return writeError(c, err)
	}
	out := h.uc.TryPurchase(c.Context(), appwallet.PurchaseOrigin{
		PurchaseID: in.PurchaseID,
		Method:     in.PaymentMethod,
		Total:      total,
		Category:   in.Category,
		Supplier:   in.Supplier,
		At:         in.CreatedAt,
		Actor:      actor(c),
	})
	return eventResponse(c, out)
}

// eventResponse los errores de validación son del llamador (400); las fallas del almacén
// ya quedaron en el log y no rechazan el evento.
func eventResponse(c *fiber.Ctx, out appwallet.Outcome) error {
	if out.Err != nil && domain.IsValidation(out.Err) {
		return writeError(c, out.Err)
	}
	resp := dto.EventResponse{OK: true, Recorded: out.Recorded(), Duplicate: out.Duplicate}
	if out.Movement != nil {
		resp.MovementID = out.Movement.ID
	}
	return c.JSON(resp)
}
