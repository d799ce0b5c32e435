package sale

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/db"
	"github.com/rajivgeraev/carswipe-api/internal/middleware"
)

// Handler HTTP обработчики закрытия сделки
type Handler struct {
	svc     *SaleService
	timeout time.Duration
}

func NewHandler(svc *SaleService, timeout time.Duration) *Handler {
	return &Handler{svc: svc, timeout: timeout}
}

type closeSaleRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

// CloseSale закрывает сделку по чату
func (h *Handler) CloseSale(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	chatID, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	var req closeSaleRequest
	if err := c.Bind().Body(&req); err != nil {
		return apperr.Validation("Неверный формат данных")
	}
	if req.Amount == nil {
		return apperr.Validation("amount is required")
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	sale, err := h.svc.CloseSale(ctx, userID, chatID, *req.Amount)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(sale)
}
