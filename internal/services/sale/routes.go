package sale

import "github.com/gofiber/fiber/v3"

// SetupRoutes настраивает маршрут закрытия сделки
func (h *Handler) SetupRoutes(api fiber.Router) {
	api.Post("/chats/:id/close-sale", h.CloseSale)
}
