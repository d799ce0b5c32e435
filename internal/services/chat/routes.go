package chat

import "github.com/gofiber/fiber/v3"

// SetupRoutes настраивает маршруты для API чатов
func (h *Handler) SetupRoutes(api fiber.Router) {
	chats := api.Group("/chats")

	chats.Get("/me", h.GetChats)
	chats.Post("/", h.CreateChat)
	chats.Get("/:id", h.GetChat)
	chats.Delete("/:id", h.DeleteChat)
	chats.Get("/:id/messages", h.GetChatMessages)
	chats.Post("/:id/messages", h.SendMessage)
}
