package swipe

import "github.com/gofiber/fiber/v3"

// SetupRoutes настраивает маршруты свайпов. Должны регистрироваться раньше /posts/:id.
func (h *Handler) SetupRoutes(api fiber.Router) {
	api.Post("/swipes", h.CreateSwipe)
	api.Get("/swipes/me", h.GetMySwipes)
	api.Get("/swipes/:id", h.GetSwipe)

	api.Get("/posts/available", h.GetAvailablePosts)
	api.Get("/posts/liked", h.GetLikedPosts)
}
