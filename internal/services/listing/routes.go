package listing

import "github.com/gofiber/fiber/v3"

// SetupRoutes настраивает маршруты для API объявлений
func (h *Handler) SetupRoutes(api fiber.Router) {
	posts := api.Group("/posts")

	posts.Post("/", h.CreatePost)
	posts.Get("/user/:userId", h.GetUserPosts)
	posts.Get("/:id", h.GetPost)
	posts.Delete("/:id", h.DeletePost)
	posts.Put("/:id/status", h.UpdatePostStatus)
	posts.Get("/:id/sale", h.GetPostSale)
}
