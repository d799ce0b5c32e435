package auth

import "github.com/gofiber/fiber/v3"

// SetupRoutes регистрирует маршруты. Выдача токенов доступна только в разработке.
func (s *AuthService) SetupRoutes(app *fiber.App, api fiber.Router, development bool) {
	if development {
		app.Post("/auth/dev-token", s.DevTokenHandler)
	}
	api.Get("/profile", s.ProfileHandler)
}
