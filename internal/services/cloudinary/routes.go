package cloudinary

import "github.com/gofiber/fiber/v3"

// SetupRoutes настраивает маршрут параметров загрузки
func (s *CloudinaryService) SetupRoutes(api fiber.Router) {
	api.Get("/upload/params", s.GenerateUploadParams)
}
