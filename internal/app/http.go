package app

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/middleware"
	"github.com/rajivgeraev/carswipe-api/internal/services/auth"
	"github.com/rajivgeraev/carswipe-api/internal/services/chat"
	"github.com/rajivgeraev/carswipe-api/internal/services/cloudinary"
	"github.com/rajivgeraev/carswipe-api/internal/services/listing"
	"github.com/rajivgeraev/carswipe-api/internal/services/sale"
	"github.com/rajivgeraev/carswipe-api/internal/services/swipe"
)

type routeSet struct {
	auth       *auth.AuthService
	swipe      *swipe.Handler
	chat       *chat.Handler
	sale       *sale.Handler
	listing    *listing.Handler
	cloudinary *cloudinary.CloudinaryService
}

func (a *App) newHTTP(routes routeSet) *fiber.App {
	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "CarSwipe API",
		ErrorHandler: a.errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))
	app.Use(a.observeLatency)

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", middleware.AuthMiddleware(a.JWT))

	routes.auth.SetupRoutes(app, api, a.cfg.IsDevelopment())
	// /posts/available и /posts/liked регистрируются раньше /posts/:id
	routes.swipe.SetupRoutes(api)
	routes.listing.SetupRoutes(api)
	routes.chat.SetupRoutes(api)
	routes.sale.SetupRoutes(api)
	routes.cloudinary.SetupRoutes(api)

	return app
}

func (a *App) observeLatency(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	a.Metrics.APIRequestLatency.
		WithLabelValues(c.Method(), c.Route().Path).
		Observe(time.Since(start).Seconds())
	return err
}

// errorHandler отдаёт ошибки в виде {"error": ..., "code": ...}
func (a *App) errorHandler(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := apperr.CodeInternal
	message := "Внутренняя ошибка сервера"

	var fiberErr *fiber.Error
	var appErr *apperr.AppError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		status = apperr.HTTPStatus(code)
		if code != apperr.CodeInternal {
			message = appErr.Message
		}
	case errors.As(err, &fiberErr):
		// Ошибки самого fiber (404 маршрута, 405 и т.п.) сохраняют свой статус
		status = fiberErr.Code
		message = fiberErr.Message
		code = apperr.Code(strconv.Itoa(status))
	}

	if status >= fiber.StatusInternalServerError {
		a.log.Errorf("%s %s: %v", c.Method(), c.Path(), err)
	}
	a.Metrics.APIErrorsTotal.WithLabelValues(c.Route().Path, string(code)).Inc()

	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}
