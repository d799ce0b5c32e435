package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
)

const userIDKey = "userID"

// TokenVerifier извлекает пользователя из токена
type TokenVerifier interface {
	ExtractUserID(token string) (uuid.UUID, error)
}

// AuthMiddleware создаёт middleware для проверки JWT
func AuthMiddleware(verifier TokenVerifier) fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return apperr.Unauthenticated("Missing authorization header")
		}

		// Проверяем Bearer токен
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return apperr.Unauthenticated("Invalid authorization header format")
		}

		userID, err := verifier.ExtractUserID(parts[1])
		if err != nil {
			return apperr.Unauthenticated("Invalid or expired token")
		}

		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// UserID возвращает пользователя, установленного AuthMiddleware
func UserID(c fiber.Ctx) (uuid.UUID, error) {
	userID, ok := c.Locals(userIDKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, apperr.Unauthenticated("Пользователь не авторизован")
	}
	return userID, nil
}

// ParamUUID разбирает параметр маршрута как UUID
func ParamUUID(c fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid " + name)
	}
	return id, nil
}
