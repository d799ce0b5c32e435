package auth

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/middleware"
	"github.com/rajivgeraev/carswipe-api/internal/utils"
)

// AuthService выдаёт токены для локальной разработки и отдаёт профиль текущего пользователя.
// В продакшене токены выпускает сервис идентификации.
type AuthService struct {
	jwtService *utils.JWTService
}

// NewAuthService – конструктор AuthService
func NewAuthService(jwtService *utils.JWTService) *AuthService {
	return &AuthService{jwtService: jwtService}
}

// DevTokenHandler создаёт JWT для указанного или нового пользователя
func (s *AuthService) DevTokenHandler(c fiber.Ctx) error {
	var payload struct {
		UserID string `json:"userId" validate:"omitempty,uuid"`
	}

	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&payload); err != nil {
			return apperr.Validation("Invalid request")
		}
		if err := utils.Validate(payload); err != nil {
			return err
		}
	}

	userID := uuid.New()
	if payload.UserID != "" {
		userID = uuid.MustParse(payload.UserID)
	}

	token, err := s.jwtService.GenerateToken(userID)
	if err != nil {
		return apperr.Internal("Failed to generate JWT", err)
	}

	return c.JSON(fiber.Map{
		"token":   token,
		"user_id": userID,
	})
}

// ProfileHandler возвращает пользователя из токена
func (s *AuthService) ProfileHandler(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"user_id":   userID,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
