package swipe

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/db"
	"github.com/rajivgeraev/carswipe-api/internal/middleware"
	"github.com/rajivgeraev/carswipe-api/internal/models"
	"github.com/rajivgeraev/carswipe-api/internal/utils"
)

// Handler HTTP обработчики свайпов
type Handler struct {
	svc     *Service
	timeout time.Duration
}

func NewHandler(svc *Service, timeout time.Duration) *Handler {
	return &Handler{svc: svc, timeout: timeout}
}

type swipeRequest struct {
	PostID    string `json:"postId" validate:"required,uuid"`
	Direction string `json:"direction" validate:"required"`
}

// CreateSwipe записывает свайп текущего пользователя
func (h *Handler) CreateSwipe(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req swipeRequest
	if err := c.Bind().Body(&req); err != nil {
		return apperr.Validation("Неверный формат данных")
	}
	if err := utils.Validate(req); err != nil {
		return err
	}
	direction, ok := models.ParseSwipeDirection(req.Direction)
	if !ok {
		return apperr.Validation("direction must be Left or Right")
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	result, err := h.svc.RecordSwipe(ctx, userID, uuid.MustParse(req.PostID), direction)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// GetSwipe возвращает свайп по ID
func (h *Handler) GetSwipe(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	swipeID, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	swipe, err := h.svc.GetSwipe(ctx, userID, swipeID)
	if err != nil {
		return err
	}
	return c.JSON(swipe)
}

// GetMySwipes возвращает свайпы текущего пользователя
func (h *Handler) GetMySwipes(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	swipes, err := h.svc.ListMySwipes(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"swipes": swipes, "count": len(swipes)})
}

// GetAvailablePosts возвращает ленту объявлений для свайпа
func (h *Handler) GetAvailablePosts(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	posts, err := h.svc.ListAvailablePosts(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"posts": posts, "count": len(posts)})
}

// GetLikedPosts возвращает объявления пользователя, понравившиеся другим
func (h *Handler) GetLikedPosts(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	posts, err := h.svc.ListLikedByOthers(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"posts": posts, "count": len(posts)})
}
