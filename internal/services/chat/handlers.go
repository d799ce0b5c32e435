package chat

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/db"
	"github.com/rajivgeraev/carswipe-api/internal/metrics"
	"github.com/rajivgeraev/carswipe-api/internal/middleware"
	"github.com/rajivgeraev/carswipe-api/internal/utils"
)

// Handler HTTP обработчики чатов
type Handler struct {
	svc     *ChatService
	metrics *metrics.Metrics
	timeout time.Duration
}

func NewHandler(svc *ChatService, m *metrics.Metrics, timeout time.Duration) *Handler {
	return &Handler{svc: svc, metrics: m, timeout: timeout}
}

type createChatRequest struct {
	PostID  string `json:"postId" validate:"required,uuid"`
	BuyerID string `json:"buyerId" validate:"omitempty,uuid"`
}

type sendMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

// GetChats возвращает список чатов пользователя
func (h *Handler) GetChats(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	chats, err := h.svc.ListMyChats(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"chats": chats, "count": len(chats)})
}

// GetChat возвращает один чат
func (h *Handler) GetChat(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	chatID, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	chat, err := h.svc.Authorize(ctx, userID, chatID)
	if err != nil {
		return err
	}
	return c.JSON(chat)
}

// CreateChat создает новый чат по объявлению
func (h *Handler) CreateChat(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req createChatRequest
	if err := c.Bind().Body(&req); err != nil {
		return apperr.Validation("Неверный формат данных")
	}
	if err := utils.Validate(req); err != nil {
		return err
	}

	var buyerID *uuid.UUID
	if req.BuyerID != "" {
		id := uuid.MustParse(req.BuyerID)
		buyerID = &id
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	chat, created, err := h.svc.CreateChat(ctx, userID, uuid.MustParse(req.PostID), buyerID)
	if err != nil {
		return err
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"chat": chat, "is_new": created})
}

// GetChatMessages возвращает сообщения конкретного чата
func (h *Handler) GetChatMessages(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	chatID, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	messages, err := h.svc.ListMessages(ctx, userID, chatID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"messages": messages, "count": len(messages)})
}

// SendMessage отправляет новое сообщение и рассылает его в комнату чата
func (h *Handler) SendMessage(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	chatID, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	var req sendMessageRequest
	if err := c.Bind().Body(&req); err != nil {
		return apperr.Validation("Неверный формат данных")
	}
	if err := utils.Validate(req); err != nil {
		return err
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	msg, err := h.svc.SendMessage(ctx, userID, chatID, req.Text)
	if err != nil {
		return err
	}
	h.metrics.MessagesTotal.WithLabelValues("rest").Inc()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg})
}

// DeleteChat удаляет чат
func (h *Handler) DeleteChat(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	chatID, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	if err := h.svc.DeleteChat(ctx, userID, chatID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
