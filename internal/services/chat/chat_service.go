package chat

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/logger"
	"github.com/rajivgeraev/carswipe-api/internal/models"
	"github.com/rajivgeraev/carswipe-api/internal/repository"
	"github.com/rajivgeraev/carswipe-api/internal/utils"
)

// MaxMessageLength максимальная длина сообщения в символах
const MaxMessageLength = 4000

// Broadcaster рассылает сохранённое сообщение участникам комнаты чата
type Broadcaster interface {
	BroadcastMessage(ctx context.Context, msg *models.Message) error
}

// ChatService представляет сервис для работы с чатами
type ChatService struct {
	store       repository.Store
	broadcaster Broadcaster
	locks       *utils.KeyedMutex
	log         logger.Logger
	now         func() time.Time
}

// NewChatService создает новый экземпляр ChatService
func NewChatService(store repository.Store, broadcaster Broadcaster, log logger.Logger) *ChatService {
	return &ChatService{
		store:       store,
		broadcaster: broadcaster,
		locks:       utils.NewKeyedMutex(256),
		log:         log.With("service", "chat"),
		now:         time.Now,
	}
}

// Authorize возвращает чат, если пользователь его участник.
// NotFound для несуществующего чата, Forbidden для постороннего.
func (s *ChatService) Authorize(ctx context.Context, userID, chatID uuid.UUID) (*models.Chat, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(userID) {
		return nil, apperr.Forbidden("У вас нет доступа к этому чату")
	}
	return chat, nil
}

// ListMyChats чаты пользователя с сообщениями и объявлением
func (s *ChatService) ListMyChats(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	return s.store.ListChatsForUser(ctx, userID)
}

// ListMessages сообщения чата по возрастанию времени отправки
func (s *ChatService) ListMessages(ctx context.Context, userID, chatID uuid.UUID) ([]models.Message, error) {
	if _, err := s.Authorize(ctx, userID, chatID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, chatID)
}

// SendMessage сохраняет сообщение и рассылает его в комнату чата.
// Сохранение и рассылка в пределах одного чата идут под блокировкой ключа чата,
// поэтому участники получают сообщения в порядке сохранения.
func (s *ChatService) SendMessage(ctx context.Context, senderID, chatID uuid.UUID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("Текст сообщения не может быть пустым")
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, apperr.Validation("message is too long")
	}

	if _, err := s.Authorize(ctx, senderID, chatID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(chatID)
	defer unlock()

	msg := &models.Message{
		ID:       uuid.New(),
		ChatID:   chatID,
		SenderID: senderID,
		Text:     text,
		SentAt:   s.now().UTC(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	// Сообщение уже сохранено, ошибка рассылки не отменяет отправку
	if err := s.broadcaster.BroadcastMessage(ctx, msg); err != nil {
		s.log.Warnf("Не удалось разослать сообщение %s в чат %s: %v", msg.ID, chatID, err)
	}
	return msg, nil
}

// CreateChat явно создаёт чат по объявлению. Покупатель создаёт чат на себя,
// продавец указывает покупателя. Существующий чат возвращается как есть.
func (s *ChatService) CreateChat(ctx context.Context, userID, postID uuid.UUID, buyerID *uuid.UUID) (*models.Chat, bool, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, false, err
	}

	buyer := userID
	if post.UserID == userID {
		if buyerID == nil {
			return nil, false, apperr.Validation("buyerId is required when the seller opens a chat")
		}
		buyer = *buyerID
	} else if buyerID != nil && *buyerID != userID {
		return nil, false, apperr.Forbidden("only the seller may open a chat for another buyer")
	}
	if buyer == post.UserID {
		return nil, false, apperr.Validation("Нельзя создать чат с самим собой")
	}

	return s.store.CreateChatIfAbsent(ctx, &models.Chat{
		ID:        uuid.New(),
		BuyerID:   buyer,
		SellerID:  post.UserID,
		PostID:    post.ID,
		CreatedAt: s.now().UTC(),
	})
}

// DeleteChat удаляет чат вместе с сообщениями
func (s *ChatService) DeleteChat(ctx context.Context, userID, chatID uuid.UUID) error {
	if _, err := s.Authorize(ctx, userID, chatID); err != nil {
		return err
	}
	if err := s.store.DeleteChat(ctx, chatID); err != nil {
		return err
	}
	s.log.Infof("Чат %s удалён пользователем %s", chatID, userID)
	return nil
}
