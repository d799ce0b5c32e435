package swipe

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/logger"
	"github.com/rajivgeraev/carswipe-api/internal/metrics"
	"github.com/rajivgeraev/carswipe-api/internal/models"
	"github.com/rajivgeraev/carswipe-api/internal/repository"
)

// SeedMessage первое сообщение покупателя в чате, созданном свайпом вправо
const SeedMessage = "Hey! I liked your post."

// Service сопоставляет свайпы с чатами
type Service struct {
	store   repository.Store
	metrics *metrics.Metrics
	log     logger.Logger
	now     func() time.Time
}

// NewService создает новый экземпляр Service
func NewService(store repository.Store, m *metrics.Metrics, log logger.Logger) *Service {
	return &Service{
		store:   store,
		metrics: m,
		log:     log.With("service", "swipe"),
		now:     time.Now,
	}
}

// Result результат свайпа. ChatID заполнен для свайпа вправо.
type Result struct {
	Swipe   *models.Swipe `json:"swipe"`
	ChatID  *uuid.UUID    `json:"chat_id,omitempty"`
	Matched bool          `json:"matched"`
}

// RecordSwipe сохраняет свайп. Свайп вправо создаёт чат с начальным сообщением,
// если чата для пары (покупатель, объявление) ещё нет.
func (s *Service) RecordSwipe(ctx context.Context, buyerID, postID uuid.UUID, direction models.SwipeDirection) (*Result, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID == buyerID {
		return nil, apperr.Forbidden("cannot swipe on your own post")
	}

	now := s.now().UTC()
	swipe := &models.Swipe{
		ID:        uuid.New(),
		BuyerID:   buyerID,
		PostID:    postID,
		Direction: direction,
		CreatedAt: now,
	}

	var match *models.Chat
	if direction == models.SwipeRight {
		chatID := uuid.New()
		match = &models.Chat{
			ID:        chatID,
			BuyerID:   buyerID,
			SellerID:  post.UserID,
			PostID:    postID,
			CreatedAt: now,
			Messages: []models.Message{{
				ID:       uuid.New(),
				ChatID:   chatID,
				SenderID: buyerID,
				Text:     SeedMessage,
				SentAt:   now,
			}},
		}
	}

	chat, created, err := s.store.SaveSwipe(ctx, swipe, match)
	if err != nil {
		return nil, err
	}

	s.metrics.SwipesTotal.WithLabelValues(string(direction)).Inc()

	result := &Result{Swipe: swipe}
	if chat != nil {
		result.ChatID = &chat.ID
		result.Matched = created
	}
	if created {
		s.metrics.MatchesTotal.Inc()
		s.log.Infof("Новый чат %s: покупатель %s, объявление %s", chat.ID, buyerID, postID)
	}
	return result, nil
}

// GetSwipe возвращает свайп вызывающего пользователя
func (s *Service) GetSwipe(ctx context.Context, userID, swipeID uuid.UUID) (*models.Swipe, error) {
	swipe, err := s.store.GetSwipe(ctx, swipeID)
	if err != nil {
		return nil, err
	}
	if swipe.BuyerID != userID {
		return nil, apperr.NotFound("swipe not found")
	}
	return swipe, nil
}

func (s *Service) ListMySwipes(ctx context.Context, userID uuid.UUID) ([]models.Swipe, error) {
	return s.store.ListSwipesByBuyer(ctx, userID)
}

// ListAvailablePosts активные чужие объявления, которые пользователь ещё не оценил
func (s *Service) ListAvailablePosts(ctx context.Context, buyerID uuid.UUID) ([]models.Post, error) {
	return s.store.ListAvailablePosts(ctx, buyerID)
}

// ListLikedByOthers объявления пользователя, которые понравились хотя бы одному покупателю
func (s *Service) ListLikedByOthers(ctx context.Context, ownerID uuid.UUID) ([]models.Post, error) {
	return s.store.ListLikedByOthers(ctx, ownerID)
}
