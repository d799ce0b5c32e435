package sale

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/logger"
	"github.com/rajivgeraev/carswipe-api/internal/metrics"
	"github.com/rajivgeraev/carswipe-api/internal/models"
	"github.com/rajivgeraev/carswipe-api/internal/repository"
)

// PostInvalidator сбрасывает закэшированное объявление после смены статуса
type PostInvalidator interface {
	Delete(ctx context.Context, postID uuid.UUID) error
}

// SaleService закрывает сделки и поддерживает соответствие
// "объявление продано ⇔ есть ровно одна запись о продаже"
type SaleService struct {
	store   repository.Store
	cache   PostInvalidator
	metrics *metrics.Metrics
	log     logger.Logger
	now     func() time.Time
}

// NewSaleService создает новый экземпляр SaleService
func NewSaleService(store repository.Store, cache PostInvalidator, m *metrics.Metrics, log logger.Logger) *SaleService {
	return &SaleService{
		store:   store,
		cache:   cache,
		metrics: m,
		log:     log.With("service", "sale"),
		now:     time.Now,
	}
}

// transition целевое состояние объявления
type transition struct {
	status  models.PostStatus
	amount  decimal.Decimal
	buyerID *uuid.UUID
}

// apply переводит объявление в новый статус и ведёт запись о продаже в той же транзакции.
// В Sold: создаёт продажу или обновляет сумму, покупатель дописывается только если был пуст.
// Из Sold: удаляет продажу.
func (s *SaleService) apply(ctx context.Context, tx repository.SaleTx, post *models.Post, t transition) (*models.Sale, error) {
	existing, err := tx.Sale(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()

	if t.status != models.PostStatusSold {
		if existing != nil {
			if err := tx.DeleteSale(ctx); err != nil {
				return nil, err
			}
		}
		if post.Status != t.status {
			if err := tx.SetPostStatus(ctx, t.status); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	var sale *models.Sale
	if existing == nil {
		sale = &models.Sale{
			ID:        uuid.New(),
			PostID:    post.ID,
			SellerID:  post.UserID,
			BuyerID:   t.buyerID,
			Amount:    t.amount,
			CreatedAt: now,
			ClosedAt:  now,
		}
		if err := tx.InsertSale(ctx, sale); err != nil {
			return nil, err
		}
	} else {
		sale = existing
		sale.Amount = t.amount
		if sale.BuyerID == nil {
			sale.BuyerID = t.buyerID
		}
		if err := tx.UpdateSale(ctx, sale); err != nil {
			return nil, err
		}
	}

	if !post.IsSold() {
		if err := tx.SetPostStatus(ctx, models.PostStatusSold); err != nil {
			return nil, err
		}
	}
	return sale, nil
}

// CloseSale закрывает сделку по чату. Проверки выполняются по порядку:
// участник чата (NotFound), объявление существует (InvalidState),
// вызывающий владелец объявления (Forbidden), объявление ещё не продано (Conflict).
func (s *SaleService) CloseSale(ctx context.Context, actorID, chatID uuid.UUID, amount decimal.Decimal) (*models.Sale, error) {
	if !amount.IsPositive() {
		return nil, apperr.Validation("amount must be positive")
	}

	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(actorID) {
		return nil, apperr.NotFound("chat not found")
	}

	var sale *models.Sale
	err = s.store.InSaleTx(ctx, chat.PostID, func(tx repository.SaleTx) error {
		post, err := tx.Post(ctx)
		if apperr.Is(err, apperr.CodeNotFound) {
			return apperr.InvalidState("linked post not found")
		}
		if err != nil {
			return err
		}
		if post.UserID != actorID {
			return apperr.Forbidden("only the seller can close the sale")
		}
		if post.IsSold() {
			return apperr.Conflict("post is already sold")
		}

		buyerID := chat.Counterparty(actorID)
		sale, err = s.apply(ctx, tx, post, transition{
			status:  models.PostStatusSold,
			amount:  amount,
			buyerID: &buyerID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, chat.PostID)
	s.metrics.SalesClosedTotal.Inc()
	s.log.Infof("Сделка %s закрыта: объявление %s, сумма %s", sale.ID, sale.PostID, sale.Amount)
	return sale, nil
}

// UpdateStatus меняет статус объявления владельцем. Продажа создаётся по цене
// объявления, buyerID необязателен.
func (s *SaleService) UpdateStatus(ctx context.Context, actorID, postID uuid.UUID, status models.PostStatus, buyerID *uuid.UUID) (*models.Post, *models.Sale, error) {
	var (
		post *models.Post
		sale *models.Sale
	)
	err := s.store.InSaleTx(ctx, postID, func(tx repository.SaleTx) error {
		var err error
		post, err = tx.Post(ctx)
		if err != nil {
			return err
		}
		if post.UserID != actorID {
			return apperr.Forbidden("only the owner can change the post status")
		}
		if buyerID != nil && *buyerID == post.UserID {
			return apperr.Validation("buyer cannot be the seller")
		}

		sale, err = s.apply(ctx, tx, post, transition{
			status:  status,
			amount:  post.Price,
			buyerID: buyerID,
		})
		if err != nil {
			return err
		}
		post.Status = status
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.invalidate(ctx, postID)
	return post, sale, nil
}

// GetSaleByPost продажа объявления. Видна продавцу и покупателю.
func (s *SaleService) GetSaleByPost(ctx context.Context, userID, postID uuid.UUID) (*models.Sale, error) {
	sale, err := s.store.GetSaleByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if sale.SellerID != userID && (sale.BuyerID == nil || *sale.BuyerID != userID) {
		return nil, apperr.Forbidden("Нет доступа к продаже")
	}
	return sale, nil
}

func (s *SaleService) invalidate(ctx context.Context, postID uuid.UUID) {
	if err := s.cache.Delete(ctx, postID); err != nil {
		s.log.Warnf("Не удалось сбросить кэш объявления %s: %v", postID, err)
	}
}
