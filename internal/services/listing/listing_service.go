package listing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/cache"
	"github.com/rajivgeraev/carswipe-api/internal/logger"
	"github.com/rajivgeraev/carswipe-api/internal/models"
	"github.com/rajivgeraev/carswipe-api/internal/repository"
	"github.com/rajivgeraev/carswipe-api/internal/services/sale"
)

// ListingService представляет сервис для работы с объявлениями
type ListingService struct {
	store repository.Store
	cache cache.PostCache
	sales *sale.SaleService
	log   logger.Logger
}

// NewListingService создает новый экземпляр ListingService
func NewListingService(store repository.Store, postCache cache.PostCache, sales *sale.SaleService, log logger.Logger) *ListingService {
	return &ListingService{
		store: store,
		cache: postCache,
		sales: sales,
		log:   log.With("service", "listing"),
	}
}

// NewPost данные нового объявления. Пустой ID генерируется сервисом,
// иначе используется ID, под который были подписаны загрузки изображений.
type NewPost struct {
	ID          uuid.UUID
	Title       string
	Description string
	Make        string
	Model       string
	Year        int
	Mileage     int
	Price       decimal.Decimal
	Location    string
	ImageURLs   []string
}

// CreatePost публикует объявление от имени владельца
func (s *ListingService) CreatePost(ctx context.Context, ownerID uuid.UUID, in NewPost) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("Название обязательно")
	}
	if in.Price.IsNegative() {
		return nil, apperr.Validation("price must not be negative")
	}

	post := &models.Post{
		ID:          in.ID,
		UserID:      ownerID,
		Title:       title,
		Description: in.Description,
		Make:        in.Make,
		Model:       in.Model,
		Year:        in.Year,
		Mileage:     in.Mileage,
		Price:       in.Price,
		Location:    in.Location,
		ImageURLs:   append([]string{}, in.ImageURLs...),
		Status:      models.PostStatusActive,
		CreatedAt:   time.Now().UTC(),
	}
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}

	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	s.log.Infof("Объявление %s создано пользователем %s", post.ID, ownerID)
	return post, nil
}

// ListUserPosts объявления пользователя, новые первыми
func (s *ListingService) ListUserPosts(ctx context.Context, ownerID uuid.UUID) ([]models.Post, error) {
	return s.store.ListPostsByOwner(ctx, ownerID)
}

// GetPost возвращает объявление, сначала ищет в кэше
func (s *ListingService) GetPost(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	cached, err := s.cache.Get(ctx, postID)
	if err != nil {
		s.log.Warnf("Ошибка чтения кэша объявления %s: %v", postID, err)
	}
	if cached != nil {
		return cached, nil
	}

	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, post); err != nil {
		s.log.Warnf("Ошибка записи кэша объявления %s: %v", postID, err)
	}
	return post, nil
}

// UpdateStatus меняет статус объявления, ведя запись о продаже
func (s *ListingService) UpdateStatus(ctx context.Context, userID, postID uuid.UUID, status models.PostStatus, buyerID *uuid.UUID) (*models.Post, *models.Sale, error) {
	return s.sales.UpdateStatus(ctx, userID, postID, status, buyerID)
}

// GetSale возвращает продажу объявления
func (s *ListingService) GetSale(ctx context.Context, userID, postID uuid.UUID) (*models.Sale, error) {
	return s.sales.GetSaleByPost(ctx, userID, postID)
}

// DeletePost удаляет объявление владельцем. Проданное объявление удалить нельзя.
func (s *ListingService) DeletePost(ctx context.Context, userID, postID uuid.UUID) error {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return apperr.Forbidden("У вас нет доступа к удалению этого объявления")
	}
	if err := s.store.DeletePost(ctx, postID); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, postID); err != nil {
		s.log.Warnf("Не удалось сбросить кэш объявления %s: %v", postID, err)
	}
	return nil
}
