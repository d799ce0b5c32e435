package listing

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/db"
	"github.com/rajivgeraev/carswipe-api/internal/middleware"
	"github.com/rajivgeraev/carswipe-api/internal/models"
	"github.com/rajivgeraev/carswipe-api/internal/utils"
)

// Handler HTTP обработчики объявлений
type Handler struct {
	svc     *ListingService
	timeout time.Duration
}

func NewHandler(svc *ListingService, timeout time.Duration) *Handler {
	return &Handler{svc: svc, timeout: timeout}
}

type postImage struct {
	URL    string `json:"url" validate:"required,url"`
	IsMain bool   `json:"isMain"`
}

type createPostRequest struct {
	PostID      string           `json:"postId" validate:"omitempty,uuid"`
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=5000"`
	Make        string           `json:"make" validate:"max=100"`
	Model       string           `json:"model" validate:"max=100"`
	Year        int              `json:"year" validate:"omitempty,min=1886,max=2100"`
	Mileage     int              `json:"mileage" validate:"min=0"`
	Price       *decimal.Decimal `json:"price"`
	Location    string           `json:"location" validate:"max=200"`
	Images      []postImage      `json:"images" validate:"dive"`
}

// imageURLs ставит главное изображение первым, остальные в порядке загрузки
func (r createPostRequest) imageURLs() []string {
	urls := make([]string, 0, len(r.Images))
	for _, img := range r.Images {
		if img.IsMain {
			urls = append(urls, img.URL)
		}
	}
	for _, img := range r.Images {
		if !img.IsMain {
			urls = append(urls, img.URL)
		}
	}
	return urls
}

type updateStatusRequest struct {
	Status  string `json:"status" validate:"required"`
	BuyerID string `json:"buyerId" validate:"omitempty,uuid"`
}

// CreatePost публикует объявление текущего пользователя
func (h *Handler) CreatePost(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req createPostRequest
	if err := c.Bind().Body(&req); err != nil {
		return apperr.Validation("Неверный формат данных")
	}
	if err := utils.Validate(req); err != nil {
		return err
	}
	if req.Price == nil {
		return apperr.Validation("price is required")
	}

	in := NewPost{
		Title:       req.Title,
		Description: req.Description,
		Make:        req.Make,
		Model:       req.Model,
		Year:        req.Year,
		Mileage:     req.Mileage,
		Price:       *req.Price,
		Location:    req.Location,
		ImageURLs:   req.imageURLs(),
	}
	if req.PostID != "" {
		in.ID = uuid.MustParse(req.PostID)
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	post, err := h.svc.CreatePost(ctx, userID, in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetUserPosts возвращает объявления пользователя
func (h *Handler) GetUserPosts(c fiber.Ctx) error {
	ownerID, err := middleware.ParamUUID(c, "userId")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	posts, err := h.svc.ListUserPosts(ctx, ownerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"posts": posts, "count": len(posts)})
}

// GetPost возвращает одно объявление по ID
func (h *Handler) GetPost(c fiber.Ctx) error {
	postID, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	post, err := h.svc.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	return c.JSON(post)
}

// UpdatePostStatus меняет статус объявления
func (h *Handler) UpdatePostStatus(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	postID, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	var req updateStatusRequest
	if err := c.Bind().Body(&req); err != nil {
		return apperr.Validation("Неверный формат данных")
	}
	if err := utils.Validate(req); err != nil {
		return err
	}
	status, ok := models.ParsePostStatus(req.Status)
	if !ok {
		return apperr.Validation("status must be Active or Sold")
	}

	var buyerID *uuid.UUID
	if req.BuyerID != "" {
		id := uuid.MustParse(req.BuyerID)
		buyerID = &id
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	post, sale, err := h.svc.UpdateStatus(ctx, userID, postID, status, buyerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"post": post, "sale": sale})
}

// GetPostSale возвращает продажу по объявлению
func (h *Handler) GetPostSale(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	postID, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	sale, err := h.svc.GetSale(ctx, userID, postID)
	if err != nil {
		return err
	}
	return c.JSON(sale)
}

// DeletePost удаляет объявление
func (h *Handler) DeletePost(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	postID, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext(h.timeout)
	defer cancel()

	if err := h.svc.DeletePost(ctx, userID, postID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
