package cloudinary

import (
	"net/url"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/config"
	"github.com/rajivgeraev/carswipe-api/internal/middleware"
)

// CloudinaryService выдаёт подписанные параметры для загрузки фотографий объявлений
type CloudinaryService struct {
	cfg config.CloudinaryConfig
	now func() time.Time
}

// NewCloudinaryService создает новый экземпляр CloudinaryService
func NewCloudinaryService(cfg config.CloudinaryConfig) *CloudinaryService {
	return &CloudinaryService{cfg: cfg, now: time.Now}
}

// UploadParams параметры прямой загрузки из клиента
type UploadParams struct {
	Timestamp    string `json:"timestamp"`
	Signature    string `json:"signature"`
	APIKey       string `json:"api_key"`
	CloudName    string `json:"cloud_name"`
	Folder       string `json:"folder"`
	UploadPreset string `json:"upload_preset"`
	PostID       string `json:"post_id"`
}

// SignUpload подписывает параметры загрузки для папки объявления
func (s *CloudinaryService) SignUpload(userID, postID uuid.UUID) (*UploadParams, error) {
	if s.cfg.APISecret == "" {
		return nil, apperr.InvalidState("cloudinary is not configured")
	}

	timestamp := strconv.FormatInt(s.now().Unix(), 10)
	folder := s.cfg.UploadFolder + "/" + userID.String() + "/" + postID.String()

	params := url.Values{}
	params.Set("timestamp", timestamp)
	params.Set("folder", folder)
	params.Set("upload_preset", s.cfg.UploadPreset)

	signature, err := api.SignParameters(params, s.cfg.APISecret)
	if err != nil {
		return nil, apperr.Internal("failed to sign upload parameters", err)
	}

	return &UploadParams{
		Timestamp:    timestamp,
		Signature:    signature,
		APIKey:       s.cfg.APIKey,
		CloudName:    s.cfg.CloudName,
		Folder:       folder,
		UploadPreset: s.cfg.UploadPreset,
		PostID:       postID.String(),
	}, nil
}

// GenerateUploadParams создаёт параметры для загрузки изображений
func (s *CloudinaryService) GenerateUploadParams(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	// Генерируем ID для объявления, если не передан
	postID := uuid.New()
	if raw := c.Query("post_id"); raw != "" {
		postID, err = uuid.Parse(raw)
		if err != nil {
			return apperr.Validation("invalid post_id")
		}
	}

	params, err := s.SignUpload(userID, postID)
	if err != nil {
		return err
	}
	return c.JSON(params)
}
