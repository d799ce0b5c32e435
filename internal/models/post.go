package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostStatus статус объявления
type PostStatus string

const (
	PostStatusActive PostStatus = "Active"
	PostStatusSold   PostStatus = "Sold"
)

// ParsePostStatus разбирает статус без учёта регистра, "Available" считается синонимом Active
func ParsePostStatus(s string) (PostStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "available":
		return PostStatusActive, true
	case "sold":
		return PostStatusSold, true
	}
	return "", false
}

// Post представляет объявление о продаже автомобиля
type Post struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Make        string          `json:"make"`
	Model       string          `json:"model"`
	Year        int             `json:"year"`
	Mileage     int             `json:"mileage"`
	Price       decimal.Decimal `json:"price"`
	Location    string          `json:"location,omitempty"`
	ImageURLs   []string        `json:"image_urls"`
	Status      PostStatus      `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// IsSold возвращает true, если объявление продано
func (p *Post) IsSold() bool {
	return p.Status == PostStatusSold
}
