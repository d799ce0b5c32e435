package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SwipeDirection направление свайпа
type SwipeDirection string

const (
	SwipeLeft  SwipeDirection = "Left"
	SwipeRight SwipeDirection = "Right"
)

// ParseSwipeDirection разбирает направление без учёта регистра
func ParseSwipeDirection(s string) (SwipeDirection, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return SwipeLeft, true
	case "right":
		return SwipeRight, true
	}
	return "", false
}

// Swipe представляет решение покупателя по объявлению. Не изменяется после создания.
type Swipe struct {
	ID        uuid.UUID      `json:"id"`
	BuyerID   uuid.UUID      `json:"buyer_id"`
	PostID    uuid.UUID      `json:"post_id"`
	Direction SwipeDirection `json:"direction"`
	CreatedAt time.Time      `json:"created_at"`
}
