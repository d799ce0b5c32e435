package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale запись о закрытой сделке. На одно объявление не больше одной записи.
type Sale struct {
	ID        uuid.UUID       `json:"id"`
	PostID    uuid.UUID       `json:"post_id"`
	SellerID  uuid.UUID       `json:"seller_id"`
	BuyerID   *uuid.UUID      `json:"buyer_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	ClosedAt  time.Time       `json:"closed_at"`
}
