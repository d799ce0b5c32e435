package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat представляет переписку покупателя и продавца по одному объявлению
type Chat struct {
	ID        uuid.UUID `json:"id"`
	BuyerID   uuid.UUID `json:"buyer_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	PostID    uuid.UUID `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`

	// Дополнительные поля для API
	Post     *Post     `json:"post,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}

// IsParticipant проверяет, является ли пользователь покупателем или продавцом чата
func (c *Chat) IsParticipant(userID uuid.UUID) bool {
	return c.BuyerID == userID || c.SellerID == userID
}

// IsSeller проверяет, является ли пользователь продавцом чата
func (c *Chat) IsSeller(userID uuid.UUID) bool {
	return c.SellerID == userID
}

// Counterparty возвращает второго участника чата
func (c *Chat) Counterparty(userID uuid.UUID) uuid.UUID {
	if c.BuyerID == userID {
		return c.SellerID
	}
	return c.BuyerID
}

// Message представляет сообщение в чате
type Message struct {
	ID       uuid.UUID `json:"id"`
	ChatID   uuid.UUID `json:"chat_id"`
	SenderID uuid.UUID `json:"sender_id"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sent_at"`
}
