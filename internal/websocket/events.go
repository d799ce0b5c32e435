package websocket

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
)

// EventType определяет тип события WebSocket
type EventType string

const (
	// Клиент -> сервер
	EventSendMessage EventType = "send_message"
	EventJoinRoom    EventType = "join_room"
	EventLeaveRoom   EventType = "leave_room"

	// Сервер -> клиент
	EventMessageReceived EventType = "message_received"
	EventAck             EventType = "ack"
	EventError           EventType = "error"
)

// Event представляет структуру сообщения для WebSocket
type Event struct {
	Type      EventType       `json:"type"`
	Ref       string          `json:"ref,omitempty"`
	ChatID    string          `json:"chat_id,omitempty"`
	Text      string          `json:"text,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ErrorPayload тело события error
type ErrorPayload struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

func encodeEvent(eventType EventType, ref, chatID string, payload any) ([]byte, error) {
	event := Event{
		Type:      eventType,
		Ref:       ref,
		ChatID:    chatID,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		event.Payload = raw
	}
	return json.Marshal(event)
}

func errorPayload(err error) ErrorPayload {
	code := apperr.CodeOf(err)
	message := "internal error"
	var appErr *apperr.AppError
	if errors.As(err, &appErr) && code != apperr.CodeInternal {
		message = appErr.Message
	}
	return ErrorPayload{Code: code, Message: message}
}
