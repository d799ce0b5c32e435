package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/logger"
	"github.com/rajivgeraev/carswipe-api/internal/models"
)

const (
	// Максимальное время ожидания для pong от клиента
	pongWait = 60 * time.Second

	// Отправлять ping-сообщения клиенту с этим интервалом
	pingPeriod = (pongWait * 9) / 10

	// Время на запись одного кадра
	writeWait = 10 * time.Second

	// Максимальный размер сообщения от клиента
	maxMessageSize = 512 * 1024 // 512KB

	// Размер буфера для отправляемых сообщений
	sendBufferSize = 256
)

// Gateway операции чата, доступные по WebSocket
type Gateway interface {
	Authorize(ctx context.Context, userID, chatID uuid.UUID) (*models.Chat, error)
	SendMessage(ctx context.Context, senderID, chatID uuid.UUID, text string) (*models.Message, error)
}

// Client представляет собой отдельное WebSocket соединение
type Client struct {
	ID      uuid.UUID
	UserID  uuid.UUID
	conn    *websocket.Conn
	send    chan []byte // Буферизованный канал исходящих сообщений
	done    chan struct{}
	once    sync.Once
	manager *Manager
	gateway Gateway
	timeout time.Duration
	log     logger.Logger
}

// NewClient создает новый экземпляр Client
func NewClient(userID uuid.UUID, conn *websocket.Conn, manager *Manager, gateway Gateway, timeout time.Duration) *Client {
	id := uuid.New()
	return &Client{
		ID:      id,
		UserID:  userID,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		manager: manager,
		gateway: gateway,
		timeout: timeout,
		log:     manager.log.With("client_id", id.String(), "user_id", userID.String()),
	}
}

// Start запускает клиентские горутины для чтения и записи
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// enqueue ставит кадр в очередь без блокировки. false - буфер заполнен.
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// readPump обрабатывает входящие сообщения от клиента
func (c *Client) readPump() {
	defer c.manager.Unregister(c)

	// Настраиваем соединение
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warnf("Unexpected close error: %v", err)
			}
			return
		}

		c.handleIncomingMessage(message)
	}
}

// writePump отправляет сообщения клиенту
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.manager.Unregister(c)
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debugf("Error writing message: %v", err)
				return
			}
		case <-ticker.C:
			// Отправляем ping для поддержания соединения
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// handleIncomingMessage обрабатывает входящие сообщения от клиента
func (c *Client) handleIncomingMessage(raw []byte) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		c.reply(EventError, "", "", errorPayload(apperr.Validation("malformed frame")))
		return
	}

	switch event.Type {
	case EventSendMessage, EventJoinRoom, EventLeaveRoom:
	default:
		c.reply(EventError, event.Ref, event.ChatID, errorPayload(apperr.Validation("unknown event type")))
		return
	}

	chatID, err := uuid.Parse(event.ChatID)
	if err != nil {
		c.reply(EventError, event.Ref, event.ChatID, errorPayload(apperr.Validation("invalid chat_id")))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	switch event.Type {
	case EventSendMessage:
		msg, err := c.gateway.SendMessage(ctx, c.UserID, chatID, event.Text)
		if err != nil {
			c.fail(event, err)
			return
		}
		c.manager.metrics.MessagesTotal.WithLabelValues("ws").Inc()
		c.reply(EventAck, event.Ref, event.ChatID, msg)

	case EventJoinRoom:
		if _, err := c.gateway.Authorize(ctx, c.UserID, chatID); err != nil {
			c.fail(event, err)
			return
		}
		c.manager.Join(c, chatID)
		c.reply(EventAck, event.Ref, event.ChatID, nil)

	case EventLeaveRoom:
		c.manager.Leave(c, chatID)
		c.reply(EventAck, event.Ref, event.ChatID, nil)
	}
}

func (c *Client) fail(event Event, err error) {
	if apperr.CodeOf(err) == apperr.CodeInternal {
		c.log.Errorf("%s failed: %v", event.Type, err)
	}
	c.reply(EventError, event.Ref, event.ChatID, errorPayload(err))
}

func (c *Client) reply(eventType EventType, ref, chatID string, payload any) {
	data, err := encodeEvent(eventType, ref, chatID, payload)
	if err != nil {
		c.log.Errorf("Error marshaling event: %v", err)
		return
	}
	if !c.enqueue(data) {
		c.manager.metrics.BroadcastDropped.Inc()
		c.manager.Unregister(c)
	}
}
