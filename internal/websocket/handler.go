package websocket

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
)

// TokenVerifier извлекает пользователя из токена
type TokenVerifier interface {
	ExtractUserID(token string) (uuid.UUID, error)
}

// Handler принимает WebSocket соединения
type Handler struct {
	manager  *Manager
	gateway  Gateway
	verifier TokenVerifier
	timeout  time.Duration
	upgrader websocket.Upgrader
}

// NewHandler создает обработчик подключения
func NewHandler(manager *Manager, gateway Gateway, verifier TokenVerifier, timeout time.Duration) *Handler {
	return &Handler{
		manager:  manager,
		gateway:  gateway,
		verifier: verifier,
		timeout:  timeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Браузерные клиенты приходят с других origin, доступ решает токен
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP проверяет токен и чат до апгрейда соединения
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	token := firstNonEmpty(query.Get("access_token"), query.Get("token"), bearerToken(r))
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := h.verifier.ExtractUserID(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	var chatID uuid.UUID
	if raw := firstNonEmpty(query.Get("chatId"), query.Get("chat_id")); raw != "" {
		chatID, err = uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid chatId", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		_, err = h.gateway.Authorize(ctx, userID, chatID)
		cancel()
		if err != nil {
			switch apperr.CodeOf(err) {
			case apperr.CodeNotFound, apperr.CodeForbidden:
				http.Error(w, "chat not found", http.StatusNotFound)
			default:
				h.manager.log.Errorf("ws handshake authorize failed: %v", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		return
	}

	client := NewClient(userID, conn, h.manager, h.gateway, h.timeout)
	if !h.manager.Register(client) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	if chatID != uuid.Nil {
		h.manager.Join(client, chatID)
	}
	client.Start()
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
