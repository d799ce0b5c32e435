package websocket

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/rajivgeraev/carswipe-api/internal/logger"
	"github.com/rajivgeraev/carswipe-api/internal/metrics"
	"github.com/rajivgeraev/carswipe-api/internal/models"
)

// Manager представляет центральный менеджер для всех WebSocket соединений
type Manager struct {
	rooms        *Rooms
	clients      map[*Client]struct{}
	clientsMutex sync.Mutex
	closed       bool
	metrics      *metrics.Metrics
	log          logger.Logger
}

// NewManager создает новый экземпляр Manager
func NewManager(rooms *Rooms, m *metrics.Metrics, log logger.Logger) *Manager {
	return &Manager{
		rooms:   rooms,
		clients: make(map[*Client]struct{}),
		metrics: m,
		log:     log.With("component", "ws-manager"),
	}
}

// Rooms возвращает реестр комнат
func (m *Manager) Rooms() *Rooms {
	return m.rooms
}

// Register регистрирует нового клиента. После Shutdown возвращает false.
func (m *Manager) Register(client *Client) bool {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.closed {
		return false
	}
	m.clients[client] = struct{}{}
	m.metrics.WSConnections.Inc()

	m.log.Debugf("WebSocket client %s connected for user %s", client.ID, client.UserID)
	return true
}

// Unregister удаляет клиента из всех комнат и закрывает соединение.
// Повторный вызов ничего не делает.
func (m *Manager) Unregister(client *Client) {
	m.clientsMutex.Lock()
	_, exists := m.clients[client]
	delete(m.clients, client)
	m.clientsMutex.Unlock()

	if !exists {
		return
	}

	// Сначала закрываем, чтобы параллельный Join увидел закрытого клиента
	client.close()
	m.rooms.RemoveClient(client)
	m.metrics.WSConnections.Dec()

	m.log.Debugf("WebSocket client %s disconnected for user %s", client.ID, client.UserID)
}

// Join привязывает соединение к комнате чата
func (m *Manager) Join(client *Client, chatID uuid.UUID) {
	m.rooms.Join(chatID, client)
	if client.isClosed() {
		m.rooms.RemoveClient(client)
	}
}

// Leave отвязывает соединение от комнаты чата
func (m *Manager) Leave(client *Client, chatID uuid.UUID) {
	m.rooms.Leave(chatID, client)
}

// BroadcastMessage рассылает сохранённое сообщение всем соединениям комнаты,
// включая соединение отправителя. Медленные клиенты отключаются.
func (m *Manager) BroadcastMessage(_ context.Context, msg *models.Message) error {
	data, err := encodeEvent(EventMessageReceived, "", msg.ChatID.String(), msg)
	if err != nil {
		return err
	}

	for _, client := range m.rooms.Members(msg.ChatID) {
		if client.enqueue(data) {
			continue
		}
		// Канал заполнен, клиент слишком медленный - закрываем соединение
		m.log.Warnf("Send buffer full for client %s, closing connection", client.ID)
		m.metrics.BroadcastDropped.Inc()
		m.Unregister(client)
	}
	return nil
}

// Shutdown корректно завершает работу менеджера WebSocket
func (m *Manager) Shutdown() {
	m.clientsMutex.Lock()
	m.closed = true
	clients := make([]*Client, 0, len(m.clients))
	for client := range m.clients {
		clients = append(clients, client)
	}
	m.clientsMutex.Unlock()

	for _, client := range clients {
		m.Unregister(client)
	}
}
