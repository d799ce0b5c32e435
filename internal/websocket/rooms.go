package websocket

import (
	"sync"

	"github.com/google/uuid"
)

// Rooms реестр комнат: связь соединение <-> чат, многие ко многим.
// Ни один метод не выполняет ввод-вывод под блокировкой.
type Rooms struct {
	mu      sync.RWMutex
	members map[uuid.UUID]map[*Client]struct{}
	joined  map[*Client]map[uuid.UUID]struct{}
}

// NewRooms создает пустой реестр
func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[uuid.UUID]map[*Client]struct{}),
		joined:  make(map[*Client]map[uuid.UUID]struct{}),
	}
}

// Join добавляет соединение в комнату. Повторный вход ничего не меняет.
func (r *Rooms) Join(chatID uuid.UUID, client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.members[chatID]
	if !ok {
		room = make(map[*Client]struct{})
		r.members[chatID] = room
	}
	if _, exists := room[client]; exists {
		return false
	}
	room[client] = struct{}{}

	chats, ok := r.joined[client]
	if !ok {
		chats = make(map[uuid.UUID]struct{})
		r.joined[client] = chats
	}
	chats[chatID] = struct{}{}
	return true
}

// Leave убирает соединение из комнаты. Выход из чужой комнаты ничего не меняет.
func (r *Rooms) Leave(chatID uuid.UUID, client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(chatID, client)
}

func (r *Rooms) leaveLocked(chatID uuid.UUID, client *Client) bool {
	room, ok := r.members[chatID]
	if !ok {
		return false
	}
	if _, exists := room[client]; !exists {
		return false
	}
	delete(room, client)
	if len(room) == 0 {
		delete(r.members, chatID)
	}

	if chats, ok := r.joined[client]; ok {
		delete(chats, chatID)
		if len(chats) == 0 {
			delete(r.joined, client)
		}
	}
	return true
}

// RemoveClient убирает соединение из всех комнат и возвращает их список
func (r *Rooms) RemoveClient(client *Client) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats := r.joined[client]
	left := make([]uuid.UUID, 0, len(chats))
	for chatID := range chats {
		left = append(left, chatID)
	}
	for _, chatID := range left {
		r.leaveLocked(chatID, client)
	}
	return left
}

// Members возвращает снимок участников комнаты
func (r *Rooms) Members(chatID uuid.UUID) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.members[chatID]
	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	return clients
}

// ChatsOf возвращает комнаты, в которых состоит соединение
func (r *Rooms) ChatsOf(client *Client) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chats := make([]uuid.UUID, 0, len(r.joined[client]))
	for chatID := range r.joined[client] {
		chats = append(chats, chatID)
	}
	return chats
}

// Size количество соединений в комнате
func (r *Rooms) Size(chatID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[chatID])
}
