// Package memory хранилище в памяти процесса. Используется в режиме STORAGE=memory и в тестах.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/models"
	"github.com/rajivgeraev/carswipe-api/internal/repository"
)

type pairKey struct {
	buyerID uuid.UUID
	postID  uuid.UUID
}

// Store реализация repository.Store на картах под одним мьютексом
type Store struct {
	mu         sync.RWMutex
	posts      map[uuid.UUID]models.Post
	swipes     map[uuid.UUID]models.Swipe
	swipeOrder []uuid.UUID
	chats      map[uuid.UUID]models.Chat
	chatByPair map[pairKey]uuid.UUID
	messages   map[uuid.UUID][]models.Message
	sales      map[uuid.UUID]models.Sale // post_id -> sale
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		posts:      make(map[uuid.UUID]models.Post),
		swipes:     make(map[uuid.UUID]models.Swipe),
		chats:      make(map[uuid.UUID]models.Chat),
		chatByPair: make(map[pairKey]uuid.UUID),
		messages:   make(map[uuid.UUID][]models.Message),
		sales:      make(map[uuid.UUID]models.Sale),
	}
}

func copyPost(p models.Post) *models.Post {
	p.ImageURLs = append([]string(nil), p.ImageURLs...)
	return &p
}

func copySale(s models.Sale) *models.Sale {
	if s.BuyerID != nil {
		buyer := *s.BuyerID
		s.BuyerID = &buyer
	}
	return &s
}

func (s *Store) CreatePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[post.ID]; exists {
		return apperr.Conflict("post already exists")
	}
	s.posts[post.ID] = *copyPost(*post)
	return nil
}

func (s *Store) GetPost(_ context.Context, id uuid.UUID) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, apperr.NotFound("post not found")
	}
	return copyPost(post), nil
}

func (s *Store) DeletePost(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return apperr.NotFound("post not found")
	}
	if _, sold := s.sales[id]; sold {
		return apperr.Conflict("post has a recorded sale")
	}

	delete(s.posts, id)
	for swipeID, sw := range s.swipes {
		if sw.PostID == id {
			delete(s.swipes, swipeID)
		}
	}
	order := s.swipeOrder[:0]
	for _, swipeID := range s.swipeOrder {
		if _, ok := s.swipes[swipeID]; ok {
			order = append(order, swipeID)
		}
	}
	s.swipeOrder = order

	for chatID, chat := range s.chats {
		if chat.PostID == id {
			delete(s.chats, chatID)
			delete(s.chatByPair, pairKey{buyerID: chat.BuyerID, postID: chat.PostID})
			delete(s.messages, chatID)
		}
	}
	return nil
}

func sortPosts(posts []models.Post) {
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID.String() < posts[j].ID.String()
	})
}

func (s *Store) ListPostsByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]models.Post, 0)
	for _, p := range s.posts {
		if p.UserID == ownerID {
			posts = append(posts, *copyPost(p))
		}
	}
	sortPosts(posts)
	return posts, nil
}

func (s *Store) ListAvailablePosts(_ context.Context, buyerID uuid.UUID) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	swiped := make(map[uuid.UUID]struct{})
	for _, sw := range s.swipes {
		if sw.BuyerID == buyerID {
			swiped[sw.PostID] = struct{}{}
		}
	}

	posts := make([]models.Post, 0)
	for _, p := range s.posts {
		if p.Status != models.PostStatusActive || p.UserID == buyerID {
			continue
		}
		if _, ok := swiped[p.ID]; ok {
			continue
		}
		posts = append(posts, *copyPost(p))
	}
	sortPosts(posts)
	return posts, nil
}

func (s *Store) ListLikedByOthers(_ context.Context, ownerID uuid.UUID) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	liked := make(map[uuid.UUID]struct{})
	for _, sw := range s.swipes {
		if sw.Direction == models.SwipeRight {
			liked[sw.PostID] = struct{}{}
		}
	}

	posts := make([]models.Post, 0)
	for id := range liked {
		p, ok := s.posts[id]
		if !ok || p.UserID != ownerID {
			continue
		}
		posts = append(posts, *copyPost(p))
	}
	sortPosts(posts)
	return posts, nil
}

func (s *Store) SaveSwipe(_ context.Context, swipe *models.Swipe, match *models.Chat) (*models.Chat, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[swipe.PostID]; !ok {
		return nil, false, apperr.NotFound("post not found")
	}

	s.swipes[swipe.ID] = *swipe
	s.swipeOrder = append(s.swipeOrder, swipe.ID)

	if match == nil {
		return nil, false, nil
	}
	chat, created := s.createChatLocked(match)
	return chat, created, nil
}

func (s *Store) GetSwipe(_ context.Context, id uuid.UUID) (*models.Swipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sw, ok := s.swipes[id]
	if !ok {
		return nil, apperr.NotFound("swipe not found")
	}
	return &sw, nil
}

func (s *Store) ListSwipesByBuyer(_ context.Context, buyerID uuid.UUID) ([]models.Swipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	swipes := make([]models.Swipe, 0)
	for i := len(s.swipeOrder) - 1; i >= 0; i-- {
		sw := s.swipes[s.swipeOrder[i]]
		if sw.BuyerID == buyerID {
			swipes = append(swipes, sw)
		}
	}
	return swipes, nil
}

// createChatLocked вызывается под s.mu
func (s *Store) createChatLocked(chat *models.Chat) (*models.Chat, bool) {
	key := pairKey{buyerID: chat.BuyerID, postID: chat.PostID}
	if id, exists := s.chatByPair[key]; exists {
		existing := s.chats[id]
		return &existing, false
	}

	stored := *chat
	stored.Post = nil
	stored.Messages = nil
	s.chats[stored.ID] = stored
	s.chatByPair[key] = stored.ID
	s.messages[stored.ID] = append([]models.Message(nil), chat.Messages...)

	result := stored
	result.Messages = append([]models.Message(nil), chat.Messages...)
	return &result, true
}

func (s *Store) CreateChatIfAbsent(_ context.Context, chat *models.Chat) (*models.Chat, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[chat.PostID]; !ok {
		return nil, false, apperr.NotFound("post not found")
	}
	created, ok := s.createChatLocked(chat)
	return created, ok, nil
}

func (s *Store) GetChat(_ context.Context, id uuid.UUID) (*models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[id]
	if !ok {
		return nil, apperr.NotFound("chat not found")
	}
	return &chat, nil
}

func (s *Store) FindChat(_ context.Context, buyerID, postID uuid.UUID) (*models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.chatByPair[pairKey{buyerID: buyerID, postID: postID}]
	if !ok {
		return nil, apperr.NotFound("chat not found")
	}
	chat := s.chats[id]
	return &chat, nil
}

func (s *Store) ListChatsForUser(_ context.Context, userID uuid.UUID) ([]models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := make([]models.Chat, 0)
	for _, c := range s.chats {
		if !c.IsParticipant(userID) {
			continue
		}
		if p, ok := s.posts[c.PostID]; ok {
			c.Post = copyPost(p)
		}
		c.Messages = sortedMessages(s.messages[c.ID])
		chats = append(chats, c)
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].CreatedAt.After(chats[j].CreatedAt)
	})
	return chats, nil
}

func (s *Store) DeleteChat(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[id]
	if !ok {
		return apperr.NotFound("chat not found")
	}
	delete(s.chats, id)
	delete(s.chatByPair, pairKey{buyerID: chat.BuyerID, postID: chat.PostID})
	delete(s.messages, id)
	return nil
}

func (s *Store) CreateMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[msg.ChatID]; !ok {
		return apperr.NotFound("chat not found")
	}
	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], *msg)
	return nil
}

func sortedMessages(in []models.Message) []models.Message {
	out := append([]models.Message{}, in...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SentAt.Before(out[j].SentAt)
	})
	return out
}

func (s *Store) ListMessages(_ context.Context, chatID uuid.UUID) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedMessages(s.messages[chatID]), nil
}

func (s *Store) GetSaleByPost(_ context.Context, postID uuid.UUID) (*models.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[postID]
	if !ok {
		return nil, apperr.NotFound("sale not found")
	}
	return copySale(sale), nil
}

// InSaleTx держит мьютекс хранилища всё время fn. Изменения копятся в saleTx
// и применяются только при успешном завершении fn.
func (s *Store) InSaleTx(ctx context.Context, postID uuid.UUID, fn func(tx repository.SaleTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &saleTx{postID: postID}
	if post, ok := s.posts[postID]; ok {
		tx.post = copyPost(post)
	}
	if sale, ok := s.sales[postID]; ok {
		tx.sale = copySale(sale)
	}

	if err := fn(tx); err != nil {
		return err
	}

	if tx.post != nil {
		s.posts[postID] = *tx.post
	}
	if tx.sale != nil {
		s.sales[postID] = *tx.sale
	} else {
		delete(s.sales, postID)
	}
	return nil
}

type saleTx struct {
	postID uuid.UUID
	post   *models.Post
	sale   *models.Sale
}

func (t *saleTx) Post(context.Context) (*models.Post, error) {
	if t.post == nil {
		return nil, apperr.NotFound("post not found")
	}
	return copyPost(*t.post), nil
}

func (t *saleTx) Sale(context.Context) (*models.Sale, error) {
	if t.sale == nil {
		return nil, nil
	}
	return copySale(*t.sale), nil
}

func (t *saleTx) SetPostStatus(_ context.Context, status models.PostStatus) error {
	if t.post == nil {
		return apperr.NotFound("post not found")
	}
	t.post.Status = status
	return nil
}

func (t *saleTx) InsertSale(_ context.Context, sale *models.Sale) error {
	if t.sale != nil {
		return apperr.Conflict("sale already exists for post")
	}
	t.sale = copySale(*sale)
	return nil
}

func (t *saleTx) UpdateSale(_ context.Context, sale *models.Sale) error {
	if t.sale == nil {
		return apperr.NotFound("sale not found")
	}
	t.sale = copySale(*sale)
	return nil
}

func (t *saleTx) DeleteSale(context.Context) error {
	t.sale = nil
	return nil
}
