package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/rajivgeraev/carswipe-api/internal/models"
)

// Store шлюз к хранилищу. Реализации возвращают apperr.NotFound для отсутствующих записей.
type Store interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error)
	// DeletePost удаляет объявление вместе со свайпами и чатами.
	// Conflict, если по объявлению есть продажа.
	DeletePost(ctx context.Context, id uuid.UUID) error
	// ListPostsByOwner все объявления ownerID, новые первыми
	ListPostsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Post, error)
	// ListAvailablePosts активные объявления не от buyerID, по которым buyerID ещё не свайпал
	ListAvailablePosts(ctx context.Context, buyerID uuid.UUID) ([]models.Post, error)
	// ListLikedByOthers объявления ownerID, получившие хотя бы один свайп вправо, без повторов
	ListLikedByOthers(ctx context.Context, ownerID uuid.UUID) ([]models.Post, error)

	// SaveSwipe сохраняет свайп. Если match не nil, в той же транзакции создаёт чат
	// (и match.Messages как начальные сообщения), только если чата для пары
	// (покупатель, объявление) ещё нет. Возвращает актуальный чат и признак создания.
	SaveSwipe(ctx context.Context, swipe *models.Swipe, match *models.Chat) (*models.Chat, bool, error)
	GetSwipe(ctx context.Context, id uuid.UUID) (*models.Swipe, error)
	ListSwipesByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Swipe, error)

	// CreateChatIfAbsent создаёт чат вместе с chat.Messages, если для пары его ещё нет
	CreateChatIfAbsent(ctx context.Context, chat *models.Chat) (*models.Chat, bool, error)
	GetChat(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	FindChat(ctx context.Context, buyerID, postID uuid.UUID) (*models.Chat, error)
	// ListChatsForUser чаты, где userID покупатель или продавец, с сообщениями и объявлением
	ListChatsForUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error)
	// DeleteChat удаляет чат вместе с сообщениями
	DeleteChat(ctx context.Context, id uuid.UUID) error

	CreateMessage(ctx context.Context, msg *models.Message) error
	// ListMessages сообщения чата по возрастанию sent_at
	ListMessages(ctx context.Context, chatID uuid.UUID) ([]models.Message, error)

	GetSaleByPost(ctx context.Context, postID uuid.UUID) (*models.Sale, error)
	// InSaleTx выполняет fn в одной транзакции с блокировкой строки объявления.
	// Ошибка fn откатывает все изменения.
	InSaleTx(ctx context.Context, postID uuid.UUID, fn func(tx SaleTx) error) error
}

// SaleTx операции над объявлением и его продажей внутри транзакции
type SaleTx interface {
	// Post объявление, заблокированное на время транзакции. NotFound, если его нет.
	Post(ctx context.Context) (*models.Post, error)
	// Sale текущая продажа объявления или nil
	Sale(ctx context.Context) (*models.Sale, error)
	SetPostStatus(ctx context.Context, status models.PostStatus) error
	InsertSale(ctx context.Context, sale *models.Sale) error
	UpdateSale(ctx context.Context, sale *models.Sale) error
	DeleteSale(ctx context.Context) error
}
