package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/models"
)

const chatColumns = `c.id, c.buyer_id, c.seller_id, c.post_id, c.created_at`

func scanChat(row pgx.Row) (*models.Chat, error) {
	var c models.Chat
	if err := row.Scan(&c.ID, &c.BuyerID, &c.SellerID, &c.PostID, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// createChatIfAbsent опирается на уникальный индекс (buyer_id, post_id): при конфликте
// вставка ничего не делает, и возвращается уже существующий чат.
func createChatIfAbsent(ctx context.Context, q querier, chat *models.Chat) (*models.Chat, bool, error) {
	if err := ensureUsers(ctx, q, chat.BuyerID, chat.SellerID); err != nil {
		return nil, false, err
	}
	tag, err := q.Exec(ctx, `
        INSERT INTO chats (id, buyer_id, seller_id, post_id, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT ON CONSTRAINT chats_buyer_post_key DO NOTHING
    `, chat.ID, chat.BuyerID, chat.SellerID, chat.PostID, chat.CreatedAt)
	if err != nil {
		return nil, false, mapError(err, "postgres.createChatIfAbsent: insert chat", "post not found")
	}

	if tag.RowsAffected() == 0 {
		existing, err := scanChat(q.QueryRow(ctx, `
            SELECT `+chatColumns+` FROM chats c WHERE c.buyer_id = $1 AND c.post_id = $2
        `, chat.BuyerID, chat.PostID))
		if err != nil {
			return nil, false, mapError(err, "postgres.createChatIfAbsent: select existing", "chat not found")
		}
		return existing, false, nil
	}

	for i := range chat.Messages {
		if err := insertMessage(ctx, q, &chat.Messages[i]); err != nil {
			return nil, false, err
		}
	}

	result := *chat
	result.Messages = append([]models.Message(nil), chat.Messages...)
	return &result, true, nil
}

func (s *Store) CreateChatIfAbsent(ctx context.Context, chat *models.Chat) (*models.Chat, bool, error) {
	var (
		result  *models.Chat
		created bool
	)
	err := s.withTx(ctx, "postgres.CreateChatIfAbsent", func(tx pgx.Tx) error {
		var err error
		result, created, err = createChatIfAbsent(ctx, tx, chat)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

func (s *Store) GetChat(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	chat, err := scanChat(s.pool.QueryRow(ctx, `SELECT `+chatColumns+` FROM chats c WHERE c.id = $1`, id))
	if err != nil {
		return nil, mapError(err, "postgres.GetChat", "chat not found")
	}
	return chat, nil
}

func (s *Store) FindChat(ctx context.Context, buyerID, postID uuid.UUID) (*models.Chat, error) {
	chat, err := scanChat(s.pool.QueryRow(ctx, `
        SELECT `+chatColumns+` FROM chats c WHERE c.buyer_id = $1 AND c.post_id = $2
    `, buyerID, postID))
	if err != nil {
		return nil, mapError(err, "postgres.FindChat", "chat not found")
	}
	return chat, nil
}

func (s *Store) ListChatsForUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT `+chatColumns+`, `+postColumns+`
        FROM chats c
        JOIN posts p ON p.id = c.post_id
        WHERE c.buyer_id = $1 OR c.seller_id = $1
        ORDER BY c.created_at DESC
    `, userID)
	if err != nil {
		return nil, mapError(err, "postgres.ListChatsForUser", "")
	}
	defer rows.Close()

	chats := make([]models.Chat, 0)
	index := make(map[uuid.UUID]int)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var c models.Chat
		var p models.Post
		var status string
		if err := rows.Scan(
			&c.ID, &c.BuyerID, &c.SellerID, &c.PostID, &c.CreatedAt,
			&p.ID, &p.UserID, &p.Title, &p.Description, &p.Make, &p.Model, &p.Year, &p.Mileage,
			&p.Price, &p.Location, &p.ImageURLs, &status, &p.CreatedAt,
		); err != nil {
			return nil, mapError(err, "postgres.ListChatsForUser: scan", "")
		}
		p.Status = models.PostStatus(status)
		c.Post = &p
		c.Messages = []models.Message{}
		index[c.ID] = len(chats)
		ids = append(ids, c.ID)
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "postgres.ListChatsForUser", "")
	}
	if len(ids) == 0 {
		return chats, nil
	}

	msgRows, err := s.pool.Query(ctx, `
        SELECT id, chat_id, sender_id, text, sent_at
        FROM messages
        WHERE chat_id = ANY($1)
        ORDER BY sent_at ASC, seq ASC
    `, ids)
	if err != nil {
		return nil, mapError(err, "postgres.ListChatsForUser: messages", "")
	}
	defer msgRows.Close()

	for msgRows.Next() {
		msg, err := scanMessage(msgRows)
		if err != nil {
			return nil, mapError(err, "postgres.ListChatsForUser: scan message", "")
		}
		i := index[msg.ChatID]
		chats[i].Messages = append(chats[i].Messages, *msg)
	}
	return chats, mapError(msgRows.Err(), "postgres.ListChatsForUser", "")
}

func (s *Store) DeleteChat(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "postgres.DeleteChat", "chat not found")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("chat not found")
	}
	return nil
}
