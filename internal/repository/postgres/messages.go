package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/carswipe-api/internal/models"
)

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	if err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Text, &m.SentAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func insertMessage(ctx context.Context, q querier, msg *models.Message) error {
	_, err := q.Exec(ctx, `
        INSERT INTO messages (id, chat_id, sender_id, text, sent_at)
        VALUES ($1, $2, $3, $4, $5)
    `, msg.ID, msg.ChatID, msg.SenderID, msg.Text, msg.SentAt)
	return mapError(err, "postgres.insertMessage", "chat not found")
}

func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	return insertMessage(ctx, s.pool, msg)
}

func (s *Store) ListMessages(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, chat_id, sender_id, text, sent_at
        FROM messages
        WHERE chat_id = $1
        ORDER BY sent_at ASC, seq ASC
    `, chatID)
	if err != nil {
		return nil, mapError(err, "postgres.ListMessages", "")
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, mapError(err, "postgres.ListMessages: scan", "")
		}
		messages = append(messages, *m)
	}
	return messages, mapError(rows.Err(), "postgres.ListMessages", "")
}
