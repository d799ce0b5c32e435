package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/carswipe-api/internal/models"
)

func scanSwipe(row pgx.Row) (*models.Swipe, error) {
	var sw models.Swipe
	var direction string
	if err := row.Scan(&sw.ID, &sw.BuyerID, &sw.PostID, &direction, &sw.CreatedAt); err != nil {
		return nil, err
	}
	sw.Direction = models.SwipeDirection(direction)
	return &sw, nil
}

func (s *Store) SaveSwipe(ctx context.Context, swipe *models.Swipe, match *models.Chat) (*models.Chat, bool, error) {
	var (
		chat    *models.Chat
		created bool
	)

	err := s.withTx(ctx, "postgres.SaveSwipe", func(tx pgx.Tx) error {
		if err := ensureUsers(ctx, tx, swipe.BuyerID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
            INSERT INTO swipes (id, buyer_id, post_id, direction, created_at)
            VALUES ($1, $2, $3, $4, $5)
        `, swipe.ID, swipe.BuyerID, swipe.PostID, string(swipe.Direction), swipe.CreatedAt)
		if err != nil {
			return mapError(err, "postgres.SaveSwipe: insert swipe", "post not found")
		}

		if match == nil {
			return nil
		}
		chat, created, err = createChatIfAbsent(ctx, tx, match)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return chat, created, nil
}

func (s *Store) GetSwipe(ctx context.Context, id uuid.UUID) (*models.Swipe, error) {
	sw, err := scanSwipe(s.pool.QueryRow(ctx, `
        SELECT id, buyer_id, post_id, direction, created_at FROM swipes WHERE id = $1
    `, id))
	if err != nil {
		return nil, mapError(err, "postgres.GetSwipe", "swipe not found")
	}
	return sw, nil
}

func (s *Store) ListSwipesByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Swipe, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, buyer_id, post_id, direction, created_at
        FROM swipes
        WHERE buyer_id = $1
        ORDER BY created_at DESC
    `, buyerID)
	if err != nil {
		return nil, mapError(err, "postgres.ListSwipesByBuyer", "")
	}
	defer rows.Close()

	swipes := make([]models.Swipe, 0)
	for rows.Next() {
		sw, err := scanSwipe(rows)
		if err != nil {
			return nil, mapError(err, "postgres.ListSwipesByBuyer: scan", "")
		}
		swipes = append(swipes, *sw)
	}
	return swipes, mapError(rows.Err(), "postgres.ListSwipesByBuyer", "")
}
