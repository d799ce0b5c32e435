package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/models"
)

const postColumns = `p.id, p.user_id, p.title, p.description, p.make, p.model, p.year, p.mileage,
       p.price, p.location, p.image_urls, p.status, p.created_at`

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	var status string
	if err := row.Scan(
		&p.ID, &p.UserID, &p.Title, &p.Description, &p.Make, &p.Model, &p.Year, &p.Mileage,
		&p.Price, &p.Location, &p.ImageURLs, &status, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	p.Status = models.PostStatus(status)
	return &p, nil
}

func collectPosts(rows pgx.Rows) ([]models.Post, error) {
	defer rows.Close()

	posts := make([]models.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ImageURLs == nil {
		post.ImageURLs = []string{}
	}
	if err := ensureUsers(ctx, s.pool, post.UserID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
        INSERT INTO posts (id, user_id, title, description, make, model, year, mileage, price, location, image_urls, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `, post.ID, post.UserID, post.Title, post.Description, post.Make, post.Model, post.Year, post.Mileage,
		post.Price, post.Location, post.ImageURLs, string(post.Status), post.CreatedAt)
	return mapError(err, "postgres.CreatePost", "post not found")
}

func (s *Store) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	post, err := scanPost(s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.id = $1`, id))
	if err != nil {
		return nil, mapError(err, "postgres.GetPost", "post not found")
	}
	return post, nil
}

// DeletePost опирается на внешние ключи: свайпы и чаты удаляются каскадно,
// продажа (ON DELETE RESTRICT) блокирует удаление.
func (s *Store) DeletePost(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if pgCode(err) == foreignKeyViolation {
		return apperr.Wrap(apperr.CodeConflict, "post has a recorded sale", err)
	}
	if err != nil {
		return mapError(err, "postgres.DeletePost", "post not found")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("post not found")
	}
	return nil
}

func (s *Store) ListPostsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Post, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT `+postColumns+`
        FROM posts p
        WHERE p.user_id = $1
        ORDER BY p.created_at DESC, p.id
    `, ownerID)
	if err != nil {
		return nil, mapError(err, "postgres.ListPostsByOwner", "")
	}
	posts, err := collectPosts(rows)
	return posts, mapError(err, "postgres.ListPostsByOwner", "")
}

func (s *Store) ListAvailablePosts(ctx context.Context, buyerID uuid.UUID) ([]models.Post, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT `+postColumns+`
        FROM posts p
        WHERE p.status = $2
          AND p.user_id <> $1
          AND NOT EXISTS (SELECT 1 FROM swipes s WHERE s.post_id = p.id AND s.buyer_id = $1)
        ORDER BY p.created_at DESC, p.id
    `, buyerID, string(models.PostStatusActive))
	if err != nil {
		return nil, mapError(err, "postgres.ListAvailablePosts", "")
	}
	posts, err := collectPosts(rows)
	return posts, mapError(err, "postgres.ListAvailablePosts", "")
}

func (s *Store) ListLikedByOthers(ctx context.Context, ownerID uuid.UUID) ([]models.Post, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT `+postColumns+`
        FROM posts p
        WHERE p.user_id = $1
          AND EXISTS (SELECT 1 FROM swipes s WHERE s.post_id = p.id AND s.direction = $2)
        ORDER BY p.created_at DESC, p.id
    `, ownerID, string(models.SwipeRight))
	if err != nil {
		return nil, mapError(err, "postgres.ListLikedByOthers", "")
	}
	posts, err := collectPosts(rows)
	return posts, mapError(err, "postgres.ListLikedByOthers", "")
}
