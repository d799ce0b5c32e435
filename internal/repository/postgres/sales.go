package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/models"
	"github.com/rajivgeraev/carswipe-api/internal/repository"
)

func scanSale(row pgx.Row) (*models.Sale, error) {
	var sale models.Sale
	if err := row.Scan(&sale.ID, &sale.PostID, &sale.SellerID, &sale.BuyerID, &sale.Amount, &sale.CreatedAt, &sale.ClosedAt); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) GetSaleByPost(ctx context.Context, postID uuid.UUID) (*models.Sale, error) {
	sale, err := scanSale(s.pool.QueryRow(ctx, `
        SELECT id, post_id, seller_id, buyer_id, amount, created_at, closed_at
        FROM sales WHERE post_id = $1
    `, postID))
	if err != nil {
		return nil, mapError(err, "postgres.GetSaleByPost", "sale not found")
	}
	return sale, nil
}

// InSaleTx блокирует строку объявления (SELECT ... FOR UPDATE) до конца транзакции,
// поэтому параллельные переходы статуса одного объявления выполняются последовательно.
func (s *Store) InSaleTx(ctx context.Context, postID uuid.UUID, fn func(tx repository.SaleTx) error) error {
	return s.withTx(ctx, "postgres.InSaleTx", func(tx pgx.Tx) error {
		post, err := scanPost(tx.QueryRow(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.id = $1 FOR UPDATE`, postID))
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return mapError(err, "postgres.InSaleTx: lock post", "post not found")
		}
		return fn(&saleTx{tx: tx, postID: postID, post: post})
	})
}

type saleTx struct {
	tx     pgx.Tx
	postID uuid.UUID
	post   *models.Post
}

func (t *saleTx) Post(context.Context) (*models.Post, error) {
	if t.post == nil {
		return nil, apperr.NotFound("post not found")
	}
	p := *t.post
	return &p, nil
}

func (t *saleTx) Sale(ctx context.Context) (*models.Sale, error) {
	sale, err := scanSale(t.tx.QueryRow(ctx, `
        SELECT id, post_id, seller_id, buyer_id, amount, created_at, closed_at
        FROM sales WHERE post_id = $1
    `, t.postID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "postgres.saleTx.Sale", "sale not found")
	}
	return sale, nil
}

func (t *saleTx) SetPostStatus(ctx context.Context, status models.PostStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE posts SET status = $1 WHERE id = $2`, string(status), t.postID)
	if err != nil {
		return mapError(err, "postgres.saleTx.SetPostStatus", "post not found")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("post not found")
	}
	if t.post != nil {
		t.post.Status = status
	}
	return nil
}

func (t *saleTx) InsertSale(ctx context.Context, sale *models.Sale) error {
	if sale.BuyerID != nil {
		if err := ensureUsers(ctx, t.tx, *sale.BuyerID); err != nil {
			return err
		}
	}
	_, err := t.tx.Exec(ctx, `
        INSERT INTO sales (id, post_id, seller_id, buyer_id, amount, created_at, closed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, sale.ID, sale.PostID, sale.SellerID, sale.BuyerID, sale.Amount, sale.CreatedAt, sale.ClosedAt)
	return mapError(err, "postgres.saleTx.InsertSale", "post not found")
}

func (t *saleTx) UpdateSale(ctx context.Context, sale *models.Sale) error {
	if sale.BuyerID != nil {
		if err := ensureUsers(ctx, t.tx, *sale.BuyerID); err != nil {
			return err
		}
	}
	tag, err := t.tx.Exec(ctx, `
        UPDATE sales SET buyer_id = $1, amount = $2, closed_at = $3 WHERE post_id = $4
    `, sale.BuyerID, sale.Amount, sale.ClosedAt, t.postID)
	if err != nil {
		return mapError(err, "postgres.saleTx.UpdateSale", "sale not found")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("sale not found")
	}
	return nil
}

func (t *saleTx) DeleteSale(ctx context.Context) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM sales WHERE post_id = $1`, t.postID)
	return mapError(err, "postgres.saleTx.DeleteSale", "")
}
