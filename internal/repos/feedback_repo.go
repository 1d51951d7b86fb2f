package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"bakery/internal/domain"
)

type FeedbackRepo struct{ db *sqlx.DB }

func NewFeedbackRepo(db *sqlx.DB) *FeedbackRepo { return &FeedbackRepo{db: db} }

func (r *FeedbackRepo) Create(ctx context.Context, f domain.Feedback) (domain.Feedback, error) {
	f.CreatedAt = now()
	res, err := r.db.ExecContext(ctx, `
	  INSERT INTO product_feedback(product_id, user_id, rating, comment, created_at)
	  VALUES(?,?,?,?,?)
	`, f.ProductID, f.UserID, f.Rating, f.Comment, f.CreatedAt)
	if err != nil {
		return domain.Feedback{}, err
	}
	f.ID, err = res.LastInsertId()
	return f, err
}

// ListByProduct returns feedback newest first.
func (r *FeedbackRepo) ListByProduct(ctx context.Context, productID string) ([]domain.Feedback, error) {
	out := []domain.Feedback{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT f.id, f.product_id, f.user_id, u.username, f.rating, f.comment, f.created_at
	  FROM product_feedback f
	  JOIN users u ON u.id = f.user_id
	  WHERE f.product_id = ?
	  ORDER BY f.created_at DESC, f.id DESC
	`, productID)
	return out, err
}
