package services

import (
	"context"

	"bakery/internal/domain"
)

type PurchaseChecker interface {
	HasPaidPurchase(ctx context.Context, userID, productID string) (bool, error)
}

type FeedbackStore interface {
	Create(ctx context.Context, f domain.Feedback) (domain.Feedback, error)
	ListByProduct(ctx context.Context, productID string) ([]domain.Feedback, error)
}

// FeedbackService accepts reviews only from customers with a paid order
// for the product.
type FeedbackService struct {
	Orders   PurchaseChecker
	Feedback FeedbackStore
}

func NewFeedbackService(orders PurchaseChecker, fb FeedbackStore) *FeedbackService {
	return &FeedbackService{Orders: orders, Feedback: fb}
}

func (s *FeedbackService) CanReview(ctx context.Context, userID, productID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	return s.Orders.HasPaidPurchase(ctx, userID, productID)
}

func (s *FeedbackService) Submit(ctx context.Context, userID, productID string, rating int, comment string) (domain.Feedback, error) {
	ok, err := s.CanReview(ctx, userID, productID)
	if err != nil {
		return domain.Feedback{}, err
	}
	if !ok {
		return domain.Feedback{}, domain.ErrNotPurchased
	}
	return s.Feedback.Create(ctx, domain.Feedback{
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
	})
}

func (s *FeedbackService) List(ctx context.Context, productID string) ([]domain.Feedback, error) {
	return s.Feedback.ListByProduct(ctx, productID)
}
