package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bakery/internal/domain"
	"bakery/internal/notify"
	"bakery/internal/repos"
)

type OrderLedger interface {
	Place(ctx context.Context, in repos.NewOrder) (domain.Order, []domain.OrderItem, error)
	Get(ctx context.Context, orderID string) (domain.Order, error)
	GetOwned(ctx context.Context, orderID, userID string) (domain.Order, []domain.OrderItem, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListLatest(ctx context.Context, limit int) ([]domain.Order, error)
	Transition(ctx context.Context, orderID string, from, to domain.OrderStatus) (bool, error)
	Cancel(ctx context.Context, orderID, userID string, msg repos.Outgoing) (int64, bool, error)
}

type UserLookup interface {
	ByID(ctx context.Context, id string) (*domain.User, error)
}

// Deliverer sends a queued notification right away.
type Deliverer interface {
	Deliver(ctx context.Context, id int64) error
}

type OrderService struct {
	Carts  CartStore
	Orders OrderLedger
	Users  UserLookup
	Notify Deliverer // nil leaves queued notifications to the background dispatcher
	Now    func() time.Time

	// DeliverTimeout caps the in-request send attempt after a cancel. It must
	// stay below the dispatcher lease so a slow send is not picked up twice.
	DeliverTimeout time.Duration
}

func NewOrderService(carts CartStore, orders OrderLedger, users UserLookup, n Deliverer) *OrderService {
	return &OrderService{Carts: carts, Orders: orders, Users: users, Notify: n, Now: time.Now}
}

// Checkout turns the session cart into a paid, Processing order and clears
// the cart, all or nothing.
func (s *OrderService) Checkout(ctx context.Context, userID, sessionID string) (domain.Order, []domain.OrderItem, error) {
	cart, err := s.Carts.Load(ctx, sessionID)
	if err != nil {
		return domain.Order{}, nil, err
	}
	if cart.Empty() {
		return domain.Order{}, nil, domain.ErrEmptyCart
	}
	return s.Orders.Place(ctx, repos.NewOrder{
		ID:        uuid.NewString(),
		UserID:    userID,
		CartID:    sessionID,
		Lines:     cart.Lines,
		Total:     cart.Total(),
		CreatedAt: s.Now(),
	})
}

func (s *OrderService) Get(ctx context.Context, orderID, userID string) (domain.Order, []domain.OrderItem, error) {
	return s.Orders.GetOwned(ctx, orderID, userID)
}

// History lists the user's non-cancelled orders, newest first.
func (s *OrderService) History(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.Orders.ListByUser(ctx, userID)
}

func (s *OrderService) Latest(ctx context.Context, limit int) ([]domain.Order, error) {
	return s.Orders.ListLatest(ctx, limit)
}

// Cancel moves a Processing order to Cancelled and queues the customer
// e-mail. Orders already Delivered or Cancelled are returned unchanged with
// changed=false. If the immediate send fails the cancellation still stands,
// the mail stays queued for retry, and the returned error wraps
// domain.ErrDelivery.
func (s *OrderService) Cancel(ctx context.Context, orderID, userID string) (o domain.Order, changed bool, err error) {
	o, _, err = s.Orders.GetOwned(ctx, orderID, userID)
	if err != nil {
		return domain.Order{}, false, err
	}
	if !o.Cancellable() {
		return o, false, nil
	}
	u, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return domain.Order{}, false, err
	}

	payload, err := json.Marshal(notify.Cancellation{
		To:       u.Email,
		Username: u.Username,
		OrderID:  o.ID,
		Amount:   o.TotalPrice,
		Paid:     o.Paid,
	})
	if err != nil {
		return domain.Order{}, false, err
	}
	nid, changed, err := s.Orders.Cancel(ctx, orderID, userID, repos.Outgoing{
		Kind:      domain.KindOrderCancelled,
		Recipient: u.Email,
		Payload:   payload,
	})
	if err != nil {
		return domain.Order{}, false, err
	}
	if !changed {
		// lost a race with another transition
		o, _, err = s.Orders.GetOwned(ctx, orderID, userID)
		return o, false, err
	}
	o.Status = domain.StatusCancelled

	if s.Notify != nil {
		dctx := ctx
		if s.DeliverTimeout > 0 {
			var cancel context.CancelFunc
			dctx, cancel = context.WithTimeout(ctx, s.DeliverTimeout)
			defer cancel()
		}
		if err := s.Notify.Deliver(dctx, nid); err != nil {
			return o, true, fmt.Errorf("%w: order %s: %v", domain.ErrDelivery, o.ID, err)
		}
	}
	return o, true, nil
}

// MarkDelivered is the administrative Processing -> Delivered transition.
func (s *OrderService) MarkDelivered(ctx context.Context, orderID string) (domain.Order, error) {
	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !o.Status.CanTransition(domain.StatusDelivered) {
		return o, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, o.Status, domain.StatusDelivered)
	}
	ok, err := s.Orders.Transition(ctx, orderID, domain.StatusProcessing, domain.StatusDelivered)
	if err != nil {
		return domain.Order{}, err
	}
	if !ok {
		cur, err := s.Orders.Get(ctx, orderID)
		if err != nil {
			return domain.Order{}, err
		}
		return cur, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, cur.Status, domain.StatusDelivered)
	}
	o.Status = domain.StatusDelivered
	return o, nil
}

// IsDeliveryFailure reports whether err only means the e-mail is still queued.
func IsDeliveryFailure(err error) bool { return errors.Is(err, domain.ErrDelivery) }
