package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"bakery/internal/domain"
)

// CartStore persists carts keyed by session id.
type CartStore interface {
	Load(ctx context.Context, sessionID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) error
	Rekey(ctx context.Context, from, to string) error
}

type ProductLookup interface {
	Get(ctx context.Context, id string) (domain.Product, error)
}

type CartService struct {
	Carts CartStore
	Prods ProductLookup
}

func NewCartService(carts CartStore, prods ProductLookup) *CartService {
	return &CartService{Carts: carts, Prods: prods}
}

type QuantityAction string

const (
	Increase QuantityAction = "increase"
	Decrease QuantityAction = "decrease"
)

// LineUpdate is returned to the quantity widget; amounts are rounded to cents.
type LineUpdate struct {
	Quantity   int     `json:"quantity"`
	ItemTotal  float64 `json:"item_total"`
	GrandTotal float64 `json:"grand_total"`
}

type CartView struct {
	Lines []domain.CartLine
	Total decimal.Decimal
}

// Rekey carries a cart over when its session id is replaced, e.g. at login.
func (s *CartService) Rekey(ctx context.Context, from, to string) error {
	return s.Carts.Rekey(ctx, from, to)
}

func (s *CartService) View(ctx context.Context, sessionID string) (CartView, error) {
	cart, err := s.Carts.Load(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	return CartView{Lines: cart.Lines, Total: cart.Total()}, nil
}

// Add snapshots the product into the cart or bumps an existing line.
func (s *CartService) Add(ctx context.Context, sessionID, productID string, qty int) (domain.CartLine, error) {
	p, err := s.Prods.Get(ctx, productID)
	if err != nil {
		return domain.CartLine{}, err
	}
	cart, err := s.Carts.Load(ctx, sessionID)
	if err != nil {
		return domain.CartLine{}, err
	}
	line := cart.Add(p, qty)
	if err := s.Carts.Save(ctx, cart); err != nil {
		return domain.CartLine{}, err
	}
	return line, nil
}

// Remove drops a line; removing an absent product is a no-op.
func (s *CartService) Remove(ctx context.Context, sessionID, productID string) error {
	cart, err := s.Carts.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if !cart.Remove(productID) {
		return nil
	}
	return s.Carts.Save(ctx, cart)
}

func (s *CartService) SetQuantity(ctx context.Context, sessionID, productID string, action QuantityAction) (LineUpdate, error) {
	if action != Increase && action != Decrease {
		return LineUpdate{}, domain.Invalid("action", fmt.Sprintf("unknown action %q", action))
	}
	cart, err := s.Carts.Load(ctx, sessionID)
	if err != nil {
		return LineUpdate{}, err
	}
	line, err := cart.Step(productID, action == Increase)
	if err != nil {
		return LineUpdate{}, fmt.Errorf("cart line %s: %w", productID, err)
	}
	if err := s.Carts.Save(ctx, cart); err != nil {
		return LineUpdate{}, err
	}
	return LineUpdate{
		Quantity:   line.Quantity,
		ItemTotal:  line.Total().Round(2).InexactFloat64(),
		GrandTotal: cart.Total().Round(2).InexactFloat64(),
	}, nil
}
