package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusProcessing OrderStatus = "Processing"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

// DeliveryLeadTime is added to the order date when no delivery date is set.
const DeliveryLeadTime = 3 * 24 * time.Hour

// CanTransition encodes the order state machine. Delivered and Cancelled
// are terminal.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	return s == StatusProcessing && (to == StatusDelivered || to == StatusCancelled)
}

type Order struct {
	ID           string          `db:"id" json:"id"`
	UserID       string          `db:"user_id" json:"user_id"`
	TotalPrice   decimal.Decimal `db:"total_price" json:"total_price"`
	CreatedAt    string          `db:"created_at" json:"created_at"`
	Paid         bool            `db:"paid" json:"paid"`
	Status       OrderStatus     `db:"status" json:"status"`
	DeliveryDate string          `db:"delivery_date" json:"delivery_date"`
}

func (o Order) Cancellable() bool { return o.Status.CanTransition(StatusCancelled) }

// DefaultDeliveryDate returns created plus the lead time as a calendar date.
func DefaultDeliveryDate(created time.Time) string {
	return created.UTC().Add(DeliveryLeadTime).Format(DateLayout)
}

type OrderItem struct {
	OrderID     string          `db:"order_id" json:"-"`
	ProductID   string          `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
}

func (i OrderItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
