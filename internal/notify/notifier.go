// Package notify delivers customer e-mails queued in the notification
// outbox. Delivery is decoupled from the order transaction: the order
// ledger queues a row, and a Dispatcher hands it to a Notifier.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	applog "bakery/internal/log"
)

// Cancellation is the payload of an order.cancelled notification.
type Cancellation struct {
	To       string          `json:"to"`
	Username string          `json:"username"`
	OrderID  string          `json:"order_id"`
	Amount   decimal.Decimal `json:"amount"`
	Paid     bool            `json:"paid"`
}

type Notifier interface {
	SendCancellation(ctx context.Context, m Cancellation) error
}

const cancellationSubject = "Your Order Has Been Cancelled"

// Body renders the plain-text mail body.
func (m Cancellation) Body(currency string) string {
	paid := "not paid"
	if m.Paid {
		paid = "paid"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", m.Username)
	fmt.Fprintf(&b, "Your order (ID: %s) has been cancelled successfully.\n\n", m.OrderID)
	fmt.Fprintf(&b, "Order Amount: %s%s (%s)\n\n", currency, m.Amount.StringFixed(2), paid)
	b.WriteString("If this was not you, please contact support.\n\n")
	b.WriteString("Thank you,\nBakery Shop\n")
	return b.String()
}

// LogNotifier writes the message to the application log. It is the
// development default.
type LogNotifier struct {
	Currency string
}

func (n LogNotifier) SendCancellation(_ context.Context, m Cancellation) error {
	applog.Info(nil, "notify.cancellation", map[string]any{
		"to":       m.To,
		"order_id": m.OrderID,
		"subject":  cancellationSubject,
		"body":     m.Body(n.Currency),
	})
	return nil
}
