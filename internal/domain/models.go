package domain

import "github.com/shopspring/decimal"

// TimeLayout is the fixed-width UTC layout used for stored timestamps so
// that lexical ordering matches chronological ordering.
const TimeLayout = "2006-01-02 15:04:05.000000"

// DateLayout is used for delivery dates.
const DateLayout = "2006-01-02"

type Category struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	CreatedAt string `db:"created_at"`
}

type Product struct {
	ID           string          `db:"id"`
	CategoryID   string          `db:"category_id"`
	CategoryName string          `db:"category_name"`
	Name         string          `db:"name"`
	Description  string          `db:"description"`
	Price        decimal.Decimal `db:"price"`
	Image        string          `db:"image"`
	CreatedAt    string          `db:"created_at"`
}

type Feedback struct {
	ID        int64  `db:"id"`
	ProductID string `db:"product_id"`
	UserID    string `db:"user_id"`
	Username  string `db:"username"`
	Rating    int    `db:"rating"`
	Comment   string `db:"comment"`
	CreatedAt string `db:"created_at"`
}
