package domain

import "github.com/shopspring/decimal"

// CartLine is a snapshot of a product taken when it was first added.
// Later catalog price changes do not affect it.
type CartLine struct {
	ProductID string          `db:"product_id" json:"product_id"`
	Name      string          `db:"name" json:"name"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Image     string          `db:"image" json:"image"`
	Quantity  int             `db:"qty" json:"quantity"`
}

func (l CartLine) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds at most one line per product, in insertion order.
type Cart struct {
	SessionID string
	Lines     []CartLine
}

func (c *Cart) Empty() bool { return len(c.Lines) == 0 }

func (c *Cart) Find(productID string) (int, bool) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i, true
		}
	}
	return -1, false
}

// Add merges qty into an existing line or appends a new snapshot of p.
func (c *Cart) Add(p Product, qty int) CartLine {
	if qty < 1 {
		qty = 1
	}
	if i, ok := c.Find(p.ID); ok {
		c.Lines[i].Quantity += qty
		return c.Lines[i]
	}
	line := CartLine{ProductID: p.ID, Name: p.Name, Price: p.Price, Image: p.Image, Quantity: qty}
	c.Lines = append(c.Lines, line)
	return line
}

// Remove reports whether a line was deleted.
func (c *Cart) Remove(productID string) bool {
	i, ok := c.Find(productID)
	if !ok {
		return false
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return true
}

// Step moves a line's quantity by +1 or -1. Quantity never drops below 1.
func (c *Cart) Step(productID string, up bool) (CartLine, error) {
	i, ok := c.Find(productID)
	if !ok {
		return CartLine{}, ErrNotFound
	}
	switch {
	case up:
		c.Lines[i].Quantity++
	case c.Lines[i].Quantity > 1:
		c.Lines[i].Quantity--
	}
	return c.Lines[i], nil
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Total())
	}
	return total
}

func (c *Cart) Clear() { c.Lines = nil }
