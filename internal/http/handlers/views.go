package handlers

import (
	html "github.com/gofiber/template/html/v2"
	"github.com/shopspring/decimal"
)

// NewViews loads the page templates with the helpers they expect.
func NewViews(dir, currency string) *html.Engine {
	engine := html.New(dir, ".html")
	engine.AddFunc("money", func(d decimal.Decimal) string {
		return currency + d.StringFixed(2)
	})
	return engine
}
