package handlers

import (
	"github.com/gofiber/fiber/v2"
)

type RouteOptions struct {
	// LoginLimiter throttles POST /login and POST /api/v1/token when set.
	LoginLimiter fiber.Handler
	StaticDir    string
}

func passThrough(c *fiber.Ctx) error { return c.Next() }

// Register mounts every storefront route on app.
func Register(app *fiber.App, d *Deps, opts RouteOptions) {
	throttle := opts.LoginLimiter
	if throttle == nil {
		throttle = passThrough
	}
	user := RequireUser(d.Auth)

	if opts.StaticDir != "" {
		app.Static("/static", opts.StaticDir)
	}

	// Catalog
	app.Get("/", d.CatalogHandler.Home)
	app.Get("/products", d.CatalogHandler.Products)
	app.Get("/product/:id", d.CatalogHandler.Detail)
	app.Post("/product/:id", user, d.CatalogHandler.SubmitFeedback)

	// Cart
	app.Get("/cart", d.CartHandler.View)
	app.Post("/add-to-cart/:id", user, d.CartHandler.Add)
	app.Post("/remove/:id", d.CartHandler.Remove)
	app.Post("/cart/update", d.CartHandler.Update)

	// Orders
	app.Post("/checkout", user, d.OrderHandler.Checkout)
	app.Get("/order-success", user, d.OrderHandler.Success)
	app.Get("/my-orders", user, d.OrderHandler.History)
	app.Post("/cancel-order/:id", user, d.OrderHandler.Cancel)

	// Auth
	app.Get("/login", d.AuthHandler.LoginForm)
	app.Post("/login", throttle, d.AuthHandler.Login)
	app.Get("/register", d.AuthHandler.RegisterForm)
	app.Post("/register", d.AuthHandler.Register)
	app.Post("/logout", d.AuthHandler.Logout)

	// API
	api := app.Group("/api/v1")
	api.Post("/token", throttle, d.AuthHandler.Token)
	api.Get("/orders", RequireAPIUser(d.Auth), d.OrderHandler.APIHistory)

	// Admin
	admin := app.Group("/admin", RequireAdmin(d.Auth))
	admin.Get("/orders", d.AdminHandler.Orders)
	admin.Post("/orders/:id/deliver", d.AdminHandler.Deliver)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
}

// NotFound is the catch-all registered last.
func NotFound(c *fiber.Ctx) error {
	return notFound(c, "Page not found")
}
