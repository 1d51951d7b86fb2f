package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"bakery/internal/config"
	"bakery/internal/log"
	"bakery/internal/metrics"
)

// ErrorHandler turns unhandled errors into the friendly error page. Fiber's
// own 404s render the not-found page; nothing internal reaches the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code == fiber.StatusNotFound {
		return NotFound(c)
	}
	log.Error(c, "server.error", err, nil)
	if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
		"Message": "Something went wrong. Please try again.",
	}); rerr != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong. Please try again.")
	}
	return nil
}

func csrfFailed(c *fiber.Ctx, err error) error {
	log.Security(c, "csrf.fail", nil)
	return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
}

func loginLimitReached(c *fiber.Ctx) error {
	log.Security(c, "rate.login.hit", nil)
	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many attempts"})
	}
	return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
}

// NewApp builds the storefront: middleware, routes and the catch-all.
// A zero RateLimit or LoginLimit turns that limiter off.
func NewApp(cfg config.Config, d *Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		Views:        NewViews(cfg.TemplatesDir, cfg.CurrencySymbol),
		ErrorHandler: ErrorHandler,
	})
	app.Server().MaxRequestBodySize = 1 << 20

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(metrics.Middleware())
	app.Use(AttachUser(d.Auth))
	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				p := c.Path()
				return strings.HasPrefix(p, "/static/") || p == "/metrics" || p == "/healthz"
			},
		}))
	}
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		ContextKey:     "csrf",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		Next:           SkipCSRF,
		ErrorHandler:   csrfFailed,
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	app.Get("/metrics", metrics.Handler())
	opts := RouteOptions{StaticDir: cfg.StaticDir}
	if cfg.LoginLimit > 0 {
		opts.LoginLimiter = limiter.New(limiter.Config{
			Max:          cfg.LoginLimit,
			Expiration:   cfg.LoginWindow,
			LimitReached: loginLimitReached,
		})
	}
	Register(app, d, opts)
	app.Use(NotFound)
	return app
}
