package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"bakery/internal/domain"
	"bakery/internal/log"
	"bakery/internal/services"
	"bakery/internal/validate"
)

type AuthHandler struct {
	Auth *services.AuthService
	Cart *services.CartService
}

func setSID(c *fiber.Ctx, sid string) {
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   false, // enable true behind TLS
	})
}

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		setSID(c, sid)
	}
	return sid
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": ""})
}

// Login authenticates onto a freshly issued sid; the cart of the previous
// session moves with the user and the old sid is unbound.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	username, okName := validate.Username(c.FormValue("username"))
	pass := c.FormValue("password")
	if !okName || !validate.Password(pass) {
		log.Security(c, "auth.login.fail", map[string]any{"username": username, "reason": "bad_format"})
		return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{"Err": "Invalid username or password"})
	}

	sid := uuid.NewString()
	if _, err := h.Auth.Login(c.UserContext(), sid, username, pass); err != nil {
		if !errors.Is(err, services.ErrBadCreds) {
			log.Error(c, "auth.login.error", err, nil)
		}
		log.Security(c, "auth.login.fail", map[string]any{"username": username})
		return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{"Err": "Invalid username or password"})
	}

	if old := c.Cookies("sid"); old != "" {
		if err := h.Cart.Rekey(c.UserContext(), old, sid); err != nil {
			log.Error(c, "cart.rekey.fail", err, nil)
		}
		if err := h.Auth.Logout(c.UserContext(), old); err != nil {
			log.Error(c, "auth.session.unbind.fail", err, nil)
		}
	}
	setSID(c, sid)

	log.Audit(c, "auth.login.success", map[string]any{"username": username})
	return c.Redirect("/")
}

func (h *AuthHandler) RegisterForm(c *fiber.Ctx) error {
	return render(c, "register", fiber.Map{})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	username, ok := validate.Username(c.FormValue("username"))
	if !ok {
		setFlash(c, "error", "Username must be 3-30 letters, digits or ._@+-")
		return c.Redirect("/register")
	}
	email, ok := validate.Email(c.FormValue("email"))
	if !ok {
		setFlash(c, "error", "Enter a valid email address")
		return c.Redirect("/register")
	}
	pass := c.FormValue("password")
	if !validate.Password(pass) {
		setFlash(c, "error", "Password needs 8-64 characters with upper, lower, digit and symbol")
		return c.Redirect("/register")
	}

	u, err := h.Auth.Register(c.UserContext(), username, email, pass)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			log.Security(c, "auth.register.duplicate", map[string]any{"field": ve.Field})
			setFlash(c, "error", ve.Msg)
			return c.Redirect("/register")
		}
		log.Error(c, "auth.register.fail", err, nil)
		return serverError(c, "Could not create account. Please try again.")
	}

	log.Audit(c, "auth.register", map[string]any{"user_id": u.ID})
	setFlash(c, "success", "Account created successfully. Please login.")
	return c.Redirect("/login")
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := ensureSID(c)
	_ = h.Auth.Logout(c.UserContext(), sid)
	// Expire cookie
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   false,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	log.Audit(c, "auth.logout", map[string]any{"sid": sid})
	return c.Redirect("/")
}

type tokenRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Token exchanges credentials for a bearer token.
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var req tokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	u, err := h.Auth.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, services.ErrBadCreds) {
			log.Error(c, "auth.token.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		}
		log.Security(c, "auth.token.fail", map[string]any{"username": req.Username})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid username or password"})
	}
	tok, err := h.Auth.IssueToken(u)
	if err != nil {
		log.Error(c, "auth.token.sign", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	log.Audit(c, "auth.token.issue", map[string]any{"user_id": u.ID})
	return c.JSON(fiber.Map{"token": tok, "expires_in": int(h.Auth.TokenTTL.Seconds())})
}
