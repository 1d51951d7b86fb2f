package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"bakery/internal/domain"
	applog "bakery/internal/log"
	"bakery/internal/metrics"
	"bakery/internal/services"
	"bakery/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

// GET /cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	cv, err := h.Cart.View(c.UserContext(), ensureSID(c))
	if err != nil {
		applog.Error(c, "cart.view.fail", err, nil)
		return serverError(c, "Could not load your cart")
	}
	return render(c, "cart", fiber.Map{"Cart": cv})
}

// POST /add-to-cart/:id
func (h *CartHandler) Add(c *fiber.Ctx) error {
	sid := ensureSID(c)
	productID, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing product")
	}
	qty := validate.Qty(c.FormValue("quantity"))

	line, err := h.Cart.Add(c.UserContext(), sid, productID, qty)
	metrics.RecordOperation("cart.add", err == nil)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return notFound(c, "This item is no longer available")
		}
		applog.Error(c, "cart.add.fail", err, map[string]any{"product": productID})
		return serverError(c, "Could not update your cart")
	}
	applog.Info(c, "cart.add", map[string]any{"product": productID, "qty": qty, "line_qty": line.Quantity})
	return c.Redirect("/cart")
}

// POST /remove/:id
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	sid := ensureSID(c)
	productID, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Redirect("/cart")
	}
	if err := h.Cart.Remove(c.UserContext(), sid, productID); err != nil {
		applog.Error(c, "cart.remove.fail", err, map[string]any{"product": productID})
		return serverError(c, "Could not update your cart")
	}
	return c.Redirect("/cart")
}

// POST /cart/update answers the quantity widget with JSON.
func (h *CartHandler) Update(c *fiber.Ctx) error {
	sid := ensureSID(c)
	productID, ok := validate.ID(c.FormValue("product_id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing product_id"})
	}
	action := services.QuantityAction(c.FormValue("action"))

	upd, err := h.Cart.SetQuantity(c.UserContext(), sid, productID, action)
	metrics.RecordOperation("cart.update", err == nil)
	switch {
	case err == nil:
		return c.JSON(upd)
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "item not in cart"})
	case errors.Is(err, domain.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "action must be increase or decrease"})
	default:
		applog.Error(c, "cart.update.fail", err, map[string]any{"product": productID})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not update cart"})
	}
}
