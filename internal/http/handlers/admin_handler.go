package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"bakery/internal/domain"
	applog "bakery/internal/log"
	"bakery/internal/services"
	"bakery/internal/validate"
)

type AdminHandler struct {
	Order *services.OrderService
}

// GET /admin/orders
func (h *AdminHandler) Orders(c *fiber.Ctx) error {
	ords, err := h.Order.Latest(c.UserContext(), 100)
	if err != nil {
		applog.Error(c, "admin.orders.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load orders"})
	}
	return c.JSON(fiber.Map{"orders": ords})
}

// POST /admin/orders/:id/deliver
func (h *AdminHandler) Deliver(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing id"})
	}
	o, err := h.Order.MarkDelivered(c.UserContext(), id)
	switch {
	case err == nil:
		applog.Audit(c, "admin.orders.deliver", map[string]any{"order_id": id})
		return c.JSON(o)
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
	case errors.Is(err, domain.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error(), "status": o.Status})
	default:
		applog.Error(c, "admin.orders.deliver.fail", err, map[string]any{"order_id": id})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not update status"})
	}
}
