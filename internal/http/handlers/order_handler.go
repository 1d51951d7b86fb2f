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

type OrderHandler struct {
	Order *services.OrderService
}

// POST /checkout
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	sid := ensureSID(c)
	u := currentUser(c)

	o, items, err := h.Order.Checkout(c.UserContext(), u.ID, sid)
	metrics.RecordOperation("order.checkout", err == nil)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrEmptyCart):
		setFlash(c, "error", "Your cart is empty.")
		return c.Redirect("/cart")
	case errors.Is(err, domain.ErrNotFound):
		applog.Security(c, "order.checkout.stale", map[string]any{"error": err.Error()})
		setFlash(c, "error", "An item in your cart is no longer available. Please review your cart.")
		return c.Redirect("/cart")
	default:
		applog.Error(c, "order.checkout.fail", err, nil)
		return serverError(c, "Could not place order. Please try again.")
	}

	applog.Audit(c, "order.checkout", map[string]any{
		"order_id": o.ID,
		"total":    o.TotalPrice.StringFixed(2),
		"items":    len(items),
	})
	return c.Redirect("/order-success?order=" + o.ID)
}

// GET /order-success
func (h *OrderHandler) Success(c *fiber.Ctx) error {
	data := fiber.Map{}
	if id, ok := validate.ID(c.Query("order")); ok {
		if o, items, err := h.Order.Get(c.UserContext(), id, currentUser(c).ID); err == nil {
			data["Order"] = o
			data["Items"] = items
		}
	}
	return render(c, "order_success", data)
}

// GET /my-orders
func (h *OrderHandler) History(c *fiber.Ctx) error {
	orders, err := h.Order.History(c.UserContext(), currentUser(c).ID)
	if err != nil {
		applog.Error(c, "orders.history.fail", err, nil)
		return serverError(c, "Could not load orders")
	}
	return render(c, "order_history", fiber.Map{"Orders": orders})
}

// POST /cancel-order/:id
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	oid, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Order not found")
	}
	u := currentUser(c)

	o, changed, err := h.Order.Cancel(c.UserContext(), oid, u.ID)
	metrics.RecordOperation("order.cancel", err == nil || services.IsDeliveryFailure(err))
	switch {
	case err == nil && changed:
		applog.Audit(c, "order.cancel", map[string]any{"order_id": o.ID})
		setFlash(c, "success", "Order cancelled and email sent")
	case err == nil:
		setFlash(c, "warning", "This order can no longer be cancelled.")
	case services.IsDeliveryFailure(err):
		applog.Audit(c, "order.cancel", map[string]any{"order_id": o.ID})
		applog.Error(c, "order.cancel.notify.fail", err, map[string]any{"order_id": o.ID})
		setFlash(c, "warning", "Order cancelled. We could not send the confirmation email yet and will retry.")
	case errors.Is(err, domain.ErrNotFound):
		applog.Security(c, "access.denied.order", map[string]any{"order_id": oid})
		return notFound(c, "Order not found")
	default:
		applog.Error(c, "order.cancel.fail", err, map[string]any{"order_id": oid})
		return serverError(c, "Could not cancel order. Please try again.")
	}
	return c.Redirect("/my-orders")
}

// GET /api/v1/orders
func (h *OrderHandler) APIHistory(c *fiber.Ctx) error {
	orders, err := h.Order.History(c.UserContext(), currentUser(c).ID)
	if err != nil {
		applog.Error(c, "api.orders.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load orders"})
	}
	return c.JSON(fiber.Map{"orders": orders})
}
