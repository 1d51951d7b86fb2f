package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"bakery/internal/domain"
	"bakery/internal/log"
	"bakery/internal/metrics"
	"bakery/internal/services"
	"bakery/internal/validate"
)

type CatalogHandler struct {
	Catalog  *services.CatalogService
	Feedback *services.FeedbackService
}

// GET /
func (h *CatalogHandler) Home(c *fiber.Ctx) error {
	q, ok := validate.Q(c.Query("q"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "q"})
		return c.Status(fiber.StatusBadRequest).Render("home", fiber.Map{
			"Query": "", "Products": []domain.Product{}, "Err": "Enter a valid keyword (letters/numbers only)",
		})
	}
	products, err := h.Catalog.Search(c.UserContext(), q, "", 1, 48)
	if err != nil {
		log.Error(c, "catalog.home.fail", err, nil)
		return serverError(c, "Could not load products. Please retry.")
	}
	return render(c, "home", fiber.Map{"Query": q, "Products": products})
}

// GET /products?q=&category=
func (h *CatalogHandler) Products(c *fiber.Ctx) error {
	q, okQ := validate.Q(c.Query("q"))
	category, okCat := validate.Category(c.Query("category"))
	if !okQ || !okCat {
		log.Security(c, "validation.fail", map[string]any{"field": "products.filter"})
		return c.Status(fiber.StatusBadRequest).Render("products", fiber.Map{
			"Query": "", "Category": "all", "Products": []domain.Product{}, "Err": "Invalid filter",
		})
	}
	cats, err := h.Catalog.ListCategories(c.UserContext())
	if err != nil {
		log.Error(c, "catalog.categories.fail", err, nil)
		return serverError(c, "Could not load products. Please retry.")
	}
	products, err := h.Catalog.Search(c.UserContext(), q, category, 1, 48)
	if err != nil {
		log.Error(c, "catalog.search.fail", err, nil)
		return serverError(c, "Could not load products. Please retry.")
	}
	return render(c, "products", fiber.Map{
		"Query": q, "Category": category, "Categories": cats, "Products": products,
	})
}

// GET /product/:id
func (h *CatalogHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "This item is no longer available")
	}
	p, err := h.Catalog.GetProduct(c.UserContext(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error(c, "catalog.product.fail", err, map[string]any{"product": id})
		}
		return notFound(c, "This item is no longer available")
	}
	feedbacks, err := h.Feedback.List(c.UserContext(), id)
	if err != nil {
		log.Error(c, "feedback.list.fail", err, map[string]any{"product": id})
		return serverError(c, "Could not load this product. Please retry.")
	}
	canReview := false
	if u := currentUser(c); u != nil {
		if canReview, err = h.Feedback.CanReview(c.UserContext(), u.ID, id); err != nil {
			log.Error(c, "feedback.gate.fail", err, map[string]any{"product": id})
		}
	}
	return render(c, "product_detail", fiber.Map{
		"Product": p, "Feedbacks": feedbacks, "HasPurchased": canReview,
	})
}

// POST /product/:id
func (h *CatalogHandler) SubmitFeedback(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "This item is no longer available")
	}
	u := currentUser(c)
	back := "/product/" + id

	rating, okRating := validate.Rating(c.FormValue("rating"))
	comment, okComment := validate.Comment(c.FormValue("comment"))
	if !okRating || !okComment {
		log.Security(c, "validation.fail", map[string]any{"field": "feedback"})
		setFlash(c, "error", "Pick a rating from 1 to 5 and write a comment.")
		return c.Redirect(back)
	}

	_, err := h.Feedback.Submit(c.UserContext(), u.ID, id, rating, comment)
	metrics.RecordOperation("feedback.submit", err == nil)
	switch {
	case err == nil:
		log.Audit(c, "feedback.submit", map[string]any{"product": id, "rating": rating})
	case errors.Is(err, domain.ErrNotPurchased):
		log.Security(c, "feedback.reject", map[string]any{"product": id})
	default:
		log.Error(c, "feedback.submit.fail", err, map[string]any{"product": id})
		return serverError(c, "Could not save your feedback. Please retry.")
	}
	return c.Redirect(back)
}
