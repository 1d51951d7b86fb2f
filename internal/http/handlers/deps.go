package handlers

import (
	"github.com/jmoiron/sqlx"

	"bakery/internal/config"
	"bakery/internal/repos"
	"bakery/internal/services"
)

type Deps struct {
	Auth *services.AuthService

	CatalogHandler *CatalogHandler
	CartHandler    *CartHandler
	OrderHandler   *OrderHandler
	AuthHandler    *AuthHandler
	AdminHandler   *AdminHandler
}

// NewDeps wires repositories and services over one database handle.
// The deliverer receives outbox ids produced by order cancellation.
func NewDeps(db *sqlx.DB, cfg config.Config, auth *services.AuthService, deliverer services.Deliverer) *Deps {
	catRepo := repos.NewCategoryRepo(db)
	prodRepo := repos.NewProductRepo(db)
	cartRepo := repos.NewCartRepo(db, cfg.CartTTL)
	orderRepo := repos.NewOrderRepo(db)
	userRepo := repos.NewUserRepo(db)
	fbRepo := repos.NewFeedbackRepo(db)

	catalogSvc := services.NewCatalogService(catRepo, prodRepo)
	cartSvc := services.NewCartService(cartRepo, prodRepo)
	orderSvc := services.NewOrderService(cartRepo, orderRepo, userRepo, deliverer)
	orderSvc.DeliverTimeout = cfg.DeliverTimeout
	fbSvc := services.NewFeedbackService(orderRepo, fbRepo)

	return &Deps{
		Auth:           auth,
		CatalogHandler: &CatalogHandler{Catalog: catalogSvc, Feedback: fbSvc},
		CartHandler:    &CartHandler{Cart: cartSvc},
		OrderHandler:   &OrderHandler{Order: orderSvc},
		AuthHandler:    &AuthHandler{Auth: auth, Cart: cartSvc},
		AdminHandler:   &AdminHandler{Order: orderSvc},
	}
}
