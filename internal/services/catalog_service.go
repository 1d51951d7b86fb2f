package services

import (
	"context"
	"strings"

	"bakery/internal/domain"
)

type CategoryLister interface {
	List(ctx context.Context) ([]domain.Category, error)
}

type ProductFinder interface {
	Get(ctx context.Context, id string) (domain.Product, error)
	Search(ctx context.Context, q, category string, limit, offset int) ([]domain.Product, error)
}

type CatalogService struct {
	Cats  CategoryLister
	Prods ProductFinder
}

func NewCatalogService(cats CategoryLister, prods ProductFinder) *CatalogService {
	return &CatalogService{Cats: cats, Prods: prods}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.Cats.List(ctx)
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.Prods.Get(ctx, id)
}

// Search lists products whose name contains q. A category of "" or "all"
// does not filter.
func (s *CatalogService) Search(ctx context.Context, q, category string, page, pageSize int) ([]domain.Product, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 24
	}
	if strings.EqualFold(strings.TrimSpace(category), "all") {
		category = ""
	}
	offset := (page - 1) * pageSize
	return s.Prods.Search(ctx, q, strings.TrimSpace(category), pageSize, offset)
}
