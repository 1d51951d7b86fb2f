package repos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"bakery/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productColumns = `
    p.id, p.category_id, c.name AS category_name, p.name, p.description,
    p.price, p.image, COALESCE(p.created_at,'') AS created_at`

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, `
	  SELECT`+productColumns+`
	  FROM products p JOIN categories c ON c.id = p.category_id
	  WHERE p.id = ?
	`, id)
	if err != nil {
		return domain.Product{}, notFound(err, "product "+id)
	}
	return p, nil
}

// Search filters by a case-insensitive name substring and a category name
// (case-insensitive). Empty arguments do not filter.
func (r *ProductRepo) Search(ctx context.Context, q, category string, limit, offset int) ([]domain.Product, error) {
	where := `1 = 1`
	args := []any{}
	if q = strings.TrimSpace(q); q != "" {
		where += ` AND LOWER(p.name) LIKE ?`
		args = append(args, "%"+strings.ToLower(q)+"%")
	}
	if category != "" {
		where += ` AND LOWER(c.name) = LOWER(?)`
		args = append(args, category)
	}

	query := `
	  SELECT` + productColumns + `
	  FROM products p JOIN categories c ON c.id = p.category_id
	  WHERE ` + where + `
	  ORDER BY p.created_at DESC, p.name
	  LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, query, args...)
	return out, err
}
