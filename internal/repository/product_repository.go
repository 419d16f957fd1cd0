package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/account-academy/backoffice-api/internal/models"
)

const productColumns = `id, product_name, run_date, ber, status, research_method, category, verkoop_prijs, link, prijs, land, video1, btw, merge_ex_btw, merge_in_btw, avatar_url, created_by, created_at, updated_at`

// ProductRepository manages persistence for researched products.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository constructs a ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns products matching the filter plus the total count.
func (r *ProductRepository) List(ctx context.Context, filter models.FinanceFilter) ([]models.Product, int, error) {
	base := "FROM products WHERE 1=1"
	var args []interface{}

	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(product_name) LIKE $%d OR LOWER(category) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.FromDate != "" {
		base += fmt.Sprintf(" AND run_date >= $%d", len(args)+1)
		args = append(args, filter.FromDate)
	}
	if filter.ToDate != "" {
		base += fmt.Sprintf(" AND run_date <= $%d", len(args)+1)
		args = append(args, filter.ToDate)
	}

	_, size, offset := clampPage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", productColumns, base, size, offset)
	var products []models.Product
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	return products, total, nil
}

// ListAll returns every product, oldest first. Used by the export pipeline.
func (r *ProductRepository) ListAll(ctx context.Context) ([]models.Product, error) {
	query := fmt.Sprintf("SELECT %s FROM products ORDER BY created_at", productColumns)
	var products []models.Product
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		return nil, fmt.Errorf("list all products: %w", err)
	}
	return products, nil
}

// FindByID fetches a product by id.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	query := fmt.Sprintf("SELECT %s FROM products WHERE id = $1", productColumns)
	var product models.Product
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		return nil, err
	}
	return &product, nil
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	prepareProduct(product)
	const query = `INSERT INTO products (id, product_name, run_date, ber, status, research_method, category, verkoop_prijs, link, prijs, land, video1, btw, merge_ex_btw, merge_in_btw, avatar_url, created_by, created_at, updated_at)
		VALUES (:id, :product_name, :run_date, :ber, :status, :research_method, :category, :verkoop_prijs, :link, :prijs, :land, :video1, :btw, :merge_ex_btw, :merge_in_btw, :avatar_url, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, product); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// CreateBatch inserts imported products in one transaction. The import is
// all or nothing.
func (r *ProductRepository) CreateBatch(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import products: %w", err)
	}
	defer tx.Rollback()

	const query = `INSERT INTO products (id, product_name, run_date, ber, status, research_method, category, verkoop_prijs, link, prijs, land, video1, btw, merge_ex_btw, merge_in_btw, avatar_url, created_by, created_at, updated_at)
		VALUES (:id, :product_name, :run_date, :ber, :status, :research_method, :category, :verkoop_prijs, :link, :prijs, :land, :video1, :btw, :merge_ex_btw, :merge_in_btw, :avatar_url, :created_by, :created_at, :updated_at)`
	for i := range products {
		prepareProduct(&products[i])
		if _, err := tx.NamedExecContext(ctx, query, &products[i]); err != nil {
			return fmt.Errorf("import product: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import products: %w", err)
	}
	return nil
}

// Update modifies an existing product.
func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now().UTC()
	const query = `UPDATE products SET product_name = :product_name, run_date = :run_date, ber = :ber, status = :status, research_method = :research_method,
		category = :category, verkoop_prijs = :verkoop_prijs, link = :link, prijs = :prijs, land = :land, video1 = :video1, btw = :btw,
		merge_ex_btw = :merge_ex_btw, merge_in_btw = :merge_in_btw, avatar_url = :avatar_url, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, product); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// Delete removes a product.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func prepareProduct(product *models.Product) {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
}
