package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/baleriiupanki/tienda-val/internal/models"
)

type ProductRepository interface {
	// GetAllProducts lists products with their category name. A non-empty
	// categoryName keeps only products in that category.
	GetAllProducts(ctx context.Context, categoryName string) ([]*models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product, description *string) error
	DeleteProduct(ctx context.Context, id int64) error
}

type productRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewProductRepository(db *sqlx.DB, logger *zap.Logger) ProductRepository {
	return &productRepository{db: db, logger: logger}
}

const productSelect = `
	SELECT
		p.id,
		p.nombre,
		p.precio,
		COALESCE(p.descripcion, '') AS descripcion,
		p.categoria_id,
		c.nombre AS categoria
	FROM productos p
	LEFT JOIN categorias c ON p.categoria_id = c.id
`

func (r *productRepository) GetAllProducts(ctx context.Context, categoryName string) ([]*models.Product, error) {
	query := productSelect
	var args []interface{}
	if categoryName != "" {
		query += ` WHERE c.nombre = ?`
		args = append(args, categoryName)
	}
	query += ` ORDER BY p.id`

	products := []*models.Product{}
	if err := r.db.SelectContext(ctx, &products, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	query := r.db.Rebind(productSelect + ` WHERE p.id = ?`)
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		return nil, translateError(err)
	}
	return &product, nil
}

// CreateProduct returns ErrForeignKey when CategoryID names no category.
func (r *productRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	query := r.db.Rebind(`
		INSERT INTO productos (nombre, precio, descripcion, categoria_id)
		VALUES (?, ?, ?, ?)
		RETURNING id`)
	err := r.db.QueryRowxContext(ctx, query,
		product.Name, product.Price, product.Description, product.CategoryID,
	).Scan(&product.ID)
	if err != nil {
		return fmt.Errorf("insert product: %w", translateError(err))
	}
	return nil
}

// UpdateProduct overwrites name, price and category. The description is only
// replaced when one is given.
func (r *productRepository) UpdateProduct(ctx context.Context, product *models.Product, description *string) error {
	query := r.db.Rebind(`
		UPDATE productos
		SET nombre = ?, precio = ?, categoria_id = ?, descripcion = COALESCE(?, descripcion)
		WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query,
		product.Name, product.Price, product.CategoryID, description, product.ID)
	if err != nil {
		return fmt.Errorf("update product %d: %w", product.ID, translateError(err))
	}
	return expectOne(res)
}

// DeleteProduct removes the product; its images go with it.
func (r *productRepository) DeleteProduct(ctx context.Context, id int64) error {
	query := r.db.Rebind(`DELETE FROM productos WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, translateError(err))
	}
	return expectOne(res)
}
