package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/baleriiupanki/tienda-val/internal/models"
)

type CategoryRepository interface {
	GetAllCategories(ctx context.Context) ([]*models.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id int64) error
}

type categoryRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewCategoryRepository(db *sqlx.DB, logger *zap.Logger) CategoryRepository {
	return &categoryRepository{db: db, logger: logger}
}

func (r *categoryRepository) GetAllCategories(ctx context.Context) ([]*models.Category, error) {
	categories := []*models.Category{}
	if err := r.db.SelectContext(ctx, &categories, `SELECT id, nombre FROM categorias ORDER BY id`); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	query := r.db.Rebind(`SELECT id, nombre FROM categorias WHERE id = ?`)
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		return nil, translateError(err)
	}
	return &category, nil
}

func (r *categoryRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	query := r.db.Rebind(`INSERT INTO categorias (nombre) VALUES (?) RETURNING id`)
	if err := r.db.QueryRowxContext(ctx, query, category.Name).Scan(&category.ID); err != nil {
		return fmt.Errorf("insert category: %w", translateError(err))
	}
	return nil
}

func (r *categoryRepository) UpdateCategory(ctx context.Context, category *models.Category) error {
	query := r.db.Rebind(`UPDATE categorias SET nombre = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, category.Name, category.ID)
	if err != nil {
		return fmt.Errorf("update category %d: %w", category.ID, translateError(err))
	}
	return expectOne(res)
}

// DeleteCategory fails with ErrForeignKey while products still reference it.
func (r *categoryRepository) DeleteCategory(ctx context.Context, id int64) error {
	query := r.db.Rebind(`DELETE FROM categorias WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, translateError(err))
	}
	return expectOne(res)
}
