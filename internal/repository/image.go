package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/baleriiupanki/tienda-val/internal/models"
)

type ImageRepository interface {
	GetImagesByProductID(ctx context.Context, productID int64) ([]*models.Image, error)
	CreateImage(ctx context.Context, image *models.Image) error
	DeleteImage(ctx context.Context, id int64) error
}

type imageRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewImageRepository(db *sqlx.DB, logger *zap.Logger) ImageRepository {
	return &imageRepository{db: db, logger: logger}
}

func (r *imageRepository) GetImagesByProductID(ctx context.Context, productID int64) ([]*models.Image, error) {
	images := []*models.Image{}
	query := r.db.Rebind(`SELECT id, url, producto_id FROM imagenes_productos WHERE producto_id = ? ORDER BY id`)
	if err := r.db.SelectContext(ctx, &images, query, productID); err != nil {
		return nil, err
	}
	return images, nil
}

// CreateImage returns ErrForeignKey when ProductID names no product.
func (r *imageRepository) CreateImage(ctx context.Context, image *models.Image) error {
	query := r.db.Rebind(`INSERT INTO imagenes_productos (url, producto_id) VALUES (?, ?) RETURNING id`)
	if err := r.db.QueryRowxContext(ctx, query, image.URL, image.ProductID).Scan(&image.ID); err != nil {
		return fmt.Errorf("insert image: %w", translateError(err))
	}
	return nil
}

func (r *imageRepository) DeleteImage(ctx context.Context, id int64) error {
	query := r.db.Rebind(`DELETE FROM imagenes_productos WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete image %d: %w", id, translateError(err))
	}
	return expectOne(res)
}
