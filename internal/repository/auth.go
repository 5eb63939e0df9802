package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/baleriiupanki/tienda-val/internal/models"
)

// AuthRepository is the credential store. Username uniqueness is enforced by
// the schema; CreateUser reports a clash as ErrDuplicate.
type AuthRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error
}

type authRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewAuthRepository(db *sqlx.DB, logger *zap.Logger) AuthRepository {
	return &authRepository{db: db, logger: logger}
}

func (r *authRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := r.db.Rebind(`INSERT INTO usuarios (usuario, password) VALUES (?, ?) RETURNING id`)
	err := r.db.QueryRowxContext(ctx, query, user.Username, user.PasswordHash).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("insert user: %w", translateError(err))
	}
	return nil
}

func (r *authRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT id, usuario, password FROM usuarios WHERE usuario = ?`)
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *authRepository) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	query := r.db.Rebind(`UPDATE usuarios SET password = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", translateError(err))
	}
	return expectOne(res)
}
