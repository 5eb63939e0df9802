package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/baleriiupanki/tienda-val/internal/crypto"
	"github.com/baleriiupanki/tienda-val/internal/models"
	"github.com/baleriiupanki/tienda-val/internal/repository"
)

var ( // Define custom errors
	ErrInvalidInput       = errors.New("username and password are required")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCredentialsTooLong = errors.New("username or password too long")
)

// MaxUsernameLength matches the usuarios.usuario column width.
const MaxUsernameLength = 100

// PasswordHasher is satisfied by crypto.MultiHasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) error
	NeedsRehash(digest string) bool
}

type TokenIssuer interface {
	Issue(userID int64, username string) (string, time.Time, error)
}

// AuthRecorder observes authentication outcomes, e.g. for metrics.
type AuthRecorder interface {
	ObserveAuth(operation, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAuth(string, string) {}

type AuthService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // Returns JWT token, expiration time, and error
}

type authService struct {
	repo     repository.AuthRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	recorder AuthRecorder
	logger   *zap.Logger

	// dummyDigest is verified against when the username is unknown so that
	// both failure paths cost the same.
	dummyDigest string
}

func NewAuthService(repo repository.AuthRepository, hasher PasswordHasher, tokens TokenIssuer, recorder AuthRecorder, logger *zap.Logger) (AuthService, error) {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	dummy, err := hasher.Hash("tienda-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy digest: %w", err)
	}
	return &authService{
		repo:        repo,
		hasher:      hasher,
		tokens:      tokens,
		recorder:    recorder,
		logger:      logger,
		dummyDigest: dummy,
	}, nil
}

func (s *authService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if isBlank(username) || isBlank(password) {
		s.recorder.ObserveAuth("register", "invalid")
		return nil, ErrInvalidInput
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		s.recorder.ObserveAuth("register", "invalid")
		return nil, ErrCredentialsTooLong
	}

	passwordHash, err := s.hasher.Hash(password)
	if errors.Is(err, crypto.ErrPasswordTooLong) {
		s.recorder.ObserveAuth("register", "invalid")
		return nil, ErrCredentialsTooLong
	}
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		s.recorder.ObserveAuth("register", "error")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Username: username, PasswordHash: passwordHash}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.logger.Info("Registration rejected: username taken", zap.String("username", username))
			s.recorder.ObserveAuth("register", "conflict")
			return nil, ErrUserAlreadyExists
		}
		s.logger.Error("Failed to create user", zap.String("username", username), zap.Error(err))
		s.recorder.ObserveAuth("register", "error")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", zap.String("username", user.Username), zap.Int64("id", user.ID))
	s.recorder.ObserveAuth("register", "success")
	return user, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	if isBlank(username) || isBlank(password) {
		s.recorder.ObserveAuth("login", "invalid")
		return "", time.Time{}, ErrInvalidInput
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = s.hasher.Verify(password, s.dummyDigest)
			s.logger.Info("Login failed", zap.String("username", username))
			s.recorder.ObserveAuth("login", "unauthorized")
			return "", time.Time{}, ErrInvalidCredentials
		}
		s.logger.Error("Failed to get user by username", zap.Error(err))
		s.recorder.ObserveAuth("login", "error")
		return "", time.Time{}, fmt.Errorf("failed to retrieve user: %w", err)
	}

	if err := s.hasher.Verify(password, user.PasswordHash); err != nil {
		s.logger.Info("Login failed", zap.String("username", username), zap.Error(err))
		s.recorder.ObserveAuth("login", "unauthorized")
		return "", time.Time{}, ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.upgradePasswordHash(ctx, user, password)
	}

	tokenString, expiresAt, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		s.logger.Error("Failed to generate JWT token", zap.Error(err))
		s.recorder.ObserveAuth("login", "error")
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("User logged in successfully.", zap.String("username", user.Username))
	s.recorder.ObserveAuth("login", "success")
	return tokenString, expiresAt, nil
}

// upgradePasswordHash replaces a legacy or outdated digest. Failure leaves the
// old digest in place; the login itself still succeeds.
func (s *authService) upgradePasswordHash(ctx context.Context, user *models.User, password string) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn("Failed to rehash password", zap.Int64("id", user.ID), zap.Error(err))
		return
	}
	if err := s.repo.UpdatePasswordHash(ctx, user.ID, digest); err != nil {
		s.logger.Warn("Failed to store upgraded password hash", zap.Int64("id", user.ID), zap.Error(err))
		return
	}
	s.logger.Info("Upgraded password hash", zap.Int64("id", user.ID))
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
