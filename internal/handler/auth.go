package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/baleriiupanki/tienda-val/internal/service"
)

type AuthHandler interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
}

type authHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService service.AuthService, logger *zap.Logger) AuthHandler {
	return &authHandler{authService: authService, logger: logger}
}

// CredentialsRequest is the body of both auth endpoints. The storefront sends
// "usuario"; API clients send "username".
type CredentialsRequest struct {
	Username string `json:"username"`
	Usuario  string `json:"usuario"`
	Password string `json:"password"`
}

func (r CredentialsRequest) username() string {
	if r.Username != "" {
		return r.Username
	}
	return r.Usuario
}

const msgCredentialsRequired = "Usuario y contraseña son requeridos"

func (h *authHandler) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Info("Failed to bind JSON for registration", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": msgCredentialsRequired})
		return
	}

	_, err := h.authService.Register(c.Request.Context(), req.username(), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"message": msgCredentialsRequired})
		case errors.Is(err, service.ErrCredentialsTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Usuario o contraseña demasiado largos"})
		case errors.Is(err, service.ErrUserAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"message": "El usuario ya existe"})
		default:
			h.logger.Error("Failed to register user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error en el servidor"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Usuario registrado con éxito"})
}

func (h *authHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Info("Failed to bind JSON for login", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": msgCredentialsRequired})
		return
	}

	tokenString, expirationTime, err := h.authService.Login(c.Request.Context(), req.username(), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"message": msgCredentialsRequired})
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Usuario o contraseña incorrectos"})
		default:
			h.logger.Error("Failed to login user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error en el servidor"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Login exitoso",
		"token":      tokenString,
		"expires_at": expirationTime,
	})
}
