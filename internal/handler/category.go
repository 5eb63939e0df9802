package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/baleriiupanki/tienda-val/internal/models"
	"github.com/baleriiupanki/tienda-val/internal/repository"
)

type CategoryHandler interface {
	GetAllCategories(c *gin.Context)
	GetCategoryByID(c *gin.Context)
	CreateCategory(c *gin.Context)
	UpdateCategory(c *gin.Context)
	DeleteCategory(c *gin.Context)
}

type categoryHandler struct {
	categoryRepo repository.CategoryRepository
	logger       *zap.Logger
}

func NewCategoryHandler(categoryRepo repository.CategoryRepository, logger *zap.Logger) CategoryHandler {
	return &categoryHandler{categoryRepo: categoryRepo, logger: logger}
}

type CategoryRequest struct {
	Nombre string `json:"nombre" binding:"required,notblank,max=100"`
}

// GetAllCategories handles GET /categorias
func (h *categoryHandler) GetAllCategories(c *gin.Context) {
	categories, err := h.categoryRepo.GetAllCategories(c.Request.Context())
	if err != nil {
		internalError(c, h.logger, "Failed to get categories", err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetCategoryByID handles GET /categorias/:id
func (h *categoryHandler) GetCategoryByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	category, err := h.categoryRepo.GetCategoryByID(c.Request.Context(), id)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Categoría no encontrada"})
			return
		}
		internalError(c, h.logger, "Failed to get category", err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// CreateCategory handles POST /categorias
func (h *categoryHandler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El nombre de la categoría es requerido"})
		return
	}

	category := &models.Category{Name: req.Nombre}
	if err := h.categoryRepo.CreateCategory(c.Request.Context(), category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "La categoría ya existe"})
			return
		}
		internalError(c, h.logger, "Failed to create category", err)
		return
	}

	h.logger.Info("Category created", zap.Int64("id", category.ID), zap.String("nombre", category.Name))
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory handles PUT /categorias/:id
func (h *categoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El nombre de la categoría es requerido"})
		return
	}

	category := &models.Category{ID: id, Name: req.Nombre}
	if err := h.categoryRepo.UpdateCategory(c.Request.Context(), category); err != nil {
		switch {
		case isNotFound(err):
			c.JSON(http.StatusNotFound, gin.H{"error": "Categoría no encontrada"})
		case errors.Is(err, repository.ErrDuplicate):
			c.JSON(http.StatusConflict, gin.H{"error": "La categoría ya existe"})
		default:
			internalError(c, h.logger, "Failed to update category", err)
		}
		return
	}

	c.JSON(http.StatusOK, category)
}

// DeleteCategory handles DELETE /categorias/:id
// A category that still has products is kept and answered with 409.
func (h *categoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.categoryRepo.DeleteCategory(c.Request.Context(), id); err != nil {
		switch {
		case isNotFound(err):
			c.JSON(http.StatusNotFound, gin.H{"error": "Categoría no encontrada"})
		case errors.Is(err, repository.ErrForeignKey):
			c.JSON(http.StatusConflict, gin.H{"error": "La categoría tiene productos asociados"})
		default:
			internalError(c, h.logger, "Failed to delete category", err)
		}
		return
	}

	h.logger.Info("Category deleted", zap.Int64("id", id))
	c.JSON(http.StatusOK, gin.H{"mensaje": "Categoría eliminada"})
}
