package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/baleriiupanki/tienda-val/internal/models"
	"github.com/baleriiupanki/tienda-val/internal/repository"
)

type ImageHandler interface {
	GetImages(c *gin.Context)
	CreateImage(c *gin.Context)
	DeleteImage(c *gin.Context)
}

type imageHandler struct {
	imageRepo repository.ImageRepository
	logger    *zap.Logger
}

func NewImageHandler(imageRepo repository.ImageRepository, logger *zap.Logger) ImageHandler {
	return &imageHandler{imageRepo: imageRepo, logger: logger}
}

type ImageRequest struct {
	URL        string      `json:"url" binding:"required,url,max=2048"`
	ProductoID json.Number `json:"producto_id" binding:"required"`
}

// GetImages handles GET /imagenes?producto_id=N
func (h *imageHandler) GetImages(c *gin.Context) {
	productID, err := numberToID(json.Number(c.Query("producto_id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Falta el parámetro producto_id"})
		return
	}

	images, err := h.imageRepo.GetImagesByProductID(c.Request.Context(), productID)
	if err != nil {
		internalError(c, h.logger, "Failed to get images", err)
		return
	}
	c.JSON(http.StatusOK, images)
}

// CreateImage handles POST /imagenes
func (h *imageHandler) CreateImage(c *gin.Context) {
	var req ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url válida y producto_id son requeridos"})
		return
	}
	productID, err := numberToID(req.ProductoID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "producto_id debe ser un entero positivo"})
		return
	}

	image := &models.Image{URL: req.URL, ProductID: productID}
	if err := h.imageRepo.CreateImage(c.Request.Context(), image); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "El producto no existe"})
			return
		}
		internalError(c, h.logger, "Failed to create image", err)
		return
	}

	c.JSON(http.StatusCreated, image)
}

// DeleteImage handles DELETE /imagenes/:id
func (h *imageHandler) DeleteImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.imageRepo.DeleteImage(c.Request.Context(), id); err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Imagen no encontrada"})
			return
		}
		internalError(c, h.logger, "Failed to delete image", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"mensaje": "Imagen eliminada"})
}
