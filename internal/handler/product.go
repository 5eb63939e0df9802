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

type ProductHandler interface {
	GetAllProducts(c *gin.Context)
	GetProductByID(c *gin.Context)
	CreateProduct(c *gin.Context)
	UpdateProduct(c *gin.Context)
	DeleteProduct(c *gin.Context)
}

type productHandler struct {
	productRepo repository.ProductRepository
	imageRepo   repository.ImageRepository
	logger      *zap.Logger
}

func NewProductHandler(productRepo repository.ProductRepository, imageRepo repository.ImageRepository, logger *zap.Logger) ProductHandler {
	return &productHandler{productRepo: productRepo, imageRepo: imageRepo, logger: logger}
}

// ProductRequest is the body of POST and PUT /productos. Numbers may arrive
// as JSON strings. On update a missing descripcion keeps the stored one.
type ProductRequest struct {
	Nombre      string      `json:"nombre" binding:"required,notblank,max=150"`
	Precio      json.Number `json:"precio" binding:"required"`
	CategoriaID json.Number `json:"categoria_id"`
	Descripcion *string     `json:"descripcion"`
}

// toProduct converts the request. On invalid numbers it returns the message
// to send back instead.
func (r ProductRequest) toProduct() (*models.Product, string) {
	price, err := numberToPrice(r.Precio)
	if err != nil {
		return nil, "El precio debe ser un número entre 0 y 99999999.99"
	}
	categoryID, err := optionalID(r.CategoriaID)
	if err != nil {
		return nil, "categoria_id debe ser un entero positivo"
	}
	product := &models.Product{Name: r.Nombre, Price: price, CategoryID: categoryID}
	if r.Descripcion != nil {
		product.Description = *r.Descripcion
	}
	return product, ""
}

// GetAllProducts handles GET /productos
// Query parameters:
// - categoria: category name to filter by (optional)
func (h *productHandler) GetAllProducts(c *gin.Context) {
	products, err := h.productRepo.GetAllProducts(c.Request.Context(), c.Query("categoria"))
	if err != nil {
		internalError(c, h.logger, "Failed to get products", err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// GetProductByID handles GET /productos/:id and embeds the product images.
func (h *productHandler) GetProductByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.productRepo.GetProductByID(c.Request.Context(), id)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Producto no encontrado"})
			return
		}
		internalError(c, h.logger, "Failed to get product", err)
		return
	}

	images, err := h.imageRepo.GetImagesByProductID(c.Request.Context(), id)
	if err != nil {
		internalError(c, h.logger, "Failed to get product images", err)
		return
	}

	c.JSON(http.StatusOK, models.ProductDetail{Product: *product, Images: images})
}

// CreateProduct handles POST /productos
func (h *productHandler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nombre y precio son requeridos"})
		return
	}
	product, problem := req.toProduct()
	if product == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}

	if err := h.productRepo.CreateProduct(c.Request.Context(), product); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "La categoría no existe"})
			return
		}
		internalError(c, h.logger, "Failed to create product", err)
		return
	}
	h.logger.Info("Product created", zap.Int64("id", product.ID), zap.String("nombre", product.Name))

	h.respondWithProduct(c, http.StatusCreated, product.ID)
}

// UpdateProduct handles PUT /productos/:id
func (h *productHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nombre y precio son requeridos"})
		return
	}
	product, problem := req.toProduct()
	if product == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}
	product.ID = id

	if err := h.productRepo.UpdateProduct(c.Request.Context(), product, req.Descripcion); err != nil {
		switch {
		case isNotFound(err):
			c.JSON(http.StatusNotFound, gin.H{"error": "Producto no encontrado"})
		case errors.Is(err, repository.ErrForeignKey):
			c.JSON(http.StatusBadRequest, gin.H{"error": "La categoría no existe"})
		default:
			internalError(c, h.logger, "Failed to update product", err)
		}
		return
	}

	h.respondWithProduct(c, http.StatusOK, id)
}

// DeleteProduct handles DELETE /productos/:id. Images go with the product.
func (h *productHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.productRepo.DeleteProduct(c.Request.Context(), id); err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Producto no encontrado"})
			return
		}
		internalError(c, h.logger, "Failed to delete product", err)
		return
	}

	h.logger.Info("Product deleted", zap.Int64("id", id))
	c.JSON(http.StatusOK, gin.H{"mensaje": "Producto eliminado"})
}

// respondWithProduct re-reads the row so the response carries the joined
// category name and normalized price.
func (h *productHandler) respondWithProduct(c *gin.Context, status int, id int64) {
	stored, err := h.productRepo.GetProductByID(c.Request.Context(), id)
	if err != nil {
		internalError(c, h.logger, "Failed to reload product", err)
		return
	}
	c.JSON(status, stored)
}
