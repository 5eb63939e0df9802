package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"go.uber.org/zap"

	"github.com/baleriiupanki/tienda-val/internal/repository"
)

var registerOnce sync.Once

// RegisterValidations adds the custom binding rules used by request structs.
// Safe to call more than once.
func RegisterValidations() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		err = v.RegisterValidation("notblank", validators.NotBlank)
	})
	return err
}

var errInvalidNumber = errors.New("invalid number")

// parseID reads a positive integer path parameter. It writes a 400 and
// returns false when the parameter is not one.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("El parámetro %s debe ser un entero positivo", name)})
		return 0, false
	}
	return id, true
}

// numberToID accepts both 3 and "3", which is what the storefront forms send.
func numberToID(n json.Number) (int64, error) {
	id, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidNumber
	}
	return id, nil
}

func optionalID(n json.Number) (*int64, error) {
	if n == "" {
		return nil, nil
	}
	id, err := numberToID(n)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// maxPrice is the largest value a NUMERIC(10,2) precio column holds.
const maxPrice = 99999999.99

func numberToPrice(n json.Number) (float64, error) {
	price, err := n.Float64()
	if err != nil || price < 0 || price > maxPrice {
		return 0, errInvalidNumber
	}
	return price, nil
}

// internalError logs err and answers with a generic message. Store errors are
// never echoed to the client.
func internalError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	logger.Error(msg, zap.Error(err), zap.String("path", c.Request.URL.Path))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Error en el servidor"})
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
