package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/baleriiupanki/tienda-val/internal/config"
	"github.com/baleriiupanki/tienda-val/internal/crypto"
	"github.com/baleriiupanki/tienda-val/internal/models"
	"github.com/baleriiupanki/tienda-val/internal/repository"
	"github.com/baleriiupanki/tienda-val/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCatalogRouter(t *testing.T) *gin.Engine {
	t.Helper()
	require.NoError(t, RegisterValidations())
	logger := zaptest.NewLogger(t)

	db, err := repository.NewDB(config.DatabaseConfig{Driver: "sqlite", URL: "file::memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repository.MigrateDB(db, logger))

	categories := NewCategoryHandler(repository.NewCategoryRepository(db, logger), logger)
	products := NewProductHandler(repository.NewProductRepository(db, logger), repository.NewImageRepository(db, logger), logger)
	images := NewImageHandler(repository.NewImageRepository(db, logger), logger)

	r := gin.New()
	r.GET("/categorias", categories.GetAllCategories)
	r.GET("/categorias/:id", categories.GetCategoryByID)
	r.POST("/categorias", categories.CreateCategory)
	r.PUT("/categorias/:id", categories.UpdateCategory)
	r.DELETE("/categorias/:id", categories.DeleteCategory)
	r.GET("/productos", products.GetAllProducts)
	r.GET("/productos/:id", products.GetProductByID)
	r.POST("/productos", products.CreateProduct)
	r.PUT("/productos/:id", products.UpdateProduct)
	r.DELETE("/productos/:id", products.DeleteProduct)
	r.GET("/imagenes", images.GetImages)
	r.POST("/imagenes", images.CreateImage)
	r.DELETE("/imagenes/:id", images.DeleteImage)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestCategoryHandlers(t *testing.T) {
	r := newCatalogRouter(t)

	w := do(t, r, http.MethodGet, "/categorias", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(t, r, http.MethodPost, "/categorias", gin.H{"nombre": "Consolas"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.Category](t, w)
	assert.Equal(t, "Consolas", created.Name)
	assert.NotZero(t, created.ID)

	w = do(t, r, http.MethodPost, "/categorias", gin.H{"nombre": "Consolas"})
	assert.Equal(t, http.StatusConflict, w.Code)

	for _, body := range []any{gin.H{}, gin.H{"nombre": "   "}, "{not json"} {
		w = do(t, r, http.MethodPost, "/categorias", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	w = do(t, r, http.MethodGet, "/categorias/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodGet, "/categorias/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, r, http.MethodGet, "/categorias/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPut, "/categorias/1", gin.H{"nombre": "Videoconsolas"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"nombre":"Videoconsolas"}`, w.Body.String())
	w = do(t, r, http.MethodPut, "/categorias/99", gin.H{"nombre": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPost, "/productos", gin.H{"nombre": "PS5", "precio": 500, "categoria_id": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(t, r, http.MethodDelete, "/categorias/1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodDelete, "/productos/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodDelete, "/categorias/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"mensaje":"Categoría eliminada"}`, w.Body.String())
	w = do(t, r, http.MethodDelete, "/categorias/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductHandlers(t *testing.T) {
	r := newCatalogRouter(t)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/categorias", gin.H{"nombre": "Computadoras"}).Code)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/categorias", gin.H{"nombre": "Accesorios"}).Code)

	t.Run("create accepts string numbers from the storefront", func(t *testing.T) {
		w := do(t, r, http.MethodPost, "/productos", `{"nombre":"Laptop","precio":"3500.50","categoria_id":"1","descripcion":"16GB RAM"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		p := decode[models.Product](t, w)
		assert.Equal(t, int64(1), p.ID)
		assert.InDelta(t, 3500.5, p.Price, 0.001)
		require.NotNil(t, p.CategoryName)
		assert.Equal(t, "Computadoras", *p.CategoryName)
	})

	t.Run("create validation", func(t *testing.T) {
		tests := []struct {
			name string
			body string
			want int
		}{
			{"missing nombre", `{"precio":1}`, http.StatusBadRequest},
			{"missing precio", `{"nombre":"x"}`, http.StatusBadRequest},
			{"negative precio", `{"nombre":"x","precio":-1}`, http.StatusBadRequest},
			{"precio above column range", `{"nombre":"x","precio":"100000000"}`, http.StatusBadRequest},
			{"precio at column limit", `{"nombre":"Caro","precio":99999999.99}`, http.StatusCreated},
			{"bad categoria_id", `{"nombre":"x","precio":1,"categoria_id":"abc"}`, http.StatusBadRequest},
			{"unknown categoria", `{"nombre":"x","precio":1,"categoria_id":99}`, http.StatusBadRequest},
			{"no categoria", `{"nombre":"Suelto","precio":0}`, http.StatusCreated},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := do(t, r, http.MethodPost, "/productos", tt.body)
				assert.Equal(t, tt.want, w.Code, w.Body.String())
			})
		}
	})

	t.Run("list and filter", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/productos", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]models.Product](t, w), 3)

		w = do(t, r, http.MethodGet, "/productos?categoria=Computadoras", nil)
		require.Equal(t, http.StatusOK, w.Code)
		filtered := decode[[]models.Product](t, w)
		require.Len(t, filtered, 1)
		assert.Equal(t, "Laptop", filtered[0].Name)
	})

	t.Run("detail embeds images", func(t *testing.T) {
		w := do(t, r, http.MethodPost, "/imagenes", gin.H{"url": "https://cdn.example.com/laptop.jpg", "producto_id": 1})
		require.Equal(t, http.StatusCreated, w.Code)

		w = do(t, r, http.MethodGet, "/productos/1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		detail := decode[models.ProductDetail](t, w)
		assert.Equal(t, "16GB RAM", detail.Description)
		require.Len(t, detail.Images, 1)
		assert.Equal(t, "https://cdn.example.com/laptop.jpg", detail.Images[0].URL)

		w = do(t, r, http.MethodGet, "/productos/99", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Producto no encontrado"}`, w.Body.String())
	})

	t.Run("update keeps description when omitted", func(t *testing.T) {
		w := do(t, r, http.MethodPut, "/productos/1", gin.H{"nombre": "Laptop Pro", "precio": 4000, "categoria_id": 2})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		p := decode[models.Product](t, w)
		assert.Equal(t, "Laptop Pro", p.Name)
		assert.Equal(t, "16GB RAM", p.Description)
		assert.Equal(t, "Accesorios", *p.CategoryName)

		w = do(t, r, http.MethodPut, "/productos/99", gin.H{"nombre": "x", "precio": 1})
		assert.Equal(t, http.StatusNotFound, w.Code)
		w = do(t, r, http.MethodPut, "/productos/1", gin.H{"nombre": "x", "precio": 1, "categoria_id": 99})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		w := do(t, r, http.MethodDelete, "/productos/1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"mensaje":"Producto eliminado"}`, w.Body.String())

		w = do(t, r, http.MethodGet, "/imagenes?producto_id=1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())

		w = do(t, r, http.MethodDelete, "/productos/1", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		w = do(t, r, http.MethodDelete, "/productos/0", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestImageHandlers(t *testing.T) {
	r := newCatalogRouter(t)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/productos", gin.H{"nombre": "Mouse", "precio": 20}).Code)

	w := do(t, r, http.MethodGet, "/imagenes", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Falta el parámetro producto_id"}`, w.Body.String())
	w = do(t, r, http.MethodGet, "/imagenes?producto_id=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/imagenes", gin.H{"url": "not a url", "producto_id": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, r, http.MethodPost, "/imagenes", gin.H{"url": "https://cdn.example.com/m.jpg", "producto_id": 42})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"El producto no existe"}`, w.Body.String())

	w = do(t, r, http.MethodPost, "/imagenes", `{"url":"https://cdn.example.com/m.jpg","producto_id":"1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	image := decode[models.Image](t, w)
	assert.Equal(t, int64(1), image.ProductID)

	w = do(t, r, http.MethodGet, "/imagenes?producto_id=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Image](t, w), 1)

	w = do(t, r, http.MethodDelete, "/imagenes/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodDelete, "/imagenes/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type stubAuthService struct {
	registerErr error
	loginErr    error
	gotUsername string
}

func (s *stubAuthService) Register(_ context.Context, username, _ string) (*models.User, error) {
	s.gotUsername = username
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &models.User{ID: 1, Username: username}, nil
}

func (s *stubAuthService) Login(_ context.Context, username, _ string) (string, time.Time, error) {
	s.gotUsername = username
	if s.loginErr != nil {
		return "", time.Time{}, s.loginErr
	}
	return "signed.jwt.token", time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC), nil
}

func newAuthRouter(t *testing.T, svc service.AuthService) *gin.Engine {
	h := NewAuthHandler(svc, zaptest.NewLogger(t))
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	return r
}

func TestAuthHandler(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		svc      *stubAuthService
		wantCode int
		wantBody string
	}{
		{"register ok", "/auth/register", `{"username":"ana","password":"1234"}`, &stubAuthService{}, http.StatusCreated, `{"message":"Usuario registrado con éxito"}`},
		{"register conflict", "/auth/register", `{"username":"ana","password":"1234"}`, &stubAuthService{registerErr: service.ErrUserAlreadyExists}, http.StatusConflict, `{"message":"El usuario ya existe"}`},
		{"register missing", "/auth/register", `{"username":"ana"}`, &stubAuthService{registerErr: service.ErrInvalidInput}, http.StatusBadRequest, `{"message":"Usuario y contraseña son requeridos"}`},
		{"register malformed", "/auth/register", `{`, &stubAuthService{}, http.StatusBadRequest, `{"message":"Usuario y contraseña son requeridos"}`},
		{"register store failure is not echoed", "/auth/register", `{"username":"ana","password":"1234"}`, &stubAuthService{registerErr: errors.New("pq: relation usuarios does not exist")}, http.StatusInternalServerError, `{"message":"Error en el servidor"}`},
		{"register too long", "/auth/register", `{"username":"ana","password":"1234"}`, &stubAuthService{registerErr: service.ErrCredentialsTooLong}, http.StatusBadRequest, `{"message":"Usuario o contraseña demasiado largos"}`},
		{"login ok", "/auth/login", `{"username":"ana","password":"1234"}`, &stubAuthService{}, http.StatusOK, `{"message":"Login exitoso","token":"signed.jwt.token","expires_at":"2026-01-01T13:00:00Z"}`},
		{"login bad credentials", "/auth/login", `{"username":"ana","password":"x"}`, &stubAuthService{loginErr: service.ErrInvalidCredentials}, http.StatusUnauthorized, `{"message":"Usuario o contraseña incorrectos"}`},
		{"login missing", "/auth/login", `{}`, &stubAuthService{loginErr: service.ErrInvalidInput}, http.StatusBadRequest, `{"message":"Usuario y contraseña son requeridos"}`},
		{"login store failure is not echoed", "/auth/login", `{"username":"ana","password":"1234"}`, &stubAuthService{loginErr: errors.New("dial tcp: connection refused")}, http.StatusInternalServerError, `{"message":"Error en el servidor"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, newAuthRouter(t, tt.svc), http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestAuthHandler_AcceptsUsuarioAlias(t *testing.T) {
	svc := &stubAuthService{}
	w := do(t, newAuthRouter(t, svc), http.MethodPost, "/auth/login", `{"usuario":"val","password":"1234"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "val", svc.gotUsername)
}

func TestAuthHandler_RejectsOverlongUsername(t *testing.T) {
	logger := zaptest.NewLogger(t)
	db, err := repository.NewDB(config.DatabaseConfig{Driver: "sqlite", URL: "file::memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repository.MigrateDB(db, logger))

	hasher, err := crypto.NewHasher(crypto.Config{Algorithm: crypto.AlgorithmBcrypt, BcryptCost: 4})
	require.NoError(t, err)
	tokens, err := service.NewTokenManager("test-secret-with-enough-bytes", time.Hour)
	require.NoError(t, err)
	svc, err := service.NewAuthService(repository.NewAuthRepository(db, logger), hasher, tokens, nil, logger)
	require.NoError(t, err)
	r := newAuthRouter(t, svc)

	w := do(t, r, http.MethodPost, "/auth/register", gin.H{"usuario": strings.Repeat("v", 101), "password": "1234"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Usuario o contraseña demasiado largos"}`, w.Body.String())

	w = do(t, r, http.MethodPost, "/auth/register", gin.H{"usuario": "val", "password": strings.Repeat("p", 73)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/auth/register", gin.H{"usuario": strings.Repeat("v", 100), "password": "1234"})
	assert.Equal(t, http.StatusCreated, w.Code)
}
