package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/baleriiupanki/tienda-val/internal/config"
	"github.com/baleriiupanki/tienda-val/internal/crypto"
	"github.com/baleriiupanki/tienda-val/internal/handler"
	"github.com/baleriiupanki/tienda-val/internal/metrics"
	"github.com/baleriiupanki/tienda-val/internal/middleware"
	"github.com/baleriiupanki/tienda-val/internal/repository"
	"github.com/baleriiupanki/tienda-val/internal/service"
)

type Server struct {
	router  *gin.Engine
	db      *sqlx.DB
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	tokens  *service.TokenManager
}

// NewServer wires repositories, services and handlers onto a gin engine.
func NewServer(db *sqlx.DB, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if err := handler.RegisterValidations(); err != nil {
		return nil, err
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted_proxies: %w", err)
	}

	s := &Server{
		router: router,
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
	if cfg.Metrics.Enabled {
		s.metrics = metrics.New()
	}

	var recorder service.AuthRecorder
	if s.metrics != nil {
		recorder = s.metrics
	}
	authService, tokens, err := BuildAuthService(db, cfg.Auth, recorder, logger)
	if err != nil {
		return nil, err
	}
	s.tokens = tokens

	s.setupMiddleware()
	s.setupRoutes(authService)
	return s, nil
}

// BuildAuthService assembles the credential store, password hasher and token
// manager behind an AuthService.
func BuildAuthService(db *sqlx.DB, cfg config.AuthConfig, recorder service.AuthRecorder, logger *zap.Logger) (service.AuthService, *service.TokenManager, error) {
	hasher, err := crypto.NewHasher(cfg.Hasher)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize password hasher: %w", err)
	}
	tokens, err := service.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL, service.WithIssuer(cfg.Issuer))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize token manager: %w", err)
	}

	authRepo := repository.NewAuthRepository(db, logger)
	authService, err := service.NewAuthService(authRepo, hasher, tokens, recorder, logger)
	if err != nil {
		return nil, nil, err
	}
	return authService, tokens, nil
}

func (s *Server) setupMiddleware() {
	quiet := []string{"/ping", "/health"}
	if s.metrics != nil {
		quiet = append(quiet, s.cfg.Metrics.Path)
	}

	s.router.Use(
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.RequestLogger(s.logger, quiet...),
	)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware())
	}
	s.router.Use(middleware.CORS(s.cfg.CORS))
	if s.cfg.IPFilter.Enabled {
		s.router.Use(middleware.IPAllowlist(s.cfg.IPFilter.AllowedIPs, s.logger))
	}
}

func (s *Server) setupRoutes(authService service.AuthService) {
	categoryRepo := repository.NewCategoryRepository(s.db, s.logger)
	productRepo := repository.NewProductRepository(s.db, s.logger)
	imageRepo := repository.NewImageRepository(s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	categoryHandler := handler.NewCategoryHandler(categoryRepo, s.logger)
	productHandler := handler.NewProductHandler(productRepo, imageRepo, s.logger)
	imageHandler := handler.NewImageHandler(imageRepo, s.logger)

	requireAuth := middleware.RequireAuth(s.tokens, s.logger)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	s.router.GET("/health", s.health)

	if s.metrics != nil {
		s.router.GET(s.cfg.Metrics.Path, gin.WrapH(s.metrics.Handler()))
	}

	// Authentication routes
	authGroup := s.router.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	// Catalog reads are public, writes need a bearer token.
	categories := s.router.Group("/categorias")
	{
		categories.GET("", categoryHandler.GetAllCategories)
		categories.GET("/:id", categoryHandler.GetCategoryByID)
		categories.POST("", requireAuth, categoryHandler.CreateCategory)
		categories.PUT("/:id", requireAuth, categoryHandler.UpdateCategory)
		categories.DELETE("/:id", requireAuth, categoryHandler.DeleteCategory)
	}

	products := s.router.Group("/productos")
	{
		products.GET("", productHandler.GetAllProducts)
		products.GET("/:id", productHandler.GetProductByID)
		products.POST("", requireAuth, productHandler.CreateProduct)
		products.PUT("/:id", requireAuth, productHandler.UpdateProduct)
		products.DELETE("/:id", requireAuth, productHandler.DeleteProduct)
	}

	images := s.router.Group("/imagenes")
	{
		images.GET("", imageHandler.GetImages)
		images.POST("", requireAuth, imageHandler.CreateImage)
		images.DELETE("/:id", requireAuth, imageHandler.DeleteImage)
	}

	s.router.NoRoute(staticFiles(s.cfg.Server.StaticDir))
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// staticFiles serves the storefront from dir for any GET or HEAD that no API
// route matched. Directories other than the root are never listed.
func staticFiles(dir string) gin.HandlerFunc {
	root := http.Dir(dir)
	fileServer := http.FileServer(root)

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			name := path.Clean("/" + c.Request.URL.Path)
			if name == "/" {
				name = "/index.html"
			}
			if isFile(root, name) {
				fileServer.ServeHTTP(c.Writer, c.Request)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Ruta no encontrada"})
	}
}

func isFile(root http.FileSystem, name string) bool {
	f, err := root.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	return err == nil && !info.IsDir()
}

// Router exposes the configured engine, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("address", srv.Addr), zap.Strings("allowed_origins", s.cfg.CORS.AllowedOrigins))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	// Drain the listener goroutine.
	<-errCh
	s.logger.Info("Server exited")
	return nil
}
