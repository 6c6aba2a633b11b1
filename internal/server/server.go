// Package server is the development identity backend that implements the pre-check and
// login contract used by the signin client.
//
// @title Signin Identity API
// @version 1.0
// @description Identity backend for the signin client
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/signin-dev/signin/internal/auth"
	"github.com/signin-dev/signin/internal/config"
	"github.com/signin-dev/signin/internal/models"
)

// Server represents the HTTP server
type Server struct {
	router   *gin.Engine
	db       *gorm.DB
	config   *config.Config
	logger   zerolog.Logger
	tokens   *auth.Tokens
	precheck *PrecheckPolicy
	recorder AttemptRecorder
	version  string
}

// New creates a new server instance on an already migrated database
func New(cfg *config.Config, db *gorm.DB, recorder AttemptRecorder, zlog zerolog.Logger, version string) (*Server, error) {
	tokens := auth.NewTokens("", cfg.Auth.TokenTTL)

	// JWT secret is generated during first setup and persisted in the config row
	var appConfig models.Config
	if err := db.First(&appConfig).Error; err == nil {
		tokens.SetSecret(appConfig.JWTSecret)
		zlog.Debug().Msg("Loaded JWT secret from database")
	} else if errors.Is(err, gorm.ErrRecordNotFound) {
		zlog.Info().Msg("No config found - JWT will be initialized during first setup")
	} else {
		return nil, err
	}

	server := &Server{
		db:       db,
		config:   cfg,
		logger:   zlog,
		tokens:   tokens,
		precheck: NewPrecheckPolicy(db, cfg.Auth.PrecheckRatePerMinute),
		recorder: recorder,
		version:  version,
	}

	server.setupRouter()

	return server, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// CORS middleware for browser-based login forms
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.HTTP.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	// Public auth endpoints (no auth required)
	s.router.POST("/api/setup", s.setupFirstAdmin)
	s.router.POST("/api/auth/register", s.register)
	s.router.POST("/api/auth/precheck", s.precheckIdentifier)
	s.router.POST("/api/auth/login", s.login)

	// Authenticated API routes (JWT required)
	api := s.router.Group("/api")
	api.Use(JWTAuthMiddleware(s.db, s.tokens, s.logger))
	{
		api.GET("/auth/me", s.getCurrentUser)

		// User management (super admin only)
		userRoutes := api.Group("/users")
		userRoutes.Use(SuperAdminOnlyMiddleware(s.logger))
		{
			userRoutes.GET("", s.listUsers)
			userRoutes.POST("", s.createUser)
			userRoutes.DELETE("/:id", s.deleteUser)
			userRoutes.POST("/:id/ban", s.banUser)
		}
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "signin-identity",
		"version":   s.version,
	})
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM
func (s *Server) Start() error {
	addr := ":" + s.config.HTTP.Port

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	if err := s.recorder.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Error closing attempt recorder")
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
