// Package api serves the categorization workflow over HTTP.
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Jaikumar96/fincategorizer/internal/analytics"
	"github.com/Jaikumar96/fincategorizer/internal/ingest"
	"github.com/Jaikumar96/fincategorizer/internal/metrics"
	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/review"
	"github.com/Jaikumar96/fincategorizer/internal/service"
)

// DefaultMaxUploadSize bounds request bodies.
const DefaultMaxUploadSize = "10M"

// TransactionLister lists a user's stored transactions.
type TransactionLister interface {
	GetTransactions(ctx context.Context, userID int64, filter service.TransactionFilter) ([]model.Transaction, error)
}

// Deps are the services the API exposes. Metrics and Health are optional.
type Deps struct {
	Pipeline     *ingest.Pipeline
	Review       *review.Service
	Analytics    *analytics.Service
	Transactions TransactionLister
	Categories   service.CategoryStore
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	// Health reports whether backing stores are reachable.
	Health func(ctx context.Context) error
}

// Config holds HTTP server configuration.
type Config struct {
	// TLSCertificate switches the listener to HTTPS when set.
	TLSCertificate *tls.Certificate
	Addr           string
	MaxUploadSize  string
}

// Server provides the HTTP endpoints.
type Server struct {
	echo   *echo.Echo
	deps   Deps
	logger *slog.Logger
	config Config
}

// NewServer creates a server and registers its routes.
func NewServer(deps Deps, cfg Config) (*Server, error) {
	if deps.Pipeline == nil || deps.Review == nil || deps.Analytics == nil ||
		deps.Transactions == nil || deps.Categories == nil {
		return nil, errors.New("pipeline, review, analytics, transactions and categories are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.MaxUploadSize == "" {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}

	s := &Server{
		echo:   e,
		deps:   deps,
		logger: deps.Logger,
		config: cfg,
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.RequestID())
	e.Use(s.observe)
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(cfg.MaxUploadSize))

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api", s.requireSession)

	txns := api.Group("/transactions")
	txns.GET("", s.handleListTransactions)
	txns.POST("", s.handleCreateTransaction)
	txns.POST("/batch", s.handleBatchUpload)
	txns.GET("/review", s.handleReviewQueue)
	txns.PUT("/:id/category", s.handleCorrect)
	txns.POST("/:id/verify", s.handleVerify)
	txns.GET("/:id/corrections", s.handleCorrections)

	stats := api.Group("/analytics")
	stats.GET("/accuracy", s.handleAccuracy)
	stats.GET("/category-distribution", s.handleDistribution)
	stats.GET("/trends", s.handleTrends)
	stats.GET("/dashboard", s.handleDashboard)

	cats := api.Group("/categories")
	cats.GET("", s.handleListCategories)
	cats.POST("", s.handleCreateCategory)
	cats.PUT("/:id", s.handleUpdateCategory)
	cats.DELETE("/:id", s.handleDeleteCategory)
}

// ServeHTTP lets the server be used as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on the configured address. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start() error {
	if s.config.TLSCertificate != nil {
		s.logger.Info("Starting HTTPS server", "addr", s.config.Addr)
		srv := s.echo.TLSServer
		srv.Addr = s.config.Addr
		srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*s.config.TLSCertificate},
			MinVersion:   tls.VersionTLS12,
		}
		if err := s.echo.StartServer(srv); err != nil {
			return fmt.Errorf("https server: %w", err)
		}
		return nil
	}

	s.logger.Info("Starting HTTP server", "addr", s.config.Addr)
	if err := s.echo.Start(s.config.Addr); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	if s.deps.Health != nil {
		if err := s.deps.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
		}
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
