// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — the composition root where handlers,
// middleware, services, and the database are assembled. main.go stays minimal
// (read config, build a Server, start it); everything about which URL maps to
// which handler behind which middleware lives here.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ratul/farmer-helper/internal/auth"
	"github.com/ratul/farmer-helper/internal/handler"
	"github.com/ratul/farmer-helper/internal/middleware"
	sqliteRepo "github.com/ratul/farmer-helper/internal/repository/sqlite"
	"github.com/ratul/farmer-helper/internal/service"
	"github.com/ratul/farmer-helper/internal/upstream"
)

// Config holds server configuration, loaded from the environment in main.
type Config struct {
	Port          int
	DBPath        string // path to the SQLite database file
	JWTSecret     string // HMAC key for access tokens; required
	MLServiceURL  string // base URL of the ML microservice
	WeatherAPIKey string
	MarketAPIKey  string
}

// Server owns the router, the database connection, and the token service.
// The database is closed during graceful shutdown in Start.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	tokens *auth.TokenService
}

// New creates a Server and wires the whole dependency chain:
//
//	sqlite.DB → AccountService ← TokenService, PasswordService
//	upstream clients → AdvisoryHandler
//	services → handlers → routes
//
// Each layer only receives what it needs: services get the repository
// interface (not the concrete DB), handlers get services (not repositories).
//
// A missing or too-short JWT secret fails construction — issuing tokens
// signed with an empty key would mint credentials anyone could forge.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		tokens: tokens,
	}

	s.setupRoutes()

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST /api/auth/register      → create account, issue token
//	POST /api/auth/login         → verify credentials, issue token
//	--- everything below requires Authorization: Bearer <token> ---
//	GET  /api/user/profile       → caller's profile
//	PUT  /api/user/profile       → update profile fields
//	PUT  /api/user/password      → change password
//	POST /api/crop               → crop recommendation (ML proxy)
//	POST /api/disease            → disease detection (ML proxy, image upload)
//	GET  /api/weather            → weather lookup proxy
//	GET  /api/market             → market price proxy
func (s *Server) setupRoutes() {
	// Global middleware, in order: request ID for tracing, real client IP
	// behind proxies, panic recovery, then our request logging.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	passwords := auth.NewPasswordService()
	accounts := service.NewAccountService(s.db, s.tokens, passwords, s.logger)

	ml := upstream.NewMLClient(upstream.MLConfig{BaseURL: s.config.MLServiceURL}, s.logger)
	weather := upstream.NewWeatherClient(upstream.DefaultWeatherConfig(s.config.WeatherAPIKey), s.logger)
	market := upstream.NewMarketClient(upstream.DefaultMarketConfig(s.config.MarketAPIKey), s.logger)

	authHandler := handler.NewAuthHandler(accounts, s.logger)
	userHandler := handler.NewUserHandler(accounts, s.logger)
	advisoryHandler := handler.NewAdvisoryHandler(ml, weather, market, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)

		// Everything else sits behind the auth gate, proxies included.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.tokens))

			r.Get("/user/profile", userHandler.HandleGetProfile)
			r.Put("/user/profile", userHandler.HandleUpdateProfile)
			r.Put("/user/password", userHandler.HandleChangePassword)

			r.Post("/crop", advisoryHandler.HandleCropRecommend)
			r.Post("/disease", advisoryHandler.HandleDiseaseDetect)
			r.Get("/weather", advisoryHandler.HandleWeather)
			r.Get("/market", advisoryHandler.HandleMarket)
		})
	})
}

// Handler exposes the configured router. Used by httptest in handler tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and handles graceful shutdown:
// stop accepting connections, drain in-flight requests (30s), then close the
// database so the WAL is flushed and the file lock released.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // ML inference can take a while
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("mlService", s.config.MLServiceURL),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
