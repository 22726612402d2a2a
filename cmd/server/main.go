// Package main is the entry point for the Farmer Helper API server.
//
// main's only job is to read configuration, create the dependencies the
// server needs (logger, config struct), and start the application. All actual
// logic lives in internal/.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ratul/farmer-helper/internal/server"
)

func main() {
	// .env is a development convenience; in production the variables come
	// from the real environment, so a missing file is not an error.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	port := 5000
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := "data/farmerhelper.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}

	// Ensure the data directory exists (like `mkdir -p`).
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// JWT_SECRET must be a long random string:
	//   JWT_SECRET=$(openssl rand -hex 32)
	// server.New rejects a missing or short secret — tokens signed with a
	// guessable key are forgeable, so there is no "auth disabled" mode.
	jwtSecret := os.Getenv("JWT_SECRET")

	mlServiceURL := os.Getenv("ML_SERVICE_URL")
	if mlServiceURL == "" {
		mlServiceURL = "http://127.0.0.1:5001"
	}

	weatherAPIKey := os.Getenv("WEATHER_API_KEY")
	if weatherAPIKey == "" {
		logger.Warn("WEATHER_API_KEY not set — /api/weather will fail upstream")
	}
	marketAPIKey := os.Getenv("DATA_GOV_API_KEY")
	if marketAPIKey == "" {
		logger.Warn("DATA_GOV_API_KEY not set — /api/market will fail upstream")
	}

	cfg := server.Config{
		Port:          port,
		DBPath:        dbPath,
		JWTSecret:     jwtSecret,
		MLServiceURL:  mlServiceURL,
		WeatherAPIKey: weatherAPIKey,
		MarketAPIKey:  marketAPIKey,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
