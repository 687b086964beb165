package main

import (
	"log"

	"github.com/vbonduro/stockcount/internal/auth"
	"github.com/vbonduro/stockcount/internal/config"
	"github.com/vbonduro/stockcount/internal/db"
	"github.com/vbonduro/stockcount/internal/logging"
	"github.com/vbonduro/stockcount/internal/service"
	"github.com/vbonduro/stockcount/internal/store"
	"github.com/vbonduro/stockcount/internal/web"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if cfg.TestMode {
		logger.Warn("test mode enabled, short JWT secrets are accepted")
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	countService := service.NewCountService(store.New(database), logger)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	server := web.NewServer(countService, issuer, cfg.JWTSecret, logger)

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}
