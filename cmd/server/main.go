package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"airdrop-backend/internal/clients"
	"airdrop-backend/internal/config"
	"airdrop-backend/internal/db"
	"airdrop-backend/internal/events"
	"airdrop-backend/internal/handlers"
	"airdrop-backend/internal/metrics"
	"airdrop-backend/internal/repository"
	"airdrop-backend/internal/router"
	"airdrop-backend/internal/services"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if err := db.InitDB(cfg); err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}

	store := repository.NewClaimStore(db.DB)

	// NATS is optional; the claim path works without it
	var natsClient *clients.NATSClient
	if cfg.NATS.URL != "" {
		natsClient, err = clients.NewNATSClient(&cfg.NATS)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to NATS")
		}
		defer natsClient.Close()
		logger.WithField("url", cfg.NATS.URL).Info("NATS event publishing enabled")
	} else {
		logger.Info("NATS not configured, event publishing disabled")
	}

	hub := handlers.NewEventHub()
	publisher := events.NewPublisher(natsClient, cfg.NATS.SubjectPrefix, hub)

	programID := common.HexToHash(cfg.Claim.ProgramIdentity)
	if programID == (common.Hash{}) {
		logger.Fatal("Claim program identity must be a non-zero 32-byte hex value")
	}

	verifier := clients.NewVerifierClient(cfg.Verifier.BaseURL, cfg.Verifier.Timeout)
	claimService := services.NewClaimService(store, verifier, publisher, programID)
	adminService := services.NewAdminService(store, publisher)

	// seed the state gauges
	if snapshot, err := store.Snapshot(context.Background()); err == nil {
		metrics.CurrentEpoch.Set(float64(snapshot.EpochID))
		if snapshot.Paused {
			metrics.PausedState.Set(1)
		}
	}

	r := router.SetupRouter(&router.Handlers{
		Claim:     handlers.NewClaimHandler(claimService),
		Admin:     handlers.NewAdminHandler(adminService),
		AdminAuth: handlers.NewAdminAuthHandler(),
		EventHub:  hub,
	}, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.WithFields(logrus.Fields{
		"addr":     addr,
		"verifier": cfg.Verifier.BaseURL,
		"program":  programID.Hex(),
	}).Info("Starting airdrop backend")

	if err := r.Run(addr); err != nil {
		logger.WithError(err).Fatal("Server exited")
	}
}
