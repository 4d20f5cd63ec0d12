package main

import (
	"log"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Payouts/api"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/monitoring/logging"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/monitoring/tasks"
	"github.com/SwiftFiat/SwiftFiat-Payouts/utils"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const devTokenTTL = 24 * time.Hour

func main() {
	// Load .env file for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config, err := utils.LoadConfig(utils.EnvPath)
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger := logging.NewLoggerWithConfig(config)
	logger.WithField("config", config.Redact()).Info("starting mock withdrawal API")

	ledger, err := api.NewLedger(api.DefaultWalletPolicy(), config.MockSalt)
	if err != nil {
		logger.Fatalf("cannot build ledger: %v", err)
	}

	server, err := api.NewServer(config, ledger, logger)
	if err != nil {
		logger.Fatalf("cannot build server: %v", err)
	}

	if config.MockSettleDelay > 0 {
		scheduler := tasks.NewTaskScheduler(logger)
		defer scheduler.Stop()
		server.SetSettler(api.NewSettler(ledger, scheduler, config.MockSettleDelay))
	}

	for _, dev := range []struct {
		userID int64
		role   string
	}{
		{42, api.RoleCustomer},
		{1, api.RoleAdmin},
	} {
		token, err := server.IssueToken(dev.userID, dev.role, devTokenTTL)
		if err != nil {
			logger.Fatalf("cannot issue development token: %v", err)
		}
		logger.WithFields(logrus.Fields{
			"user_id": dev.userID,
			"role":    dev.role,
		}).Info("development token: " + token)
	}

	if err := server.Start(); err != nil {
		logger.Fatalf("server stopped: %v", err)
	}
}
