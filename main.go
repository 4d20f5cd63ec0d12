package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/banks"
	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/coordinator"
	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/history"
	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/status"
	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/verification"
	"github.com/SwiftFiat/SwiftFiat-Payouts/providers/withdrawal"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/cache"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/monitoring/logging"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/redis"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/session"
	"github.com/SwiftFiat/SwiftFiat-Payouts/utils"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// app holds everything a command needs, built once per invocation
type app struct {
	config  *utils.Config
	logger  *logging.Logger
	gateway *withdrawal.Gateway
	cache   *cache.Cache
	redis   *redis.RedisService
	banks   *banks.Directory
	engine  *verification.Engine
	coord   *coordinator.Coordinator
	checker *status.Checker
	history *history.ViewModel
}

func main() {
	// Load .env file for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCLI().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "payouts",
		Usage: "withdraw wallet earnings to a Nigerian bank account",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Value: utils.EnvPath,
				Usage: "directory holding the .env file",
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "bearer token, overrides ACCESS_TOKEN",
				EnvVars: []string{"PAYOUTS_TOKEN"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "print debug logs to stderr",
			},
		},
		Commands: []*cli.Command{
			banksCommand(),
			verifyCommand(),
			limitsCommand(),
			withdrawCommand(),
			statusCommand(),
			historyCommand(),
			statsCommand(),
		},
	}
}

// action builds the app for a command and closes it afterwards
func action(run func(c *cli.Context, a *app) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := newApp(c)
		if err != nil {
			return err
		}
		defer a.close()
		return run(c, a)
	}
}

func newApp(c *cli.Context) (*app, error) {
	config, err := utils.LoadConfig(c.String("env"))
	if err != nil {
		return nil, cli.Exit("could not load config: "+err.Error(), 2)
	}
	if token := c.String("token"); token != "" {
		config.AccessToken = token
	}

	logger := logging.NewLoggerWithConfig(config)
	if !c.Bool("verbose") {
		logger.SetLevel(logrus.WarnLevel)
	}

	sess := session.NewTokenSession(config.AccessToken, nil)
	gw := withdrawal.NewGateway(withdrawal.GatewayConfigFrom(config), sess, logger)
	store := cache.New(config.CacheTTL)

	a := &app{
		config:  config,
		logger:  logger,
		gateway: gw,
		cache:   store,
	}

	var shared banks.Store
	if config.RedisEnabled() {
		rs, err := redis.NewRedisService(redis.ConfigFrom(config))
		if err != nil {
			logger.WithError(err).Warn("continuing without the shared bank cache")
		} else {
			a.redis = rs
			shared = rs
		}
	}

	a.banks = banks.NewDirectory(gw, store, shared, 0, logger)
	a.engine = verification.NewEngine(gw, a.banks, logger)
	a.coord = coordinator.New(gw, a.engine, store, logger)
	a.checker = status.NewChecker(gw, logger)
	a.history = history.New(gw, store, logger)
	return a, nil
}

func (a *app) close() {
	a.coord.Close()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.WithError(err).Warn("could not close redis")
		}
	}
}
