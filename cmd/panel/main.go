package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/regalspin/gamepanel/internal/config"
	"github.com/regalspin/gamepanel/internal/logging"
	"github.com/regalspin/gamepanel/pkg/archive"
	"github.com/regalspin/gamepanel/pkg/bridge"
	"github.com/regalspin/gamepanel/pkg/bridge/discord"
	"github.com/regalspin/gamepanel/pkg/bridge/telegram"
	ledgerRepo "github.com/regalspin/gamepanel/pkg/repositories/ledger"
	requestRepo "github.com/regalspin/gamepanel/pkg/repositories/request"
	"github.com/regalspin/gamepanel/pkg/scheduler"
	"github.com/regalspin/gamepanel/pkg/services/orchestrator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger := logging.Default
	if cfg.IsDevelopment() {
		logger.SetLevel(logging.DEBUG)
	}

	ledger, requests := buildRepositories(cfg, logger)

	bridges, cleanup, err := buildBridges(cfg)
	if err != nil {
		log.Fatalf("Error creating operator bridge: %v", err)
	}
	defer cleanup()

	opts := orchestrator.NewOptions()
	opts.PollInterval = cfg.PollInterval
	opts.PollTimeout = cfg.PollTimeout
	opts.ResumeTTL = cfg.ResumeTTL
	opts.RedeemMinimum = cfg.RedeemMinimum
	opts.Logger = logger

	svc := orchestrator.NewService(requests, ledger, bridges, opts)
	resumePending(svc, requests, logger)

	sched := scheduler.NewScheduler(logger)
	if cfg.ArchiveEnabled {
		archiver, err := archive.NewArchiver(ledger, &archive.Config{
			URL:         cfg.ElasticURL,
			Username:    cfg.ElasticUsername,
			Password:    cfg.ElasticPassword,
			IndexPrefix: cfg.ElasticPrefix,
		}, logger)
		if err != nil {
			log.Fatalf("Error creating history archiver: %v", err)
		}
		sched.AddTask("history_archive", cfg.ArchiveInterval, archiver.Run)
	}
	sched.Start(context.Background())

	logger.Info("[MAIN] Game panel service is running. Press Ctrl+C to exit")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("[MAIN] Shutting down...")
	sched.Stop()
	svc.Stop()
}

// resumePending reattaches pollers for requests left pending by a previous
// run. Failures are logged; a stale request simply stays pending until its
// owner resubmits.
func resumePending(svc *orchestrator.Service, requests requestRepo.Repository, logger *logging.Logger) {
	ctx := context.Background()

	users, err := requests.ListUsersWithPending(ctx)
	if err != nil {
		logger.Warn("[MAIN] Failed to list users with pending requests: %v", err)
		return
	}

	for _, userID := range users {
		if err := svc.Resume(ctx, userID); err != nil {
			logger.Warn("[MAIN] Failed to resume pending requests for %s: %v", userID, err)
		}
	}
}

// buildRepositories selects the storage backend, falling back to memory
// when SQLite cannot be opened
func buildRepositories(cfg *config.Config, logger *logging.Logger) (ledgerRepo.Repository, requestRepo.Repository) {
	if cfg.StorageType != "sqlite" {
		logger.Info("[MAIN] Using in-memory storage (data will be lost on restart)")
		return ledgerRepo.NewMemoryRepository(), requestRepo.NewMemoryRepository()
	}

	dbPath := filepath.Join(cfg.DataDir, "gamepanel.db")
	logger.Info("[MAIN] Initializing SQLite storage at %s", dbPath)

	ledger, err := ledgerRepo.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Warn("[MAIN] Failed to initialize SQLite ledger store: %v", err)
		logger.Warn("[MAIN] Falling back to in-memory storage")
		return ledgerRepo.NewMemoryRepository(), requestRepo.NewMemoryRepository()
	}

	requests, err := requestRepo.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Warn("[MAIN] Failed to initialize SQLite request store: %v", err)
		logger.Warn("[MAIN] Falling back to in-memory storage")
		return ledgerRepo.NewMemoryRepository(), requestRepo.NewMemoryRepository()
	}

	return ledger, requests
}

// buildBridges constructs the operator channel set for the configured
// bridge type. The returned cleanup closes any live connections.
func buildBridges(cfg *config.Config) (bridge.Set, func(), error) {
	switch cfg.BridgeType {
	case "discord":
		adapter, err := discord.NewWithToken(cfg.DiscordToken, cfg.DiscordChannelID)
		if err != nil {
			return bridge.Set{}, nil, err
		}
		if err := adapter.Open(); err != nil {
			return bridge.Set{}, nil, err
		}
		return bridge.Set{Default: adapter}, func() { adapter.Close() }, nil

	default:
		newChannel := func(ch config.TelegramChannel) bridge.Bridge {
			return telegram.New(telegram.Settings{
				BotToken:  ch.BotToken,
				ChatID:    ch.ChatID,
				ProxyBase: cfg.TelegramProxyBase,
			})
		}
		set := bridge.Set{
			Default:     newChannel(cfg.TelegramDefault),
			Create:      newChannel(cfg.TelegramCreate),
			Reset:       newChannel(cfg.TelegramReset),
			Transaction: newChannel(cfg.TelegramTransaction),
			FreePlay:    newChannel(cfg.TelegramFreePlay),
		}
		return set, func() {}, nil
	}
}
