package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	configfile "github.com/shelfbot/shelfbot/internal/adapters/driven/config/file"
	"github.com/shelfbot/shelfbot/internal/adapters/driven/storage/sqlite"
	"github.com/shelfbot/shelfbot/internal/adapters/driven/telegram"
	"github.com/shelfbot/shelfbot/internal/adapters/driving/bot"
	"github.com/shelfbot/shelfbot/internal/config"
	"github.com/shelfbot/shelfbot/internal/core/domain"
	"github.com/shelfbot/shelfbot/internal/core/services"
	"github.com/shelfbot/shelfbot/internal/logger"
	"github.com/shelfbot/shelfbot/internal/procguard"
	"github.com/shelfbot/shelfbot/internal/server"
	"github.com/shelfbot/shelfbot/internal/supervisor"
)

const defaultMaxFileSizeMB = 100

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot daemon",
	Long: `Acquires the single-instance lock, opens the catalog, starts the
probe HTTP server and polls Telegram for updates until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Verbose {
		logger.SetVerbose(true)
	}

	// The lock comes first: a second instance must abstain before it
	// touches the database or the Telegram API.
	lockPath, err := cfg.ResolveLockPath()
	if err != nil {
		return err
	}
	guard := procguard.New(lockPath)
	if err := guard.Acquire(); err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return fmt.Errorf("another shelfbot instance is already running: %w", err)
		}
		return err
	}
	defer func() {
		if err := guard.Release(); err != nil {
			logger.Warn("releasing process lock: %v", err)
		}
	}()

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	tuning, err := configfile.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config store: %w", err)
	}

	maxSizeBytes := int64(tuning.IntOr(configfile.KeyMaxFileSizeMB, defaultMaxFileSizeMB)) * 1024 * 1024
	pageSize := tuning.IntOr(configfile.KeyPageSize, services.DefaultPageSize)

	ingestSvc := services.NewIngestService(store.FileStore(), maxSizeBytes)
	searchSvc := services.NewSearchService(store.FileStore(), pageSize)
	catalogSvc := services.NewCatalogService(
		store.FileStore(), store.UserStore(), store.SettingsStore(), store,
	)

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("connecting to Telegram: %w", err)
	}
	logger.Info("authorized as @%s", botAPI.Self.UserName)

	notifier := telegram.NewNotifier(botAPI,
		float64(tuning.IntOr(configfile.KeySendRatePerSecond, telegram.DefaultSendRate)))

	consumer := bot.NewConsumer(botAPI, notifier, ingestSvc, searchSvc, catalogSvc, bot.Options{
		OwnerID:               cfg.OwnerID,
		SourceChannelID:       cfg.SourceChannelID,
		LogChannelID:          cfg.LogChannelID,
		AllowSearchWhenLocked: tuning.GetBool(configfile.KeyAllowWhenLocked),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.ListenAddr, "shelfbot", server.ProberFunc(consumer.Running))
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Run(ctx)
	}()

	if cfg.LogChannelID != 0 {
		if err := notifier.SendMessage(ctx, cfg.LogChannelID, "shelfbot online", 0); err != nil {
			logger.Warn("startup notification: %v", err)
		}
	}

	sup := supervisor.New("consumer", supervisor.Policy{
		MaxAttempts:      tuning.IntOr(configfile.KeyRestartAttempts, supervisor.DefaultMaxAttempts),
		ConflictAttempts: tuning.IntOr(configfile.KeyConflictAttempts, supervisor.DefaultConflictAttempts),
	}, consumer.Run)

	runErr := sup.Run(ctx)
	stop()

	if cfg.LogChannelID != 0 {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := notifier.SendMessage(shutdownCtx, cfg.LogChannelID, "shelfbot shutting down", 0); err != nil {
			logger.Warn("shutdown notification: %v", err)
		}
		cancel()
	}

	if err := <-srvErr; err != nil {
		logger.Warn("probe server: %v", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
