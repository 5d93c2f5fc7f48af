package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/aniladanir/billing-reminder-service/internal/cache"
	"github.com/aniladanir/billing-reminder-service/internal/cache/memory"
	redisCache "github.com/aniladanir/billing-reminder-service/internal/cache/redis"
	"github.com/aniladanir/billing-reminder-service/internal/domain"
	"github.com/aniladanir/billing-reminder-service/internal/gateway"
	httpHandler "github.com/aniladanir/billing-reminder-service/internal/handler/http"
	"github.com/aniladanir/billing-reminder-service/internal/persistant/gormdb"
	clientRepo "github.com/aniladanir/billing-reminder-service/internal/repository/client"
	dispatchRepo "github.com/aniladanir/billing-reminder-service/internal/repository/dispatch"
	settingsRepo "github.com/aniladanir/billing-reminder-service/internal/repository/settings"
	"github.com/aniladanir/billing-reminder-service/internal/service"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	configFile string
	config     *Config
	rootCmd    = &cobra.Command{
		Use:               "billing",
		Short:             "Client billing records and automatic WhatsApp payment reminders",
		PersistentPreRunE: loadConfig,
		RunE:              runServe,
		SilenceUsage:      true,
	}
)

var models = []any{
	&domain.Client{},
	&domain.DispatchAttempt{},
	&domain.MessageConfig{},
	&domain.ServiceOption{},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.json", "config file path")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the http api and the reminder scheduler",
		RunE:  runServe,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "probe",
		Short: "Check the WhatsApp gateway connection state",
		RunE:  runProbe,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE:  runMigrate,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(_ *cobra.Command, _ []string) error {
	// a missing .env file is fine
	_ = godotenv.Load()

	cfg, err := ReadConfig(configFile)
	if err != nil {
		return err
	}
	config = cfg

	// setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: config.Level}))
	slog.SetDefault(logger)
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	// create root context
	appCtx, appCtxCancel := context.WithCancel(cmd.Context())
	defer appCtxCancel()

	// listen for terminate signal
	notifyCtx, stop := signal.NotifyContext(appCtx, syscall.SIGTERM, os.Interrupt)
	defer stop()

	logger := slog.Default()

	// initialize external dependencies
	db, msgCache, err := initExternalDependencies(notifyCtx, config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize external dependencies: %w", err)
	}

	// init repositories
	clients := clientRepo.NewClientRepository(db)
	attempts := dispatchRepo.NewDispatchRepository(db)
	settings := settingsRepo.NewSettingsRepository(db)

	// persist default message settings on first run
	if err := seedDefaults(notifyCtx, settings); err != nil {
		return fmt.Errorf("failed to seed defaults: %w", err)
	}

	notifier := newNotifier(config)
	if config.Pix.Key == "" {
		logger.Warn("pix.chave is empty; payment messages will fail until a pix key is configured")
	}

	// init dispatcher and scheduler
	dispatcher, err := service.NewDispatcher(
		clients,
		attempts,
		settings,
		notifier,
		msgCache,
		logger.With(slog.String("component", "dispatcher")),
		&config.DispatchMaxRetry,
		service.WithDispatcherLocation(config.Location),
	)
	if err != nil {
		return fmt.Errorf("failed to initiate dispatcher: %w", err)
	}

	scheduler, err := service.NewScheduler(
		clients,
		settings,
		attempts,
		dispatcher,
		logger.With(slog.String("component", "scheduler")),
		service.SchedulerConfig{
			PollInterval:  config.Scheduler.Interval,
			GraceWindow:   config.Scheduler.GraceWindow,
			CatchUpMissed: config.Scheduler.CatchUpMissed,
			CatchUpLimit:  config.Scheduler.CatchUpLimit,
			StaleAfter:    config.Scheduler.StaleAfter,
		},
		config.Location,
		time.Now,
	)
	if err != nil {
		return fmt.Errorf("failed to initiate scheduler: %w", err)
	}

	billing := service.NewBillingService(
		clients,
		settings,
		attempts,
		dispatcher,
		notifier,
		logger.With(slog.String("component", "billing")),
		config.Location,
		time.Now,
		scheduler.Notify,
	)

	// init http handler
	httpHandler := httpHandler.NewHttpHandler(
		fmt.Sprintf(":%d", config.HttpPort),
		billing,
		scheduler,
		logger.With(slog.String("component", "http")),
	)

	if config.Scheduler.Autostart {
		scheduler.Start()
	}

	wg := sync.WaitGroup{}
	// run http handler
	wg.Go(func() {
		if err := httpHandler.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server encountered with an error and closed", "error", err.Error())
		}
		// cancel app context if http handler fails
		appCtxCancel()
	})

	// graceful shutdown
	wg.Go(func() {
		<-notifyCtx.Done()
		logger.Info("application shutting down...")

		shutDownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()

		scheduler.Stop()
		if err := httpHandler.Shutdown(shutDownCtx); err != nil {
			logger.Error("failed to shutdown http server", "error", err.Error())
		}
		if closer, ok := msgCache.(io.Closer); ok {
			_ = closer.Close()
		}
		if err := gormdb.Close(db); err != nil {
			logger.Error("failed to close database", "error", err.Error())
		}
	})

	wg.Wait()
	return nil
}

func runProbe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
	defer cancel()

	state, err := newNotifier(config).ConnectionState(ctx)
	if err != nil {
		return fmt.Errorf("failed to query gateway connection state: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "instance %s: %s\n", config.Evolution.Instance, state)
	if state != gateway.StateOpen {
		return fmt.Errorf("instance %s is not connected", config.Evolution.Instance)
	}
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	db, err := gormdb.Initialize(cmd.Context(), dbConfig(config), models)
	if err != nil {
		return err
	}
	defer gormdb.Close(db)

	if err := seedDefaults(cmd.Context(), settingsRepo.NewSettingsRepository(db)); err != nil {
		return err
	}

	slog.Info("database schema is up to date", "driver", config.DbDriver)
	return nil
}

func initExternalDependencies(ctx context.Context, config *Config, logger *slog.Logger) (db *gorm.DB, c cache.Cache, err error) {
	// initialize database
	db, err = gormdb.Initialize(ctx, dbConfig(config), models)
	if err != nil {
		return
	}

	// initialize cache
	if config.RedisAddr == "" {
		logger.Info("redis_addr is empty, using in-process cache")
		c = memory.New()
		return
	}
	var rCache *redisCache.RedisCache
	rCache, err = redisCache.NewRedisCache(ctx, config.RedisAddr, config.RedisPassword, config.RedisDB, config.DbMaxAttempts)
	if err != nil {
		_ = gormdb.Close(db)
		return
	}
	c = rCache

	return
}

func dbConfig(config *Config) gormdb.Config {
	return gormdb.Config{
		Driver:      config.DbDriver,
		DSN:         config.DbConnString,
		MaxAttempts: config.DbMaxAttempts,
	}
}

func newNotifier(config *Config) *gateway.Notifier {
	evolution := gateway.NewEvolutionClient(gateway.EvolutionConfig{
		BaseURL:  config.Evolution.ApiUrl,
		APIKey:   config.Evolution.ApiKey,
		Instance: config.Evolution.Instance,
		Timeout:  config.Evolution.Timeout,
	})
	pix := gateway.NewPixClient(gateway.PixConfig{
		BaseURL: config.Pix.ApiUrl,
		Merchant: gateway.PixMerchant{
			Name: config.Pix.Name,
			City: config.Pix.City,
			Key:  config.Pix.Key,
			TxID: config.Pix.TxID,
		},
		Timeout: config.Pix.Timeout,
	})
	return gateway.NewNotifier(evolution, pix)
}

// seedDefaults stores the default message settings when none were saved
func seedDefaults(ctx context.Context, settings settingsRepo.Repository) error {
	cfg, err := settings.GetMessageConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.UpdatedAt != nil {
		return nil
	}
	return settings.SaveMessageConfig(ctx, &cfg)
}
