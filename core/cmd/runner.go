// Package cmd hosts the process entrypoint shared by bots built on this
// module: config loading, bootstrap, signal handling and shutdown order.
package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m3rciful/botkit/core/bootstrap"
	"github.com/m3rciful/botkit/core/buildinfo"
	"github.com/m3rciful/botkit/core/config"
	"github.com/m3rciful/botkit/core/logger"
)

// App runs the application once infrastructure is ready. It should block
// until ctx is done or the app fails.
type App func(ctx context.Context, cfg *config.Config, res *bootstrap.Result) error

// Options describe how to locate configuration and what to run.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	// LoadConfig defaults to config.Load.
	LoadConfig func(path string) (*config.Config, error)
	// Bootstrap defaults to bootstrap.Run.
	Bootstrap func(ctx context.Context, opts bootstrap.Options) (*bootstrap.Result, error)
	// ShutdownLogger defaults to logger.Shutdown.
	ShutdownLogger func() error

	App App
}

// Run loads configuration, bootstraps infrastructure and runs the app until
// SIGINT or SIGTERM.
func Run(opts Options) error {
	if opts.App == nil {
		return fmt.Errorf("cmd: App is required")
	}

	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := os.Getenv(env)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}
	if cfgPath == "" {
		return fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
	}

	loadConfig := opts.LoadConfig
	if loadConfig == nil {
		loadConfig = config.Load
	}
	log.Printf("loading config: %s", cfgPath)
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	boot := opts.Bootstrap
	if boot == nil {
		boot = bootstrap.Run
	}
	startedAt := time.Now()
	res, err := boot(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn(ctx, "app", "storage.close",
				slog.String("err", err.Error()),
			)
		}
	}()

	logger.Info(ctx, "app", "ready",
		slog.String("version", buildinfo.Version),
		slog.String("commit", buildinfo.Commit),
		slog.Duration("startup_duration", logger.Took(startedAt)),
	)

	err = opts.App(ctx, cfg, res)
	logger.Info(ctx, "app", "shutdown")
	return err
}
