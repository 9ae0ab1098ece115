// Package bootstrap assembles infrastructure from configuration: logger,
// state serializer and the dialogue storage backend.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/botkit/core/config"
	"github.com/m3rciful/botkit/core/database"
	"github.com/m3rciful/botkit/core/dialogue"
	"github.com/m3rciful/botkit/core/dialogue/redisstore"
	"github.com/m3rciful/botkit/core/dialogue/serializer"
	"github.com/m3rciful/botkit/core/dialogue/sqlstore"
	"github.com/m3rciful/botkit/core/logger"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config *config.Config

	// LoggerInit defaults to logger.InitLogger. Tests inject a no-op.
	LoggerInit func(*config.Config) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Storage    dialogue.Storage
	Serializer serializer.Serializer

	// DB is set only for the sql backend.
	DB *sqlx.DB

	closers []func() error
}

// Close releases backend resources in reverse construction order.
func (r *Result) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run initializes the logger, resolves the serializer and constructs the
// configured storage backend, running migrations where the backend needs
// them.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	cfg := opts.Config

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	ser, err := serializer.ByName(cfg.Serializer.Format)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	res := &Result{Serializer: ser}

	backend := strings.ToLower(cfg.Storage.Backend)
	switch backend {
	case config.BackendMemory, "":
		res.Storage = dialogue.NewInMemStorage()

	case config.BackendSQL:
		db, err := database.Connect(database.Config{
			Driver:         cfg.Storage.SQL.Driver,
			DSN:            cfg.Storage.SQL.DSN,
			MaxConnections: cfg.Storage.SQL.MaxConnections,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}
		if err := database.RunMigrations(ctx, db, cfg.Storage.SQL.Driver); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
		res.DB = db
		res.Storage = sqlstore.New(db)
		res.closers = append(res.closers, db.Close)

	case config.BackendRedis:
		var ropts []redisstore.Option
		if cfg.Storage.Redis.Prefix != "" {
			ropts = append(ropts, redisstore.WithPrefix(cfg.Storage.Redis.Prefix))
		}
		if cfg.Storage.Redis.TTLSeconds > 0 {
			ropts = append(ropts, redisstore.WithTTL(time.Duration(cfg.Storage.Redis.TTLSeconds)*time.Second))
		}
		store := redisstore.New(cfg.Storage.Redis.Addr, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, ropts...)
		res.Storage = store
		res.closers = append(res.closers, store.Close)

	default:
		return nil, fmt.Errorf("bootstrap: unknown storage backend %q", cfg.Storage.Backend)
	}

	if cfg.Storage.Trace {
		res.Storage = dialogue.NewTraceStorage(res.Storage)
	}

	logger.Info(ctx, "app", "bootstrap.done",
		slog.String("backend", backend),
		slog.String("format", ser.Format()),
		slog.Bool("trace", cfg.Storage.Trace),
	)
	return res, nil
}
