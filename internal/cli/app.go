package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mmcdole/marquee/internal/config"
	"github.com/mmcdole/marquee/internal/library"
	"github.com/mmcdole/marquee/internal/log"
	"github.com/mmcdole/marquee/internal/nowplaying"
	"github.com/mmcdole/marquee/internal/source"
	"github.com/mmcdole/marquee/internal/store"
	"github.com/mmcdole/marquee/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

// app is the wired object graph shared by every command.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       store.Backend
	coordinator *nowplaying.Coordinator
	queries     *library.Queries

	logCloser io.Closer
	shutdown  telemetry.ShutdownFunc
}

// loadConfig reads and validates the configuration.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Verbose {
		cfg.Logging.Level = "DEBUG"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openApp builds logging, telemetry, the fetcher, the store and the
// coordinator. The caller must close the returned app.
func openApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := log.Setup(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger, logCloser = log.NullLogger(), io.NopCloser(nil)
	}

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logger.Warn("telemetry disabled", "error", err)
	} else if telemetry.Enabled(cfg.Telemetry) {
		logger = log.WithTelemetry(logger, "marquee")
	}
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger, logCloser: logCloser, shutdown: shutdown}

	fetcher, err := source.NewFetcher(&cfg.Remote, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	a.store, err = store.OpenBackend(string(cfg.Cache.Backend), cfg.Cache.Dir, cfg.SourceKey())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	a.coordinator, err = nowplaying.New(fetcher, a.store,
		nowplaying.WithLogger(logger),
		nowplaying.WithHeadRefreshTTL(cfg.Sync.HeadRefreshTTL),
		nowplaying.WithMaxAutoPages(cfg.Sync.MaxAutoPages),
		nowplaying.WithFetchTimeout(cfg.Sync.FetchTimeout),
	)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to start sync: %w", err)
	}
	a.queries = library.NewQueries(a.store)

	logger.Debug("app ready",
		"remote", cfg.Remote.Type, "backend", cfg.Cache.Backend, "cacheDir", cfg.Cache.Dir)
	return a, nil
}

func (a *app) close() {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		errs = append(errs, a.shutdown(ctx))
		cancel()
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error("shutdown", "error", err)
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}
