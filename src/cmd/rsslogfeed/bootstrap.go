// FILE: src/cmd/rsslogfeed/bootstrap.go
package main

import (
	"fmt"
	"strings"
	"time"

	"rsslogfeed/src/internal/archive"
	"rsslogfeed/src/internal/config"
	"rsslogfeed/src/internal/feed"
	"rsslogfeed/src/internal/netlimit"
	"rsslogfeed/src/internal/server"
	"rsslogfeed/src/internal/store"

	"github.com/lixenwraith/log"
)

// application holds the explicitly wired components, shut down in
// reverse construction order
type application struct {
	store   *store.Store
	limiter *netlimit.Limiter
	server  *server.Server
}

// bootstrap constructs the archive sink, store, renderer and HTTP server
// with explicit dependency injection
func bootstrap(cfg *config.Config) (*application, error) {
	sink, err := archive.NewSFTPSink(cfg.Archive, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive sink: %w", err)
	}

	st := store.New(store.Config{
		TTL:            time.Duration(cfg.Store.TTLSeconds) * time.Second,
		ArchiveTimeout: time.Duration(cfg.Store.ArchiveTimeoutSeconds) * time.Second,
		SweepInterval:  time.Duration(cfg.Store.SweepIntervalSeconds) * time.Second,
	}, sink, logger)

	renderer := feed.NewRenderer(cfg.Server.FeedLink)

	var limiter *netlimit.Limiter
	if cfg.Server.NetLimit.Enabled {
		limiter = netlimit.New(cfg.Server.NetLimit.RequestsPerSecond,
			cfg.Server.NetLimit.BurstSize, logger)
	}

	srv := server.New(cfg.Server, st, renderer, limiter, logger)
	if err := srv.Start(); err != nil {
		st.Shutdown()
		limiter.Stop()
		return nil, fmt.Errorf("failed to start HTTP server: %w", err)
	}

	logger.Info("msg", "rsslogfeed started",
		"port", cfg.Server.Port,
		"archival_degraded", sink.Degraded())

	return &application{
		store:   st,
		limiter: limiter,
		server:  srv,
	}, nil
}

func (a *application) Shutdown() {
	a.server.Stop()
	a.limiter.Stop()
	a.store.Shutdown()
}

// initializeLogger sets up the diagnostic logger from configuration
func initializeLogger(cfg *config.Config) error {
	logger = log.NewLogger()

	var configArgs []string

	levelValue, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	configArgs = append(configArgs, fmt.Sprintf("level=%d", levelValue))

	switch cfg.Logging.Output {
	case "none":
		configArgs = append(configArgs, "disable_file=true", "enable_stdout=false")

	case "stdout":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target=stdout")

	case "stderr":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target=stderr")

	case "file":
		configArgs = append(configArgs, "enable_stdout=false")
		configureFileLogging(&configArgs, cfg)

	case "both":
		configArgs = append(configArgs, "enable_stdout=true")
		configureFileLogging(&configArgs, cfg)
		if cfg.Logging.Console != nil && cfg.Logging.Console.Target != "" {
			configArgs = append(configArgs,
				fmt.Sprintf("stdout_target=%s", cfg.Logging.Console.Target))
		}

	default:
		return fmt.Errorf("invalid log output mode: %s", cfg.Logging.Output)
	}

	if cfg.Logging.Console != nil && cfg.Logging.Console.Format != "" {
		configArgs = append(configArgs, fmt.Sprintf("format=%s", cfg.Logging.Console.Format))
	}

	if err := logger.ApplyConfigString(configArgs...); err != nil {
		return err
	}
	return logger.Start()
}

func configureFileLogging(configArgs *[]string, cfg *config.Config) {
	if cfg.Logging.File != nil {
		*configArgs = append(*configArgs,
			fmt.Sprintf("directory=%s", cfg.Logging.File.Directory),
			fmt.Sprintf("name=%s", cfg.Logging.File.Name),
			fmt.Sprintf("max_size_mb=%d", cfg.Logging.File.MaxSizeMB),
			fmt.Sprintf("max_total_size_mb=%d", cfg.Logging.File.MaxTotalSizeMB))

		if cfg.Logging.File.RetentionHours > 0 {
			*configArgs = append(*configArgs,
				fmt.Sprintf("retention_period_hrs=%.1f", cfg.Logging.File.RetentionHours))
		}
	}
}

func parseLogLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int(log.LevelDebug), nil
	case "info":
		return int(log.LevelInfo), nil
	case "warn", "warning":
		return int(log.LevelWarn), nil
	case "error":
		return int(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
