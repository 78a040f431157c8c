// Package cli wires the bpagent commands.
package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/minhdang/bpagent/internal/analyzer"
	"github.com/minhdang/bpagent/internal/analyzer/chart"
	"github.com/minhdang/bpagent/internal/analyzer/report"
	"github.com/minhdang/bpagent/internal/builder"
	"github.com/minhdang/bpagent/internal/cache"
	"github.com/minhdang/bpagent/internal/core/config"
	"github.com/minhdang/bpagent/internal/core/errs"
	"github.com/minhdang/bpagent/internal/infra/bps"
)

var (
	cfgPath  string
	apiHost  string
	username string
	password string
	noCache  bool
	isDebug  bool
)

var rootCmd = &cobra.Command{
	Use:   "bpagent",
	Short: "Breaking Point client agent",
	Long:  `bpagent drives a Breaking Point appliance: create and run tests, fetch and cache results, and turn them into reports and charts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error(errs.FormatForLog(err))
		os.Stderr.WriteString("Error: " + errs.FormatForUser(err) + "\n")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiHost, "host", "", "appliance host, overrides config")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "API username, overrides config")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "API password, overrides config")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "bypass the result cache")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// app holds everything a command needs, built once per invocation.
type app struct {
	cfg      *config.AppConfig
	log      *slog.Logger
	store    *cache.Store
	client   *bps.Client
	service  *analyzer.Service
	registry *analyzer.Registry
}

// newApp loads configuration, applies flag overrides and wires the
// client, cache and analyzer.
func newApp() (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		initLogger(slog.LevelInfo)
		return nil, err
	}

	if apiHost != "" {
		cfg.API.Host = apiHost
	}
	if username != "" {
		cfg.API.Username = username
	}
	if password != "" {
		cfg.API.Password = password
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	level := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	logger := initLogger(level)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var store *cache.Store
	if cfg.Cache.Enabled {
		store, err = cache.New(config.ExpandHome(cfg.Cache.Dir), cfg.Cache.TTL, cfg.Cache.Compression, logger)
		if err != nil {
			return nil, err
		}
	} else {
		store = cache.NewDisabled(logger)
	}

	client, err := bps.New(cfg.API, store, logger)
	if err != nil {
		return nil, err
	}

	registry := analyzer.NewRegistry()
	if err := report.RegisterAll(registry); err != nil {
		return nil, err
	}
	if err := chart.RegisterAll(registry); err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      logger,
		store:    store,
		client:   client,
		service:  analyzer.NewService(client, store, registry, cfg.Analyzer, logger),
		registry: registry,
	}, nil
}

func initLogger(level slog.Level) *slog.Logger {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)
	return logger
}

func (a *app) builder() *builder.TestBuilder {
	return builder.NewTestBuilder(a.client, a.log)
}

func (a *app) superflows() *builder.SuperFlowManager {
	return builder.NewSuperFlowManager(a.client, a.log)
}
