package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/socops/sochub/internal/config"
	"github.com/socops/sochub/internal/engine"
	"github.com/socops/sochub/internal/extractors"
	"github.com/socops/sochub/internal/metrics"
	"github.com/socops/sochub/internal/report"
	"github.com/socops/sochub/internal/repo"
	"github.com/socops/sochub/internal/services"
	"github.com/socops/sochub/internal/store"
	"github.com/socops/sochub/internal/utils"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	detection  string
	assets     string
	intel      string
	forensic   string
	rules      string
	state      string
	backend    string
	logLevel   string
	json       bool
}

// app is the per-invocation dependency graph.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	store   store.Store
	hub     *services.HubService
	printer *report.Printer
	json    bool
}

func (o *rootOptions) apply(cfg *config.Config) {
	overrides := []struct {
		value  string
		target *string
	}{
		{o.detection, &cfg.Sources.Detection},
		{o.assets, &cfg.Sources.Assets},
		{o.intel, &cfg.Sources.Intel},
		{o.forensic, &cfg.Sources.Forensic},
		{o.rules, &cfg.Rules.Path},
		{o.state, &cfg.Store.Path},
		{o.backend, &cfg.Store.Backend},
		{o.logLevel, &cfg.Logging.Level},
	}
	for _, ov := range overrides {
		if ov.value != "" {
			*ov.target = ov.value
		}
	}
}

func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	opts.apply(cfg)

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr()).
		With().Str("command", cmd.Name()).Logger()

	rules, err := engine.LoadRuleTable(cfg.Rules.Path, logger)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Rules.Path).Msg("rule table unusable, technique mapping disabled")
	}

	lifecycle, err := store.Open(cfg.Store.Backend, cfg.Store.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open lifecycle store: %w", err)
	}

	loader := repo.NewReportRepo(cfg.Sources.Detection, cfg.Sources.Assets, cfg.Sources.Intel, cfg.Sources.Forensic, logger)
	correlator := engine.NewCorrelator(
		logger,
		rules,
		extractors.NewDetectionExtractor(),
		extractors.NewAssetExtractor(),
		extractors.NewIntelExtractor(),
		extractors.NewForensicExtractor(),
	)
	logger.Debug().
		Str("detection", loader.DetectionPath()).
		Str("store", cfg.Store.Path).
		Int("rules", correlator.Rules().Len()).
		Msg("sources configured")

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   lifecycle,
		hub:     services.NewHubService(logger, loader, correlator, lifecycle),
		printer: report.NewPrinter(cmd.OutOrStdout()),
		json:    opts.json,
	}, nil
}

// close flushes the metrics textfile and releases the store.
func (a *app) close() {
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			a.logger.Warn().Err(err).Str("path", path).Msg("failed to write metrics textfile")
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close lifecycle store")
	}
}

// withApp wraps a command body with app construction and teardown.
func withApp(opts *rootOptions, run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, opts)
		if err != nil {
			return err
		}
		defer a.close()
		return run(cmd, args, a)
	}
}
