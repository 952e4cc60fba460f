package cli

import (
	"fmt"

	"github.com/jvs-project/vfsroot/pkg/config"
	"github.com/jvs-project/vfsroot/pkg/contents"
	"github.com/jvs-project/vfsroot/pkg/logging"
	"github.com/jvs-project/vfsroot/pkg/metrics"
	"github.com/jvs-project/vfsroot/pkg/pathutil"
)

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.rootDir != "" {
		cfg.RootDir = opts.rootDir
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// requireManager builds the contents manager for the configured root.
func requireManager(opts *globalOptions) (*contents.Manager, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}
	logging.SetGlobal(logger)

	if cfg.Metrics.Enabled {
		metrics.Init()
	}

	resolver, err := pathutil.NewResolver(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("content root: %w", err)
	}
	logger.Debug("content root ready", map[string]any{"root": resolver.Root()})

	return contents.NewManager(resolver,
		contents.WithLogger(logger),
		contents.WithMetrics(metrics.Default()),
	), nil
}
