// Command edart post-processes EDART disturbance products: per-year flattening,
// validation plot extraction, pre/post summaries and raster utilities.
package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/usfs-r5/edart/internal/config"
	"github.com/usfs-r5/edart/internal/logger"
	"github.com/usfs-r5/edart/internal/raster"
	"github.com/usfs-r5/edart/internal/storage"
	"github.com/usfs-r5/edart/internal/telegram"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	configPath string
	debug      bool

	cfg      *config.Config
	fs       afero.Fs
	files    *raster.Files
	store    *storage.Storage
	notifier *telegram.Client
}

func main() {
	a := &app{}
	if err := a.rootCommand().Execute(); err != nil {
		a.teardown()
		logger.Fatal("%v", err)
	}
	logger.Sync()
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "edart",
		Short:         "Post-process EDART forest disturbance products",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to configuration file")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		a.flattenCommand(),
		a.extractCommand(),
		a.prepostCommand(),
		a.headerCommand(),
		a.combineCommand(),
		a.runsCommand(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logger.InitWithFile(cfg.Logging.Level, cfg.Logging.Format, logger.FileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if a.configPath != "" {
		logger.Info("Configuration loaded from %s", a.configPath)
	}
	logger.Debug("Raster formats: %v", raster.Extensions())

	a.fs = afero.NewOsFs()
	a.files = raster.NewFiles(a.fs)

	if cfg.Storage.Enabled {
		a.store, err = storage.New(cfg.Storage.FilePath, 0o755)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		logger.Debug("Run ledger at %s", a.store.Path())
	}

	if cfg.Telegram.Enabled {
		a.notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}
	return nil
}

func (a *app) teardown() {
	if a.store == nil {
		return
	}
	defer func() { a.store = nil }()
	if err := a.store.RotateRuns(a.cfg.Storage.MaxRuns); err != nil {
		logger.Warn("Failed to rotate runs: %v", err)
	}
	if err := a.store.Close(); err != nil {
		logger.Error("Failed to close storage: %v", err)
	}
}
