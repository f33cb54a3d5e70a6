package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/modelsync/modelsync/internal/config"
	"github.com/modelsync/modelsync/internal/discovery"
	"github.com/modelsync/modelsync/internal/logging"
	"github.com/modelsync/modelsync/internal/model"
	"github.com/modelsync/modelsync/internal/syncer"
	"github.com/modelsync/modelsync/internal/typemap"
)

var (
	cfgFile  string
	logLevel string
	envFile  string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

var errMissingModel = errors.New("model name is required")

var rootCmd = &cobra.Command{
	Use:   "modelsync",
	Short: "Keep Eloquent models and migrations in sync",
	Long: `modelsync generates Eloquent model classes from create-table migrations
and create-table migrations from model classes. Models can also be
generated from a live PostgreSQL, MySQL or SQLite database.`,
	SilenceUsage: true,
}

func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./modelsync.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides logging.level")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config is read")
}

// app is what every command needs once the config is loaded.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	rep    *reporter
	syncer *syncer.Syncer
}

// setup loads the env file and config, starts logging and builds a Syncer
// whose notices go to the command's output.
func setup(cmd *cobra.Command) (*app, error) {
	if err := loadEnv(envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logging.Setup(level, cfg.Logging.Directory)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}

	rep := newReporter(cmd.OutOrStdout())
	return &app{
		cfg:    cfg,
		logger: logger,
		rep:    rep,
		syncer: syncer.New(cfg, nil, rep, logger),
	}, nil
}

// loadEnv loads a dotenv file. The default file may be absent.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == ".env" {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// loadModels fills the syncer's registry from the model directory and the
// manifest, if one is configured. A missing model directory leaves the
// registry empty; the generation flows report it.
func (a *app) loadModels() error {
	r := model.NewRegistry()
	if err := r.LoadDir(a.cfg.ModelPath, a.logger); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if a.cfg.ManifestPath != "" {
		if err := r.LoadManifest(a.cfg.ManifestPath); err != nil {
			return err
		}
	}
	a.syncer.Registry = r
	a.logger.Debug("models loaded", "count", len(r.Names()))
	return nil
}

// typeMap is the driver's default type map with database.type_map merged
// in as overrides.
func typeMap(cfg *config.Config) (*typemap.TypeMap, error) {
	tm := typemap.ForDriver(cfg.Database.Driver)
	if cfg.Database.TypeMap != "" {
		overrides, err := typemap.LoadYAML(cfg.Database.TypeMap)
		if err != nil {
			return nil, err
		}
		tm.Merge(overrides)
	}
	return tm, nil
}

// connect opens the configured database. The caller closes it.
func (a *app) connect(ctx context.Context) (discovery.Discoverer, error) {
	tm, err := typeMap(a.cfg)
	if err != nil {
		return nil, err
	}

	d, err := discovery.New(&a.cfg.Database, tm)
	if err != nil {
		return nil, fmt.Errorf("initializing discoverer: %w", err)
	}

	a.logger.Info("connecting to database", "driver", a.cfg.Database.Driver)
	if err := d.Connect(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return d, nil
}
