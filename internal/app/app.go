package app

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"tunneldeck/internal/backend"
	"tunneldeck/internal/config"
	"tunneldeck/internal/panel"
	"tunneldeck/internal/paths"
	"tunneldeck/internal/refresh"
	"tunneldeck/internal/storage"
	"tunneldeck/internal/storage/sqlite"
)

// App represents the application context
type App struct {
	Storage storage.Storage
	Client  *backend.Client
	Logger  *zap.Logger
	Config  *config.Config
	Viper   *viper.Viper
}

// Options controls how the application is assembled
type Options struct {
	// ConfigPath overrides the config file lookup.
	ConfigPath string
	// Bind is called before the configuration is decoded, e.g. to bind CLI flags.
	Bind func(v *viper.Viper) error
	// LogToFile redirects logging to the cache directory (used by the TUI).
	LogToFile bool
}

// New creates a new application instance
func New(opts Options) (*App, error) {
	configDir, err := paths.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	v, err := config.Load(opts.ConfigPath, configDir)
	if err != nil {
		return nil, err
	}
	if opts.Bind != nil {
		if err := opts.Bind(v); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}
	if opts.LogToFile && v.GetString("logging.file") == "" {
		logFile, err := paths.LogFile()
		if err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		v.Set("logging.file", logFile)
	}

	// Initialize storage
	dbPath := v.GetString("db")
	if dbPath == "" {
		if dbPath, err = paths.DBFile(); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	store, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return assemble(v, store)
}

// assemble applies persisted settings, builds the logger and the backend client.
func assemble(v *viper.Viper, store storage.Storage) (*App, error) {
	settings, err := store.GetAllSettings(context.Background())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	skipped := config.ApplyOverrides(v, settings)

	cfg, err := config.Decode(v)
	if err != nil {
		store.Close()
		return nil, err
	}

	logger, err := config.NewLogger(v)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	for _, key := range skipped {
		logger.Warn("ignoring invalid stored setting", zap.String("key", key))
	}
	if f := v.ConfigFileUsed(); f != "" {
		logger.Debug("config loaded", zap.String("file", f))
	}

	caller, err := backend.NewHTTPCaller(cfg.Backend.URL, cfg.Backend.Timeout, logger.Named("backend"))
	if err != nil {
		store.Close()
		return nil, err
	}

	return &App{
		Storage: store,
		Client:  backend.NewClient(caller),
		Logger:  logger,
		Config:  cfg,
		Viper:   v,
	}, nil
}

// NewSession builds a panel session from the resolved configuration.
func (a *App) NewSession() (*panel.Session, error) {
	return panel.New(a.Client, panel.Options{
		Refresh: refresh.Config{
			IdleInterval:  a.Config.Refresh.IdleInterval,
			DebounceDelay: a.Config.Refresh.DebounceDelay,
			CoalesceDelay: a.Config.Refresh.CoalesceDelay,
			JobTimeout:    a.Config.Refresh.JobTimeout,
		},
		ReloadInterval: a.Config.Registry.ReloadInterval,
		Recorder:       a.Storage,
	}, a.Logger)
}

// Close closes the application and releases resources
func (a *App) Close() error {
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
