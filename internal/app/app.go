package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vk/bogflow/internal/config"
	"github.com/vk/bogflow/internal/ctxlog"
	"github.com/vk/bogflow/internal/metrics"
	"github.com/vk/bogflow/internal/registry"
	"github.com/vk/bogflow/internal/runstore"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	model    *config.Model

	promRegistry *prometheus.Registry
	metrics      *metrics.Collector
	store        runstore.Store

	httpServer *http.Server
}

// NewApp builds an App: it configures the logger, registers modules (the
// core modules when none are given), loads every manifest into the registry
// and opens the ledger.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = CoreModules()
	}
	reg, model, err := BuildRegistry(ctx, loader, appConfig.ManifestPaths, appConfig.PluginPaths, modules...)
	if err != nil {
		return nil, err
	}

	var store runstore.Store
	if appConfig.LedgerPath != "" {
		s, err := runstore.NewSQLiteStore(appConfig.LedgerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open ledger: %w", err)
		}
		store = s
		logger.Debug("Ledger opened.", "path", appConfig.LedgerPath)
	} else {
		store = runstore.NewMemoryStore()
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector())

	return &App{
		outW:         outW,
		logger:       logger,
		config:       appConfig,
		registry:     reg,
		model:        model,
		promRegistry: promRegistry,
		metrics:      metrics.New(promRegistry),
		store:        store,
	}, nil
}

// Registry returns the application's registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns everything the loader read.
func (a *App) Model() *config.Model {
	return a.model
}

// Store returns the ledger the App records outcomes to.
func (a *App) Store() runstore.Store {
	return a.store
}

// Close releases the ledger.
func (a *App) Close() error {
	return a.store.Close()
}
