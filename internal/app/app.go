package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/chrissnell/sensordash/internal/loader"
	"github.com/chrissnell/sensordash/internal/log"
	"github.com/chrissnell/sensordash/internal/managers"
	"github.com/chrissnell/sensordash/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	config *config.ConfigData
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		config: cfg,
		logger: logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l, err := newLoader(a.config.Dashboard)
	if err != nil {
		return err
	}

	// Initialize the dataset manager; a source that fails to load leaves
	// its slot empty and the dashboard reports it.
	dm := managers.NewDatasetManager(l, a.config.Datasets, a.config.Reload, a.logger)
	if err := dm.Start(ctx, &wg); err != nil {
		return err
	}

	// Initialize the controller manager
	cm, err := managers.NewControllerManager(ctx, &wg, a.config, dm, a.logger)
	if err != nil {
		return err
	}
	err = cm.StartControllers()
	if err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}

// newLoader builds a Loader honoring the dashboard's timezone and extra
// timestamp layouts
func newLoader(dc config.DashboardData) (*loader.Loader, error) {
	var opts []loader.Option
	if dc.Timezone != "" {
		loc, err := time.LoadLocation(dc.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid dashboard.timezone %q: %v", dc.Timezone, err)
		}
		opts = append(opts, loader.WithLocation(loc))
	}
	if len(dc.TimestampLayouts) > 0 {
		layouts := append(append([]string{}, dc.TimestampLayouts...), loader.DefaultLayouts...)
		opts = append(opts, loader.WithLayouts(layouts))
	}
	return loader.New(opts...), nil
}
