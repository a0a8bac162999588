package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/sensordash/internal/controllers/restserver"
	"github.com/chrissnell/sensordash/pkg/config"
	"go.uber.org/zap"
)

// ControllerManager interface for the controller manager
type ControllerManager interface {
	StartControllers() error
}

// Controller is an interface that provides standard methods for various controller backends
type Controller interface {
	StartController() error
}

// NewControllerManager creates a new controller manager serving the
// Datasets held by datasets
func NewControllerManager(ctx context.Context, wg *sync.WaitGroup, c *config.ConfigData, datasets restserver.DatasetSource, logger *zap.SugaredLogger) (ControllerManager, error) {
	cm := &controllerManager{
		ctx:         ctx,
		wg:          wg,
		config:      c,
		datasets:    datasets,
		logger:      logger,
		controllers: make([]Controller, 0),
	}

	rest, err := restserver.NewController(ctx, wg, c, datasets, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating controller: %v", err)
	}
	cm.controllers = append(cm.controllers, rest)

	return cm, nil
}

type controllerManager struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	config      *config.ConfigData
	datasets    restserver.DatasetSource
	logger      *zap.SugaredLogger
	controllers []Controller
}

func (c *controllerManager) StartControllers() error {
	c.logger.Info("Starting controller manager...")

	for _, controller := range c.controllers {
		err := controller.StartController()
		if err != nil {
			return fmt.Errorf("error starting controller: %v", err)
		}
	}

	c.logger.Infof("Started %d controllers successfully", len(c.controllers))
	return nil
}
