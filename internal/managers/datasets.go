package managers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/sensordash/internal/dataset"
	"github.com/chrissnell/sensordash/internal/types"
	"github.com/chrissnell/sensordash/pkg/config"
	"github.com/robfig/cron"
	"go.uber.org/zap"
)

// ErrNotLoaded is returned for a slot that has never loaded successfully
var ErrNotLoaded = errors.New("dataset not loaded")

// DatasetLoader fetches and parses one configured source
type DatasetLoader interface {
	Load(ctx context.Context, name string, src config.SourceData) (*types.Dataset, error)
}

// DatasetManager holds the active Datasets and refreshes them from their
// sources. A failed refresh keeps the previous Dataset in place.
type DatasetManager struct {
	loader  DatasetLoader
	sources map[dataset.Choice]config.SourceData
	reload  config.ReloadData
	logger  *zap.SugaredLogger

	mu   sync.RWMutex
	set  dataset.Set
	errs map[dataset.Choice]error

	// serializes loads so a cron tick and a file event never race
	loadMu sync.Mutex

	debounce time.Duration
}

// NewDatasetManager creates a DatasetManager for the configured sources
func NewDatasetManager(l DatasetLoader, ds config.DatasetsData, rc config.ReloadData, logger *zap.SugaredLogger) *DatasetManager {
	return &DatasetManager{
		loader: l,
		sources: map[dataset.Choice]config.SourceData{
			dataset.Normal:    ds.Normal,
			dataset.Anomalies: ds.Anomalies,
		},
		reload:   rc,
		logger:   logger,
		errs:     make(map[dataset.Choice]error),
		debounce: defaultDebounce,
	}
}

// Start loads both sources, then starts the reload schedule and file
// watchers. Background work stops when ctx is cancelled.
func (m *DatasetManager) Start(ctx context.Context, wg *sync.WaitGroup) error {
	if err := m.Reload(ctx); err != nil {
		m.logger.Errorf("initial dataset load incomplete: %v", err)
	}

	if m.reload.Schedule != "" {
		if err := m.startSchedule(ctx, wg); err != nil {
			return err
		}
	}

	if m.reload.WatchFiles {
		for _, c := range dataset.Choices {
			src := m.sources[c]
			if src.Type != config.SourceFile {
				continue
			}
			if err := m.watchFile(ctx, wg, c, src.Location); err != nil {
				m.logger.Warnf("not watching %s: %v", src.Location, err)
			}
		}
	}
	return nil
}

func (m *DatasetManager) startSchedule(ctx context.Context, wg *sync.WaitGroup) error {
	c := cron.New()
	err := c.AddFunc(m.reload.Schedule, func() {
		m.logger.Infof("scheduled reload (%s)", m.reload.Schedule)
		if err := m.Reload(ctx); err != nil {
			m.logger.Errorf("scheduled reload failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reload schedule %q: %v", m.reload.Schedule, err)
	}
	c.Start()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		c.Stop()
	}()
	return nil
}

// Reload re-runs the loader for both sources. The returned error joins
// the per-source failures.
func (m *DatasetManager) Reload(ctx context.Context) error {
	var errs []error
	for _, c := range dataset.Choices {
		if err := m.reloadSlot(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *DatasetManager) reloadSlot(ctx context.Context, c dataset.Choice) error {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	ds, err := m.loader.Load(ctx, c.String(), m.sources[c])

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		err = fmt.Errorf("%s: %w", c, err)
		m.errs[c] = err
		m.logger.Errorf("error loading dataset: %v", err)
		return err
	}
	delete(m.errs, c)
	switch c {
	case dataset.Normal:
		m.set.Normal = ds
	case dataset.Anomalies:
		m.set.Anomalies = ds
	}
	return nil
}

// Current returns the active Datasets and the most recent load error of
// each source
func (m *DatasetManager) Current() (dataset.Set, map[dataset.Choice]error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errs := make(map[dataset.Choice]error, len(m.errs))
	for c, err := range m.errs {
		errs[c] = err
	}
	return m.set, errs
}

// Dataset returns the selected Dataset, or the reason it is unavailable
func (m *DatasetManager) Dataset(c dataset.Choice) (*types.Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if ds := m.set.Select(c); ds != nil {
		return ds, nil
	}
	if err := m.errs[c]; err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%s: %w", c, ErrNotLoaded)
}
