package managers

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/chrissnell/sensordash/internal/dataset"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// watchFile reloads one slot whenever its source file is written or
// replaced. The directory is watched so editors that write a new file and
// rename it over the old one are still seen.
func (m *DatasetManager) watchFile(ctx context.Context, wg *sync.WaitGroup, c dataset.Choice, path string) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %v", err)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("error watching %s: %v", filepath.Dir(target), err)
	}
	m.logger.Infof("watching %s for changes", target)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer watcher.Close()

		// Debounced reloads run here, inside the tracked goroutine.
		var (
			timer *time.Timer
			fire  <-chan time.Time
		)
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				name, err := filepath.Abs(event.Name)
				if err != nil || name != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(m.debounce)
				fire = timer.C
			case <-fire:
				timer, fire = nil, nil
				if ctx.Err() != nil {
					return
				}
				m.logger.Infof("%s changed; reloading %s", target, c)
				m.reloadSlot(ctx, c)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				m.logger.Warnf("file watcher error: %v", err)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
