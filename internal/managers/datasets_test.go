package managers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/sensordash/internal/dataset"
	"github.com/chrissnell/sensordash/internal/types"
	"github.com/chrissnell/sensordash/pkg/config"
	"go.uber.org/zap"
)

// fakeLoader returns a Dataset named after the source location, or the
// configured failure for that location.
type fakeLoader struct {
	mu    sync.Mutex
	fail  map[string]error
	calls map[string]int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{fail: make(map[string]error), calls: make(map[string]int)}
}

func (f *fakeLoader) Load(ctx context.Context, name string, src config.SourceData) (*types.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[src.Location]++
	if err := f.fail[src.Location]; err != nil {
		return nil, err
	}
	return &types.Dataset{Name: name, Source: src.Location, Readings: make([]types.Reading, f.calls[src.Location])}, nil
}

func (f *fakeLoader) setFail(location string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[location] = err
}

func (f *fakeLoader) count(location string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[location]
}

func testSources() config.DatasetsData {
	return config.DatasetsData{
		Normal:    config.SourceData{Type: config.SourceHTTP, Location: "normal"},
		Anomalies: config.SourceData{Type: config.SourceHTTP, Location: "anomalies"},
	}
}

func TestReloadKeepsPreviousOnFailure(t *testing.T) {
	l := newFakeLoader()
	m := NewDatasetManager(l, testSources(), config.ReloadData{}, zap.NewNop().Sugar())

	if err := m.Reload(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	set, errs := m.Current()
	if set.Normal.Len() != 1 || set.Anomalies.Len() != 1 || len(errs) != 0 {
		t.Fatalf("unexpected first load %+v %v", set, errs)
	}

	boom := errors.New("connection refused")
	l.setFail("anomalies", boom)
	err := m.Reload(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined load error, got %v", err)
	}

	set, errs = m.Current()
	if set.Normal.Len() != 2 {
		t.Errorf("expected normal slot to be swapped, got %d rows", set.Normal.Len())
	}
	if set.Anomalies.Len() != 1 {
		t.Errorf("expected previous anomalies dataset to be kept, got %d rows", set.Anomalies.Len())
	}
	if !errors.Is(errs[dataset.Anomalies], boom) {
		t.Errorf("expected recorded anomalies error, got %v", errs)
	}

	// A dataset that is still present is served despite the failed refresh.
	if ds, err := m.Dataset(dataset.Anomalies); err != nil || ds == nil {
		t.Errorf("expected previous dataset, got %v %v", ds, err)
	}

	l.setFail("anomalies", nil)
	m.Reload(context.Background())
	if _, errs = m.Current(); len(errs) != 0 {
		t.Errorf("expected errors to clear after a good reload, got %v", errs)
	}
}

func TestDatasetUnavailable(t *testing.T) {
	l := newFakeLoader()
	boom := errors.New("404 Not Found")
	l.setFail("normal", boom)
	m := NewDatasetManager(l, testSources(), config.ReloadData{}, zap.NewNop().Sugar())

	if _, err := m.Dataset(dataset.Normal); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded before any load, got %v", err)
	}

	m.Reload(context.Background())
	if _, err := m.Dataset(dataset.Normal); !errors.Is(err, boom) {
		t.Errorf("expected load error, got %v", err)
	}
	if ds, err := m.Dataset(dataset.Anomalies); err != nil || ds.Name != dataset.Anomalies.String() {
		t.Errorf("expected anomalies dataset, got %v %v", ds, err)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup

	m := NewDatasetManager(newFakeLoader(), testSources(), config.ReloadData{Schedule: "every now and then"}, zap.NewNop().Sugar())
	if err := m.Start(ctx, &wg); err == nil {
		t.Error("expected error for an invalid schedule")
	}
}

func TestScheduledReload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	l := newFakeLoader()
	m := NewDatasetManager(l, testSources(), config.ReloadData{Schedule: "@every 1s"}, zap.NewNop().Sugar())
	if err := m.Start(ctx, &wg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for l.count("normal") < 2 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	wg.Wait()

	if l.count("normal") < 2 {
		t.Errorf("expected a scheduled reload, got %d loads", l.count("normal"))
	}
}

func TestWatchFileReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anomalies.csv")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	l := newFakeLoader()
	sources := testSources()
	sources.Anomalies = config.SourceData{Type: config.SourceFile, Location: path}
	m := NewDatasetManager(l, sources, config.ReloadData{WatchFiles: true}, zap.NewNop().Sugar())
	m.debounce = 20 * time.Millisecond

	if err := m.Start(ctx, &wg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.count(path) != 1 {
		t.Fatalf("expected initial load, got %d", l.count(path))
	}

	// Unrelated files in the same directory are ignored.
	os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x"), 0o644)
	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for l.count(path) < 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	wg.Wait()

	if l.count(path) < 2 {
		t.Errorf("expected reload after write, got %d loads", l.count(path))
	}
	if l.count("normal") != 1 {
		t.Errorf("expected http source to load once, got %d", l.count("normal"))
	}
}

func TestWatchFileStopsWithContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "normal.csv")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	l := newFakeLoader()
	sources := testSources()
	sources.Normal = config.SourceData{Type: config.SourceFile, Location: path}
	m := NewDatasetManager(l, sources, config.ReloadData{WatchFiles: true}, zap.NewNop().Sugar())
	m.debounce = 150 * time.Millisecond

	if err := m.Start(ctx, &wg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Arm the debounce timer, then shut down before it fires.
	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	cancel()
	wg.Wait()

	loads := l.count(path)
	time.Sleep(300 * time.Millisecond)
	if got := l.count(path); got != loads {
		t.Errorf("reload ran after shutdown: %d loads at wg.Wait, %d later", loads, got)
	}
}
