package log

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestHTTPLoggingMiddlewarePassesThrough(t *testing.T) {
	if err := Init(false); err != nil {
		t.Fatal(err)
	}

	h := HTTPLoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("expected status %d, got %d", http.StatusTeapot, rec.Code)
	}
	if rec.Body.String() != "short and stout" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestInitWithFileWritesRotatedLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensordash.log")
	if err := InitWithFile(false, FileOptions{Path: path, MaxSizeMB: 1}); err != nil {
		t.Fatal(err)
	}
	Infof("hello %s", "file")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file to exist: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected log file to contain an entry")
	}
}
