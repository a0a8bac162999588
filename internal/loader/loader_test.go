package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/chrissnell/sensordash/pkg/config"
)

const sampleCSV = "Date;Time;Location;Temperature;Humidity;Moisture;Gas\n" +
	"2023-01-09;06:00;A;1;2;3;4\n" +
	"2023-01-10;18:00;B;5;6;7;8\n"

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "normal.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	ds, err := New().Load(context.Background(), "Normal Readings", config.SourceData{Type: config.SourceFile, Location: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Name != "Normal Readings" || ds.Len() != 2 {
		t.Errorf("unexpected dataset %q with %d readings", ds.Name, ds.Len())
	}
	if ds.Source != path {
		t.Errorf("expected source %q, got %q", path, ds.Source)
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := New().Load(context.Background(), "Anomalies", config.SourceData{Type: config.SourceFile, Location: filepath.Join(t.TempDir(), "nope.csv")})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/normal.csv" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	l := New(WithHTTPClient(srv.Client()))

	ds, err := l.Load(context.Background(), "Normal Readings", config.SourceData{Type: config.SourceHTTP, Location: srv.URL + "/normal.csv"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Len() != 2 {
		t.Errorf("expected 2 readings, got %d", ds.Len())
	}

	if _, err := l.Load(context.Background(), "Anomalies", config.SourceData{Type: config.SourceHTTP, Location: srv.URL + "/missing.csv"}); err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestLoadUnsupportedType(t *testing.T) {
	if _, err := New().Load(context.Background(), "x", config.SourceData{Type: "ftp", Location: "ftp://x"}); err == nil {
		t.Error("expected error for unsupported source type")
	}
}

func TestDownloadURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{
			"https://drive.google.com/file/d/1dL3siMY6KaX1z0f6C5GVgTlJ06b7_Wru",
			"https://drive.google.com/uc?export=download&id=1dL3siMY6KaX1z0f6C5GVgTlJ06b7_Wru",
		},
		{
			"https://drive.google.com/file/d/1CHO_ToDIw7EET0TfAb1xOV4VynIYPrh8/view?usp=sharing",
			"https://drive.google.com/uc?export=download&id=1CHO_ToDIw7EET0TfAb1xOV4VynIYPrh8",
		},
		{"https://example.com/data.csv", "https://example.com/data.csv"},
	}
	for _, tt := range tests {
		if got := DownloadURL(tt.in); got != tt.want {
			t.Errorf("DownloadURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
