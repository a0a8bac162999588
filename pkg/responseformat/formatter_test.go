package responseformat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
}

func TestWriteResponseJSON(t *testing.T) {
	v := 2.5
	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	rec := httptest.NewRecorder()

	f := NewFormatter()
	if err := f.WriteResponse(rec, req, payload{Name: "Gas", Value: &v}, map[string]string{"Cache-Control": "no-store"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("expected custom header to be set")
	}

	var got payload
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Name != "Gas" || got.Value == nil || *got.Value != 2.5 {
		t.Errorf("unexpected body %+v", got)
	}
}

func TestWriteResponseMsgPack(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/summary?format=msgpack", nil)
	rec := httptest.NewRecorder()

	if err := NewFormatter().WriteResponse(rec, req, payload{Name: "Humidity"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-msgpack" {
		t.Errorf("unexpected content type %q", ct)
	}

	var got map[string]any
	if err := msgpack.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid msgpack: %v", err)
	}
	if got["name"] != "Humidity" || got["value"] != nil {
		t.Errorf("unexpected body %v", got)
	}
}

func TestWriteError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/trend", nil)
	rec := httptest.NewRecorder()

	NewFormatter().WriteError(rec, req, http.StatusServiceUnavailable, "no data", "404 Not Found")

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	var got ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Error != "no data" || got.Message != "404 Not Found" {
		t.Errorf("unexpected body %+v", got)
	}
}
