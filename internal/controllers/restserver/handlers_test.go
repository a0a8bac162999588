package restserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/sensordash/internal/dataset"
	"github.com/chrissnell/sensordash/internal/types"
	"github.com/chrissnell/sensordash/pkg/config"
	"go.uber.org/zap"
)

type fakeDatasets struct {
	mu      sync.Mutex
	set     dataset.Set
	errs    map[dataset.Choice]error
	reloads int
}

func (f *fakeDatasets) Current() (dataset.Set, map[dataset.Choice]error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set, f.errs
}

func (f *fakeDatasets) Dataset(c dataset.Choice) (*types.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ds := f.set.Select(c); ds != nil {
		return ds, nil
	}
	return nil, f.errs[c]
}

func (f *fakeDatasets) Reload(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return f.errs[dataset.Anomalies]
}

func testReadings() []types.Reading {
	var rs []types.Reading
	start := time.Date(2023, 1, 9, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 48; i++ {
		rs = append(rs, types.Reading{
			Timestamp:   start.Add(time.Duration(i) * time.Hour),
			Location:    []string{"Sensor_1", "Sensor_2", "Sensor_3"}[i%3],
			Temperature: 20 + float64(i%5),
			Humidity:    40 + float64(i%7),
			Moisture:    10 + float64(i%3),
			Gas:         float64(i % 11),
		})
	}
	return rs
}

type testServer struct {
	handler http.Handler
	data    *fakeDatasets
	cookie  *http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	data := &fakeDatasets{
		set: dataset.Set{Normal: &types.Dataset{
			Name:     dataset.NormalName,
			Columns:  []string{"Timestamp", "Location", "Temperature", "Humidity", "Moisture", "Gas"},
			Readings: testReadings(),
			LoadedAt: time.Now(),
		}},
		errs: map[dataset.Choice]error{dataset.Anomalies: errors.New("anomalies: 404 Not Found")},
	}

	cfg := &config.ConfigData{Dashboard: config.DashboardData{PageTitle: "Test Dashboard"}}
	ctrl, err := NewController(context.Background(), &sync.WaitGroup{}, cfg, data, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("error creating controller: %v", err)
	}
	return &testServer{handler: ctrl.Handler(), data: data}
}

// do sends a request carrying the session cookie from earlier responses
func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sensordash_session" {
			s.cookie = c
		}
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var h HealthResponse
	decode(t, rec, &h)
	if h.Status != "degraded" || len(h.Datasets) != 2 {
		t.Fatalf("unexpected health %+v", h)
	}
	if h.Datasets[0].Rows != 48 || h.Datasets[1].Error == "" {
		t.Errorf("unexpected dataset status %+v", h.Datasets)
	}
}

func TestSessionDefaultsAndUpdate(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/session", "")
	if s.cookie == nil {
		t.Fatal("expected a session cookie")
	}
	var st SessionResponse
	decode(t, rec, &st)
	if st.Variable != "Temperature" || st.Date != "2023-01-01" || st.Month != "January" || st.Year != 2023 {
		t.Errorf("unexpected defaults %+v", st)
	}
	if st.Snapshot == nil {
		t.Fatal("expected a snapshot reading")
	}
	snapshot := *st.Snapshot

	rec = s.do(t, http.MethodPut, "/api/session", `{"variable":"Gas","granularity":"weekly","date":"2023-01-11","trend_view":"day-vs-night"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &st)
	if st.Variable != "Gas" || st.Date != "2023-01-11" || st.TrendView.Slug() != "day-vs-night" {
		t.Errorf("update not applied: %+v", st)
	}

	// Toggling the dataset keeps the snapshot.
	rec = s.do(t, http.MethodPut, "/api/session", `{"dataset":"anomalies"}`)
	decode(t, rec, &st)
	if st.Snapshot == nil || *st.Snapshot != snapshot {
		t.Errorf("snapshot changed on dataset toggle")
	}

	rec = s.do(t, http.MethodPut, "/api/session", `{"variable":"Pressure"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown variable, got %d", rec.Code)
	}
}

func TestDatasetToggleMovesYear(t *testing.T) {
	s := newTestServer(t)
	var anomalies []types.Reading
	for _, r := range testReadings() {
		r.Timestamp = r.Timestamp.AddDate(1, 0, 0)
		anomalies = append(anomalies, r)
	}
	s.data.set.Anomalies = &types.Dataset{Name: dataset.AnomaliesName, Readings: anomalies, LoadedAt: time.Now()}
	s.data.errs = map[dataset.Choice]error{}

	var st SessionResponse
	decode(t, s.do(t, http.MethodGet, "/api/session", ""), &st)
	if st.Year != 2023 {
		t.Fatalf("expected default year 2023, got %d", st.Year)
	}

	rec := s.do(t, http.MethodPut, "/api/session", `{"dataset":"anomalies","granularity":"yearly"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &st)
	if st.Year != 2024 {
		t.Errorf("year not moved into the anomalies dataset: %d", st.Year)
	}

	var res struct {
		Empty  bool  `json:"empty"`
		Points []any `json:"points"`
	}
	decode(t, s.do(t, http.MethodGet, "/api/timeseries", ""), &res)
	if res.Empty || len(res.Points) != 1 {
		t.Errorf("expected one monthly bucket for 2024, got %+v", res)
	}

	// An explicit year wins over the dataset's coverage.
	decode(t, s.do(t, http.MethodPut, "/api/session", `{"dataset":"normal","year":2024}`), &st)
	if st.Year != 2024 {
		t.Errorf("explicit year overridden: %d", st.Year)
	}
	decode(t, s.do(t, http.MethodPut, "/api/session", `{"dataset":"normal"}`), &st)
	if st.Year != 2023 {
		t.Errorf("year not moved back into the normal dataset: %d", st.Year)
	}

	// A one-request dataset override follows the same rule.
	decode(t, s.do(t, http.MethodGet, "/api/timeseries?dataset=anomalies", ""), &res)
	if res.Empty {
		t.Error("dataset override kept a year the dataset does not cover")
	}
}

func TestQueryOverridesAreNotSaved(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/api/session", "")

	rec := s.do(t, http.MethodGet, "/api/timeseries?variable=Gas&granularity=weekly&date=2023-01-11", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Variable string `json:"variable"`
		Empty    bool   `json:"empty"`
		Points   []any  `json:"points"`
	}
	decode(t, rec, &res)
	if res.Variable != "Gas" || res.Empty || len(res.Points) != 8 {
		t.Errorf("unexpected weekly result: %+v", res)
	}

	var st SessionResponse
	decode(t, s.do(t, http.MethodGet, "/api/session", ""), &st)
	if st.Variable != "Temperature" {
		t.Errorf("query override was saved: %s", st.Variable)
	}
}

func TestCookielessReadsStoreNothing(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/overview", "/api/timeseries", "/api/summary", "/api/years", "/charts/timeseries.png?granularity=daily&date=2023-01-09"} {
		for i := 0; i < 3; i++ {
			if rec := s.do(t, http.MethodGet, path, ""); rec.Code != http.StatusOK {
				t.Fatalf("%s: expected 200, got %d", path, rec.Code)
			}
		}
	}
	if s.cookie != nil {
		t.Errorf("read-only request set a session cookie")
	}

	var h HealthResponse
	decode(t, s.do(t, http.MethodGet, "/api/health", ""), &h)
	if h.Sessions != 0 {
		t.Errorf("expected no stored sessions, got %d", h.Sessions)
	}

	s.do(t, http.MethodGet, "/api/session", "")
	if s.cookie == nil {
		t.Fatal("expected a session cookie")
	}
	decode(t, s.do(t, http.MethodGet, "/api/health", ""), &h)
	if h.Sessions != 1 {
		t.Errorf("expected one stored session, got %d", h.Sessions)
	}
}

func TestEmptyWindow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/timeseries?granularity=daily&date=2024-05-05", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res struct {
		Empty   bool   `json:"empty"`
		Message string `json:"message"`
	}
	decode(t, rec, &res)
	if !res.Empty || res.Message == "" {
		t.Errorf("expected empty result with message, got %+v", res)
	}

	rec = s.do(t, http.MethodGet, "/charts/timeseries.png?granularity=daily&date=2024-05-05", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for empty chart, got %d", rec.Code)
	}
}

func TestBadParameters(t *testing.T) {
	s := newTestServer(t)
	paths := []string{
		"/api/timeseries?variable=Pressure",
		"/api/timeseries?granularity=hourly",
		"/api/timeseries?date=01/11/2023",
		"/api/timeseries?month=Smarch",
		"/api/timeseries?year=soon",
		"/api/trend?view=pie",
		"/api/summary?dataset=both",
		"/charts/environment.png?view=seasonal-environment&panel=5",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			if rec := s.do(t, http.MethodGet, p, ""); rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestUnavailableDataset(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/summary?dataset=anomalies", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != "no data" || !strings.Contains(body["message"], "404") {
		t.Errorf("unexpected body %v", body)
	}
}

func TestViews(t *testing.T) {
	s := newTestServer(t)

	var trend struct {
		Message string `json:"message"`
		Bars    *struct {
			Bars []struct {
				Label string `json:"label"`
			} `json:"bars"`
		} `json:"bars"`
	}
	decode(t, s.do(t, http.MethodGet, "/api/trend", ""), &trend)
	if trend.Message == "" || trend.Bars != nil {
		t.Errorf("expected prompt without a view, got %+v", trend)
	}

	decode(t, s.do(t, http.MethodGet, "/api/trend?view=day-vs-night", ""), &trend)
	if trend.Bars == nil || len(trend.Bars.Bars) != 2 {
		t.Fatalf("expected day/night bars, got %+v", trend)
	}

	rec := s.do(t, http.MethodGet, "/api/environment?view=correlation-main", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "correlation") {
		t.Errorf("unexpected environment response %d %s", rec.Code, rec.Body.String())
	}

	var years YearsResponse
	decode(t, s.do(t, http.MethodGet, "/api/years", ""), &years)
	if len(years.Years) != 1 || years.Years[0] != 2023 {
		t.Errorf("unexpected years %v", years.Years)
	}

	var summary SummaryResponse
	decode(t, s.do(t, http.MethodGet, "/api/summary", ""), &summary)
	if len(summary.Rows) != 4 || summary.Rows[0].Count != 48 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestCharts(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		path   string
		status int
	}{
		{"/charts/trend.png?view=day-vs-night", http.StatusOK},
		{"/charts/trend.png?view=sensor-ranking", http.StatusOK},
		{"/charts/trend.png", http.StatusNotFound},
		{"/charts/environment.png?view=correlation-full", http.StatusOK},
		{"/charts/environment.png?view=seasonal-environment&panel=2", http.StatusOK},
		{"/charts/timeseries.png?granularity=daily&date=2023-01-09", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.path, "")
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.status == http.StatusOK && rec.Header().Get("Content-Type") != "image/png" {
				t.Errorf("unexpected content type %q", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestDownloads(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/download/csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "sensor_data_report.csv") {
		t.Errorf("unexpected disposition %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "Timestamp;Location;") {
		t.Errorf("unexpected CSV body %q", rec.Body.String()[:40])
	}

	rec = s.do(t, http.MethodGet, "/download/xlsx", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Errorf("expected a zip-based workbook, got %d", rec.Code)
	}
}

func TestSnapshotRefreshAndOverview(t *testing.T) {
	s := newTestServer(t)

	var ov OverviewResponse
	decode(t, s.do(t, http.MethodGet, "/api/overview", ""), &ov)
	if len(ov.Cards) != 4 || ov.Cards[0].Delta != "Last update" {
		t.Fatalf("unexpected overview %+v", ov)
	}

	rec := s.do(t, http.MethodPost, "/api/session/snapshot", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodPost, "/api/session/snapshot?dataset=anomalies", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 refreshing from a missing dataset, got %d", rec.Code)
	}
}

func TestReloadAndIndex(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/reload", "")
	if rec.Code != http.StatusOK || s.data.reloads != 1 {
		t.Errorf("expected one reload, got %d (%d)", s.data.reloads, rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/reload", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET /api/reload, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<title>Test Dashboard</title>") {
		t.Errorf("unexpected index %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/js/sensordash.js", ""); rec.Code != http.StatusOK {
		t.Errorf("expected static script, got %d", rec.Code)
	}
}
