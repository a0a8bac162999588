package restserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/chrissnell/sensordash/internal/aggregate"
	"github.com/chrissnell/sensordash/internal/charts"
	"github.com/chrissnell/sensordash/internal/constants"
	"github.com/chrissnell/sensordash/internal/dataset"
	"github.com/chrissnell/sensordash/internal/export"
	"github.com/chrissnell/sensordash/internal/log"
	"github.com/chrissnell/sensordash/internal/session"
	"github.com/chrissnell/sensordash/internal/types"
	"github.com/chrissnell/sensordash/internal/views"
	"github.com/chrissnell/sensordash/pkg/responseformat"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// session returns the caller's session, creating it and setting the cookie
// when the request carries none or an expired one
func (h *Handlers) session(w http.ResponseWriter, req *http.Request) session.State {
	store := h.controller.sessions
	if c, err := req.Cookie(session.CookieName); err == nil {
		if st, ok := store.Get(c.Value); ok {
			return st
		}
	}

	set, _ := h.controller.datasets.Current()
	st := store.Create(set.Select(dataset.Normal))
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    st.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return st
}

// current returns the request's stored session, or unsaved default selections
// when the request carries no live session cookie
func (h *Handlers) current(req *http.Request) session.State {
	store := h.controller.sessions
	if c, err := req.Cookie(session.CookieName); err == nil {
		if st, ok := store.Get(c.Value); ok {
			return st
		}
	}
	set, _ := h.controller.datasets.Current()
	return store.Transient(set.Select(dataset.Normal))
}

// selection resolves the effective selection for one request: the current
// session with any query parameter overrides applied. Overrides are not
// saved. It writes a 400 and returns false on a bad parameter.
func (h *Handlers) selection(w http.ResponseWriter, req *http.Request, viewParam string) (session.State, bool) {
	return h.override(w, req, h.current(req), viewParam)
}

func (h *Handlers) override(w http.ResponseWriter, req *http.Request, st session.State, viewParam string) (session.State, bool) {
	u, err := queryUpdate(req.URL.Query(), viewParam)
	if err == nil {
		err = u.applyTo(&st, h.years)
	}
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "bad request", err.Error())
		return st, false
	}
	return st, true
}

// dataset returns the Dataset chosen by st, writing a 503 when it is not loaded
func (h *Handlers) dataset(w http.ResponseWriter, req *http.Request, st session.State) (*types.Dataset, bool) {
	ds, err := h.controller.datasets.Dataset(st.Dataset)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "no data", err.Error())
		return nil, false
	}
	return ds, true
}

// years lists the years of a loaded dataset, newest first
func (h *Handlers) years(c dataset.Choice) []int {
	ds, err := h.controller.datasets.Dataset(c)
	if err != nil {
		return nil
	}
	return ds.Years()
}

func (h *Handlers) resolve(w http.ResponseWriter, req *http.Request, viewParam string) (session.State, *types.Dataset, bool) {
	st, ok := h.selection(w, req, viewParam)
	return h.withDataset(w, req, st, ok)
}

func (h *Handlers) withDataset(w http.ResponseWriter, req *http.Request, st session.State, ok bool) (session.State, *types.Dataset, bool) {
	if !ok {
		return st, nil, false
	}
	ds, ok := h.dataset(w, req, st)
	return st, ds, ok
}

func (h *Handlers) health() HealthResponse {
	set, errs := h.controller.datasets.Current()
	resp := HealthResponse{
		Status:   "ok",
		Version:  constants.Version,
		Sessions: h.controller.sessions.Len(),
	}
	for _, c := range dataset.Choices {
		s := DatasetStatus{Choice: c, Name: c.String()}
		if ds := set.Select(c); ds != nil {
			s.Rows = ds.Len()
			loaded := ds.LoadedAt
			s.LoadedAt = &loaded
		}
		if err := errs[c]; err != nil {
			s.Error = err.Error()
			resp.Status = "degraded"
		}
		resp.Datasets = append(resp.Datasets, s)
	}
	return resp
}

// GetHealth reports row counts and load errors for both sources
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteResponse(w, req, h.health(), nil)
}

// Reload re-reads both sources
func (h *Handlers) Reload(w http.ResponseWriter, req *http.Request) {
	if err := h.controller.datasets.Reload(req.Context()); err != nil {
		log.Warnf("manual reload incomplete: %v", err)
	}
	h.formatter.WriteResponse(w, req, h.health(), nil)
}

// GetSession returns the caller's stored selection
func (h *Handlers) GetSession(w http.ResponseWriter, req *http.Request) {
	st := h.session(w, req)
	h.formatter.WriteResponse(w, req, newSessionResponse(st), nil)
}

// UpdateSession changes the caller's stored selection
func (h *Handlers) UpdateSession(w http.ResponseWriter, req *http.Request) {
	st := h.session(w, req)

	var u selectionUpdate
	if err := json.NewDecoder(io.LimitReader(req.Body, 1<<16)).Decode(&u); err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "bad request", fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	updated, err := h.controller.sessions.Update(st.ID, func(s *session.State) error {
		return u.applyTo(s, h.years)
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, session.ErrNotFound) {
			status = http.StatusNotFound
		}
		h.formatter.WriteError(w, req, status, "bad request", err.Error())
		return
	}
	h.formatter.WriteResponse(w, req, newSessionResponse(updated), nil)
}

// RefreshSnapshot draws a new snapshot Reading from the selected dataset
func (h *Handlers) RefreshSnapshot(w http.ResponseWriter, req *http.Request) {
	st, ok := h.override(w, req, h.session(w, req), "")
	st, ds, ok := h.withDataset(w, req, st, ok)
	if !ok {
		return
	}
	updated, err := h.controller.sessions.RefreshSnapshot(st.ID, ds)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusNotFound, "not found", err.Error())
		return
	}
	h.formatter.WriteResponse(w, req, newSessionResponse(updated), nil)
}

// GetOverview returns the metric cards for the session's snapshot Reading
func (h *Handlers) GetOverview(w http.ResponseWriter, req *http.Request) {
	st, ok := h.selection(w, req, "")
	if !ok {
		return
	}

	resp := OverviewResponse{Dataset: st.Dataset.String()}
	if st.Snapshot == nil {
		resp.Message = "No reading available. Refresh once data has loaded."
		h.formatter.WriteResponse(w, req, resp, nil)
		return
	}
	resp.Cards = views.MetricCards(st.Snapshot)
	resp.Location = st.Snapshot.Location
	ts := st.Snapshot.Timestamp
	resp.Timestamp = &ts
	at := st.SnapshotAt
	resp.SnapshotAt = &at
	h.formatter.WriteResponse(w, req, resp, nil)
}

// GetSummary returns descriptive statistics of the selected dataset
func (h *Handlers) GetSummary(w http.ResponseWriter, req *http.Request) {
	_, ds, ok := h.resolve(w, req, "")
	if !ok {
		return
	}
	h.formatter.WriteResponse(w, req, SummaryResponse{
		Dataset: ds.Name,
		Columns: views.SummaryColumns,
		Rows:    views.Summary(ds),
	}, nil)
}

// GetYears returns the years present in the selected dataset
func (h *Handlers) GetYears(w http.ResponseWriter, req *http.Request) {
	_, ds, ok := h.resolve(w, req, "")
	if !ok {
		return
	}
	years := ds.Years()
	if years == nil {
		years = []int{}
	}
	h.formatter.WriteResponse(w, req, YearsResponse{Years: years}, nil)
}

// GetTrend returns the data behind the selected gas trend view
func (h *Handlers) GetTrend(w http.ResponseWriter, req *http.Request) {
	st, ds, ok := h.resolve(w, req, "trend")
	if !ok {
		return
	}
	h.formatter.WriteResponse(w, req, views.Trend(ds, st.TrendView, h.controller.dashboard.RankingTopN), nil)
}

// GetEnvironment returns the data behind the selected environmental view
func (h *Handlers) GetEnvironment(w http.ResponseWriter, req *http.Request) {
	st, ds, ok := h.resolve(w, req, "environment")
	if !ok {
		return
	}
	h.formatter.WriteResponse(w, req, views.Environmental(ds, st.EnvView), nil)
}

// timeSeries runs the aggregation for the effective selection
func (h *Handlers) timeSeries(w http.ResponseWriter, req *http.Request) (aggregate.Result, bool) {
	st, ds, ok := h.resolve(w, req, "")
	if !ok {
		return aggregate.Result{}, false
	}
	res, err := aggregate.Aggregate(ds, st.Query())
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "bad request", err.Error())
		return res, false
	}
	return res, true
}

// GetTimeSeries returns the bucketed series for the selected variable and
// window. An empty window is a 200 with empty set.
func (h *Handlers) GetTimeSeries(w http.ResponseWriter, req *http.Request) {
	res, ok := h.timeSeries(w, req)
	if !ok {
		return
	}
	h.formatter.WriteResponse(w, req, res, nil)
}

// TimeSeriesChart renders the bucketed series as a PNG
func (h *Handlers) TimeSeriesChart(w http.ResponseWriter, req *http.Request) {
	res, ok := h.timeSeries(w, req)
	if !ok {
		return
	}
	h.writePNG(w, req, res.Message, func(buf io.Writer) error {
		return charts.TimeSeries(buf, res)
	})
}

// TrendChart renders the selected trend view as a PNG
func (h *Handlers) TrendChart(w http.ResponseWriter, req *http.Request) {
	st, ds, ok := h.resolve(w, req, "trend")
	if !ok {
		return
	}
	res := views.Trend(ds, st.TrendView, h.controller.dashboard.RankingTopN)
	h.writePNG(w, req, res.Message, func(buf io.Writer) error {
		return charts.Trend(buf, res)
	})
}

// EnvironmentChart renders the selected environmental view as a PNG. The
// seasonal view has one chart per variable, picked with ?panel=.
func (h *Handlers) EnvironmentChart(w http.ResponseWriter, req *http.Request) {
	st, ds, ok := h.resolve(w, req, "environment")
	if !ok {
		return
	}
	panel := 0
	if p := req.URL.Query().Get("panel"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			h.formatter.WriteError(w, req, http.StatusBadRequest, "bad request", fmt.Sprintf("invalid panel %q", p))
			return
		}
		panel = n
	}
	res := views.Environmental(ds, st.EnvView)
	if len(res.Panels) > 0 && (panel < 0 || panel >= len(res.Panels)) {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "bad request", fmt.Sprintf("panel must be between 0 and %d", len(res.Panels)-1))
		return
	}
	h.writePNG(w, req, res.Message, func(buf io.Writer) error {
		return charts.Environmental(buf, res, panel)
	})
}

// writePNG renders into a buffer so a failed render can still send a
// proper error status
func (h *Handlers) writePNG(w http.ResponseWriter, req *http.Request, emptyMessage string, render func(io.Writer) error) {
	var buf bytes.Buffer
	err := render(&buf)
	if errors.Is(err, charts.ErrNothingToRender) {
		if emptyMessage == "" {
			emptyMessage = aggregate.NoDataMessage
		}
		h.formatter.WriteError(w, req, http.StatusNotFound, "nothing to render", emptyMessage)
		return
	}
	if err != nil {
		log.Errorf("error rendering chart %s: %v", req.URL.Path, err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "render failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// DownloadCSV sends the selected dataset as a semicolon-delimited CSV report
func (h *Handlers) DownloadCSV(w http.ResponseWriter, req *http.Request) {
	h.download(w, req, export.CSVFilename, export.CSVContentType, export.WriteCSV)
}

// DownloadXLSX sends the selected dataset as an Excel workbook
func (h *Handlers) DownloadXLSX(w http.ResponseWriter, req *http.Request) {
	h.download(w, req, export.XLSXFilename, export.XLSXContentType, export.WriteXLSX)
}

func (h *Handlers) download(w http.ResponseWriter, req *http.Request, filename, contentType string, write func(io.Writer, *types.Dataset) error) {
	_, ds, ok := h.resolve(w, req, "")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, ds); err != nil {
		log.Errorf("error exporting %s: %v", filename, err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "export failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(buf.Bytes())
}

// ServeIndexTemplate serves the dashboard page
func (h *Handlers) ServeIndexTemplate(w http.ResponseWriter, req *http.Request) {
	// Touch the session so the page's first API calls share one cookie.
	h.session(w, req)

	view, err := htmltemplate.New("index.html.tmpl").ParseFS(h.controller.FS, "index.html.tmpl")
	if err != nil {
		log.Errorf("error parsing index template: %v", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	templateData := struct {
		PageTitle      string
		Version        string
		Datasets       []dataset.Choice
		TrendViews     []views.TrendView
		EnvViews       []views.EnvironmentalView
		Variables      []string
		Granularities  []aggregate.Granularity
		Months         []string
		SummaryColumns []string
	}{
		PageTitle:      h.controller.dashboard.PageTitle,
		Version:        constants.Version,
		Datasets:       dataset.Choices,
		TrendViews:     views.TrendViews,
		EnvViews:       views.EnvironmentalViews,
		Variables:      types.Variables,
		Granularities:  aggregate.Granularities,
		Months:         aggregate.MonthNames(),
		SummaryColumns: views.SummaryColumns,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := view.Execute(w, templateData); err != nil {
		log.Error("error executing index template:", err)
	}
}
