package restserver

import (
	"time"

	"github.com/chrissnell/sensordash/internal/aggregate"
	"github.com/chrissnell/sensordash/internal/dataset"
	"github.com/chrissnell/sensordash/internal/session"
	"github.com/chrissnell/sensordash/internal/types"
	"github.com/chrissnell/sensordash/internal/views"
)

// DatasetStatus describes one configured source
type DatasetStatus struct {
	Choice   dataset.Choice `json:"choice"`
	Name     string         `json:"name"`
	Rows     int            `json:"rows"`
	LoadedAt *time.Time     `json:"loaded_at,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// HealthResponse is returned by /api/health and /api/reload
type HealthResponse struct {
	Status   string          `json:"status"`
	Version  string          `json:"version"`
	Sessions int             `json:"sessions"`
	Datasets []DatasetStatus `json:"datasets"`
}

// SessionResponse is the session's selection in its wire form
type SessionResponse struct {
	ID          string                  `json:"id"`
	Dataset     dataset.Choice          `json:"dataset"`
	ShowSummary bool                    `json:"show_summary"`
	TrendView   views.TrendView         `json:"trend_view"`
	EnvView     views.EnvironmentalView `json:"env_view"`
	Variable    string                  `json:"variable"`
	Granularity aggregate.Granularity   `json:"granularity"`
	Date        string                  `json:"date"`
	Month       string                  `json:"month"`
	Year        int                     `json:"year"`
	Snapshot    *types.Reading          `json:"snapshot"`
	SnapshotAt  *time.Time              `json:"snapshot_at,omitempty"`
}

func newSessionResponse(st session.State) SessionResponse {
	r := SessionResponse{
		ID:          st.ID,
		Dataset:     st.Dataset,
		ShowSummary: st.ShowSummary,
		TrendView:   st.TrendView,
		EnvView:     st.EnvView,
		Variable:    st.Variable,
		Granularity: st.Granularity,
		Date:        st.Date.Format(dateLayout),
		Month:       st.Month.String(),
		Year:        st.Year,
		Snapshot:    st.Snapshot,
	}
	if !st.SnapshotAt.IsZero() {
		at := st.SnapshotAt
		r.SnapshotAt = &at
	}
	return r
}

// OverviewResponse holds the real-time overview metric cards
type OverviewResponse struct {
	Dataset    string             `json:"dataset"`
	Cards      []views.MetricCard `json:"cards"`
	Location   string             `json:"location,omitempty"`
	Timestamp  *time.Time         `json:"timestamp,omitempty"`
	SnapshotAt *time.Time         `json:"snapshot_at,omitempty"`
	Message    string             `json:"message,omitempty"`
}

// SummaryResponse is the statistical summary table
type SummaryResponse struct {
	Dataset string             `json:"dataset"`
	Columns []string           `json:"columns"`
	Rows    []views.SummaryRow `json:"rows"`
}

// YearsResponse lists the years available to the yearly view, newest first
type YearsResponse struct {
	Years []int `json:"years"`
}
