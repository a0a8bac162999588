package restserver

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/sensordash/internal/dataset"
	"github.com/chrissnell/sensordash/internal/log"
	"github.com/chrissnell/sensordash/internal/session"
	"github.com/chrissnell/sensordash/internal/types"
	"github.com/chrissnell/sensordash/pkg/config"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DatasetSource supplies the loaded Datasets
type DatasetSource interface {
	Current() (dataset.Set, map[dataset.Choice]error)
	Dataset(c dataset.Choice) (*types.Dataset, error)
	Reload(ctx context.Context) error
}

// Controller represents the REST server controller
type Controller struct {
	ctx          context.Context
	wg           *sync.WaitGroup
	serverConfig config.ServerData
	dashboard    config.DashboardData
	Server       http.Server
	FS           fs.FS
	datasets     DatasetSource
	sessions     *session.Store
	logger       *zap.SugaredLogger
	handlers     *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, datasets DatasetSource, logger *zap.SugaredLogger) (*Controller, error) {
	sc := cfg.Server
	if sc.ListenAddr == "" {
		logger.Info("server.listen-addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		sc.ListenAddr = config.DefaultListenAddr
	}
	if sc.Port == 0 {
		logger.Infof("server.port not provided; defaulting to %d", config.DefaultPort)
		sc.Port = config.DefaultPort
	}

	dc := cfg.Dashboard
	if dc.DefaultDate == "" {
		dc.DefaultDate = config.DefaultDate
	}
	defaultDate, err := time.Parse(dateLayout, dc.DefaultDate)
	if err != nil {
		return nil, fmt.Errorf("invalid dashboard.default-date %q: %v", dc.DefaultDate, err)
	}
	if dc.PageTitle == "" {
		dc.PageTitle = config.DefaultPageTitle
	}
	if dc.RankingTopN <= 0 {
		dc.RankingTopN = config.DefaultRankingTopN
	}

	ctrl := &Controller{
		ctx:          ctx,
		wg:           wg,
		serverConfig: sc,
		dashboard:    dc,
		datasets:     datasets,
		sessions:     session.NewStore(sc.SessionTTL, defaultDate),
		logger:       logger,
		FS:           GetAssets(),
	}
	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", sc.ListenAddr, sc.Port)
	ctrl.Server.Handler = ctrl.Handler()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Infof("Starting REST server on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.serverConfig.Cert != "" && c.serverConfig.Key != "" {
			if err := c.Server.ListenAndServeTLS(c.serverConfig.Cert, c.serverConfig.Key); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// Handler returns the router wrapped in the access log, compression and
// panic recovery middleware
func (c *Controller) Handler() http.Handler {
	var h http.Handler = c.setupRouter()
	h = log.HTTPLoggingMiddleware(h)
	h = handlers.CompressHandler(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{c.logger}),
		handlers.PrintRecoveryStack(true),
	)(h)
	return h
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", c.handlers.GetHealth).Methods(http.MethodGet)
	api.HandleFunc("/session", c.handlers.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/session", c.handlers.UpdateSession).Methods(http.MethodPut)
	api.HandleFunc("/session/snapshot", c.handlers.RefreshSnapshot).Methods(http.MethodPost)
	api.HandleFunc("/overview", c.handlers.GetOverview).Methods(http.MethodGet)
	api.HandleFunc("/summary", c.handlers.GetSummary).Methods(http.MethodGet)
	api.HandleFunc("/years", c.handlers.GetYears).Methods(http.MethodGet)
	api.HandleFunc("/trend", c.handlers.GetTrend).Methods(http.MethodGet)
	api.HandleFunc("/environment", c.handlers.GetEnvironment).Methods(http.MethodGet)
	api.HandleFunc("/timeseries", c.handlers.GetTimeSeries).Methods(http.MethodGet)
	api.HandleFunc("/reload", c.handlers.Reload).Methods(http.MethodPost)

	router.HandleFunc("/charts/trend.png", c.handlers.TrendChart).Methods(http.MethodGet)
	router.HandleFunc("/charts/environment.png", c.handlers.EnvironmentChart).Methods(http.MethodGet)
	router.HandleFunc("/charts/timeseries.png", c.handlers.TimeSeriesChart).Methods(http.MethodGet)

	router.HandleFunc("/download/csv", c.handlers.DownloadCSV).Methods(http.MethodGet)
	router.HandleFunc("/download/xlsx", c.handlers.DownloadXLSX).Methods(http.MethodGet)

	router.HandleFunc("/", c.handlers.ServeIndexTemplate).Methods(http.MethodGet)

	// Static file serving
	static := http.FileServer(http.FS(c.FS))
	router.PathPrefix("/js/").Handler(static)
	router.PathPrefix("/css/").Handler(static)

	return router
}

// recoveryLogger adapts zap to the logger gorilla/handlers expects
type recoveryLogger struct {
	logger *zap.SugaredLogger
}

func (r recoveryLogger) Println(args ...interface{}) {
	r.logger.Error(args...)
}
