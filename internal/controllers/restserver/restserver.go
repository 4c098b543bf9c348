// Package restserver is the read-only HTTP surface over the aggregators:
// current snapshots for downstream consumers, a health probe keyed to data
// freshness, and Prometheus metrics.
package restserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/chrissnell/gwstationd/internal/types"
	"github.com/chrissnell/gwstationd/pkg/config"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	shutdownTimeout  = 5 * time.Second
	healthStaleAfter = 10 * time.Minute
)

// SnapshotSource is the read-only aggregator surface the server exposes.
type SnapshotSource interface {
	State() types.StationSnapshot
	LastIngest() time.Time
}

// Controller serves the REST endpoints.
type Controller struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cfg     config.RESTServerData
	sources map[string]SnapshotSource
	router  *mux.Router
	server  *http.Server
	logger  *zap.SugaredLogger
}

// New creates the controller over the given per-station sources.
func New(ctx context.Context, cfg config.RESTServerData, sources map[string]SnapshotSource,
	logger *zap.SugaredLogger) *Controller {
	ctx, cancel := context.WithCancel(ctx)
	c := &Controller{
		ctx:     ctx,
		cancel:  cancel,
		cfg:     cfg,
		sources: sources,
		logger:  logger,
	}

	c.router = mux.NewRouter()
	c.router.HandleFunc("/snapshot", c.handleSnapshot).Methods(http.MethodGet)
	c.router.HandleFunc("/snapshot/{station}", c.handleStationSnapshot).Methods(http.MethodGet)
	c.router.HandleFunc("/healthz", c.handleHealth).Methods(http.MethodGet)
	c.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return c
}

// Start begins serving.  The listener failure mode is fatal for the
// controller but not for the process; it is logged and the goroutine
// exits.
func (c *Controller) Start() error {
	addr := net.JoinHostPort(c.cfg.ListenAddr, strconv.Itoa(c.cfg.Port))
	c.server = &http.Server{
		Addr:         addr,
		Handler:      c.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	c.logger.Infof("REST server listening on %s", addr)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Errorf("REST server: %v", err)
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (c *Controller) Stop() error {
	c.cancel()
	if c.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := c.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("REST server shutdown: %w", err)
		}
	}
	c.wg.Wait()
	return nil
}

// handleSnapshot returns the configured default station's snapshot, or a
// map of every station when no default is set.
func (c *Controller) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if c.cfg.PullFromDevice != "" {
		src, ok := c.sources[c.cfg.PullFromDevice]
		if !ok {
			http.Error(w, "configured device not found", http.StatusInternalServerError)
			return
		}
		c.writeJSON(w, src.State())
		return
	}

	all := make(map[string]types.StationSnapshot, len(c.sources))
	for name, src := range c.sources {
		all[name] = src.State()
	}
	c.writeJSON(w, all)
}

func (c *Controller) handleStationSnapshot(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["station"]
	src, ok := c.sources[name]
	if !ok {
		http.Error(w, "unknown station", http.StatusNotFound)
		return
	}
	c.writeJSON(w, src.State())
}

// handleHealth reports healthy only while at least one station has
// delivered data recently.
func (c *Controller) handleHealth(w http.ResponseWriter, r *http.Request) {
	type stationHealth struct {
		LastIngest time.Time `json:"last_ingest"`
		Stale      bool      `json:"stale"`
	}

	now := time.Now()
	healthy := false
	detail := make(map[string]stationHealth, len(c.sources))
	for name, src := range c.sources {
		last := src.LastIngest()
		stale := last.IsZero() || now.Sub(last) > healthStaleAfter
		if !stale {
			healthy = true
		}
		detail[name] = stationHealth{LastIngest: last, Stale: stale}
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(detail); err != nil {
		c.logger.Errorf("encoding health response: %v", err)
	}
}

func (c *Controller) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		c.logger.Errorf("encoding REST response: %v", err)
	}
}
