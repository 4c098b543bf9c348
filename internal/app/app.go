// Package app wires the daemon together: configuration, storage
// collaborators, one aggregator per device, the station drivers, and the
// REST controller.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chrissnell/gwstationd/internal/aggregator"
	"github.com/chrissnell/gwstationd/internal/controllers/restserver"
	"github.com/chrissnell/gwstationd/internal/stations"
	"github.com/chrissnell/gwstationd/internal/stations/cloudapi"
	"github.com/chrissnell/gwstationd/internal/stations/gateway"
	"github.com/chrissnell/gwstationd/internal/storage/auditlog"
	"github.com/chrissnell/gwstationd/internal/storage/snapshot"
	"github.com/chrissnell/gwstationd/internal/storage/sqlitestore"
	"github.com/chrissnell/gwstationd/internal/storage/timescaledb"
	"github.com/chrissnell/gwstationd/internal/types"
	"github.com/chrissnell/gwstationd/pkg/config"
	"go.uber.org/zap"
)

// App owns the lifecycle of every component.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.SugaredLogger

	stations    []stations.WeatherStation
	aggregators map[string]*aggregator.StationAggregator
	rest        *restserver.Controller

	recordStores []*sqlitestore.Store
	audit        *auditlog.Logger
	archive      *timescaledb.Storage
}

// New builds the full component graph from configuration.  Nothing is
// started yet; Run does that.
func New(ctx context.Context, provider config.ConfigProvider, logger *zap.SugaredLogger) (*App, error) {
	cfg, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	a := &App{
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
		aggregators: make(map[string]*aggregator.StationAggregator),
	}

	if err := a.buildStorage(cfg.Storage); err != nil {
		cancel()
		return nil, err
	}
	if err := a.buildDevices(cfg); err != nil {
		cancel()
		a.closeStorage()
		return nil, err
	}
	a.buildControllers(cfg.Controllers)

	return a, nil
}

func (a *App) buildStorage(cfg config.StorageData) error {
	if cfg.AuditLog != nil {
		a.audit = auditlog.New(cfg.AuditLog.Path, cfg.AuditLog.MaxSizeMB, cfg.AuditLog.MaxBackups)
	}
	if cfg.TimescaleDB != nil {
		archive, err := timescaledb.New(cfg.TimescaleDB.ConnectionString, a.logger)
		if err != nil {
			return err
		}
		a.archive = archive
	}
	return nil
}

// devicePath derives a per-device file path from a configured base path, so
// stations never share record stores or snapshots.
func devicePath(base, device string) string {
	dir, file := filepath.Split(base)
	ext := filepath.Ext(file)
	stem := strings.TrimSuffix(file, ext)
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", stem, device, ext))
}

func (a *App) buildDevices(cfg *config.ConfigData) error {
	storageCfg := cfg.Storage

	enabled := 0
	for _, device := range cfg.Devices {
		if !device.Enabled {
			a.logger.Infof("device [%s] disabled, skipping", device.Name)
			continue
		}
		enabled++

		deps := aggregator.Deps{Dayfile: a.archive, Audit: a.audit}
		if storageCfg.RecordStore != nil {
			store, err := sqlitestore.New(devicePath(storageCfg.RecordStore.Path, device.Name), a.logger)
			if err != nil {
				return fmt.Errorf("device [%s]: %w", device.Name, err)
			}
			a.recordStores = append(a.recordStores, store)
			deps.Store = store
		}
		if storageCfg.Snapshot != nil {
			deps.Snapshot = snapshot.New(devicePath(storageCfg.Snapshot.Path, device.Name))
		}

		agg := aggregator.New(device, deps, a.logger)
		a.aggregators[device.Name] = agg

		var sink stations.RecordSink = agg
		if a.archive != nil {
			sink = &archivingSink{station: device.Name, agg: agg, archive: a.archive, logger: a.logger}
		}

		station, err := a.buildStation(device, sink)
		if err != nil {
			return err
		}
		a.stations = append(a.stations, station)
	}

	if enabled == 0 {
		return fmt.Errorf("no enabled devices in configuration")
	}
	return nil
}

func (a *App) buildStation(device config.DeviceData, sink stations.RecordSink) (stations.WeatherStation, error) {
	switch device.Type {
	case "gateway":
		return gateway.NewStation(a.ctx, device, sink, a.logger)
	case "cloudapi", "cloud":
		return cloudapi.NewStation(a.ctx, device, sink, a.logger)
	default:
		return nil, fmt.Errorf("device [%s] has unknown type %q", device.Name, device.Type)
	}
}

func (a *App) buildControllers(controllers []config.ControllerData) {
	for _, ctrl := range controllers {
		if ctrl.Type != "rest" || ctrl.RESTServer == nil {
			a.logger.Warnf("controller type %q not supported, skipping", ctrl.Type)
			continue
		}
		sources := make(map[string]restserver.SnapshotSource, len(a.aggregators))
		for name, agg := range a.aggregators {
			sources[name] = agg
		}
		a.rest = restserver.New(a.ctx, *ctrl.RESTServer, sources, a.logger)
	}
}

// Run starts every station and controller, then blocks until the context
// is cancelled and the shutdown completes.
func (a *App) Run() error {
	for _, station := range a.stations {
		if err := station.StartWeatherStation(); err != nil {
			return fmt.Errorf("starting station [%s]: %w", station.StationName(), err)
		}
	}
	if a.rest != nil {
		if err := a.rest.Start(); err != nil {
			return err
		}
	}

	<-a.ctx.Done()
	a.shutdown()
	return nil
}

func (a *App) shutdown() {
	a.logger.Info("shutting down")

	var wg sync.WaitGroup
	for _, station := range a.stations {
		wg.Add(1)
		go func(s stations.WeatherStation) {
			defer wg.Done()
			if err := s.StopWeatherStation(); err != nil {
				a.logger.Errorf("stopping station [%s]: %v", s.StationName(), err)
			}
		}(station)
	}
	wg.Wait()

	if a.rest != nil {
		if err := a.rest.Stop(); err != nil {
			a.logger.Errorf("stopping REST server: %v", err)
		}
	}

	for _, agg := range a.aggregators {
		agg.Shutdown()
	}
	a.closeStorage()
}

func (a *App) closeStorage() {
	for _, store := range a.recordStores {
		if err := store.Close(); err != nil {
			a.logger.Errorf("closing record store: %v", err)
		}
	}
	if a.audit != nil {
		a.audit.Close()
	}
}

// archivingSink tees every ingested record into the TimescaleDB archive on
// its way to the aggregator.  Archive failures are logged and never block
// aggregation.
type archivingSink struct {
	station string
	agg     *aggregator.StationAggregator
	archive *timescaledb.Storage
	logger  *zap.SugaredLogger
}

func (t *archivingSink) Ingest(rec *types.InstantRecord) {
	t.agg.Ingest(rec)
	if err := t.archive.StoreReading(t.station, rec); err != nil {
		t.logger.Errorf("archiving reading from [%s]: %v", t.station, err)
	}
}

func (t *archivingSink) LastIngest() time.Time {
	return t.agg.LastIngest()
}
