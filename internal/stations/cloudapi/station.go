package cloudapi

import (
	"context"
	"sync"
	"time"

	"github.com/chrissnell/gwstationd/internal/stations"
	"github.com/chrissnell/gwstationd/pkg/config"
	"go.uber.org/zap"
)

const (
	// historyChunk bounds a single history call; the API caps one request
	// at a day of 5-minute cycles.
	historyChunk = 24 * time.Hour

	// defaultLookback seeds the catch-up window when nothing has ever
	// been ingested for this station.
	defaultLookback = 24 * time.Hour

	cloudStalledAfter = 10 * time.Minute
)

// Station polls the cloud API for one device: a history catch-up on start
// to backfill the gap since the last ingested record, then a live loop
// paced to the platform's publish cadence.  The fetch mutex keeps the two
// from interleaving their ingests.
type Station struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cfg    config.DeviceData
	client *Client
	sink   stations.RecordSink
	logger *zap.SugaredLogger

	history HistoryDecoder
	current CurrentDecoder

	fetchMu      sync.Mutex
	lastDataTime time.Time
}

// NewStation creates a cloud API polling station.
func NewStation(ctx context.Context, cfg config.DeviceData, sink stations.RecordSink,
	logger *zap.SugaredLogger) (*Station, error) {
	if err := stations.ValidateCloudAPI(cfg); err != nil {
		return nil, err
	}

	piezo := cfg.PrimaryRainSensor == "piezo"
	ctx, cancel := context.WithCancel(ctx)
	return &Station{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		client: NewClient(cfg, logger),
		sink:   sink,
		logger: logger,
		history: HistoryDecoder{
			PiezoPrimary: piezo,
			Fudge:        time.Duration(cfg.FudgeMinutes) * time.Minute,
			Logger:       logger,
		},
		current: CurrentDecoder{
			PiezoPrimary: piezo,
			Logger:       logger,
		},
	}, nil
}

func (s *Station) StationName() string {
	return s.cfg.Name
}

// StartWeatherStation launches the poll loop and the stalled-data
// watchdog.  The history catch-up runs first, inside the poll goroutine,
// so live polling begins only once the backlog is drained.
func (s *Station) StartWeatherStation() error {
	s.logger.Infof("starting cloud station [%s]", s.cfg.Name)

	silence := cloudStalledAfter
	if s.cfg.WatchdogMinutes > 0 {
		silence = time.Duration(s.cfg.WatchdogMinutes) * time.Minute
	}

	s.wg.Add(2)
	go s.pollLoop()
	go stations.RunWatchdog(s.ctx, &s.wg, s.cfg.Name, s.sink, silence, s.logger)

	return nil
}

// StopWeatherStation cancels the poll loop and waits for it to exit.
func (s *Station) StopWeatherStation() error {
	s.cancel()
	s.wg.Wait()
	return nil
}

func (s *Station) pollLoop() {
	defer s.wg.Done()

	if err := s.catchUpHistory(); err != nil {
		if s.ctx.Err() != nil {
			return
		}
		s.logger.Errorf("station [%s] history catch-up: %v", s.cfg.Name, err)
	}

	delay := minPollDelay
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Infof("station [%s] polling cancelled", s.cfg.Name)
			return
		case <-time.After(delay):
		}

		next, err := s.pollCurrent()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Errorf("station [%s] current poll: %v", s.cfg.Name, err)
			next = publishCadence
		}
		delay = next
	}
}

// catchUpHistory backfills every record since the last ingested timestamp,
// one chunk at a time, oldest first.
func (s *Station) catchUpHistory() error {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	since := s.sink.LastIngest()
	if since.IsZero() {
		since = time.Now().Add(-defaultLookback)
	}

	total := 0
	for start := since; start.Before(time.Now()); start = start.Add(historyChunk) {
		end := start.Add(historyChunk)
		if now := time.Now(); end.After(now) {
			end = now
		}

		data, err := s.client.History(s.ctx, start, end, "all")
		if err != nil {
			return err
		}
		recs, err := s.history.Decode(s.ctx, data, since)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			s.sink.Ingest(rec)
		}
		total += len(recs)
	}

	if total > 0 {
		s.logger.Infof("station [%s] history catch-up ingested %d records since %s",
			s.cfg.Name, total, since.Format(time.RFC3339))
		s.lastDataTime = s.sink.LastIngest()
	}
	return nil
}

// pollCurrent fetches one real-time data set and returns the delay until
// the next poll.
func (s *Station) pollCurrent() (time.Duration, error) {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	data, err := s.client.RealTime(s.ctx)
	if err != nil {
		return 0, err
	}

	res, err := s.current.Decode(data, s.lastDataTime, time.Now())
	if err != nil {
		return 0, err
	}
	if res.Record != nil {
		s.sink.Ingest(res.Record)
		s.lastDataTime = res.DataTime
	}
	return res.NextPoll, nil
}
