package gateway

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/chrissnell/gwstationd/internal/stations"
	"github.com/chrissnell/gwstationd/pkg/config"
	"go.uber.org/zap"
)

const (
	pollInterval   = 16 * time.Second
	sensorInterval = 5 * time.Minute
	readTimeout    = 10 * time.Second
	reconnectDelay = 5 * time.Second
	stalledAfter   = 5 * time.Minute

	maxFrameSize = 2048
)

// Station polls a local gateway over TCP and feeds decoded live records to
// the sink.  The connection is retried indefinitely: the gateway is assumed
// to eventually come back.
type Station struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cfg    config.DeviceData
	sink   stations.RecordSink
	logger *zap.SugaredLogger

	decoder LiveDecoder

	netConn      net.Conn
	connected    bool
	connectedMu  sync.RWMutex
	connecting   bool
	connectingMu sync.RWMutex
}

// NewStation creates a gateway polling station.
func NewStation(ctx context.Context, cfg config.DeviceData, sink stations.RecordSink,
	logger *zap.SugaredLogger) (*Station, error) {
	if err := stations.ValidateNetwork(cfg); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Station{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		decoder: LiveDecoder{
			PiezoPrimary: cfg.PrimaryRainSensor == "piezo",
		},
	}, nil
}

func (s *Station) StationName() string {
	return s.cfg.Name
}

// StartWeatherStation launches the polling loop and the stalled-data
// watchdog.
func (s *Station) StartWeatherStation() error {
	s.logger.Infof("starting gateway station [%s] at %s:%s", s.cfg.Name, s.cfg.Hostname, s.cfg.Port)

	silence := stalledAfter
	if s.cfg.WatchdogMinutes > 0 {
		silence = time.Duration(s.cfg.WatchdogMinutes) * time.Minute
	}

	s.wg.Add(2)
	go s.pollLoop()
	go stations.RunWatchdog(s.ctx, &s.wg, s.cfg.Name, s.sink, silence, s.logger)

	return nil
}

// StopWeatherStation cancels the polling loop and waits for it to exit.
func (s *Station) StopWeatherStation() error {
	s.cancel()
	s.wg.Wait()
	s.disconnect()
	return nil
}

func (s *Station) pollLoop() {
	defer s.wg.Done()

	s.connect()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	sensorTicker := time.NewTicker(sensorInterval)
	defer sensorTicker.Stop()

	// First poll immediately rather than one interval in
	if err := s.pollOnce(); err != nil {
		s.handlePollError(err)
	}

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Infof("station [%s] polling cancelled", s.cfg.Name)
			return
		case <-ticker.C:
			if err := s.pollOnce(); err != nil {
				s.handlePollError(err)
			}
		case <-sensorTicker.C:
			if err := s.pollSensorStatus(); err != nil {
				s.logger.Warnf("station [%s] sensor status poll: %v", s.cfg.Name, err)
			}
		}
	}
}

func (s *Station) handlePollError(err error) {
	if s.ctx.Err() != nil {
		return
	}
	s.logger.Errorf("station [%s] poll failed: %v", s.cfg.Name, err)
	s.disconnect()
	s.connect()
}

// connect dials the gateway, retrying every few seconds until it answers
// or the station is stopped.  On connect the firmware version is read so
// the decoder knows which payload layout to expect.
func (s *Station) connect() {
	s.connectingMu.RLock()
	if s.connecting {
		s.connectingMu.RUnlock()
		s.logger.Info("skipping reconnect, a connection attempt is already in progress")
		return
	}
	s.connectingMu.RUnlock()

	s.connectingMu.Lock()
	s.connecting = true
	s.connectingMu.Unlock()
	defer func() {
		s.connectingMu.Lock()
		s.connecting = false
		s.connectingMu.Unlock()
	}()

	addr := net.JoinHostPort(s.cfg.Hostname, s.cfg.Port)
	for {
		conn, err := net.DialTimeout("tcp", addr, readTimeout)
		if err == nil {
			s.connectedMu.Lock()
			s.netConn = conn
			s.connected = true
			s.connectedMu.Unlock()
			s.readFirmwareVersion()
			return
		}

		s.logger.Errorf("could not connect to %s: %v, retrying in %v", addr, err, reconnectDelay)
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (s *Station) disconnect() {
	s.connectedMu.Lock()
	defer s.connectedMu.Unlock()
	if s.netConn != nil {
		s.netConn.Close()
		s.netConn = nil
	}
	s.connected = false
}

// roundTrip writes one command frame and reads the response frame, bounded
// by the read timeout.
func (s *Station) roundTrip(cmd byte) (*Frame, error) {
	s.connectedMu.RLock()
	conn := s.netConn
	s.connectedMu.RUnlock()
	if conn == nil {
		return nil, fmt.Errorf("not connected")
	}

	if err := conn.SetDeadline(time.Now().Add(readTimeout)); err != nil {
		return nil, err
	}
	if _, err := conn.Write(BuildFrame(cmd, nil)); err != nil {
		return nil, fmt.Errorf("writing command 0x%02X: %w", cmd, err)
	}

	buf := make([]byte, maxFrameSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("reading response to 0x%02X: %w", cmd, err)
	}

	frame, err := ParseFrame(buf[:n])
	if err != nil {
		return nil, fmt.Errorf("response to 0x%02X: %w (raw %s)", cmd, err, hex.EncodeToString(buf[:n]))
	}
	return frame, nil
}

func (s *Station) readFirmwareVersion() {
	frame, err := s.roundTrip(CmdReadFirmware)
	if err != nil {
		s.logger.Warnf("station [%s] firmware query failed, assuming pre-1.6.0 layout: %v", s.cfg.Name, err)
		return
	}

	// Payload is [len][ascii banner]
	banner := ""
	if len(frame.Payload) > 1 {
		banner = string(frame.Payload[1:])
	}
	v, err := ParseVersion(banner)
	if err != nil {
		s.logger.Warnf("station [%s] unparsable firmware banner %q", s.cfg.Name, banner)
		return
	}
	s.decoder.Firmware = v
	s.logger.Infof("station [%s] firmware %s", s.cfg.Name, v)
}

// pollOnce fetches and decodes one live-data frame.  A checksum mismatch
// discards the frame with a warning; decode warnings are logged but the
// partial record is still delivered.
func (s *Station) pollOnce() error {
	frame, err := s.roundTrip(CmdLiveData)
	if err != nil {
		return err
	}

	if !frame.ChecksumOK() {
		s.logger.Warnf("station [%s] discarding frame with bad checksum: got 0x%02X want 0x%02X (raw %s)",
			s.cfg.Name, frame.StoredChecksum, frame.ComputedChecksum, hex.EncodeToString(frame.Payload))
		return nil
	}

	rec, warns := s.decoder.DecodePayload(frame.Payload)
	for _, w := range warns {
		s.logger.Warnf("station [%s] live decode: %s", s.cfg.Name, w)
	}
	if s.decoder.Battery != nil {
		s.logLegacyBattery(s.decoder.Battery)
	}

	rec.Timestamp = time.Now()
	s.sink.Ingest(rec)
	return nil
}

func (s *Station) pollSensorStatus() error {
	frame, err := s.roundTrip(CmdReadSensorID)
	if err != nil {
		return err
	}
	if !frame.ChecksumOK() {
		return fmt.Errorf("bad checksum on sensor ID response")
	}

	sensors, err := DecodeSensorIDList(frame.Payload)
	if err != nil {
		return err
	}
	for _, sensor := range sensors {
		if sensor.BatteryLow {
			s.logger.Warnf("station [%s] sensor %s (id %08X) battery low (raw %d, signal %d)",
				s.cfg.Name, sensor.Name, sensor.ID, sensor.BatteryRaw, sensor.Signal)
		}
	}
	return nil
}

func (s *Station) logLegacyBattery(b *LegacyBattery) {
	if b.WH24Low || b.WH25Low || b.WH26Low || b.WH40Low {
		s.logger.Warnf("station [%s] legacy battery flags low: wh24=%v wh25=%v wh26=%v wh40=%v",
			s.cfg.Name, b.WH24Low, b.WH25Low, b.WH26Low, b.WH40Low)
	}
}
