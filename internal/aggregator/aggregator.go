// Package aggregator folds decoded station readings into continuously
// maintained running statistics: spike rejection, unit-safe primary state,
// derived meteorological quantities, sliding windows, and today/yesterday/
// month/year/all-time extreme records with day rollover semantics.
package aggregator

import (
	"math"
	"sync"
	"time"

	"github.com/chrissnell/gwstationd/internal/types"
	"github.com/chrissnell/gwstationd/internal/units"
	"github.com/chrissnell/gwstationd/pkg/config"
	"github.com/chrissnell/gwstationd/pkg/solar"
	"go.uber.org/zap"
)

// Deps are the external collaborators the aggregator signals.  Any of them
// may be nil, in which case that concern is skipped.
type Deps struct {
	Store    RecordStore
	Dayfile  DayfileWriter
	Audit    AuditLogger
	Snapshot Snapshotter
}

// StationAggregator receives one decoded instant record at a time, runs it
// through the spike filter, updates primary state, evaluates derived
// metrics and sliding windows, and drives the extreme trackers for every
// scope.  Ingest calls are serialized: the embedded mutex is shared between
// live polling and history catch-up, so only one of them may be applying
// records at any moment.
type StationAggregator struct {
	mu sync.Mutex

	cfg    config.DeviceData
	flags  DerivedFlags
	units  units.System
	logger *zap.SugaredLogger

	state *StationState
	spike *SpikeFilter

	store   RecordStore
	dayfile DayfileWriter
	audit   AuditLogger
	snap    Snapshotter

	// scopes whose store sections need rewriting after the current cycle
	dirty map[Scope]bool

	lastCheckpoint time.Time
}

// New creates an aggregator for one station.  Persisted records are loaded
// from the store, and the window checkpoint is restored if one exists.
func New(cfg config.DeviceData, deps Deps, logger *zap.SugaredLogger) *StationAggregator {
	a := &StationAggregator{
		cfg: cfg,
		flags: DerivedFlags{
			CalculatedDewPoint:  cfg.Aggregation.CalculatedDewPoint,
			CalculatedWindChill: cfg.Aggregation.CalculatedWindChill,
			SolveFromWetBulb:    cfg.Aggregation.SolveHumidityFromWetBulb,
		},
		logger:  logger,
		state:   NewStationState(cfg.Name),
		spike:   NewSpikeFilter(cfg.Spike, logger),
		store:   deps.Store,
		dayfile: deps.Dayfile,
		audit:   deps.Audit,
		snap:    deps.Snapshot,
		dirty:   make(map[Scope]bool),
	}

	sys, err := units.ParseSystem(cfg.Units.Temp, cfg.Units.Wind, cfg.Units.Rain, cfg.Units.Pressure)
	if err != nil {
		logger.Warnf("station [%s] display units: %v, publishing metric", cfg.Name, err)
		sys = units.System{}
	}
	a.units = sys

	if a.store != nil {
		a.loadPersistedState()
	}
	if a.snap != nil {
		a.restoreCheckpoint()
	}

	return a
}

// State returns a read-only snapshot of the station state, converted to
// the configured display units.
func (a *StationAggregator) State() types.StationSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap := a.state.Snapshot()
	a.units.ConvertSnapshot(&snap)
	return snap
}

// LastIngest returns the timestamp of the most recently applied record,
// for the stalled-data watchdog.
func (a *StationAggregator) LastIngest() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.UpdatedAt
}

// Shutdown persists everything that would otherwise wait for the next
// ingest cycle: every scope, the bookkeeping, and a final checkpoint.
func (a *StationAggregator) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store != nil {
		a.markAllDirty()
		a.persistDirtyScopes()
	}
	a.lastCheckpoint = time.Time{}
	a.maybeCheckpoint(time.Now())
}

// Ingest folds one decoded record into the station state.  It never
// returns an error: field-level problems are logged and the affected field
// skipped, leaving the rest of the record applied.  Records must arrive in
// ascending timestamp order; a record for an already-rolled-over day is
// applied to current scopes but cannot re-trigger rollover.
func (a *StationAggregator) Ingest(rec *types.InstantRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	a.maybeRollover(ts)

	dt := a.sampleInterval(ts)

	a.applyTemperature(rec, ts, dt)
	a.applyHumidity(rec, ts)
	a.applyPressure(rec, ts)
	a.applyWind(rec, ts, dt)
	a.applyRain(rec, ts)
	a.applySolar(rec, ts, dt)
	a.applyDerived(rec, ts)

	a.state.UpdatedAt = ts
	a.state.lastSampleTime = ts

	recordsIngested.WithLabelValues(a.state.StationName).Inc()
	lastIngestTime.WithLabelValues(a.state.StationName).Set(float64(ts.Unix()))

	a.persistDirtyScopes()
	a.maybeCheckpoint(ts)
}

// sampleInterval returns the elapsed time since the previous applied
// sample, clamped so a long outage cannot dump hours into an accumulator.
func (a *StationAggregator) sampleInterval(ts time.Time) time.Duration {
	if a.state.lastSampleTime.IsZero() {
		return 0
	}
	dt := ts.Sub(a.state.lastSampleTime)
	if dt < 0 {
		return 0
	}
	if dt > 10*time.Minute {
		return 10 * time.Minute
	}
	return dt
}

// meteoDay returns the start of the meteorological day a reading counts
// toward, honoring the configured rollover hour and its daylight-saving
// shift.  This single attribution function is shared by rollover detection
// and per-calendar-month record keeping.
func (a *StationAggregator) meteoDay(ts time.Time) time.Time {
	offset := a.cfg.Aggregation.RolloverHour
	if offset == 9 && a.cfg.Aggregation.RolloverUsesDST && ts.IsDST() {
		offset = 10
	}
	shifted := ts.Add(-time.Duration(offset) * time.Hour)
	return time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, ts.Location())
}

// trackScopes runs one quantity value through the same tracker in every
// live scope, including the per-calendar-month all-time set for the month
// the reading counts toward.
func (a *StationAggregator) trackScopes(sel func(*ScopeRecords) *Tracker, v float64, ts time.Time) {
	day := a.meteoDay(ts)
	month := int(day.Month())
	scopes := []*ScopeRecords{
		a.state.Today,
		a.state.ThisMonth,
		a.state.ThisYear,
		a.state.AllTime,
		a.state.MonthlyAllTime[month],
	}
	for _, s := range scopes {
		t := sel(s)
		old := t.Rec
		if t.Update(v, ts, day) {
			a.recordBroken(s, t, old, month)
		}
	}
}

func (a *StationAggregator) recordBroken(s *ScopeRecords, t *Tracker, old Record, month int) {
	a.dirty[s.Scope] = true
	recordsBroken.WithLabelValues(s.Scope.String()).Inc()
	if a.audit != nil {
		mi := 0
		if s.Scope == ScopeMonthlyAllTime {
			mi = month
		}
		a.audit.Logf("%s", t.auditLine(s.Scope.String(), old, mi))
	}
}

func (a *StationAggregator) applyTemperature(rec *types.InstantRecord, ts time.Time, dt time.Duration) {
	temp := a.primaryTemperature(rec)
	if temp == nil {
		return
	}
	if rec.IndoorTemperature != nil {
		a.state.IndoorTemp = *rec.IndoorTemperature
	}

	if err := a.spike.Check(QtyTemperature, *temp); err != nil {
		return
	}

	a.state.Temperature = *temp
	a.state.HaveTemperature = true
	a.state.Windows.AddTemperature(ts, *temp)
	a.state.TempTrend = a.state.Windows.TemperatureTrend(ts, 3*time.Hour)

	a.state.TempSampleSum += *temp
	a.state.TempSampleCount++

	hours := dt.Hours()
	agg := a.cfg.Aggregation
	if *temp < agg.HeatingBase {
		a.state.HeatingDegreeDays += (agg.HeatingBase - *temp) * hours / 24
	}
	if *temp > agg.CoolingBase {
		a.state.CoolingDegreeDays += (*temp - agg.CoolingBase) * hours / 24
	}
	if *temp < agg.ChillHourThreshold {
		a.state.ChillHours += hours
	}

	a.trackScopes(func(s *ScopeRecords) *Tracker { return s.HighTemp }, *temp, ts)
	a.trackScopes(func(s *ScopeRecords) *Tracker { return s.LowTemp }, *temp, ts)
}

// primaryTemperature applies the primary temp/humidity channel selector:
// 0 = outdoor, 1-8 = extra channel, PrimaryTHSensorIndoor maps the indoor
// sensor onto the outdoor fields.
func (a *StationAggregator) primaryTemperature(rec *types.InstantRecord) *float64 {
	switch {
	case a.cfg.PrimaryTHSensor == config.PrimaryTHSensorIndoor:
		return rec.IndoorTemperature
	case a.cfg.PrimaryTHSensor >= 1 && a.cfg.PrimaryTHSensor <= types.ExtraChannels:
		return rec.ExtraTemp[a.cfg.PrimaryTHSensor-1]
	default:
		return rec.Temperature
	}
}

func (a *StationAggregator) primaryHumidity(rec *types.InstantRecord) *int {
	switch {
	case a.cfg.PrimaryTHSensor == config.PrimaryTHSensorIndoor:
		return rec.IndoorHumidity
	case a.cfg.PrimaryTHSensor >= 1 && a.cfg.PrimaryTHSensor <= types.ExtraChannels:
		return rec.ExtraHumidity[a.cfg.PrimaryTHSensor-1]
	default:
		return rec.Humidity
	}
}

func (a *StationAggregator) applyHumidity(rec *types.InstantRecord, ts time.Time) {
	hum := a.primaryHumidity(rec)
	if hum == nil {
		return
	}
	if rec.IndoorHumidity != nil {
		a.state.IndoorHumidity = *rec.IndoorHumidity
	}

	if err := a.spike.Check(QtyHumidity, float64(*hum)); err != nil {
		return
	}

	a.state.Humidity = *hum
	a.state.HaveHumidity = true

	a.trackScopes(func(s *ScopeRecords) *Tracker { return s.HighHumidity }, float64(*hum), ts)
	a.trackScopes(func(s *ScopeRecords) *Tracker { return s.LowHumidity }, float64(*hum), ts)
}

func (a *StationAggregator) applyPressure(rec *types.InstantRecord, ts time.Time) {
	if rec.PressureRel == nil {
		return
	}
	if err := a.spike.Check(QtyPressure, *rec.PressureRel); err != nil {
		return
	}

	a.state.Pressure = *rec.PressureRel
	a.state.HavePressure = true
	a.state.Windows.AddPressure(ts, *rec.PressureRel)
	a.state.PressureTrend = a.state.Windows.PressureTrend(ts, 3*time.Hour)

	a.trackScopes(func(s *ScopeRecords) *Tracker { return s.HighPressure }, *rec.PressureRel, ts)
	a.trackScopes(func(s *ScopeRecords) *Tracker { return s.LowPressure }, *rec.PressureRel, ts)
}

func (a *StationAggregator) applyWind(rec *types.InstantRecord, ts time.Time, dt time.Duration) {
	if rec.WindSpeed == nil && rec.WindGust == nil {
		return
	}

	speed := a.state.WindSpeed
	if rec.WindSpeed != nil {
		if err := a.spike.Check(QtyWindSpeed, *rec.WindSpeed); err == nil {
			speed = *rec.WindSpeed
			a.state.WindSpeed = speed
			a.state.HaveWind = true
		}
	}

	gust := a.state.WindGust
	if rec.WindGust != nil {
		if err := a.spike.Check(QtyWindGust, *rec.WindGust); err == nil {
			gust = *rec.WindGust
			a.state.WindGust = gust
		}
	}

	if rec.WindBearing != nil {
		a.state.WindBearing = *rec.WindBearing
	}

	if !a.state.HaveWind {
		return
	}

	a.state.Windows.AddWind(ts, speed, gust, a.state.WindBearing)
	a.state.WindAverage = a.state.Windows.AverageSpeed(ts, 10*time.Minute)
	a.state.AverageBearing = a.state.Windows.AverageBearing(ts, 10*time.Minute)

	// Published gust is the window peak, so a brief lull between samples
	// does not hide a gust that just happened; survives restart via the
	// window checkpoint, unlike the instantaneous reading.
	if peak, _, ok := a.state.Windows.PeakGust(ts, 10*time.Minute); ok {
		a.state.WindGustRecent = peak
	}

	// Windrun integrates average speed over time; km from m/s * hours
	a.state.WindRun += a.state.WindAverage * dt.Hours() * 3.6

	// Dominant bearing: speed-weighted vector accumulation for the day
	if speed > 0 {
		rad := float64(a.state.WindBearing) * math.Pi / 180.0
		a.state.DayVectorX += speed * math.Sin(rad)
		a.state.DayVectorY += speed * math.Cos(rad)
	}

	if gust-a.state.Today.HighGust.Rec.Val >= rawEpsilon {
		a.state.HighGustBearing = a.state.WindBearing
	}
	a.trackScopes(func(s *ScopeRecords) *Tracker { return s.HighGust }, gust, ts)
	a.trackScopes(func(s *ScopeRecords) *Tracker { return s.HighWind }, a.state.WindAverage, ts)
}

func (a *StationAggregator) applySolar(rec *types.InstantRecord, ts time.Time, dt time.Duration) {
	if rec.UVIndex != nil {
		a.state.UVIndex = *rec.UVIndex
		if *rec.UVIndex > a.state.DayHighUV {
			a.state.DayHighUV = *rec.UVIndex
			a.state.DayHighUVTime = ts
		}
	}
	if rec.SolarRadiation == nil {
		return
	}
	a.state.SolarRadiation = *rec.SolarRadiation
	if *rec.SolarRadiation > a.state.DayHighSolar {
		a.state.DayHighSolar = *rec.SolarRadiation
		a.state.DayHighSolarTime = ts
	}

	sol := a.cfg.Solar
	if sol.Latitude != 0 || sol.Longitude != 0 {
		if solar.IsSunny(*rec.SolarRadiation, ts, sol.Latitude, sol.Longitude, sol.Altitude,
			a.cfg.Aggregation.SunshineThresholdPercent) {
			a.state.SunshineHours += dt.Hours()
		}
	}
}

func (a *StationAggregator) applyDerived(rec *types.InstantRecord, ts time.Time) {
	if !a.state.HaveTemperature || !a.state.HaveHumidity {
		return
	}

	in := DerivedInput{
		Temperature: a.state.Temperature,
		Humidity:    float64(a.state.Humidity),
		WindSpeed:   a.state.WindSpeed,
		Pressure:    a.state.Pressure,
	}
	// Station-supplied derived values participate only while the matching
	// "calculated" flag is off.
	if !a.flags.CalculatedDewPoint {
		in.StationDewPoint = rec.DewPoint
	}
	if !a.flags.CalculatedWindChill {
		in.StationWindChill = rec.WindChill
	}
	in.StationWetBulb = rec.WetBulb

	out := ComputeDerived(in, a.flags)

	// Dew point gets its own one-sided spike check before it is trusted
	if err := a.spike.Check(QtyDewPoint, out.DewPoint); err != nil {
		out.DewPoint = a.state.Derived.DewPoint
	}

	a.state.Derived = out
	if a.flags.SolveFromWetBulb {
		a.state.Humidity = int(out.Humidity + 0.5)
	}

	a.trackScopes(func(s *ScopeRecords) *Tracker { return s.HighDewPoint }, out.DewPoint, ts)
	a.trackScopes(func(s *ScopeRecords) *Tracker { return s.LowDewPoint }, out.DewPoint, ts)
	if a.state.HaveWind {
		a.trackScopes(func(s *ScopeRecords) *Tracker { return s.LowWindChill }, out.WindChill, ts)
		a.trackScopes(func(s *ScopeRecords) *Tracker { return s.HighAppTemp }, out.AppTemp, ts)
		a.trackScopes(func(s *ScopeRecords) *Tracker { return s.LowAppTemp }, out.AppTemp, ts)
		a.trackScopes(func(s *ScopeRecords) *Tracker { return s.HighFeels }, out.FeelsLike, ts)
		a.trackScopes(func(s *ScopeRecords) *Tracker { return s.LowFeels }, out.FeelsLike, ts)
	}
	a.trackScopes(func(s *ScopeRecords) *Tracker { return s.HighHeatIdx }, out.HeatIndex, ts)
	a.trackScopes(func(s *ScopeRecords) *Tracker { return s.HighHumidex }, out.Humidex, ts)
}
