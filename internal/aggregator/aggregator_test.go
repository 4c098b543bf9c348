package aggregator

import (
	"testing"
	"time"

	"github.com/chrissnell/gwstationd/internal/types"
	"github.com/chrissnell/gwstationd/pkg/config"
	"go.uber.org/zap"
)

func testDevice() config.DeviceData {
	return config.DeviceData{
		Name: "teststation",
		Aggregation: config.AggregationData{
			RolloverHour:        0,
			CalculatedDewPoint:  true,
			CalculatedWindChill: true,
			RainDayThreshold:    0.2,
			HeatingBase:         18.3,
			CoolingBase:         18.3,
			ChillHourThreshold:  7.0,
			GrowingBase:         10.0,
		},
	}
}

func newTestAggregator(cfg config.DeviceData, deps Deps) *StationAggregator {
	return New(cfg, deps, zap.NewNop().Sugar())
}

type fakeStore struct {
	floats   map[string]float64
	ints     map[string]int
	times    map[string]time.Time
	archives []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		floats: make(map[string]float64),
		ints:   make(map[string]int),
		times:  make(map[string]time.Time),
	}
}

func (f *fakeStore) GetFloat(section, key string, def float64) float64 {
	if v, ok := f.floats[section+"."+key]; ok {
		return v
	}
	return def
}

func (f *fakeStore) GetInt(section, key string, def int) int {
	if v, ok := f.ints[section+"."+key]; ok {
		return v
	}
	return def
}

func (f *fakeStore) GetTime(section, key string, def time.Time) time.Time {
	if v, ok := f.times[section+"."+key]; ok {
		return v
	}
	return def
}

func (f *fakeStore) SetFloat(section, key string, v float64) { f.floats[section+"."+key] = v }
func (f *fakeStore) SetInt(section, key string, v int)       { f.ints[section+"."+key] = v }
func (f *fakeStore) SetTime(section, key string, v time.Time) {
	f.times[section+"."+key] = v
}
func (f *fakeStore) Flush() error { return nil }

func (f *fakeStore) Archive(scope, suffix string) error {
	f.archives = append(f.archives, scope+"/"+suffix)
	return nil
}

type fakeDayfile struct {
	recs []*types.DayRecord
}

func (f *fakeDayfile) WriteDayRecord(r *types.DayRecord) error {
	f.recs = append(f.recs, r)
	return nil
}

func tempRecord(ts time.Time, c float64) *types.InstantRecord {
	return &types.InstantRecord{Timestamp: ts, Temperature: types.Float(c)}
}

func TestIngestTemperatureScenario(t *testing.T) {
	cfg := testDevice()
	cfg.Spike.TempDiff = 10
	a := newTestAggregator(cfg, Deps{})

	base := time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)
	a.Ingest(tempRecord(base, 20))
	a.Ingest(tempRecord(base.Add(5*time.Minute), 25))
	// Implausible jump is rejected; state keeps the previous value
	a.Ingest(tempRecord(base.Add(10*time.Minute), 60))

	if a.state.Temperature != 25 {
		t.Errorf("temperature after spike = %v, want 25", a.state.Temperature)
	}
	if got := a.state.Today.HighTemp.Rec.Val; got != 25 {
		t.Errorf("today high = %v, want 25", got)
	}
	if got := a.state.Today.LowTemp.Rec.Val; got != 20 {
		t.Errorf("today low = %v, want 20", got)
	}
	if got := a.state.AllTime.HighTemp.Rec.Val; got != 25 {
		t.Errorf("all-time high = %v, want 25", got)
	}
	if a.state.TempSampleCount != 2 {
		t.Errorf("accepted sample count = %v, want 2", a.state.TempSampleCount)
	}
}

func TestDayRolloverAndIdempotence(t *testing.T) {
	dayfile := &fakeDayfile{}
	a := newTestAggregator(testDevice(), Deps{Dayfile: dayfile})

	day1 := time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)
	a.Ingest(tempRecord(day1, 20))
	a.Ingest(tempRecord(day1.Add(6*time.Hour), 25))

	// Crossing midnight runs the rollover once
	day2 := time.Date(2026, 7, 16, 1, 0, 0, 0, time.UTC)
	a.Ingest(tempRecord(day2, 10))

	if len(dayfile.recs) != 1 {
		t.Fatalf("day summaries written = %d, want 1", len(dayfile.recs))
	}
	rec := dayfile.recs[0]
	if rec.HighTemp != 25 || rec.LowTemp != 20 {
		t.Errorf("day summary high/low = %v/%v, want 25/20", rec.HighTemp, rec.LowTemp)
	}
	wantDate := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	if !rec.Date.Equal(wantDate) {
		t.Errorf("day summary date = %v, want %v", rec.Date, wantDate)
	}

	if got := a.state.Yesterday.HighTemp.Rec.Val; got != 25 {
		t.Errorf("yesterday high = %v, want 25", got)
	}
	// Today reseeded from the carried-over instant, then the new reading
	if got := a.state.Today.LowTemp.Rec.Val; got != 10 {
		t.Errorf("today low after rollover = %v, want 10", got)
	}

	stamp := a.state.LastRolloverStamp

	// A duplicate of the same record cannot roll over again
	a.Ingest(tempRecord(day2, 10))
	if len(dayfile.recs) != 1 {
		t.Errorf("duplicate record triggered a second rollover")
	}

	// A late record for the previous day is applied without rolling back
	late := time.Date(2026, 7, 15, 23, 0, 0, 0, time.UTC)
	a.Ingest(tempRecord(late, 12))
	if a.state.LastRolloverStamp != stamp {
		t.Errorf("late record changed the rollover stamp")
	}
	if got := a.state.Yesterday.HighTemp.Rec.Val; got != 25 {
		t.Errorf("late record disturbed yesterday records: high = %v", got)
	}
}

func TestRolloverSkipsDayfileWithoutTemperature(t *testing.T) {
	dayfile := &fakeDayfile{}
	a := newTestAggregator(testDevice(), Deps{Dayfile: dayfile})

	day1 := time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)
	a.Ingest(&types.InstantRecord{Timestamp: day1, RainCounter: types.Float(100)})

	day2 := time.Date(2026, 7, 16, 1, 0, 0, 0, time.UTC)
	a.Ingest(&types.InstantRecord{Timestamp: day2, RainCounter: types.Float(101)})

	if len(dayfile.recs) != 0 {
		t.Errorf("day summary written with no valid temperature for the day")
	}
}

func TestRainCounterTwoChanceReset(t *testing.T) {
	a := newTestAggregator(testDevice(), Deps{})
	base := time.Date(2026, 7, 15, 8, 0, 0, 0, time.UTC)

	rain := func(min int, counter float64) {
		a.Ingest(&types.InstantRecord{
			Timestamp:   base.Add(time.Duration(min) * time.Minute),
			RainCounter: types.Float(counter),
		})
	}

	rain(0, 100)
	rain(10, 105)
	if a.state.RainToday != 5 {
		t.Fatalf("rain today = %v, want 5", a.state.RainToday)
	}

	// First decrease is tentative: previous totals stand
	rain(20, 2)
	if a.state.RainToday != 5 {
		t.Errorf("rain today after tentative reset = %v, want 5", a.state.RainToday)
	}
	if a.state.RainCounter != 105 {
		t.Errorf("counter after tentative reset = %v, want 105", a.state.RainCounter)
	}

	// Second consecutive decreased reading confirms; the accumulated total
	// carries across the rebased counter
	rain(30, 2.5)
	if a.state.RainToday != 5 {
		t.Errorf("rain today after confirmed reset = %v, want 5", a.state.RainToday)
	}
	if a.state.RainCounter != 2.5 {
		t.Errorf("counter after confirmed reset = %v, want 2.5", a.state.RainCounter)
	}

	// Accumulation continues from the rebased counter
	rain(40, 3.5)
	if a.state.RainToday != 6 {
		t.Errorf("rain today after post-reset tip = %v, want 6", a.state.RainToday)
	}
}

func TestMonthlyAllTimeAttribution(t *testing.T) {
	cfg := testDevice()
	cfg.Aggregation.RolloverHour = 9
	a := newTestAggregator(cfg, Deps{})

	// 03:00 on July 1 with a 9am rollover still belongs to June 30
	ts := time.Date(2026, 7, 1, 3, 0, 0, 0, time.UTC)
	a.Ingest(tempRecord(ts, 30))

	if got := a.state.MonthlyAllTime[6].HighTemp.Rec.Val; got != 30 {
		t.Errorf("June monthly record = %v, want 30", got)
	}
	if !a.state.MonthlyAllTime[7].HighTemp.AtSentinel() {
		t.Errorf("July monthly record updated for a June-attributed reading")
	}
	// The record keeps the instant, not the attributed day
	if !a.state.MonthlyAllTime[6].HighTemp.Rec.Ts.Equal(ts) {
		t.Errorf("monthly record timestamp = %v, want %v",
			a.state.MonthlyAllTime[6].HighTemp.Rec.Ts, ts)
	}
}

func TestRainAggregateRecordStamps(t *testing.T) {
	cfg := testDevice()
	cfg.Aggregation.RolloverHour = 9
	a := newTestAggregator(cfg, Deps{})

	// Rain falling at 02:00-03:00 on July 1 under a 9am rollover belongs
	// to the June 30 meteorological day and the June monthly total
	base := time.Date(2026, 7, 1, 2, 0, 0, 0, time.UTC)
	a.Ingest(&types.InstantRecord{Timestamp: base, RainCounter: types.Float(100)})
	a.Ingest(&types.InstantRecord{Timestamp: base.Add(time.Hour), RainCounter: types.Float(105)})

	daily := a.state.AllTime.HighDailyRain.Rec
	if daily.Val != 5 {
		t.Fatalf("all-time daily rain record = %v, want 5", daily.Val)
	}
	wantDay := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	if !daily.Ts.Equal(wantDay) {
		t.Errorf("all-time daily rain stamp = %v, want %v", daily.Ts, wantDay)
	}

	monthly := a.state.AllTime.HighMonthRain.Rec
	wantMonth := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if !monthly.Ts.Equal(wantMonth) {
		t.Errorf("all-time monthly rain stamp = %v, want %v", monthly.Ts, wantMonth)
	}

	// The Today scope keeps the instant for the same reading
	if !a.state.Today.HighDailyRain.Rec.Ts.Equal(base.Add(time.Hour)) {
		t.Errorf("today daily rain stamp = %v, want the reading instant",
			a.state.Today.HighDailyRain.Rec.Ts)
	}
}

func TestPrimaryTHSensorIndoorMapping(t *testing.T) {
	cfg := testDevice()
	cfg.PrimaryTHSensor = config.PrimaryTHSensorIndoor
	a := newTestAggregator(cfg, Deps{})

	a.Ingest(&types.InstantRecord{
		Timestamp:         time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC),
		IndoorTemperature: types.Float(22),
		IndoorHumidity:    types.Int(40),
	})

	if a.state.Temperature != 22 || !a.state.HaveTemperature {
		t.Errorf("indoor temperature not mapped to outdoor: %v", a.state.Temperature)
	}
	if a.state.Humidity != 40 || !a.state.HaveHumidity {
		t.Errorf("indoor humidity not mapped to outdoor: %v", a.state.Humidity)
	}
}

func TestSnapshotUsesConfiguredUnits(t *testing.T) {
	cfg := testDevice()
	cfg.Units = config.UnitsData{Temp: "f", Pressure: "inhg"}
	a := newTestAggregator(cfg, Deps{})

	ts := time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)
	a.Ingest(&types.InstantRecord{
		Timestamp:   ts,
		Temperature: types.Float(20),
		PressureRel: types.Float(1013.25),
	})

	snap := a.State()
	if snap.Temperature != 68 {
		t.Errorf("snapshot temperature = %v, want 68F", snap.Temperature)
	}
	if snap.Pressure < 29.9 || snap.Pressure > 29.95 {
		t.Errorf("snapshot pressure = %v, want about 29.92 inHg", snap.Pressure)
	}
	if snap.Today.HighTemp.Value != 68 {
		t.Errorf("snapshot today high = %v, want 68F", snap.Today.HighTemp.Value)
	}

	// Internal state stays metric; only the published snapshot converts
	if a.state.Temperature != 20 {
		t.Errorf("internal temperature = %v, want 20C", a.state.Temperature)
	}
}

func TestRecentGustHoldsWindowPeak(t *testing.T) {
	a := newTestAggregator(testDevice(), Deps{})
	base := time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)

	wind := func(min int, speed, gust float64) {
		a.Ingest(&types.InstantRecord{
			Timestamp: base.Add(time.Duration(min) * time.Minute),
			WindSpeed: types.Float(speed),
			WindGust:  types.Float(gust),
		})
	}

	wind(0, 5, 15)
	wind(2, 4, 8)

	if a.state.WindGust != 8 {
		t.Errorf("instantaneous gust = %v, want 8", a.state.WindGust)
	}
	if a.state.WindGustRecent != 15 {
		t.Errorf("recent peak gust = %v, want 15", a.state.WindGustRecent)
	}

	// Once the 15 m/s sample ages out of the window, the peak follows
	wind(15, 4, 8)
	if a.state.WindGustRecent != 8 {
		t.Errorf("recent peak gust after expiry = %v, want 8", a.state.WindGustRecent)
	}

	snap := a.State()
	if snap.WindGustRecent != 8 {
		t.Errorf("snapshot recent gust = %v, want 8", snap.WindGustRecent)
	}
}

func TestWetDryDayStreaks(t *testing.T) {
	a := newTestAggregator(testDevice(), Deps{})

	// Day 1: 5 mm of rain, a wet day
	d1 := time.Date(2026, 7, 15, 8, 0, 0, 0, time.UTC)
	a.Ingest(&types.InstantRecord{Timestamp: d1, Temperature: types.Float(20), RainCounter: types.Float(100)})
	a.Ingest(&types.InstantRecord{Timestamp: d1.Add(time.Hour), RainCounter: types.Float(105)})

	// Day 2: dry
	d2 := d1.AddDate(0, 0, 1)
	a.Ingest(&types.InstantRecord{Timestamp: d2, Temperature: types.Float(21), RainCounter: types.Float(105)})
	if a.state.ConsecutiveWetDays != 1 || a.state.ConsecutiveDryDays != 0 {
		t.Errorf("after wet day: wet=%d dry=%d, want 1/0",
			a.state.ConsecutiveWetDays, a.state.ConsecutiveDryDays)
	}

	// Day 3 rollover closes the dry day 2
	d3 := d1.AddDate(0, 0, 2)
	a.Ingest(&types.InstantRecord{Timestamp: d3, Temperature: types.Float(22)})
	if a.state.ConsecutiveDryDays != 1 || a.state.ConsecutiveWetDays != 0 {
		t.Errorf("after dry day: wet=%d dry=%d, want 0/1",
			a.state.ConsecutiveWetDays, a.state.ConsecutiveDryDays)
	}
}

func TestMonthRolloverArchivesAndResets(t *testing.T) {
	store := newFakeStore()
	a := newTestAggregator(testDevice(), Deps{Store: store})

	july := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	a.Ingest(tempRecord(july, 28))

	august := time.Date(2026, 8, 1, 0, 30, 0, 0, time.UTC)
	a.Ingest(tempRecord(august, 18))

	if len(store.archives) != 1 {
		t.Fatalf("archives = %v, want one month archive", store.archives)
	}
	if store.archives[0] != "Month/2026-07" {
		t.Errorf("archive = %q, want Month/2026-07", store.archives[0])
	}

	// Month scope restarted: the August reading holds the new record
	if got := a.state.ThisMonth.HighTemp.Rec.Val; got != 18 {
		t.Errorf("month high after rollover = %v, want 18", got)
	}
	// Year and all-time scopes carry across the boundary
	if got := a.state.ThisYear.HighTemp.Rec.Val; got != 28 {
		t.Errorf("year high after month rollover = %v, want 28", got)
	}
}
