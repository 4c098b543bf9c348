package aggregator

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Store sections are "<scope prefix>.<quantity>", e.g. "Today.Temp" or
// "Month07.RainRate" for the per-calendar-month all-time set.  Each tracker
// writes its value under its Key and the timestamp under Key+"Time".

func scopePrefix(scope Scope, monthIndex int) string {
	if scope == ScopeMonthlyAllTime {
		return fmt.Sprintf("Month%02d", monthIndex)
	}
	return scope.String()
}

func (a *StationAggregator) persistScope(s *ScopeRecords, monthIndex int) {
	prefix := scopePrefix(s.Scope, monthIndex)
	for _, t := range s.All() {
		section := prefix + "." + t.Section
		a.store.SetFloat(section, t.Key, t.Rec.Val)
		a.store.SetTime(section, t.Key+"Time", t.Rec.Ts)
	}
}

func (a *StationAggregator) loadScope(s *ScopeRecords, monthIndex int) {
	prefix := scopePrefix(s.Scope, monthIndex)
	for _, t := range s.All() {
		section := prefix + "." + t.Section
		def := sentinelHigh
		if t.Dir == Low {
			def = sentinelLow
		}
		t.Rec.Val = a.store.GetFloat(section, t.Key, def)
		t.Rec.Ts = a.store.GetTime(section, t.Key+"Time", time.Time{})
	}
}

// persistDirtyScopes flushes every scope touched during the current ingest
// cycle, plus the rain bookkeeping and rollover stamp.  Routine store writes
// are fire-and-forget: a flush failure is logged and the engine moves on.
func (a *StationAggregator) persistDirtyScopes() {
	if a.store == nil || len(a.dirty) == 0 {
		return
	}

	for scope := range a.dirty {
		switch scope {
		case ScopeToday:
			a.persistScope(a.state.Today, 0)
		case ScopeYesterday:
			a.persistScope(a.state.Yesterday, 0)
		case ScopeThisMonth:
			a.persistScope(a.state.ThisMonth, 0)
		case ScopeThisYear:
			a.persistScope(a.state.ThisYear, 0)
		case ScopeAllTime:
			a.persistScope(a.state.AllTime, 0)
		case ScopeMonthlyAllTime:
			for m := 1; m <= 12; m++ {
				a.persistScope(a.state.MonthlyAllTime[m], m)
			}
		}
		delete(a.dirty, scope)
	}

	a.persistBookkeeping()

	if err := a.store.Flush(); err != nil {
		a.logger.Errorf("flushing record store: %v", err)
	}
}

func (a *StationAggregator) persistBookkeeping() {
	a.store.SetFloat("Rain", "Counter", a.state.RainCounter)
	a.store.SetFloat("Rain", "DayStart", a.state.RainDayStart)
	a.store.SetFloat("Rain", "Midnight", a.state.RainMidnight)
	a.store.SetFloat("Rain", "MonthStart", a.state.RainMonthStart)
	a.store.SetFloat("Rain", "YearStart", a.state.RainYearStart)
	a.store.SetInt("Rain", "FirstData", boolToInt(a.state.FirstRainData))

	a.store.SetInt("Streaks", "DryDays", a.state.ConsecutiveDryDays)
	a.store.SetInt("Streaks", "WetDays", a.state.ConsecutiveWetDays)

	a.store.SetFloat("Season", "GrowingDegreeDays", a.state.GrowingDegreeDays)

	a.store.SetInt("Rollover", "Stamp", a.state.LastRolloverStamp)
}

// loadPersistedState rehydrates records and rain bookkeeping from the store
// at startup.  Absent keys leave the sentinel-seeded defaults in place.
func (a *StationAggregator) loadPersistedState() {
	a.loadScope(a.state.Today, 0)
	a.loadScope(a.state.Yesterday, 0)
	a.loadScope(a.state.ThisMonth, 0)
	a.loadScope(a.state.ThisYear, 0)
	a.loadScope(a.state.AllTime, 0)
	for m := 1; m <= 12; m++ {
		a.loadScope(a.state.MonthlyAllTime[m], m)
	}

	a.state.RainCounter = a.store.GetFloat("Rain", "Counter", 0)
	a.state.RainDayStart = a.store.GetFloat("Rain", "DayStart", 0)
	a.state.RainMidnight = a.store.GetFloat("Rain", "Midnight", 0)
	a.state.RainMonthStart = a.store.GetFloat("Rain", "MonthStart", 0)
	a.state.RainYearStart = a.store.GetFloat("Rain", "YearStart", 0)
	a.state.FirstRainData = a.store.GetInt("Rain", "FirstData", 1) != 0

	a.state.ConsecutiveDryDays = a.store.GetInt("Streaks", "DryDays", 0)
	a.state.ConsecutiveWetDays = a.store.GetInt("Streaks", "WetDays", 0)

	a.state.GrowingDegreeDays = a.store.GetFloat("Season", "GrowingDegreeDays", 0)

	a.state.LastRolloverStamp = a.store.GetInt("Rollover", "Stamp", 0)
	if stamp := a.state.LastRolloverStamp; stamp != 0 {
		a.state.CurrentYear = stamp / 10000
		a.state.CurrentMonth = (stamp / 100) % 100
		a.state.CurrentDay = stamp % 100
	}

	if !a.state.FirstRainData {
		a.state.RainToday = clampRain(a.state.RainCounter - a.state.RainDayStart)
		a.state.RainMonth = clampRain(a.state.RainCounter - a.state.RainMonthStart)
		a.state.RainYear = clampRain(a.state.RainCounter - a.state.RainYearStart)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// checkpoint is the msgpack-serialized restart state: the sliding windows
// and the intra-day accumulators that the record store does not carry.
type checkpoint struct {
	SavedAt time.Time   `msgpack:"saved_at"`
	Windows WindowState `msgpack:"windows"`

	WindRun           float64 `msgpack:"wind_run"`
	SunshineHours     float64 `msgpack:"sunshine_hours"`
	TempSampleSum     float64 `msgpack:"temp_sum"`
	TempSampleCount   int     `msgpack:"temp_count"`
	HeatingDegreeDays float64 `msgpack:"hdd"`
	CoolingDegreeDays float64 `msgpack:"cdd"`
	ChillHours        float64 `msgpack:"chill_hours"`
	DayVectorX        float64 `msgpack:"day_vec_x"`
	DayVectorY        float64 `msgpack:"day_vec_y"`
	HighGustBearing   int     `msgpack:"gust_bearing"`
	DayHighSolar      float64 `msgpack:"high_solar"`
	DayHighSolarTime  time.Time `msgpack:"high_solar_time"`
	DayHighUV         int       `msgpack:"high_uv"`
	DayHighUVTime     time.Time `msgpack:"high_uv_time"`
}

// maybeCheckpoint writes the restart checkpoint at most once a minute.
func (a *StationAggregator) maybeCheckpoint(ts time.Time) {
	if a.snap == nil || ts.Sub(a.lastCheckpoint) < time.Minute {
		return
	}
	a.lastCheckpoint = ts

	cp := checkpoint{
		SavedAt:           ts,
		Windows:           a.state.Windows.Dump(),
		WindRun:           a.state.WindRun,
		SunshineHours:     a.state.SunshineHours,
		TempSampleSum:     a.state.TempSampleSum,
		TempSampleCount:   a.state.TempSampleCount,
		HeatingDegreeDays: a.state.HeatingDegreeDays,
		CoolingDegreeDays: a.state.CoolingDegreeDays,
		ChillHours:        a.state.ChillHours,
		DayVectorX:        a.state.DayVectorX,
		DayVectorY:        a.state.DayVectorY,
		HighGustBearing:   a.state.HighGustBearing,
		DayHighSolar:      a.state.DayHighSolar,
		DayHighSolarTime:  a.state.DayHighSolarTime,
		DayHighUV:         a.state.DayHighUV,
		DayHighUVTime:     a.state.DayHighUVTime,
	}

	data, err := msgpack.Marshal(&cp)
	if err != nil {
		a.logger.Errorf("marshaling checkpoint: %v", err)
		return
	}
	if err := a.snap.Save(data); err != nil {
		a.logger.Errorf("saving checkpoint: %v", err)
	}
}

// restoreCheckpoint reloads the sliding windows after a restart.  Day
// accumulators are restored only when the checkpoint belongs to the same
// meteorological day that is now being accumulated; a stale one would
// double-count into the wrong day.
func (a *StationAggregator) restoreCheckpoint() {
	data, err := a.snap.Load()
	if err != nil {
		a.logger.Warnf("loading checkpoint: %v", err)
		return
	}
	if len(data) == 0 {
		return
	}

	var cp checkpoint
	if err := msgpack.Unmarshal(data, &cp); err != nil {
		a.logger.Warnf("decoding checkpoint, starting cold: %v", err)
		return
	}

	a.state.Windows.Restore(cp.Windows)

	if !a.meteoDay(cp.SavedAt).Equal(a.meteoDay(time.Now())) {
		a.logger.Infof("checkpoint from a previous day, day accumulators start fresh")
		return
	}

	a.state.WindRun = cp.WindRun
	a.state.SunshineHours = cp.SunshineHours
	a.state.TempSampleSum = cp.TempSampleSum
	a.state.TempSampleCount = cp.TempSampleCount
	a.state.HeatingDegreeDays = cp.HeatingDegreeDays
	a.state.CoolingDegreeDays = cp.CoolingDegreeDays
	a.state.ChillHours = cp.ChillHours
	a.state.DayVectorX = cp.DayVectorX
	a.state.DayVectorY = cp.DayVectorY
	a.state.HighGustBearing = cp.HighGustBearing
	a.state.DayHighSolar = cp.DayHighSolar
	a.state.DayHighSolarTime = cp.DayHighSolarTime
	a.state.DayHighUV = cp.DayHighUV
	a.state.DayHighUVTime = cp.DayHighUVTime
}
