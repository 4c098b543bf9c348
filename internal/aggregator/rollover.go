package aggregator

import (
	"fmt"
	"time"
)

// maybeRollover checks whether ts falls in a later meteorological day than
// the one currently being accumulated, and runs the rollover chain when it
// does.  The stamp guard makes rollover idempotent: duplicate or
// out-of-order records for an already-rolled-over day are still applied to
// the current scopes but can never trigger a second rollover.
func (a *StationAggregator) maybeRollover(ts time.Time) {
	md := a.meteoDay(ts)
	stamp := md.Year()*10000 + int(md.Month())*100 + md.Day()

	if a.state.LastRolloverStamp == 0 {
		a.state.LastRolloverStamp = stamp
		a.state.CurrentDay = md.Day()
		a.state.CurrentMonth = int(md.Month())
		a.state.CurrentYear = md.Year()
		return
	}

	if stamp <= a.state.LastRolloverStamp {
		return
	}

	a.rollover(ts, md)
	a.state.LastRolloverStamp = stamp
	a.state.CurrentDay = md.Day()
	a.state.CurrentMonth = int(md.Month())
	a.state.CurrentYear = md.Year()
}

// rollover closes out the ending meteorological day and, when the day
// crosses a month or year boundary, the ending month and year as well.
func (a *StationAggregator) rollover(ts time.Time, newDay time.Time) {
	endedDay := time.Date(a.state.CurrentYear, time.Month(a.state.CurrentMonth),
		a.state.CurrentDay, 0, 0, 0, 0, newDay.Location())

	rolloversRun.WithLabelValues("day").Inc()
	a.logger.Infof("day rollover for %s: closing %s", a.state.StationName,
		endedDay.Format("2006-01-02"))

	// Day summary is skipped when no valid temperature was ever recorded
	// for the day, so a restart gap cannot produce a row of sentinels.
	if a.state.Today.HighTemp.AtSentinel() || a.state.Today.LowTemp.AtSentinel() {
		a.logger.Errorf("skipping day summary for %s: no valid temperature recorded",
			endedDay.Format("2006-01-02"))
	} else if a.dayfile != nil {
		if err := a.dayfile.WriteDayRecord(a.buildDayRecord(endedDay)); err != nil {
			a.logger.Errorf("writing day summary for %s: %v",
				endedDay.Format("2006-01-02"), err)
		}
	}

	if a.state.RainToday >= a.cfg.Aggregation.RainDayThreshold {
		a.state.ConsecutiveWetDays++
		a.state.ConsecutiveDryDays = 0
	} else {
		a.state.ConsecutiveDryDays++
		a.state.ConsecutiveWetDays = 0
	}

	// Growing degree days from the closed day's span
	if !a.state.Today.HighTemp.AtSentinel() && !a.state.Today.LowTemp.AtSentinel() {
		mean := (a.state.Today.HighTemp.Rec.Val + a.state.Today.LowTemp.Rec.Val) / 2
		if mean > a.cfg.Aggregation.GrowingBase {
			a.state.GrowingDegreeDays += mean - a.cfg.Aggregation.GrowingBase
		}
	}

	a.state.Yesterday.CopyFrom(a.state.Today)
	a.reseedToday(ts)
	a.resetDayAccumulators()

	monthChanged := int(newDay.Month()) != a.state.CurrentMonth ||
		newDay.Year() != a.state.CurrentYear
	if monthChanged {
		a.rolloverMonth()
	}
	if newDay.Year() != a.state.CurrentYear {
		a.rolloverYear()
	}
	if monthChanged && int(newDay.Month()) == a.rainSeasonStart() {
		a.state.RainYearStart = a.state.RainCounter
		a.state.RainYear = 0
	}

	a.markAllDirty()
}

func (a *StationAggregator) rainSeasonStart() int {
	if m := a.cfg.Aggregation.RainSeasonStart; m >= 1 && m <= 12 {
		return m
	}
	return 1
}

// reseedToday resets the Today scope and seeds it from the current instant,
// so a value present right now immediately holds the new day's records.
// Quantities never yet reported stay at their sentinels.
func (a *StationAggregator) reseedToday(ts time.Time) {
	t := a.state.Today
	t.ResetSentinel()

	if a.state.HaveTemperature {
		t.HighTemp.Reset(a.state.Temperature, ts)
		t.LowTemp.Reset(a.state.Temperature, ts)
	}
	if a.state.HaveTemperature && a.state.HaveHumidity {
		t.HighDewPoint.Reset(a.state.Derived.DewPoint, ts)
		t.LowDewPoint.Reset(a.state.Derived.DewPoint, ts)
		t.HighHeatIdx.Reset(a.state.Derived.HeatIndex, ts)
		t.HighHumidex.Reset(a.state.Derived.Humidex, ts)
		if a.state.HaveWind {
			t.LowWindChill.Reset(a.state.Derived.WindChill, ts)
			t.HighAppTemp.Reset(a.state.Derived.AppTemp, ts)
			t.LowAppTemp.Reset(a.state.Derived.AppTemp, ts)
			t.HighFeels.Reset(a.state.Derived.FeelsLike, ts)
			t.LowFeels.Reset(a.state.Derived.FeelsLike, ts)
		}
	}
	if a.state.HaveHumidity {
		t.HighHumidity.Reset(float64(a.state.Humidity), ts)
		t.LowHumidity.Reset(float64(a.state.Humidity), ts)
	}
	if a.state.HavePressure {
		t.HighPressure.Reset(a.state.Pressure, ts)
		t.LowPressure.Reset(a.state.Pressure, ts)
	}
	if a.state.HaveWind {
		t.HighGust.Reset(a.state.WindGust, ts)
		t.HighWind.Reset(a.state.WindAverage, ts)
		a.state.HighGustBearing = a.state.WindBearing
	}

	// Rain totals restart from zero for the new day; rate and rolling
	// windows carry across the boundary.
	t.HighRainRate.Reset(a.state.RainRate, ts)
	t.HighDailyRain.Reset(0, ts)
	t.HighHourlyRain.Reset(a.state.RainLastHour, ts)
	t.HighRain24h.Reset(a.state.Rain24h, ts)
	t.HighMonthRain.Reset(a.state.RainMonth, ts)
}

func (a *StationAggregator) resetDayAccumulators() {
	a.state.WindRun = 0
	a.state.SunshineHours = 0
	a.state.TempSampleSum = 0
	a.state.TempSampleCount = 0
	a.state.HeatingDegreeDays = 0
	a.state.CoolingDegreeDays = 0
	a.state.ChillHours = 0
	a.state.DayVectorX = 0
	a.state.DayVectorY = 0
	a.state.DayHighSolar = 0
	a.state.DayHighSolarTime = time.Time{}
	a.state.DayHighUV = 0
	a.state.DayHighUVTime = time.Time{}

	a.state.RainDayStart = a.state.RainCounter
	a.state.RainMidnight = a.state.RainCounter
	a.state.RainToday = 0
}

// rolloverMonth archives the ending month's records and resets the month
// scope.  The archive call is synchronous: the reset happens only after the
// store has accepted the dated copy.
func (a *StationAggregator) rolloverMonth() {
	rolloversRun.WithLabelValues("month").Inc()
	suffix := fmt.Sprintf("%04d-%02d", a.state.CurrentYear, a.state.CurrentMonth)
	a.logger.Infof("month rollover for %s: archiving %s", a.state.StationName, suffix)

	if a.store != nil {
		if err := a.store.Archive(ScopeThisMonth.String(), suffix); err != nil {
			a.logger.Errorf("archiving month records %s: %v", suffix, err)
		}
	}

	a.state.ThisMonth.ResetSentinel()
	a.state.RainMonthStart = a.state.RainCounter
	a.state.RainMonth = 0
}

// rolloverYear archives the ending year's records and resets the year scope.
func (a *StationAggregator) rolloverYear() {
	rolloversRun.WithLabelValues("year").Inc()
	suffix := fmt.Sprintf("%04d", a.state.CurrentYear)
	a.logger.Infof("year rollover for %s: archiving %s", a.state.StationName, suffix)

	if a.store != nil {
		if err := a.store.Archive(ScopeThisYear.String(), suffix); err != nil {
			a.logger.Errorf("archiving year records %s: %v", suffix, err)
		}
	}

	a.state.ThisYear.ResetSentinel()
}

func (a *StationAggregator) markAllDirty() {
	for _, s := range []Scope{ScopeToday, ScopeYesterday, ScopeThisMonth,
		ScopeThisYear, ScopeAllTime, ScopeMonthlyAllTime} {
		a.dirty[s] = true
	}
}
