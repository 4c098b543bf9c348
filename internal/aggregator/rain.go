package aggregator

import (
	"time"

	"github.com/chrissnell/gwstationd/internal/types"
)

// counterResetTolerance absorbs float noise in the reported rain counter; a
// decrease beyond it is treated as a possible station counter reset.
const counterResetTolerance = 0.001

// applyRain folds the rain rate and the running tipping counter into state.
//
// Counter decreases use two-chance confirmation: the first decreased reading
// is held as tentative and the previous totals stand, and only a second
// consecutive decreased reading confirms the reset.  On confirmation the
// day/month/year baselines are rebased so the accumulated totals carry
// across the reset rather than snapping to zero.
func (a *StationAggregator) applyRain(rec *types.InstantRecord, ts time.Time) {
	if rec.RainRate != nil {
		if err := a.spike.Check(QtyRainRate, *rec.RainRate); err == nil {
			a.state.RainRate = *rec.RainRate
			a.trackScopes(func(s *ScopeRecords) *Tracker { return s.HighRainRate }, *rec.RainRate, ts)
		}
	}

	if rec.RainCounter == nil {
		return
	}
	counter := *rec.RainCounter

	switch {
	case a.state.FirstRainData:
		a.state.RainCounter = counter
		a.state.RainDayStart = counter
		a.state.RainMidnight = counter
		a.state.RainMonthStart = counter
		a.state.RainYearStart = counter
		a.state.FirstRainData = false

	case counter < a.state.RainCounter-counterResetTolerance:
		if !a.state.rainResetPending {
			a.state.rainResetPending = true
			a.logger.Warnf("rain counter decreased %.2f -> %.2f, holding previous totals pending confirmation",
				a.state.RainCounter, counter)
			return
		}

		a.logger.Warnf("rain counter reset confirmed at %.2f (was %.2f), rebasing day/month/year baselines",
			counter, a.state.RainCounter)
		a.state.RainDayStart = counter - (a.state.RainCounter - a.state.RainDayStart)
		a.state.RainMidnight = counter - (a.state.RainCounter - a.state.RainMidnight)
		a.state.RainMonthStart = counter - (a.state.RainCounter - a.state.RainMonthStart)
		a.state.RainYearStart = counter - (a.state.RainCounter - a.state.RainYearStart)
		a.state.RainCounter = counter
		a.state.rainResetPending = false

	default:
		a.state.rainResetPending = false
		if counter > a.state.RainCounter {
			a.state.RainCounter = counter
		}
	}

	a.state.Windows.AddRainCounter(ts, a.state.RainCounter)

	a.state.RainToday = clampRain(a.state.RainCounter - a.state.RainDayStart)
	a.state.RainMonth = clampRain(a.state.RainCounter - a.state.RainMonthStart)
	if rec.RainYear != nil {
		a.state.RainYear = *rec.RainYear
	} else {
		a.state.RainYear = clampRain(a.state.RainCounter - a.state.RainYearStart)
	}

	hour := a.state.Windows.RainSince(ts, time.Hour)
	if err := a.spike.Check(QtyRainHour, hour); err == nil {
		a.state.RainLastHour = hour
		a.trackScopes(func(s *ScopeRecords) *Tracker { return s.HighHourlyRain }, hour, ts)
	}

	day24 := a.state.Windows.RainSince(ts, 24*time.Hour)
	if err := a.spike.Check(QtyRain24h, day24); err == nil {
		a.state.Rain24h = day24
		a.trackScopes(func(s *ScopeRecords) *Tracker { return s.HighRain24h }, day24, ts)
	}

	a.trackScopes(func(s *ScopeRecords) *Tracker { return s.HighDailyRain }, a.state.RainToday, ts)
	a.trackScopes(func(s *ScopeRecords) *Tracker { return s.HighMonthRain }, a.state.RainMonth, ts)
}

func clampRain(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
