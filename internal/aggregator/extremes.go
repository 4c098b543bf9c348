package aggregator

import (
	"fmt"
	"time"
)

// Record scope sentinels.  A high tracker starts far below any plausible
// reading and a low tracker far above, so the first accepted value always
// establishes the record.
const (
	sentinelHigh = -9999.0
	sentinelLow  = 9999.0
)

// Epsilons for record comparison.  Derived quantities are rounded to one
// decimal for display, so a coarser epsilon avoids breaking a record on
// a difference the user can never see.
const (
	rawEpsilon     = 0.001
	derivedEpsilon = 0.1
)

// epsilonSlack absorbs binary representation error in the delta, so a
// difference of exactly one epsilon (e.g. 15.1 over 15.0) breaks the record.
const epsilonSlack = 1e-9

// Direction says whether a tracker records a running high or a running low.
type Direction int

const (
	High Direction = iota
	Low
)

// Scope identifies one of the record-keeping periods.
type Scope int

const (
	ScopeToday Scope = iota
	ScopeYesterday
	ScopeThisMonth
	ScopeThisYear
	ScopeAllTime
	ScopeMonthlyAllTime
)

func (s Scope) String() string {
	switch s {
	case ScopeToday:
		return "Today"
	case ScopeYesterday:
		return "Yesterday"
	case ScopeThisMonth:
		return "Month"
	case ScopeThisYear:
		return "Year"
	case ScopeAllTime:
		return "AllTime"
	case ScopeMonthlyAllTime:
		return "MonthlyAllTime"
	default:
		return "Unknown"
	}
}

// Record is a (value, timestamp) pair for one tracked extreme.
type Record struct {
	Val float64
	Ts  time.Time
}

// StampKind selects the timestamp written when a record breaks.
type StampKind int

const (
	// StampInstant records the exact time of the reading.
	StampInstant StampKind = iota
	// StampDay records the start of the attributed meteorological day,
	// for whole-day aggregates tracked beyond the day they belong to.
	StampDay
	// StampMonth records the start of the attributed month, for
	// whole-month aggregates.
	StampMonth
)

// Tracker maintains one running high or low record for one quantity in one
// scope.  The record is only overwritten when the new value strictly breaks
// it by more than the tracker's epsilon.
type Tracker struct {
	Section string // persisted store section, e.g. "Temp"
	Key     string // persisted value key, e.g. "High"; time key is Key+"Time"
	Dir     Direction
	Epsilon float64

	// Stamp picks the record timestamp: period aggregates (daily/monthly
	// rain totals) are stamped with the start of the period they belong
	// to rather than the instant of the reading.
	Stamp StampKind

	Rec Record
}

func newHigh(section, key string, eps float64) *Tracker {
	return &Tracker{Section: section, Key: key, Dir: High, Epsilon: eps, Rec: Record{Val: sentinelHigh}}
}

func newLow(section, key string, eps float64) *Tracker {
	return &Tracker{Section: section, Key: key, Dir: Low, Epsilon: eps, Rec: Record{Val: sentinelLow}}
}

// Update folds a new value into the record.  day is the start of the
// meteorological day the reading counts toward, per the rollover hour;
// aggregate trackers stamp with it rather than the instant.  Returns true
// when the record was broken, in which case the caller must arrange for
// the owning scope's store to be persisted.
func (t *Tracker) Update(v float64, ts, day time.Time) bool {
	broken := false
	switch t.Dir {
	case High:
		broken = v-t.Rec.Val >= t.Epsilon-epsilonSlack
	case Low:
		broken = t.Rec.Val-v >= t.Epsilon-epsilonSlack
	}
	if !broken {
		return false
	}

	switch t.Stamp {
	case StampDay:
		ts = day
	case StampMonth:
		ts = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	}
	t.Rec = Record{Val: v, Ts: ts}
	return true
}

// Reset seeds the tracker from a current instant value, as happens for the
// Today scope at day rollover.
func (t *Tracker) Reset(v float64, ts time.Time) {
	t.Rec = Record{Val: v, Ts: ts}
}

// ResetSentinel returns the tracker to its never-recorded state.
func (t *Tracker) ResetSentinel() {
	if t.Dir == High {
		t.Rec = Record{Val: sentinelHigh}
	} else {
		t.Rec = Record{Val: sentinelLow}
	}
}

// AtSentinel reports whether no valid reading has been folded in since the
// last reset.
func (t *Tracker) AtSentinel() bool {
	if t.Dir == High {
		return t.Rec.Val == sentinelHigh
	}
	return t.Rec.Val == sentinelLow
}

// auditLine renders the human-readable record-break line appended to the
// audit log.
func (t *Tracker) auditLine(scope string, old Record, monthIndex int) string {
	label := t.Section + "." + t.Key
	if monthIndex > 0 {
		scope = fmt.Sprintf("%s[%02d]", scope, monthIndex)
	}
	if old.Ts.IsZero() {
		return fmt.Sprintf("%s %s: new record %.2f at %s (no previous record)",
			scope, label, t.Rec.Val, t.Rec.Ts.Format("2006-01-02 15:04"))
	}
	return fmt.Sprintf("%s %s: %.2f at %s beats %.2f at %s",
		scope, label, t.Rec.Val, t.Rec.Ts.Format("2006-01-02 15:04"),
		old.Val, old.Ts.Format("2006-01-02 15:04"))
}

// ScopeRecords holds every tracked extreme for one scope.
type ScopeRecords struct {
	Scope Scope

	HighTemp     *Tracker
	LowTemp      *Tracker
	HighDewPoint *Tracker
	LowDewPoint  *Tracker
	LowWindChill *Tracker
	HighHeatIdx  *Tracker
	HighAppTemp  *Tracker
	LowAppTemp   *Tracker
	HighFeels    *Tracker
	LowFeels     *Tracker
	HighHumidex  *Tracker

	HighPressure *Tracker
	LowPressure  *Tracker
	HighHumidity *Tracker
	LowHumidity  *Tracker

	HighGust *Tracker
	HighWind *Tracker // 10-minute average speed

	HighRainRate   *Tracker
	HighHourlyRain *Tracker
	HighDailyRain  *Tracker // whole-day aggregate: day stamp outside Today scope
	HighRain24h    *Tracker
	HighMonthRain  *Tracker // whole-month aggregate, tracked for year/all-time scopes
}

// NewScopeRecords builds a full tracker set for a scope, sentinel-seeded.
func NewScopeRecords(scope Scope) *ScopeRecords {
	s := &ScopeRecords{
		Scope: scope,

		HighTemp:     newHigh("Temp", "High", rawEpsilon),
		LowTemp:      newLow("Temp", "Low", rawEpsilon),
		HighDewPoint: newHigh("DewPoint", "High", derivedEpsilon),
		LowDewPoint:  newLow("DewPoint", "Low", derivedEpsilon),
		LowWindChill: newLow("WindChill", "Low", derivedEpsilon),
		HighHeatIdx:  newHigh("HeatIndex", "High", derivedEpsilon),
		HighAppTemp:  newHigh("AppTemp", "High", derivedEpsilon),
		LowAppTemp:   newLow("AppTemp", "Low", derivedEpsilon),
		HighFeels:    newHigh("FeelsLike", "High", derivedEpsilon),
		LowFeels:     newLow("FeelsLike", "Low", derivedEpsilon),
		HighHumidex:  newHigh("Humidex", "High", derivedEpsilon),

		HighPressure: newHigh("Pressure", "High", rawEpsilon),
		LowPressure:  newLow("Pressure", "Low", rawEpsilon),
		HighHumidity: newHigh("Humidity", "High", rawEpsilon),
		LowHumidity:  newLow("Humidity", "Low", rawEpsilon),

		HighGust: newHigh("Gust", "High", rawEpsilon),
		HighWind: newHigh("Wind", "High", rawEpsilon),

		HighRainRate:   newHigh("RainRate", "High", rawEpsilon),
		HighHourlyRain: newHigh("HourlyRain", "High", rawEpsilon),
		HighDailyRain:  newHigh("DailyRain", "High", rawEpsilon),
		HighRain24h:    newHigh("Rain24h", "High", rawEpsilon),
		HighMonthRain:  newHigh("MonthlyRain", "High", rawEpsilon),
	}

	// Daily and monthly rain totals are period aggregates, not point
	// samples, when tracked beyond the day they belong to.
	if scope != ScopeToday && scope != ScopeYesterday {
		s.HighDailyRain.Stamp = StampDay
		s.HighMonthRain.Stamp = StampMonth
	}

	return s
}

// All returns every tracker in a stable order, for persistence sweeps.
func (s *ScopeRecords) All() []*Tracker {
	return []*Tracker{
		s.HighTemp, s.LowTemp,
		s.HighDewPoint, s.LowDewPoint,
		s.LowWindChill, s.HighHeatIdx,
		s.HighAppTemp, s.LowAppTemp,
		s.HighFeels, s.LowFeels,
		s.HighHumidex,
		s.HighPressure, s.LowPressure,
		s.HighHumidity, s.LowHumidity,
		s.HighGust, s.HighWind,
		s.HighRainRate, s.HighHourlyRain,
		s.HighDailyRain, s.HighRain24h,
		s.HighMonthRain,
	}
}

// CopyFrom copies every record from another scope, as in the Today to
// Yesterday transfer at day rollover.
func (s *ScopeRecords) CopyFrom(other *ScopeRecords) {
	dst := s.All()
	src := other.All()
	for i := range dst {
		dst[i].Rec = src[i].Rec
	}
}

// ResetSentinel returns every tracker in the scope to its sentinel state.
func (s *ScopeRecords) ResetSentinel() {
	for _, t := range s.All() {
		t.ResetSentinel()
	}
}
