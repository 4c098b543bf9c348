package aggregator

import (
	"math"
	"time"

	"github.com/chrissnell/gwstationd/internal/types"
)

// StationState is the aggregate root for one station: current instant
// values, rain-counter bookkeeping, the per-scope extreme records, daily
// accumulators and the sliding windows.  It is owned exclusively by a
// StationAggregator and mutated only through its ingest and rollover
// operations.
type StationState struct {
	StationName string
	UpdatedAt   time.Time

	// Current instant values, native metric units
	Temperature    float64
	IndoorTemp     float64
	Humidity       int
	IndoorHumidity int
	Pressure       float64
	WindSpeed      float64
	WindGust       float64
	WindBearing    int
	RainRate       float64
	SolarRadiation float64
	UVIndex        int

	// Latest derived quantities
	Derived DerivedOutput

	// Window-derived quantities, refreshed each cycle
	WindAverage    float64
	AverageBearing int
	WindGustRecent float64 // peak gust over the ten-minute window
	PressureTrend  float64
	TempTrend      float64
	RainLastHour   float64
	Rain24h        float64

	// Presence flags: a quantity participates in derivations and records
	// only after at least one valid reading
	HaveTemperature bool
	HaveHumidity    bool
	HavePressure    bool
	HaveWind        bool

	// Meteorological day attribution of the last applied record
	CurrentDay   int
	CurrentMonth int
	CurrentYear  int

	// Idempotency guard: the last calendar day for which rollover ran,
	// as year*10000+month*100+day
	LastRolloverStamp int

	// Rain-counter bookkeeping.  The station reports a monotonically
	// increasing counter; today's rain is counter minus the start-of-day
	// value.  A decrease signals a station reset, confirmed only on the
	// second consecutive decreased reading.
	RainCounter      float64
	RainDayStart     float64
	RainMidnight     float64
	RainMonthStart   float64
	RainYearStart    float64
	RainToday        float64
	RainMonth        float64
	RainYear         float64
	FirstRainData    bool // set until the first-ever counter reading seeds the baselines
	rainResetPending bool

	// Daily accumulators, reset at rollover
	WindRun           float64 // km
	SunshineHours     float64
	TempSampleSum     float64
	TempSampleCount   int
	HeatingDegreeDays float64
	CoolingDegreeDays float64
	GrowingDegreeDays float64
	ChillHours        float64
	DayVectorX        float64 // dominant-bearing accumulation
	DayVectorY        float64

	// Day-level highs not covered by the scope trackers
	HighGustBearing  int // bearing at the moment today's gust record broke
	DayHighSolar     float64
	DayHighSolarTime time.Time
	DayHighUV        int
	DayHighUVTime    time.Time

	ConsecutiveDryDays int
	ConsecutiveWetDays int

	// Extreme record scopes
	Today          *ScopeRecords
	Yesterday      *ScopeRecords
	ThisMonth      *ScopeRecords
	ThisYear       *ScopeRecords
	AllTime        *ScopeRecords
	MonthlyAllTime [13]*ScopeRecords // 1-indexed by calendar month

	Windows *Windows

	// Timestamp of the previous applied sample, for interval integration
	lastSampleTime time.Time
}

// NewStationState creates a sentinel-seeded state for a station.
func NewStationState(name string) *StationState {
	s := &StationState{
		StationName:   name,
		FirstRainData: true,
		Today:         NewScopeRecords(ScopeToday),
		Yesterday:     NewScopeRecords(ScopeYesterday),
		ThisMonth:     NewScopeRecords(ScopeThisMonth),
		ThisYear:      NewScopeRecords(ScopeThisYear),
		AllTime:       NewScopeRecords(ScopeAllTime),
		Windows:       NewWindows(),
	}
	for m := 1; m <= 12; m++ {
		s.MonthlyAllTime[m] = NewScopeRecords(ScopeMonthlyAllTime)
	}
	return s
}

func snapshotScope(s *ScopeRecords) types.ScopeSnapshot {
	rec := func(t *Tracker) types.ExtremeSnapshot {
		if t.AtSentinel() {
			return types.ExtremeSnapshot{}
		}
		return types.ExtremeSnapshot{Value: t.Rec.Val, Time: t.Rec.Ts}
	}
	return types.ScopeSnapshot{
		HighTemp:      rec(s.HighTemp),
		LowTemp:       rec(s.LowTemp),
		HighPressure:  rec(s.HighPressure),
		LowPressure:   rec(s.LowPressure),
		HighHumidity:  rec(s.HighHumidity),
		LowHumidity:   rec(s.LowHumidity),
		HighGust:      rec(s.HighGust),
		HighWind:      rec(s.HighWind),
		HighRainRate:  rec(s.HighRainRate),
		HighDailyRain: rec(s.HighDailyRain),
		HighDewPoint:  rec(s.HighDewPoint),
		LowDewPoint:   rec(s.LowDewPoint),
		LowWindChill:  rec(s.LowWindChill),
		HighHeatIndex: rec(s.HighHeatIdx),
		HighAppTemp:   rec(s.HighAppTemp),
		LowAppTemp:    rec(s.LowAppTemp),
		HighFeelsLike: rec(s.HighFeels),
		LowFeelsLike:  rec(s.LowFeels),
		HighHumidex:   rec(s.HighHumidex),
	}
}

// Snapshot renders a read-only copy of the public state for downstream
// consumers.
func (s *StationState) Snapshot() types.StationSnapshot {
	return types.StationSnapshot{
		StationName: s.StationName,
		UpdatedAt:   s.UpdatedAt,

		Temperature:    s.Temperature,
		IndoorTemp:     s.IndoorTemp,
		Humidity:       s.Humidity,
		IndoorHumidity: s.IndoorHumidity,
		DewPoint:       s.Derived.DewPoint,
		WindChill:      s.Derived.WindChill,
		HeatIndex:      s.Derived.HeatIndex,
		ApparentTemp:   s.Derived.AppTemp,
		FeelsLike:      s.Derived.FeelsLike,
		Humidex:        s.Derived.Humidex,
		WetBulb:        s.Derived.WetBulb,
		CloudBase:      s.Derived.CloudBase,

		Pressure:      s.Pressure,
		PressureTrend: s.PressureTrend,
		TempTrend:     s.TempTrend,

		WindSpeed:       s.WindSpeed,
		WindGust:        s.WindGust,
		WindGustRecent:  s.WindGustRecent,
		WindBearing:     s.WindBearing,
		WindAverage:     s.WindAverage,
		AverageBearing:  s.AverageBearing,
		DominantBearing: s.DominantBearing(),
		WindRunToday:    s.WindRun,

		RainRate:     s.RainRate,
		RainToday:    s.RainToday,
		RainLastHour: s.RainLastHour,
		Rain24h:      s.Rain24h,
		RainYear:     s.RainYear,

		SolarRadiation: s.SolarRadiation,
		UVIndex:        s.UVIndex,
		SunshineHours:  s.SunshineHours,

		ConsecutiveDryDays: s.ConsecutiveDryDays,
		ConsecutiveWetDays: s.ConsecutiveWetDays,

		Today:     snapshotScope(s.Today),
		Yesterday: snapshotScope(s.Yesterday),
		ThisMonth: snapshotScope(s.ThisMonth),
		ThisYear:  snapshotScope(s.ThisYear),
		AllTime:   snapshotScope(s.AllTime),
	}
}

// DominantBearing returns the vector-dominant wind bearing for the current
// day, in degrees.
func (s *StationState) DominantBearing() int {
	return vectorBearing(s.DayVectorX, s.DayVectorY)
}

func vectorBearing(x, y float64) int {
	if x == 0 && y == 0 {
		return 0
	}
	deg := math.Atan2(x, y) * 180.0 / math.Pi
	b := int(math.Round(deg))
	if b <= 0 {
		b += 360
	}
	return b
}
