package aggregator

import (
	"time"

	"github.com/chrissnell/gwstationd/internal/types"
)

// buildDayRecord assembles the per-day summary row from the Today scope and
// the daily accumulators, dated to the meteorological day that is ending.
func (a *StationAggregator) buildDayRecord(day time.Time) *types.DayRecord {
	t := a.state.Today

	avgTemp := 0.0
	if a.state.TempSampleCount > 0 {
		avgTemp = a.state.TempSampleSum / float64(a.state.TempSampleCount)
	}

	return &types.DayRecord{
		Date: day,

		HighGust:        t.HighGust.Rec.Val,
		HighGustBearing: a.state.HighGustBearing,
		HighGustTime:    t.HighGust.Rec.Ts,

		LowTemp:      t.LowTemp.Rec.Val,
		LowTempTime:  t.LowTemp.Rec.Ts,
		HighTemp:     t.HighTemp.Rec.Val,
		HighTempTime: t.HighTemp.Rec.Ts,

		LowPressure:      t.LowPressure.Rec.Val,
		LowPressureTime:  t.LowPressure.Rec.Ts,
		HighPressure:     t.HighPressure.Rec.Val,
		HighPressureTime: t.HighPressure.Rec.Ts,

		HighRainRate:     t.HighRainRate.Rec.Val,
		HighRainRateTime: t.HighRainRate.Rec.Ts,
		TotalRain:        a.state.RainToday,

		AvgTemp: avgTemp,
		WindRun: a.state.WindRun,

		HighAvgWind:     t.HighWind.Rec.Val,
		HighAvgWindTime: t.HighWind.Rec.Ts,

		LowHumidity:      int(t.LowHumidity.Rec.Val),
		LowHumidityTime:  t.LowHumidity.Rec.Ts,
		HighHumidity:     int(t.HighHumidity.Rec.Val),
		HighHumidityTime: t.HighHumidity.Rec.Ts,

		SunshineHours: a.state.SunshineHours,

		HighHeatIndex:     t.HighHeatIdx.Rec.Val,
		HighHeatIndexTime: t.HighHeatIdx.Rec.Ts,

		HighAppTemp:     t.HighAppTemp.Rec.Val,
		HighAppTempTime: t.HighAppTemp.Rec.Ts,
		LowAppTemp:      t.LowAppTemp.Rec.Val,
		LowAppTempTime:  t.LowAppTemp.Rec.Ts,

		HighHourlyRain:     t.HighHourlyRain.Rec.Val,
		HighHourlyRainTime: t.HighHourlyRain.Rec.Ts,

		LowWindChill:     t.LowWindChill.Rec.Val,
		LowWindChillTime: t.LowWindChill.Rec.Ts,

		HighDewPoint:     t.HighDewPoint.Rec.Val,
		HighDewPointTime: t.HighDewPoint.Rec.Ts,
		LowDewPoint:      t.LowDewPoint.Rec.Val,
		LowDewPointTime:  t.LowDewPoint.Rec.Ts,

		DominantWindBearing: a.state.DominantBearing(),
		HeatingDegreeDays:   a.state.HeatingDegreeDays,
		CoolingDegreeDays:   a.state.CoolingDegreeDays,

		HighSolar:     a.state.DayHighSolar,
		HighSolarTime: a.state.DayHighSolarTime,
		HighUV:        float64(a.state.DayHighUV),
		HighUVTime:    a.state.DayHighUVTime,

		HighFeelsLike:     t.HighFeels.Rec.Val,
		HighFeelsLikeTime: t.HighFeels.Rec.Ts,
		LowFeelsLike:      t.LowFeels.Rec.Val,
		LowFeelsLikeTime:  t.LowFeels.Rec.Ts,

		HighHumidex:     t.HighHumidex.Rec.Val,
		HighHumidexTime: t.HighHumidex.Rec.Ts,

		ChillHours: a.state.ChillHours,

		HighRain24h:     t.HighRain24h.Rec.Val,
		HighRain24hTime: t.HighRain24h.Rec.Ts,
	}
}
