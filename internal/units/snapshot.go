package units

import "github.com/chrissnell/gwstationd/internal/types"

// ConvertSnapshot rewrites a snapshot from the station's native metric
// units into the configured display units, in place.  The metric zero
// System is a no-op, so internal consumers can always hand snapshots
// through without checking the configuration.
func (s System) ConvertSnapshot(snap *types.StationSnapshot) {
	if s == (System{}) {
		return
	}

	snap.Temperature = s.Temperature(snap.Temperature)
	snap.IndoorTemp = s.Temperature(snap.IndoorTemp)
	snap.DewPoint = s.Temperature(snap.DewPoint)
	snap.WindChill = s.Temperature(snap.WindChill)
	snap.HeatIndex = s.Temperature(snap.HeatIndex)
	snap.ApparentTemp = s.Temperature(snap.ApparentTemp)
	snap.FeelsLike = s.Temperature(snap.FeelsLike)
	snap.Humidex = s.Temperature(snap.Humidex)
	snap.WetBulb = s.Temperature(snap.WetBulb)
	snap.TempTrend = s.TemperatureDelta(snap.TempTrend)

	snap.Pressure = s.Pressure(snap.Pressure)
	snap.PressureTrend = s.Pressure(snap.PressureTrend)

	snap.WindSpeed = s.WindSpeed(snap.WindSpeed)
	snap.WindGust = s.WindSpeed(snap.WindGust)
	snap.WindGustRecent = s.WindSpeed(snap.WindGustRecent)
	snap.WindAverage = s.WindSpeed(snap.WindAverage)
	snap.WindRunToday = s.WindRun(snap.WindRunToday)

	snap.RainRate = s.Rainfall(snap.RainRate)
	snap.RainToday = s.Rainfall(snap.RainToday)
	snap.RainLastHour = s.Rainfall(snap.RainLastHour)
	snap.Rain24h = s.Rainfall(snap.Rain24h)
	snap.RainYear = s.Rainfall(snap.RainYear)

	s.convertScope(&snap.Today)
	s.convertScope(&snap.Yesterday)
	s.convertScope(&snap.ThisMonth)
	s.convertScope(&snap.ThisYear)
	s.convertScope(&snap.AllTime)
}

func (s System) convertScope(sc *types.ScopeSnapshot) {
	for _, e := range []*types.ExtremeSnapshot{
		&sc.HighTemp, &sc.LowTemp,
		&sc.HighDewPoint, &sc.LowDewPoint,
		&sc.LowWindChill, &sc.HighHeatIndex,
		&sc.HighAppTemp, &sc.LowAppTemp,
		&sc.HighFeelsLike, &sc.LowFeelsLike,
		&sc.HighHumidex,
	} {
		convertExtreme(e, s.Temperature)
	}
	convertExtreme(&sc.HighPressure, s.Pressure)
	convertExtreme(&sc.LowPressure, s.Pressure)
	convertExtreme(&sc.HighGust, s.WindSpeed)
	convertExtreme(&sc.HighWind, s.WindSpeed)
	convertExtreme(&sc.HighRainRate, s.Rainfall)
	convertExtreme(&sc.HighDailyRain, s.Rainfall)
}

// convertExtreme skips never-set records, whose zero value would
// otherwise pick up the unit offset (0 C reading as 32 F).
func convertExtreme(e *types.ExtremeSnapshot, f func(float64) float64) {
	if e.Time.IsZero() {
		return
	}
	e.Value = f(e.Value)
}
