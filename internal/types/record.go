// Package types holds the shared data types passed between station drivers,
// the aggregation engine, and the storage backends.
package types

import "time"

// Channel counts supported by the gateway protocol.
const (
	ExtraChannels = 8
	SoilChannels  = 16
	LeafChannels  = 8
	UserChannels  = 8
	PM25Channels  = 4
)

// InstantRecord is one decoded observation for one physical timestamp.
// Every field is optional: a nil pointer means the station did not report
// that quantity this cycle.  Values are always in the station's native
// metric units (degrees C, m/s, mm, hPa) - unit conversion for display
// happens downstream of the aggregator.
type InstantRecord struct {
	Timestamp time.Time

	Temperature       *float64 // outdoor temperature, C
	IndoorTemperature *float64 // C
	Humidity          *int     // outdoor relative humidity, percent
	IndoorHumidity    *int     // percent
	DewPoint          *float64 // station-supplied dew point, C
	WindChill         *float64 // station-supplied wind chill, C
	WetBulb           *float64 // station-supplied wet bulb, C

	PressureRel *float64 // relative (sea-level) pressure, hPa
	PressureAbs *float64 // absolute pressure, hPa

	WindSpeed   *float64 // m/s
	WindGust    *float64 // m/s
	WindBearing *int     // degrees

	RainRate    *float64 // mm/h
	RainYear    *float64 // year-to-date rain counter, mm
	RainCounter *float64 // raw tipping counter total, mm

	SolarRadiation *float64 // W/m2
	UVIndex        *int

	ExtraTemp     [ExtraChannels]*float64
	ExtraHumidity [ExtraChannels]*int
	SoilTemp      [SoilChannels]*float64
	SoilMoisture  [SoilChannels]*int
	LeafWetness   [LeafChannels]*int
	UserTemp      [UserChannels]*float64

	PM25       [PM25Channels]*float64 // ug/m3
	PM25Combo  *float64
	PM10Combo  *float64
	CO2        *int // ppm
	CO2Avg24h  *int // ppm, 24-hour average
	CO2Temp    *float64
	CO2Hum     *int
	CO2PM25    *float64
	CO2PM10    *float64

	LightningDistance *float64   // km to last strike
	LightningTime     *time.Time // time of last strike
	LightningStrikes  *int       // strike count for the day
}

// Float returns a pointer to v.  Convenience for building records.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Time returns a pointer to t.
func Time(t time.Time) *time.Time { return &t }

// Merge copies every present field of other into r.  Used when several
// sensor groups report against the same timestamp.
func (r *InstantRecord) Merge(other *InstantRecord) {
	if other.Temperature != nil {
		r.Temperature = other.Temperature
	}
	if other.IndoorTemperature != nil {
		r.IndoorTemperature = other.IndoorTemperature
	}
	if other.Humidity != nil {
		r.Humidity = other.Humidity
	}
	if other.IndoorHumidity != nil {
		r.IndoorHumidity = other.IndoorHumidity
	}
	if other.DewPoint != nil {
		r.DewPoint = other.DewPoint
	}
	if other.WindChill != nil {
		r.WindChill = other.WindChill
	}
	if other.WetBulb != nil {
		r.WetBulb = other.WetBulb
	}
	if other.PressureRel != nil {
		r.PressureRel = other.PressureRel
	}
	if other.PressureAbs != nil {
		r.PressureAbs = other.PressureAbs
	}
	if other.WindSpeed != nil {
		r.WindSpeed = other.WindSpeed
	}
	if other.WindGust != nil {
		r.WindGust = other.WindGust
	}
	if other.WindBearing != nil {
		r.WindBearing = other.WindBearing
	}
	if other.RainRate != nil {
		r.RainRate = other.RainRate
	}
	if other.RainYear != nil {
		r.RainYear = other.RainYear
	}
	if other.RainCounter != nil {
		r.RainCounter = other.RainCounter
	}
	if other.SolarRadiation != nil {
		r.SolarRadiation = other.SolarRadiation
	}
	if other.UVIndex != nil {
		r.UVIndex = other.UVIndex
	}
	for i := range other.ExtraTemp {
		if other.ExtraTemp[i] != nil {
			r.ExtraTemp[i] = other.ExtraTemp[i]
		}
	}
	for i := range other.ExtraHumidity {
		if other.ExtraHumidity[i] != nil {
			r.ExtraHumidity[i] = other.ExtraHumidity[i]
		}
	}
	for i := range other.SoilTemp {
		if other.SoilTemp[i] != nil {
			r.SoilTemp[i] = other.SoilTemp[i]
		}
	}
	for i := range other.SoilMoisture {
		if other.SoilMoisture[i] != nil {
			r.SoilMoisture[i] = other.SoilMoisture[i]
		}
	}
	for i := range other.LeafWetness {
		if other.LeafWetness[i] != nil {
			r.LeafWetness[i] = other.LeafWetness[i]
		}
	}
	for i := range other.UserTemp {
		if other.UserTemp[i] != nil {
			r.UserTemp[i] = other.UserTemp[i]
		}
	}
	for i := range other.PM25 {
		if other.PM25[i] != nil {
			r.PM25[i] = other.PM25[i]
		}
	}
	if other.PM25Combo != nil {
		r.PM25Combo = other.PM25Combo
	}
	if other.PM10Combo != nil {
		r.PM10Combo = other.PM10Combo
	}
	if other.CO2 != nil {
		r.CO2 = other.CO2
	}
	if other.CO2Avg24h != nil {
		r.CO2Avg24h = other.CO2Avg24h
	}
	if other.CO2Temp != nil {
		r.CO2Temp = other.CO2Temp
	}
	if other.CO2Hum != nil {
		r.CO2Hum = other.CO2Hum
	}
	if other.CO2PM25 != nil {
		r.CO2PM25 = other.CO2PM25
	}
	if other.CO2PM10 != nil {
		r.CO2PM10 = other.CO2PM10
	}
	if other.LightningDistance != nil {
		r.LightningDistance = other.LightningDistance
	}
	if other.LightningTime != nil {
		r.LightningTime = other.LightningTime
	}
	if other.LightningStrikes != nil {
		r.LightningStrikes = other.LightningStrikes
	}
}
