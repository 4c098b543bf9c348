package cloudapi

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/chrissnell/gwstationd/internal/types"
)

// temperatureSentinel is the out-of-range marker the platform emits for a
// temperature series sample with no valid reading.
const temperatureSentinel = 140

// flexNumber decodes a JSON number or a number carried in a string; the
// API mixes both representations across groups.
type flexNumber string

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = flexNumber(s)
		return nil
	}
	*n = flexNumber(b)
	return nil
}

func (n flexNumber) Float64() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}

func (n flexNumber) Int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}

// seriesEntry maps one (group, series) pair onto a record field.  The
// temperature flag enables the sentinel check.
type seriesEntry struct {
	apply       func(rec *types.InstantRecord, v float64)
	temperature bool
}

func tempEntry(set func(rec *types.InstantRecord, v float64)) seriesEntry {
	return seriesEntry{apply: set, temperature: true}
}

func entry(set func(rec *types.InstantRecord, v float64)) seriesEntry {
	return seriesEntry{apply: set}
}

// rainfallEntries cover both tipping-bucket and piezo rain groups; which
// group is honored is decided by the primary rain sensor setting.
var rainfallEntries = map[string]seriesEntry{
	"rain_rate": entry(func(r *types.InstantRecord, v float64) { r.RainRate = types.Float(v) }),
	"yearly": entry(func(r *types.InstantRecord, v float64) {
		r.RainYear = types.Float(v)
		r.RainCounter = types.Float(v)
	}),
}

// groupTable maps API group names to their series entries.  Channelized
// groups are filled in by init below.
var groupTable = map[string]map[string]seriesEntry{
	// The outdoor group's feels_like series is deliberately unmapped: the
	// record has no feels-like field and the aggregator derives its own
	// from temperature, humidity and wind.
	"outdoor": {
		"temperature": tempEntry(func(r *types.InstantRecord, v float64) { r.Temperature = types.Float(v) }),
		"humidity":    entry(func(r *types.InstantRecord, v float64) { r.Humidity = types.Int(int(v)) }),
		"dew_point":   tempEntry(func(r *types.InstantRecord, v float64) { r.DewPoint = types.Float(v) }),
	},
	"indoor": {
		"temperature": tempEntry(func(r *types.InstantRecord, v float64) { r.IndoorTemperature = types.Float(v) }),
		"humidity":    entry(func(r *types.InstantRecord, v float64) { r.IndoorHumidity = types.Int(int(v)) }),
	},
	"wind": {
		"wind_speed":     entry(func(r *types.InstantRecord, v float64) { r.WindSpeed = types.Float(v) }),
		"wind_gust":      entry(func(r *types.InstantRecord, v float64) { r.WindGust = types.Float(v) }),
		"wind_direction": entry(func(r *types.InstantRecord, v float64) { r.WindBearing = types.Int(int(v)) }),
	},
	"pressure": {
		"relative": entry(func(r *types.InstantRecord, v float64) { r.PressureRel = types.Float(v) }),
		"absolute": entry(func(r *types.InstantRecord, v float64) { r.PressureAbs = types.Float(v) }),
	},
	"solar_and_uvi": {
		"solar": entry(func(r *types.InstantRecord, v float64) { r.SolarRadiation = types.Float(v) }),
		"uvi":   entry(func(r *types.InstantRecord, v float64) { r.UVIndex = types.Int(int(v)) }),
	},
	"lightning": {
		"distance": entry(func(r *types.InstantRecord, v float64) { r.LightningDistance = types.Float(v) }),
		"count":    entry(func(r *types.InstantRecord, v float64) { r.LightningStrikes = types.Int(int(v)) }),
	},
	"indoor_co2": {
		"co2": entry(func(r *types.InstantRecord, v float64) { r.CO2 = types.Int(int(v)) }),
		"24_hours_average": entry(func(r *types.InstantRecord, v float64) {
			r.CO2Avg24h = types.Int(int(v))
		}),
	},
	"co2_aqi_combo": {
		"co2": entry(func(r *types.InstantRecord, v float64) { r.CO2 = types.Int(int(v)) }),
		"24_hours_average": entry(func(r *types.InstantRecord, v float64) {
			r.CO2Avg24h = types.Int(int(v))
		}),
	},
	"pm25_aqi_combo": {
		"pm25": entry(func(r *types.InstantRecord, v float64) { r.PM25Combo = types.Float(v) }),
	},
	"pm10_aqi_combo": {
		"pm10": entry(func(r *types.InstantRecord, v float64) { r.PM10Combo = types.Float(v) }),
	},
}

func init() {
	for ch := 0; ch < types.ExtraChannels; ch++ {
		i := ch
		groupTable[fmt.Sprintf("temp_and_humidity_ch%d", ch+1)] = map[string]seriesEntry{
			"temperature": tempEntry(func(r *types.InstantRecord, v float64) { r.ExtraTemp[i] = types.Float(v) }),
			"humidity":    entry(func(r *types.InstantRecord, v float64) { r.ExtraHumidity[i] = types.Int(int(v)) }),
		}
	}
	for ch := 0; ch < types.ExtraChannels; ch++ {
		i := ch
		groupTable[fmt.Sprintf("soil_ch%d", ch+1)] = map[string]seriesEntry{
			"soilmoisture": entry(func(r *types.InstantRecord, v float64) { r.SoilMoisture[i] = types.Int(int(v)) }),
		}
		groupTable[fmt.Sprintf("temp_ch%d", ch+1)] = map[string]seriesEntry{
			"temperature": tempEntry(func(r *types.InstantRecord, v float64) { r.UserTemp[i] = types.Float(v) }),
		}
		groupTable[fmt.Sprintf("leaf_ch%d", ch+1)] = map[string]seriesEntry{
			"leaf_wetness": entry(func(r *types.InstantRecord, v float64) { r.LeafWetness[i] = types.Int(int(v)) }),
		}
	}
	for ch := 0; ch < types.PM25Channels; ch++ {
		i := ch
		groupTable[fmt.Sprintf("pm25_ch%d", ch+1)] = map[string]seriesEntry{
			"pm25": entry(func(r *types.InstantRecord, v float64) { r.PM25[i] = types.Float(v) }),
		}
	}
}

// groupEntries resolves a group name to its series table, honoring the
// primary rain sensor: only the selected rain group produces fields, the
// other is skipped entirely.  Unknown groups return nil.
func groupEntries(name string, piezoPrimary bool) map[string]seriesEntry {
	switch name {
	case "rainfall":
		if piezoPrimary {
			return nil
		}
		return rainfallEntries
	case "rainfall_piezo":
		if !piezoPrimary {
			return nil
		}
		return rainfallEntries
	}
	return groupTable[name]
}
