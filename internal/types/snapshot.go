package types

import "time"

// ExtremeSnapshot is a read-only (value, time) pair for one tracked record.
type ExtremeSnapshot struct {
	Value float64   `json:"value" msgpack:"v"`
	Time  time.Time `json:"time" msgpack:"t"`
}

// ScopeSnapshot holds the high/low pairs for one record scope.
type ScopeSnapshot struct {
	HighTemp      ExtremeSnapshot `json:"high_temp"`
	LowTemp       ExtremeSnapshot `json:"low_temp"`
	HighPressure  ExtremeSnapshot `json:"high_pressure"`
	LowPressure   ExtremeSnapshot `json:"low_pressure"`
	HighHumidity  ExtremeSnapshot `json:"high_humidity"`
	LowHumidity   ExtremeSnapshot `json:"low_humidity"`
	HighGust      ExtremeSnapshot `json:"high_gust"`
	HighWind      ExtremeSnapshot `json:"high_wind"`
	HighRainRate  ExtremeSnapshot `json:"high_rain_rate"`
	HighDailyRain ExtremeSnapshot `json:"high_daily_rain"`
	HighDewPoint  ExtremeSnapshot `json:"high_dew_point"`
	LowDewPoint   ExtremeSnapshot `json:"low_dew_point"`
	LowWindChill  ExtremeSnapshot `json:"low_wind_chill"`
	HighHeatIndex ExtremeSnapshot `json:"high_heat_index"`
	HighAppTemp   ExtremeSnapshot `json:"high_app_temp"`
	LowAppTemp    ExtremeSnapshot `json:"low_app_temp"`
	HighFeelsLike ExtremeSnapshot `json:"high_feels_like"`
	LowFeelsLike  ExtremeSnapshot `json:"low_feels_like"`
	HighHumidex   ExtremeSnapshot `json:"high_humidex"`
}

// StationSnapshot is the read-only view of the aggregator's public state,
// exposed to downstream consumers (REST, exports).  It is a copy; mutating
// it has no effect on the aggregator.
type StationSnapshot struct {
	StationName string    `json:"station_name"`
	UpdatedAt   time.Time `json:"updated_at"`

	Temperature    float64 `json:"temperature"`
	IndoorTemp     float64 `json:"indoor_temperature"`
	Humidity       int     `json:"humidity"`
	IndoorHumidity int     `json:"indoor_humidity"`
	DewPoint       float64 `json:"dew_point"`
	WindChill      float64 `json:"wind_chill"`
	HeatIndex      float64 `json:"heat_index"`
	ApparentTemp   float64 `json:"apparent_temperature"`
	FeelsLike      float64 `json:"feels_like"`
	Humidex        float64 `json:"humidex"`
	WetBulb        float64 `json:"wet_bulb"`
	CloudBase      float64 `json:"cloud_base"`

	Pressure      float64 `json:"pressure"`
	PressureTrend float64 `json:"pressure_trend_3h"`
	TempTrend     float64 `json:"temp_trend_3h"`

	WindSpeed       float64 `json:"wind_speed"`
	WindGust        float64 `json:"wind_gust"`
	WindGustRecent  float64 `json:"wind_gust_10m"`
	WindBearing     int     `json:"wind_bearing"`
	WindAverage     float64 `json:"wind_average_10m"`
	AverageBearing  int     `json:"average_bearing_10m"`
	DominantBearing int     `json:"dominant_bearing_today"`
	WindRunToday    float64 `json:"windrun_today"`

	RainRate     float64 `json:"rain_rate"`
	RainToday    float64 `json:"rain_today"`
	RainLastHour float64 `json:"rain_last_hour"`
	Rain24h      float64 `json:"rain_24h"`
	RainYear     float64 `json:"rain_year"`

	SolarRadiation float64 `json:"solar_radiation"`
	UVIndex        int     `json:"uv_index"`
	SunshineHours  float64 `json:"sunshine_hours_today"`

	ConsecutiveDryDays int `json:"consecutive_dry_days"`
	ConsecutiveWetDays int `json:"consecutive_wet_days"`

	Today     ScopeSnapshot `json:"today"`
	Yesterday ScopeSnapshot `json:"yesterday"`
	ThisMonth ScopeSnapshot `json:"this_month"`
	ThisYear  ScopeSnapshot `json:"this_year"`
	AllTime   ScopeSnapshot `json:"all_time"`
}
