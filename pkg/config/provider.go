// Package config provides configuration data structures and provider
// abstractions for the station daemon.
package config

// PrimaryTHSensorIndoor is the documented sentinel channel selector meaning
// "map the indoor temperature/humidity sensor to the outdoor fields".  Real
// channels are 0 (outdoor) through 8; 99 is special.
const PrimaryTHSensorIndoor = 99

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetDevices() ([]DeviceData, error)
	GetDevice(name string) (*DeviceData, error)
	GetStorageConfig() (*StorageData, error)
	GetControllers() ([]ControllerData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Devices     []DeviceData     `yaml:"devices"`
	Storage     StorageData      `yaml:"storage,omitempty"`
	Controllers []ControllerData `yaml:"controllers,omitempty"`
}

// DeviceData holds configuration specific to one station device
type DeviceData struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Enabled bool   `yaml:"enabled"`

	// Local gateway transport
	Hostname string `yaml:"hostname,omitempty"`
	Port     string `yaml:"port,omitempty"`

	// Cloud API transport
	APIEndpoint    string `yaml:"api_endpoint,omitempty"`
	APIKey         string `yaml:"api_key,omitempty"`
	ApplicationKey string `yaml:"application_key,omitempty"`
	MAC            string `yaml:"mac,omitempty"`
	IMEI           string `yaml:"imei,omitempty"`
	FudgeMinutes   int    `yaml:"fudge_minutes,omitempty"`

	// Which rain sensor feeds the rain fields: "tipper" (default) or "piezo"
	PrimaryRainSensor string `yaml:"primary_rain_sensor,omitempty"`

	// Minutes of silence before the stalled-data alarm fires.  Zero
	// selects the driver's default.
	WatchdogMinutes int `yaml:"watchdog_minutes,omitempty"`

	// Channel selector for the primary temp/humidity sensor: 0 = outdoor,
	// 1-8 = extra channel N, PrimaryTHSensorIndoor (99) = indoor.
	PrimaryTHSensor int `yaml:"primary_th_sensor,omitempty"`

	Aggregation AggregationData `yaml:"aggregation,omitempty"`
	Spike       SpikeData       `yaml:"spike,omitempty"`
	Solar       SolarData       `yaml:"solar,omitempty"`
	Units       UnitsData       `yaml:"units,omitempty"`
}

// UnitsData selects the display units applied to published snapshots.
// Empty strings keep the station-native metric unit for that quantity.
type UnitsData struct {
	Temp     string `yaml:"temp,omitempty"`     // "c" (default) or "f"
	Wind     string `yaml:"wind,omitempty"`     // "ms" (default), "kph", "mph", "kt"
	Rain     string `yaml:"rain,omitempty"`     // "mm" (default) or "in"
	Pressure string `yaml:"pressure,omitempty"` // "hpa" (default), "inhg", "kpa"
}

// AggregationData holds the running-statistics settings for a device
type AggregationData struct {
	// Hour of day (0-23) at which the climatological day changes.
	RolloverHour int `yaml:"rollover_hour,omitempty"`
	// When true and the rollover hour is 9, the effective offset shifts
	// by an extra hour while daylight-saving time is in force.
	RolloverUsesDST bool `yaml:"rollover_uses_dst,omitempty"`

	// Derived metrics: compute locally rather than trusting station values
	CalculatedDewPoint  bool `yaml:"calculated_dew_point,omitempty"`
	CalculatedWindChill bool `yaml:"calculated_wind_chill,omitempty"`
	// Back-solve humidity and dew point from a station-supplied wet bulb
	SolveHumidityFromWetBulb bool `yaml:"solve_humidity_from_wet_bulb,omitempty"`

	// Rain accounting
	RainDayThreshold float64 `yaml:"rain_day_threshold,omitempty"` // mm; day counts as wet above this
	RainSeasonStart  int     `yaml:"rain_season_start,omitempty"`  // month 1-12

	// Degree-day base temperatures, C
	HeatingBase float64 `yaml:"heating_base,omitempty"`
	CoolingBase float64 `yaml:"cooling_base,omitempty"`
	// Chill hours accumulate below this temperature, C
	ChillHourThreshold float64 `yaml:"chill_hour_threshold,omitempty"`
	// Growing degree days base, C
	GrowingBase float64 `yaml:"growing_base,omitempty"`

	// Sunshine detection: measured solar must exceed this percentage of
	// the clear-sky theoretical maximum
	SunshineThresholdPercent int `yaml:"sunshine_threshold_percent,omitempty"`
}

// SpikeData holds the per-quantity spike-rejection thresholds.  All values
// are in SI/metric units so they are independent of display configuration.
// Zero means "no limit" for that check.
type SpikeData struct {
	TempDiff     float64 `yaml:"temp_diff,omitempty"`      // C
	HumidityDiff float64 `yaml:"humidity_diff,omitempty"`  // percent
	PressureDiff float64 `yaml:"pressure_diff,omitempty"`  // hPa
	WindDiff     float64 `yaml:"wind_diff,omitempty"`      // m/s
	GustDiff     float64 `yaml:"gust_diff,omitempty"`      // m/s
	RainRateMax  float64 `yaml:"rain_rate_max,omitempty"`  // mm/h
	RainHourMax  float64 `yaml:"rain_hour_max,omitempty"`  // mm
	Rain24hMax   float64 `yaml:"rain_24h_max,omitempty"`   // mm
	DewPointMax  float64 `yaml:"dew_point_max,omitempty"`  // C, one-sided high limit
	TempHigh     float64 `yaml:"temp_high,omitempty"`      // C hard ceiling
	TempLow      float64 `yaml:"temp_low,omitempty"`       // C hard floor
	PressureHigh float64 `yaml:"pressure_high,omitempty"`  // hPa
	PressureLow  float64 `yaml:"pressure_low,omitempty"`   // hPa
	WindHigh     float64 `yaml:"wind_high,omitempty"`      // m/s
}

// SolarData holds the site position used for clear-sky solar calculations
type SolarData struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Altitude  float64 `yaml:"altitude"`
}

// StorageData holds the configuration for the persistence collaborators
type StorageData struct {
	TimescaleDB *TimescaleDBData `yaml:"timescaledb,omitempty"`
	RecordStore *RecordStoreData `yaml:"record_store,omitempty"`
	Snapshot    *SnapshotData    `yaml:"snapshot,omitempty"`
	AuditLog    *AuditLogData    `yaml:"audit_log,omitempty"`
}

type TimescaleDBData struct {
	ConnectionString string `yaml:"connection_string"`
}

type RecordStoreData struct {
	Path string `yaml:"path"`
}

type SnapshotData struct {
	Path string `yaml:"path"`
}

type AuditLogData struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
}

// ControllerData holds the configuration for downstream controller surfaces
type ControllerData struct {
	Type       string          `yaml:"type"`
	RESTServer *RESTServerData `yaml:"rest,omitempty"`
}

type RESTServerData struct {
	ListenAddr     string `yaml:"listen_addr,omitempty"`
	Port           int    `yaml:"port"`
	PullFromDevice string `yaml:"pull_from_device,omitempty"`
}
