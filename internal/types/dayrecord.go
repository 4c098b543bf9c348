package types

import (
	"fmt"
	"strings"
	"time"
)

// DayRecord is the per-day summary row written at day rollover.  The field
// order of Row() is a persisted-format contract consumed by downstream
// reporting and must not change.
type DayRecord struct {
	Date time.Time `gorm:"column:date;uniqueIndex"`

	HighGust        float64   `gorm:"column:highgust"`
	HighGustBearing int       `gorm:"column:highgustbearing"`
	HighGustTime    time.Time `gorm:"column:highgusttime"`

	LowTemp      float64   `gorm:"column:lowtemp"`
	LowTempTime  time.Time `gorm:"column:lowtemptime"`
	HighTemp     float64   `gorm:"column:hightemp"`
	HighTempTime time.Time `gorm:"column:hightemptime"`

	LowPressure      float64   `gorm:"column:lowpressure"`
	LowPressureTime  time.Time `gorm:"column:lowpressuretime"`
	HighPressure     float64   `gorm:"column:highpressure"`
	HighPressureTime time.Time `gorm:"column:highpressuretime"`

	HighRainRate     float64   `gorm:"column:highrainrate"`
	HighRainRateTime time.Time `gorm:"column:highrainratetime"`
	TotalRain        float64   `gorm:"column:totalrain"`

	AvgTemp float64 `gorm:"column:avgtemp"`
	WindRun float64 `gorm:"column:windrun"`

	HighAvgWind     float64   `gorm:"column:highavgwind"`
	HighAvgWindTime time.Time `gorm:"column:highavgwindtime"`

	LowHumidity      int       `gorm:"column:lowhumidity"`
	LowHumidityTime  time.Time `gorm:"column:lowhumiditytime"`
	HighHumidity     int       `gorm:"column:highhumidity"`
	HighHumidityTime time.Time `gorm:"column:highhumiditytime"`

	// ET is reserved for evapotranspiration.  Nothing computes it yet, so
	// the column is always written as zero; it stays in the row to keep
	// the persisted field order stable.
	ET            float64 `gorm:"column:et"`
	SunshineHours float64 `gorm:"column:sunshinehours"`

	HighHeatIndex     float64   `gorm:"column:highheatindex"`
	HighHeatIndexTime time.Time `gorm:"column:highheatindextime"`

	HighAppTemp     float64   `gorm:"column:highapptemp"`
	HighAppTempTime time.Time `gorm:"column:highapptemptime"`
	LowAppTemp      float64   `gorm:"column:lowapptemp"`
	LowAppTempTime  time.Time `gorm:"column:lowapptemptime"`

	HighHourlyRain     float64   `gorm:"column:highhourlyrain"`
	HighHourlyRainTime time.Time `gorm:"column:highhourlyraintime"`

	LowWindChill     float64   `gorm:"column:lowwindchill"`
	LowWindChillTime time.Time `gorm:"column:lowwindchilltime"`

	HighDewPoint     float64   `gorm:"column:highdewpoint"`
	HighDewPointTime time.Time `gorm:"column:highdewpointtime"`
	LowDewPoint      float64   `gorm:"column:lowdewpoint"`
	LowDewPointTime  time.Time `gorm:"column:lowdewpointtime"`

	DominantWindBearing int     `gorm:"column:dominantwindbearing"`
	HeatingDegreeDays   float64 `gorm:"column:heatingdegreedays"`
	CoolingDegreeDays   float64 `gorm:"column:coolingdegreedays"`

	HighSolar     float64   `gorm:"column:highsolar"`
	HighSolarTime time.Time `gorm:"column:highsolartime"`
	HighUV        float64   `gorm:"column:highuv"`
	HighUVTime    time.Time `gorm:"column:highuvtime"`

	HighFeelsLike     float64   `gorm:"column:highfeelslike"`
	HighFeelsLikeTime time.Time `gorm:"column:highfeelsliketime"`
	LowFeelsLike      float64   `gorm:"column:lowfeelslike"`
	LowFeelsLikeTime  time.Time `gorm:"column:lowfeelsliketime"`

	HighHumidex     float64   `gorm:"column:highhumidex"`
	HighHumidexTime time.Time `gorm:"column:highhumidextime"`

	ChillHours float64 `gorm:"column:chillhours"`

	HighRain24h     float64   `gorm:"column:highrain24h"`
	HighRain24hTime time.Time `gorm:"column:highrain24htime"`
}

// TableName implements the GORM Tabler interface for the DayRecord struct
func (DayRecord) TableName() string {
	return "dayfile"
}

const dayRecordTimeLayout = "15:04"

func fmtVal(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func fmtTime(t time.Time) string {
	return t.Format(dayRecordTimeLayout)
}

// Row renders the record as the fixed, ordered field list consumed by
// downstream reporting.  Order is a contract; append-only.
func (d *DayRecord) Row() []string {
	return []string{
		d.Date.Format("02/01/06"),
		fmtVal(d.HighGust),
		fmt.Sprintf("%d", d.HighGustBearing),
		fmtTime(d.HighGustTime),
		fmtVal(d.LowTemp),
		fmtTime(d.LowTempTime),
		fmtVal(d.HighTemp),
		fmtTime(d.HighTempTime),
		fmtVal(d.LowPressure),
		fmtTime(d.LowPressureTime),
		fmtVal(d.HighPressure),
		fmtTime(d.HighPressureTime),
		fmtVal(d.HighRainRate),
		fmtTime(d.HighRainRateTime),
		fmtVal(d.TotalRain),
		fmtVal(d.AvgTemp),
		fmtVal(d.WindRun),
		fmtVal(d.HighAvgWind),
		fmtTime(d.HighAvgWindTime),
		fmt.Sprintf("%d", d.LowHumidity),
		fmtTime(d.LowHumidityTime),
		fmt.Sprintf("%d", d.HighHumidity),
		fmtTime(d.HighHumidityTime),
		fmtVal(d.ET),
		fmtVal(d.SunshineHours),
		fmtVal(d.HighHeatIndex),
		fmtTime(d.HighHeatIndexTime),
		fmtVal(d.HighAppTemp),
		fmtTime(d.HighAppTempTime),
		fmtVal(d.LowAppTemp),
		fmtTime(d.LowAppTempTime),
		fmtVal(d.HighHourlyRain),
		fmtTime(d.HighHourlyRainTime),
		fmtVal(d.LowWindChill),
		fmtTime(d.LowWindChillTime),
		fmtVal(d.HighDewPoint),
		fmtTime(d.HighDewPointTime),
		fmtVal(d.LowDewPoint),
		fmtTime(d.LowDewPointTime),
		fmt.Sprintf("%d", d.DominantWindBearing),
		fmtVal(d.HeatingDegreeDays),
		fmtVal(d.CoolingDegreeDays),
		fmtVal(d.HighSolar),
		fmtTime(d.HighSolarTime),
		fmtVal(d.HighUV),
		fmtTime(d.HighUVTime),
		fmtVal(d.HighFeelsLike),
		fmtTime(d.HighFeelsLikeTime),
		fmtVal(d.LowFeelsLike),
		fmtTime(d.LowFeelsLikeTime),
		fmtVal(d.HighHumidex),
		fmtTime(d.HighHumidexTime),
		fmtVal(d.ChillHours),
		fmtVal(d.HighRain24h),
		fmtTime(d.HighRain24hTime),
	}
}

// CSV renders the record as a single comma-separated line.
func (d *DayRecord) CSV() string {
	return strings.Join(d.Row(), ",")
}
