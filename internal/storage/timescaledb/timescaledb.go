// Package timescaledb archives readings and day records into a
// TimescaleDB (PostgreSQL) database via GORM.  The readings table carries
// the common quantities as columns and the channelized sensors as a JSONB
// document, so new channel hardware never needs a migration.
package timescaledb

import (
	"fmt"
	"time"

	"github.com/chrissnell/gwstationd/internal/types"
	"github.com/jackc/pgtype"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Reading is one archived observation row.
type Reading struct {
	Time        time.Time `gorm:"column:time;index"`
	StationName string    `gorm:"column:stationname;index"`

	OutTemp      *float64 `gorm:"column:outtemp"`
	InTemp       *float64 `gorm:"column:intemp"`
	OutHumidity  *int     `gorm:"column:outhumidity"`
	InHumidity   *int     `gorm:"column:inhumidity"`
	Barometer    *float64 `gorm:"column:barometer"`
	Pressure     *float64 `gorm:"column:pressure"`
	WindSpeed    *float64 `gorm:"column:windspeed"`
	WindGust     *float64 `gorm:"column:windgust"`
	WindDir      *int     `gorm:"column:winddir"`
	RainRate     *float64 `gorm:"column:rainrate"`
	RainCounter  *float64 `gorm:"column:raincounter"`
	SolarWatts   *float64 `gorm:"column:solarwatts"`
	UV           *int     `gorm:"column:uv"`

	Extras pgtype.JSONB `gorm:"column:extras;type:jsonb"`
}

func (Reading) TableName() string {
	return "readings"
}

// Storage archives to TimescaleDB.  It satisfies the aggregator's
// DayfileWriter and is also fed every ingested record by the app.
type Storage struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// New connects and migrates the readings and dayfile tables.
func New(connString string, logger *zap.SugaredLogger) (*Storage, error) {
	db, err := gorm.Open(postgres.Open(connString), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to TimescaleDB: %w", err)
	}

	if err := db.AutoMigrate(&Reading{}, &types.DayRecord{}); err != nil {
		return nil, fmt.Errorf("migrating TimescaleDB schema: %w", err)
	}

	return &Storage{db: db, logger: logger}, nil
}

// WriteDayRecord upserts the day summary row keyed by date, so a rollover
// retried after a partial failure cannot duplicate the day.
func (s *Storage) WriteDayRecord(rec *types.DayRecord) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		UpdateAll: true,
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("writing day record for %s: %w", rec.Date.Format("2006-01-02"), err)
	}
	return nil
}

// StoreReading archives one observation.
func (s *Storage) StoreReading(station string, rec *types.InstantRecord) error {
	r := &Reading{
		Time:        rec.Timestamp,
		StationName: station,
		OutTemp:     rec.Temperature,
		InTemp:      rec.IndoorTemperature,
		OutHumidity: rec.Humidity,
		InHumidity:  rec.IndoorHumidity,
		Barometer:   rec.PressureRel,
		Pressure:    rec.PressureAbs,
		WindSpeed:   rec.WindSpeed,
		WindGust:    rec.WindGust,
		WindDir:     rec.WindBearing,
		RainRate:    rec.RainRate,
		RainCounter: rec.RainCounter,
		SolarWatts:  rec.SolarRadiation,
		UV:          rec.UVIndex,
	}

	if err := r.Extras.Set(extrasDocument(rec)); err != nil {
		return fmt.Errorf("encoding extras for reading at %s: %w", rec.Timestamp, err)
	}

	if err := s.db.Create(r).Error; err != nil {
		return fmt.Errorf("storing reading at %s: %w", rec.Timestamp, err)
	}
	return nil
}

// extrasDocument collects the channelized and air-quality fields that are
// present into a flat map for the JSONB column.  Absent fields produce no
// keys.
func extrasDocument(rec *types.InstantRecord) map[string]interface{} {
	doc := make(map[string]interface{})

	for i := 0; i < types.ExtraChannels; i++ {
		putFloat(doc, fmt.Sprintf("extratemp%d", i+1), rec.ExtraTemp[i])
		putInt(doc, fmt.Sprintf("extrahumidity%d", i+1), rec.ExtraHumidity[i])
	}
	for i := 0; i < types.SoilChannels; i++ {
		putFloat(doc, fmt.Sprintf("soiltemp%d", i+1), rec.SoilTemp[i])
		putInt(doc, fmt.Sprintf("soilmoisture%d", i+1), rec.SoilMoisture[i])
	}
	for i := 0; i < types.LeafChannels; i++ {
		putInt(doc, fmt.Sprintf("leafwetness%d", i+1), rec.LeafWetness[i])
	}
	for i := 0; i < types.UserChannels; i++ {
		putFloat(doc, fmt.Sprintf("usertemp%d", i+1), rec.UserTemp[i])
	}
	for i := 0; i < types.PM25Channels; i++ {
		putFloat(doc, fmt.Sprintf("pm25_%d", i+1), rec.PM25[i])
	}

	putFloat(doc, "pm25_combo", rec.PM25Combo)
	putFloat(doc, "pm10_combo", rec.PM10Combo)
	putInt(doc, "co2", rec.CO2)
	putInt(doc, "co2_avg24h", rec.CO2Avg24h)
	putFloat(doc, "co2_temp", rec.CO2Temp)
	putInt(doc, "co2_humidity", rec.CO2Hum)
	putFloat(doc, "lightning_distance", rec.LightningDistance)
	if rec.LightningStrikes != nil {
		doc["lightning_strikes"] = *rec.LightningStrikes
	}
	if rec.LightningTime != nil {
		doc["lightning_time"] = rec.LightningTime.Unix()
	}
	return doc
}

func putFloat(doc map[string]interface{}, key string, v *float64) {
	if v != nil {
		doc[key] = *v
	}
}

func putInt(doc map[string]interface{}, key string, v *int) {
	if v != nil {
		doc[key] = *v
	}
}
