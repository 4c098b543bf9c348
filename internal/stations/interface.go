// Package stations defines the contract between station drivers and the
// aggregation engine.  A driver owns its transport (TCP polling or cloud
// HTTP) and delivers decoded records to a RecordSink; it performs no
// aggregation itself.
package stations

import (
	"time"

	"github.com/chrissnell/gwstationd/internal/types"
)

// WeatherStation is the interface every station driver implements.
type WeatherStation interface {
	StartWeatherStation() error
	StopWeatherStation() error
	StationName() string
}

// RecordSink receives decoded instant records.  Implementations serialize
// Ingest internally, so concurrent drivers may share one sink.
type RecordSink interface {
	Ingest(rec *types.InstantRecord)
	LastIngest() time.Time
}
