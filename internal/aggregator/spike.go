package aggregator

import (
	"fmt"

	"github.com/chrissnell/gwstationd/pkg/config"
	"go.uber.org/zap"
)

// Quantity identifies a tracked physical quantity.  Comparisons in the
// spike filter are always performed in the station's native metric units,
// so thresholds are independent of the display unit system.
type Quantity int

const (
	QtyTemperature Quantity = iota
	QtyHumidity
	QtyPressure
	QtyWindSpeed
	QtyWindGust
	QtyRainRate
	QtyRainHour
	QtyRain24h
	QtyDewPoint
	qtyCount
)

func (q Quantity) String() string {
	switch q {
	case QtyTemperature:
		return "temperature"
	case QtyHumidity:
		return "humidity"
	case QtyPressure:
		return "pressure"
	case QtyWindSpeed:
		return "wind speed"
	case QtyWindGust:
		return "wind gust"
	case QtyRainRate:
		return "rain rate"
	case QtyRainHour:
		return "hourly rain"
	case QtyRain24h:
		return "rain 24h"
	case QtyDewPoint:
		return "dew point"
	default:
		return "unknown"
	}
}

// SpikeFilter accepts or rejects incoming values based on the configured
// maximum delta from the previous accepted value and absolute hard limits.
// A rejected sample is discarded entirely; the previous value is retained.
type SpikeFilter struct {
	cfg    config.SpikeData
	logger *zap.SugaredLogger

	prev    [qtyCount]float64
	hasPrev [qtyCount]bool
}

// NewSpikeFilter creates a spike filter with the given thresholds.  A zero
// threshold disables that particular check.
func NewSpikeFilter(cfg config.SpikeData, logger *zap.SugaredLogger) *SpikeFilter {
	return &SpikeFilter{
		cfg:    cfg,
		logger: logger,
	}
}

// Check validates a new value for a quantity.  On acceptance the value
// becomes the new "previous" baseline and nil is returned; on rejection an
// error describing the reason is returned and the baseline is unchanged.
// The first-ever reading for a quantity is always accepted by the delta
// check (absolute limits still apply).
func (f *SpikeFilter) Check(q Quantity, v float64) error {
	if err := f.checkLimits(q, v); err != nil {
		f.logSpike(q, v, err)
		return err
	}

	if maxDelta := f.maxDelta(q); maxDelta > 0 && f.hasPrev[q] {
		delta := v - f.prev[q]
		if delta < 0 {
			delta = -delta
		}
		if delta > maxDelta {
			err := fmt.Errorf("%s delta %.2f exceeds spike limit %.2f (previous %.2f, new %.2f)",
				q, delta, maxDelta, f.prev[q], v)
			f.logSpike(q, v, err)
			return err
		}
	}

	f.prev[q] = v
	f.hasPrev[q] = true
	return nil
}

// Previous returns the current baseline for a quantity and whether one has
// been established yet.
func (f *SpikeFilter) Previous(q Quantity) (float64, bool) {
	return f.prev[q], f.hasPrev[q]
}

func (f *SpikeFilter) logSpike(q Quantity, v float64, err error) {
	spikesRejected.WithLabelValues(q.String()).Inc()
	if f.logger != nil {
		f.logger.Warnf("SPIKE: rejecting %s value %.2f: %v", q, v, err)
	}
}

func (f *SpikeFilter) maxDelta(q Quantity) float64 {
	switch q {
	case QtyTemperature:
		return f.cfg.TempDiff
	case QtyHumidity:
		return f.cfg.HumidityDiff
	case QtyPressure:
		return f.cfg.PressureDiff
	case QtyWindSpeed:
		return f.cfg.WindDiff
	case QtyWindGust:
		return f.cfg.GustDiff
	default:
		return 0
	}
}

func (f *SpikeFilter) checkLimits(q Quantity, v float64) error {
	switch q {
	case QtyTemperature:
		if f.cfg.TempHigh != 0 && v > f.cfg.TempHigh {
			return fmt.Errorf("temperature %.1f above hard limit %.1f", v, f.cfg.TempHigh)
		}
		if f.cfg.TempLow != 0 && v < f.cfg.TempLow {
			return fmt.Errorf("temperature %.1f below hard limit %.1f", v, f.cfg.TempLow)
		}
	case QtyHumidity:
		if v < 0 || v > 100 {
			return fmt.Errorf("humidity %.0f outside [0, 100]", v)
		}
	case QtyPressure:
		if f.cfg.PressureHigh != 0 && v > f.cfg.PressureHigh {
			return fmt.Errorf("pressure %.1f above hard limit %.1f", v, f.cfg.PressureHigh)
		}
		if f.cfg.PressureLow != 0 && v < f.cfg.PressureLow {
			return fmt.Errorf("pressure %.1f below hard limit %.1f", v, f.cfg.PressureLow)
		}
	case QtyWindSpeed, QtyWindGust:
		if f.cfg.WindHigh != 0 && v > f.cfg.WindHigh {
			return fmt.Errorf("wind %.1f above hard limit %.1f", v, f.cfg.WindHigh)
		}
	case QtyRainRate:
		if f.cfg.RainRateMax != 0 && v > f.cfg.RainRateMax {
			return fmt.Errorf("rain rate %.1f above hard limit %.1f", v, f.cfg.RainRateMax)
		}
	case QtyRainHour:
		if f.cfg.RainHourMax != 0 && v > f.cfg.RainHourMax {
			return fmt.Errorf("hourly rain %.1f above hard limit %.1f", v, f.cfg.RainHourMax)
		}
	case QtyRain24h:
		if f.cfg.Rain24hMax != 0 && v > f.cfg.Rain24hMax {
			return fmt.Errorf("24h rain %.1f above hard limit %.1f", v, f.cfg.Rain24hMax)
		}
	case QtyDewPoint:
		// One-sided: dew point only has a high limit
		if f.cfg.DewPointMax != 0 && v > f.cfg.DewPointMax {
			return fmt.Errorf("dew point %.1f above hard limit %.1f", v, f.cfg.DewPointMax)
		}
	}
	return nil
}
