// Package units provides stateless conversions between the station's native
// metric units (C, m/s, mm, hPa) and a configured display unit system.
package units

import (
	"fmt"

	units "github.com/bcicen/go-units"
)

// Wind speed units the library doesn't ship with
var (
	MetersPerSecond   = units.NewUnit("MetersPerSecond", "m/s")
	KilometersPerHour = units.NewUnit("KilometersPerHour", "km/h")
	MilesPerHour      = units.NewUnit("MilesPerHour", "mph")
	Knots             = units.NewUnit("Knots", "kt")
)

func init() {
	units.NewRatioConversion(MilesPerHour, MetersPerSecond, 0.44704)
	units.NewRatioConversion(KilometersPerHour, MetersPerSecond, 1.0/3.6)
	units.NewRatioConversion(Knots, MetersPerSecond, 0.514444)
}

// TempUnit selects the display unit for temperatures
type TempUnit int

const (
	TempCelsius TempUnit = iota
	TempFahrenheit
)

// WindUnit selects the display unit for wind speeds
type WindUnit int

const (
	WindMetersPerSecond WindUnit = iota
	WindKilometersPerHour
	WindMilesPerHour
	WindKnots
)

// RainUnit selects the display unit for rainfall
type RainUnit int

const (
	RainMillimeters RainUnit = iota
	RainInches
)

// PressureUnit selects the display unit for barometric pressure
type PressureUnit int

const (
	PressureHectopascals PressureUnit = iota
	PressureInchesMercury
	PressureKilopascals
)

// System is a configured set of display units.  The zero value is fully
// metric, matching the station's native units.
type System struct {
	Temp  TempUnit
	Wind  WindUnit
	Rain  RainUnit
	Press PressureUnit
}

// ParseSystem builds a System from config strings.  Empty strings select
// the metric default for that quantity.
func ParseSystem(temp, wind, rain, pressure string) (System, error) {
	s := System{}

	switch temp {
	case "", "c", "C":
		s.Temp = TempCelsius
	case "f", "F":
		s.Temp = TempFahrenheit
	default:
		return s, fmt.Errorf("unknown temperature unit %q", temp)
	}

	switch wind {
	case "", "ms", "m/s":
		s.Wind = WindMetersPerSecond
	case "kph", "km/h":
		s.Wind = WindKilometersPerHour
	case "mph":
		s.Wind = WindMilesPerHour
	case "kt", "knots":
		s.Wind = WindKnots
	default:
		return s, fmt.Errorf("unknown wind unit %q", wind)
	}

	switch rain {
	case "", "mm":
		s.Rain = RainMillimeters
	case "in":
		s.Rain = RainInches
	default:
		return s, fmt.Errorf("unknown rain unit %q", rain)
	}

	switch pressure {
	case "", "hpa", "hPa", "mb":
		s.Press = PressureHectopascals
	case "inhg", "inHg":
		s.Press = PressureInchesMercury
	case "kpa", "kPa":
		s.Press = PressureKilopascals
	default:
		return s, fmt.Errorf("unknown pressure unit %q", pressure)
	}

	return s, nil
}

// Temperature converts a native Celsius value to the display unit
func (s System) Temperature(c float64) float64 {
	if s.Temp == TempFahrenheit {
		return CToF(c)
	}
	return c
}

// TemperatureDelta converts a Celsius difference (a trend) to the display
// unit.  Unlike Temperature it carries no offset.
func (s System) TemperatureDelta(dc float64) float64 {
	if s.Temp == TempFahrenheit {
		return dc * 9 / 5
	}
	return dc
}

// WindSpeed converts a native m/s value to the display unit
func (s System) WindSpeed(ms float64) float64 {
	switch s.Wind {
	case WindKilometersPerHour:
		return ms * 3.6
	case WindMilesPerHour:
		return ms / 0.44704
	case WindKnots:
		return ms / 0.514444
	default:
		return ms
	}
}

// WindRun converts a native kilometer windrun distance to the distance
// unit paired with the configured wind speed unit.
func (s System) WindRun(km float64) float64 {
	switch s.Wind {
	case WindMilesPerHour:
		return km / 1.609344
	case WindKnots:
		return km / 1.852
	default:
		return km
	}
}

// Rainfall converts a native millimeter value to the display unit
func (s System) Rainfall(mm float64) float64 {
	if s.Rain == RainInches {
		return mm / 25.4
	}
	return mm
}

// Pressure converts a native hPa value to the display unit
func (s System) Pressure(hpa float64) float64 {
	switch s.Press {
	case PressureInchesMercury:
		return hpa / 33.8639
	case PressureKilopascals:
		return hpa / 10.0
	default:
		return hpa
	}
}

// Raw conversion helpers used on the decode side, where stations report in
// imperial units that must be normalized to metric before aggregation.

// CToF converts Celsius to Fahrenheit
func CToF(c float64) float64 { return c*9/5 + 32 }

// FToC converts Fahrenheit to Celsius
func FToC(f float64) float64 { return (f - 32) * 5 / 9 }

// MPHToMS converts miles per hour to meters per second
func MPHToMS(mph float64) float64 { return mph * 0.44704 }

// InToMM converts inches to millimeters
func InToMM(in float64) float64 { return in * 25.4 }

// InHgToHPa converts inches of mercury to hectopascals
func InHgToHPa(inhg float64) float64 { return inhg * 33.8639 }

// Convert converts v between arbitrary registered units.  Slower than the
// fixed-ratio helpers; used by the export paths where the unit pair is not
// known at compile time.
func Convert(v float64, from, to units.Unit) (float64, error) {
	val, err := units.NewValue(v, from).Convert(to)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %s to %s: %w", from.Name, to.Name, err)
	}
	return val.Float(), nil
}
