package aggregator

import (
	"math"

	"github.com/chrissnell/gwstationd/internal/units"
)

// Meteorological derivations.  All functions take and return the station's
// native metric units: degrees C, m/s, hPa, percent relative humidity.
//
// Evaluation order matters: dew point depends on temperature and humidity,
// and most of the rest depend on dew point, so the engine computes them in
// dependency order each cycle.

// saturationVaporPressure returns the Magnus saturation vapor pressure in
// hPa for a temperature in C.
func saturationVaporPressure(tC float64) float64 {
	return 6.112 * math.Exp(17.62*tC/(243.12+tC))
}

// DewPoint computes the dew point in C from temperature and relative
// humidity using the Magnus approximation.
func DewPoint(tC, rh float64) float64 {
	if rh <= 0 {
		rh = 0.001
	}
	gamma := math.Log(rh/100) + 17.62*tC/(243.12+tC)
	return 243.12 * gamma / (17.62 - gamma)
}

// WindChill computes the JAG/TI wind chill in C.  Below 1.5 m/s or above
// 10 C wind chill collapses to the air temperature.
func WindChill(tC, windMS float64) float64 {
	if tC >= 10 || windMS < 1.5 {
		return tC
	}
	v := math.Pow(windMS*3.6, 0.16)
	return 13.12 + 0.6215*tC - 11.37*v + 0.3965*tC*v
}

// HeatIndex computes the NWS Rothfusz heat index in C.  Only meaningful
// when both temperature and humidity are present; below 26.7 C (80 F) the
// air temperature is returned unchanged.
func HeatIndex(tC, rh float64) float64 {
	tF := units.CToF(tC)
	if tF < 80 {
		return tC
	}

	hi := -42.379 + 2.04901523*tF + 10.14333127*rh - 0.22475541*tF*rh -
		0.00683783*tF*tF - 0.05481717*rh*rh + 0.00122874*tF*tF*rh +
		0.00085282*tF*rh*rh - 0.00000199*tF*tF*rh*rh

	if rh < 13 && tF >= 80 && tF <= 112 {
		hi -= ((13 - rh) / 4) * math.Sqrt((17-math.Abs(tF-95.0))/17)
	} else if rh > 80 && tF >= 80 && tF <= 87 {
		hi += ((rh - 85.0) / 10) * ((87.0 - tF) / 5)
	}

	if hi < tF {
		return tC
	}
	return units.FToC(hi)
}

// CloudBase estimates the lifting condensation level in meters from the
// temperature/dew-point spread, floored at zero.
func CloudBase(tC, dewPointC float64) float64 {
	base := (tC - dewPointC) * 125.0
	if base < 0 {
		return 0
	}
	return base
}

// ApparentTemperature computes Steadman's apparent temperature in C from
// temperature, wind speed and humidity.
func ApparentTemperature(tC, windMS, rh float64) float64 {
	e := rh / 100 * saturationVaporPressure(tC)
	return tC + 0.33*e - 0.70*windMS - 4.00
}

// THWIndex computes the temperature-humidity-wind index in C as the heat
// index discounted by wind, the Davis formulation.
func THWIndex(tC, windMS, rh float64) float64 {
	hiF := units.CToF(HeatIndex(tC, rh))
	windMPH := windMS / 0.44704
	return units.FToC(hiF - 1.072*windMPH)
}

// FeelsLike computes the feels-like temperature in C: wind chill below
// 10 C, apparent temperature above 20 C, and a linear blend between.  This
// is a distinct quantity from ApparentTemperature and both are tracked.
func FeelsLike(tC, windMS, rh float64) float64 {
	if tC < 10 {
		return WindChill(tC, windMS)
	}
	app := ApparentTemperature(tC, windMS, rh)
	if tC > 20 {
		if app < tC {
			return tC
		}
		return app
	}

	// Blend across the 10-20 C band using the raw JAG/TI formula, which
	// the capped WindChill would refuse to evaluate here.
	chill := tC
	if windMS >= 1.5 {
		v := math.Pow(windMS*3.6, 0.16)
		chill = 13.12 + 0.6215*tC - 11.37*v + 0.3965*tC*v
	}
	frac := (tC - 10) / 10
	return chill*(1-frac) + app*frac
}

// Humidex computes Environment Canada's humidex in C.
func Humidex(tC, rh float64) float64 {
	dp := DewPoint(tC, rh)
	e := 6.112 * math.Pow(10, 7.5*dp/(237.7+dp))
	return tC + 0.5555*(e-10.0)
}

// WetBulb computes the wet-bulb temperature in C using the Stull
// approximation, valid for ordinary surface conditions.
func WetBulb(tC, rh float64) float64 {
	return tC*math.Atan(0.151977*math.Sqrt(rh+8.313659)) +
		math.Atan(tC+rh) - math.Atan(rh-1.676331) +
		0.00391838*math.Pow(rh, 1.5)*math.Atan(0.023101*rh) -
		4.686035
}

// HumidityFromWetBulb back-solves relative humidity (percent) and dew point
// (C) from a station-supplied wet-bulb temperature, the dry temperature and
// the pressure, using the psychrometric equation.
func HumidityFromWetBulb(tC, wetBulbC, pressureHPa float64) (rh float64, dewPoint float64) {
	esw := saturationVaporPressure(wetBulbC)
	e := esw - 0.00066*(1+0.00115*wetBulbC)*pressureHPa*(tC-wetBulbC)
	if e < 0.01 {
		e = 0.01
	}
	rh = 100 * e / saturationVaporPressure(tC)
	if rh > 100 {
		rh = 100
	}
	if rh < 0 {
		rh = 0
	}

	ln := math.Log(e / 6.112)
	dewPoint = 243.12 * ln / (17.62 - ln)
	return rh, dewPoint
}

// DerivedFlags selects which derived quantities are computed locally rather
// than passed through from station-supplied values.
type DerivedFlags struct {
	CalculatedDewPoint  bool
	CalculatedWindChill bool
	SolveFromWetBulb    bool
}

// DerivedInput is the primary state a derivation cycle reads.
type DerivedInput struct {
	Temperature float64
	Humidity    float64
	WindSpeed   float64
	Pressure    float64

	// Station-supplied values used when the corresponding calculated flag
	// is off.  Nil means the station did not report one.
	StationDewPoint  *float64
	StationWindChill *float64
	StationWetBulb   *float64
}

// DerivedOutput carries one cycle's derived quantities.
type DerivedOutput struct {
	Humidity  float64 // may be rewritten by the wet-bulb back-solve
	DewPoint  float64
	WindChill float64
	HeatIndex float64
	CloudBase float64
	AppTemp   float64
	THW       float64
	FeelsLike float64
	Humidex   float64
	WetBulb   float64
}

// ComputeDerived evaluates every derived quantity in dependency order:
// temperature and humidity first, then dew point, then everything that
// reads dew point.
func ComputeDerived(in DerivedInput, flags DerivedFlags) DerivedOutput {
	out := DerivedOutput{Humidity: in.Humidity}

	// Wet-bulb-first stations: recover humidity and dew point before
	// anything downstream reads them.
	if flags.SolveFromWetBulb && in.StationWetBulb != nil {
		out.WetBulb = *in.StationWetBulb
		out.Humidity, out.DewPoint = HumidityFromWetBulb(in.Temperature, out.WetBulb, in.Pressure)
	} else {
		if !flags.CalculatedDewPoint && in.StationDewPoint != nil {
			out.DewPoint = *in.StationDewPoint
		} else {
			out.DewPoint = DewPoint(in.Temperature, out.Humidity)
		}
		out.WetBulb = WetBulb(in.Temperature, out.Humidity)
	}

	if !flags.CalculatedWindChill && in.StationWindChill != nil {
		out.WindChill = *in.StationWindChill
	} else {
		out.WindChill = WindChill(in.Temperature, in.WindSpeed)
	}

	out.HeatIndex = HeatIndex(in.Temperature, out.Humidity)
	out.CloudBase = CloudBase(in.Temperature, out.DewPoint)
	out.AppTemp = ApparentTemperature(in.Temperature, in.WindSpeed, out.Humidity)
	out.THW = THWIndex(in.Temperature, in.WindSpeed, out.Humidity)
	out.FeelsLike = FeelsLike(in.Temperature, in.WindSpeed, out.Humidity)
	out.Humidex = Humidex(in.Temperature, out.Humidity)

	return out
}
