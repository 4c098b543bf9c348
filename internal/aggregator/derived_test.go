package aggregator

import (
	"math"
	"testing"
)

func near(t *testing.T, got, want, tol float64, label string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v (tolerance %v)", label, got, want, tol)
	}
}

func TestDewPoint(t *testing.T) {
	// Saturated air: dew point equals temperature
	near(t, DewPoint(20, 100), 20, 0.05, "DewPoint(20, 100)")
	// Magnus reference point
	near(t, DewPoint(20, 50), 9.3, 0.3, "DewPoint(20, 50)")
	// Dew point never exceeds temperature
	if dp := DewPoint(30, 40); dp >= 30 {
		t.Errorf("DewPoint(30, 40) = %v, not below temperature", dp)
	}
}

func TestWindChill(t *testing.T) {
	// Collapses to air temperature in light wind or mild air
	if wc := WindChill(5, 1.0); wc != 5 {
		t.Errorf("WindChill(5, 1.0) = %v, want 5", wc)
	}
	if wc := WindChill(15, 10); wc != 15 {
		t.Errorf("WindChill(15, 10) = %v, want 15", wc)
	}
	// JAG/TI reference: -10 C at 5 m/s is around -17.5
	near(t, WindChill(-10, 5), -17.5, 0.5, "WindChill(-10, 5)")
	// Stronger wind means colder
	if WindChill(-10, 10) >= WindChill(-10, 5) {
		t.Error("wind chill did not decrease with wind speed")
	}
}

func TestHeatIndex(t *testing.T) {
	// Below the 26.7 C threshold the air temperature passes through
	if hi := HeatIndex(20, 50); hi != 20 {
		t.Errorf("HeatIndex(20, 50) = %v, want 20", hi)
	}
	// Hot and humid is well above the air temperature
	hi := HeatIndex(35, 70)
	if hi < 40 {
		t.Errorf("HeatIndex(35, 70) = %v, expected well above 40", hi)
	}
	// More humidity means a higher index
	if HeatIndex(35, 80) <= HeatIndex(35, 50) {
		t.Error("heat index did not increase with humidity")
	}
}

func TestCloudBase(t *testing.T) {
	near(t, CloudBase(20, 10), 1250, 0.01, "CloudBase(20, 10)")
	if cb := CloudBase(10, 15); cb != 0 {
		t.Errorf("CloudBase floored at zero, got %v", cb)
	}
}

func TestWetBulb(t *testing.T) {
	// Stull reference: 20 C at 50% RH is about 13.7 C
	near(t, WetBulb(20, 50), 13.7, 0.4, "WetBulb(20, 50)")
	// Saturated wet bulb approaches the dry temperature
	near(t, WetBulb(25, 100), 25, 0.6, "WetBulb(25, 100)")
}

func TestHumidex(t *testing.T) {
	// Environment Canada reference: 30 C at 70% RH is about 41
	near(t, Humidex(30, 70), 41, 1.0, "Humidex(30, 70)")
}

func TestHumidityFromWetBulb(t *testing.T) {
	// Round trip: derive wet bulb from known conditions, then back-solve
	tC, rh := 22.0, 60.0
	wb := WetBulb(tC, rh)
	gotRH, gotDP := HumidityFromWetBulb(tC, wb, 1013.0)
	near(t, gotRH, rh, 3.0, "recovered humidity")
	near(t, gotDP, DewPoint(tC, rh), 1.0, "recovered dew point")
}

func TestFeelsLikeRegimes(t *testing.T) {
	// Cold regime follows wind chill
	near(t, FeelsLike(-5, 8, 70), WindChill(-5, 8), 0.01, "cold feels-like")
	// Warm regime follows apparent temperature when it exceeds the air temp
	warm := FeelsLike(30, 1, 80)
	near(t, warm, ApparentTemperature(30, 1, 80), 0.01, "warm feels-like")
	// Transition band stays between the regimes it blends
	mid := FeelsLike(15, 3, 50)
	if mid < -10 || mid > 25 {
		t.Errorf("blended feels-like out of plausible range: %v", mid)
	}
}

func TestComputeDerivedStationPassthrough(t *testing.T) {
	stationDP := 12.5
	in := DerivedInput{
		Temperature:     20,
		Humidity:        65,
		WindSpeed:       3,
		Pressure:        1013,
		StationDewPoint: &stationDP,
	}

	// Calculated flag off: the station value is trusted
	out := ComputeDerived(in, DerivedFlags{})
	if out.DewPoint != stationDP {
		t.Errorf("station dew point not passed through: got %v", out.DewPoint)
	}

	// Calculated flag on: the station value is ignored
	out = ComputeDerived(in, DerivedFlags{CalculatedDewPoint: true})
	near(t, out.DewPoint, DewPoint(20, 65), 0.01, "calculated dew point")
}

func TestComputeDerivedWetBulbFirst(t *testing.T) {
	wb := WetBulb(22, 60)
	in := DerivedInput{
		Temperature:    22,
		Humidity:       0, // station reports no humidity
		Pressure:       1010,
		StationWetBulb: &wb,
	}

	out := ComputeDerived(in, DerivedFlags{SolveFromWetBulb: true})
	near(t, out.Humidity, 60, 3.5, "back-solved humidity")
	if out.WetBulb != wb {
		t.Errorf("wet bulb not carried through: got %v", out.WetBulb)
	}
}
