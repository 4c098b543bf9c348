package units

import (
	"testing"
	"time"

	"github.com/chrissnell/gwstationd/internal/types"
)

func TestConvertSnapshotImperial(t *testing.T) {
	sys := System{
		Temp:  TempFahrenheit,
		Wind:  WindMilesPerHour,
		Rain:  RainInches,
		Press: PressureInchesMercury,
	}

	when := time.Date(2026, 7, 15, 14, 0, 0, 0, time.UTC)
	snap := types.StationSnapshot{
		Temperature:  20,
		TempTrend:    -1.5,
		Pressure:     1013.25,
		WindSpeed:    4.4704,
		WindRunToday: 16.09344,
		RainToday:    25.4,
		Today: types.ScopeSnapshot{
			HighTemp: types.ExtremeSnapshot{Value: 25, Time: when},
		},
	}

	sys.ConvertSnapshot(&snap)

	if !almostEqual(snap.Temperature, 68, 0.001) {
		t.Errorf("temperature = %f, want 68", snap.Temperature)
	}
	// Trend is a difference: scaled, not offset
	if !almostEqual(snap.TempTrend, -2.7, 0.001) {
		t.Errorf("temp trend = %f, want -2.7", snap.TempTrend)
	}
	if !almostEqual(snap.Pressure, 29.92, 0.005) {
		t.Errorf("pressure = %f, want about 29.92", snap.Pressure)
	}
	if !almostEqual(snap.WindSpeed, 10, 0.001) {
		t.Errorf("wind speed = %f, want 10", snap.WindSpeed)
	}
	if !almostEqual(snap.WindRunToday, 10, 0.001) {
		t.Errorf("windrun = %f, want 10", snap.WindRunToday)
	}
	if !almostEqual(snap.RainToday, 1, 0.001) {
		t.Errorf("rain today = %f, want 1", snap.RainToday)
	}

	if !almostEqual(snap.Today.HighTemp.Value, 77, 0.001) {
		t.Errorf("today high temp = %f, want 77", snap.Today.HighTemp.Value)
	}
	// Never-set records stay at zero instead of reading as 32 F
	if snap.Today.LowTemp.Value != 0 {
		t.Errorf("unset record converted: %f", snap.Today.LowTemp.Value)
	}
}

func TestConvertSnapshotMetricNoOp(t *testing.T) {
	snap := types.StationSnapshot{Temperature: 21.5, Pressure: 1009}
	(System{}).ConvertSnapshot(&snap)
	if snap.Temperature != 21.5 || snap.Pressure != 1009 {
		t.Errorf("metric system changed values: %f / %f", snap.Temperature, snap.Pressure)
	}
}
