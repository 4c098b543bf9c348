package aggregator

import (
	"testing"

	"github.com/chrissnell/gwstationd/pkg/config"
)

func TestSpikeFilterDelta(t *testing.T) {
	f := NewSpikeFilter(config.SpikeData{TempDiff: 5}, nil)

	// First-ever reading is always accepted by the delta check
	if err := f.Check(QtyTemperature, 20); err != nil {
		t.Fatalf("first reading rejected: %v", err)
	}

	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"small rise", 23, false},
		{"small drop", 19, false},
		{"jump up", 30, true},
		{"jump down", 5, true},
		{"exactly at limit", 24, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.Check(QtyTemperature, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("Check(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestSpikeFilterBaselineUnchangedOnReject(t *testing.T) {
	f := NewSpikeFilter(config.SpikeData{TempDiff: 5}, nil)

	if err := f.Check(QtyTemperature, 20); err != nil {
		t.Fatalf("seed reading rejected: %v", err)
	}
	if err := f.Check(QtyTemperature, 50); err == nil {
		t.Fatal("spike accepted")
	}

	prev, ok := f.Previous(QtyTemperature)
	if !ok || prev != 20 {
		t.Errorf("baseline after reject = %v (ok=%v), want 20", prev, ok)
	}

	// A value near the retained baseline is accepted again
	if err := f.Check(QtyTemperature, 22); err != nil {
		t.Errorf("value near baseline rejected: %v", err)
	}
}

func TestSpikeFilterHardLimits(t *testing.T) {
	f := NewSpikeFilter(config.SpikeData{
		TempHigh:    60,
		TempLow:     -60,
		RainRateMax: 300,
		DewPointMax: 35,
	}, nil)

	tests := []struct {
		name    string
		q       Quantity
		value   float64
		wantErr bool
	}{
		{"temp in range", QtyTemperature, 25, false},
		{"temp above ceiling", QtyTemperature, 75, true},
		{"temp below floor", QtyTemperature, -80, true},
		{"humidity valid", QtyHumidity, 55, false},
		{"humidity over 100", QtyHumidity, 120, true},
		{"rain rate valid", QtyRainRate, 20, false},
		{"rain rate absurd", QtyRainRate, 999, true},
		{"dew point high", QtyDewPoint, 40, true},
		{"dew point very low is fine", QtyDewPoint, -40, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.Check(tt.q, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("Check(%v, %v) error = %v, wantErr %v", tt.q, tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestSpikeFilterZeroConfigDisablesChecks(t *testing.T) {
	f := NewSpikeFilter(config.SpikeData{}, nil)

	for _, v := range []float64{20, -50, 100, 3} {
		if err := f.Check(QtyTemperature, v); err != nil {
			t.Errorf("Check(%v) with zero config rejected: %v", v, err)
		}
	}
}
