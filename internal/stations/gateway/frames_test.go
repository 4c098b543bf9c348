package gateway

import (
	"testing"
	"time"
)

// buildPayload assembles a synthetic live-data payload from tag/value runs.
func buildPayload(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestParseFrameRoundTrip(t *testing.T) {
	payload := buildPayload(
		[]byte{itemOutdoorTemp, 0x00, 0xEA}, // 23.4 C
		[]byte{itemOutdoorHumi, 56},
	)
	raw := BuildFrame(CmdLiveData, payload)

	frame, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if frame.Cmd != CmdLiveData {
		t.Errorf("cmd = 0x%02X, want 0x%02X", frame.Cmd, CmdLiveData)
	}
	if !frame.ChecksumOK() {
		t.Errorf("checksum mismatch: stored 0x%02X computed 0x%02X",
			frame.StoredChecksum, frame.ComputedChecksum)
	}
	if len(frame.Payload) != len(payload) {
		t.Errorf("payload length = %d, want %d", len(frame.Payload), len(payload))
	}
}

func TestParseFrameMalformed(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"too short", []byte{0xFF, 0xFF, 0x27}},
		{"bad header", []byte{0x00, 0xFF, 0x27, 0x00, 0x04, 0x2B}},
		{"size exceeds buffer", []byte{0xFF, 0xFF, 0x27, 0x00, 0x20, 0x01, 0x02}},
		{"size below minimum", []byte{0xFF, 0xFF, 0x27, 0x00, 0x02, 0x00, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFrame(tt.buf); err == nil {
				t.Error("malformed frame accepted")
			}
		})
	}
}

func TestDecodeLiveFrame(t *testing.T) {
	payload := buildPayload(
		[]byte{itemIndoorTemp, 0x00, 0xDC},                   // 22.0 C
		[]byte{itemOutdoorTemp, 0xFF, 0x9C},                  // -10.0 C, signed
		[]byte{itemOutdoorHumi, 78},                          //
		[]byte{itemRelPressure, 0x27, 0x6B},                  // 1009.1 hPa
		[]byte{itemWindDir, 0x00, 0xB4},                      // 180 deg
		[]byte{itemWindSpeed, 0x00, 0x23},                    // 3.5 m/s
		[]byte{itemWindGust, 0x00, 0x51},                     // 8.1 m/s
		[]byte{itemRainRate, 0x00, 0x19},                     // 2.5 mm/h
		[]byte{itemRainYear, 0x00, 0x00, 0x12, 0xA9},         // 477.7 mm
		[]byte{itemRainTotals, 0x00, 0x00, 0x30, 0x39},       // 1234.5 mm
		[]byte{itemUVI, 4},                                   //
		[]byte{itemTempChBase + 2, 0x00, 0x96},               // extra ch3: 15.0 C
		[]byte{itemHumiChBase + 2, 61},                       // extra ch3 humidity
		[]byte{itemLightningDist, 12},                        //
		[]byte{itemLightningNum, 0x00, 0x00, 0x00, 0x07},     //
	)
	raw := BuildFrame(CmdLiveData, payload)

	d := &LiveDecoder{}
	rec, warns, err := d.DecodeBuffer(raw)
	if err != nil {
		t.Fatalf("DecodeBuffer: %v", err)
	}
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}

	checkFloat := func(name string, got *float64, want float64) {
		t.Helper()
		if got == nil {
			t.Errorf("%s absent, want %v", name, want)
			return
		}
		if *got != want {
			t.Errorf("%s = %v, want %v", name, *got, want)
		}
	}
	checkInt := func(name string, got *int, want int) {
		t.Helper()
		if got == nil {
			t.Errorf("%s absent, want %v", name, want)
			return
		}
		if *got != want {
			t.Errorf("%s = %v, want %v", name, *got, want)
		}
	}

	checkFloat("indoor temp", rec.IndoorTemperature, 22.0)
	checkFloat("outdoor temp", rec.Temperature, -10.0)
	checkInt("humidity", rec.Humidity, 78)
	checkFloat("pressure", rec.PressureRel, 1009.1)
	checkInt("bearing", rec.WindBearing, 180)
	checkFloat("wind speed", rec.WindSpeed, 3.5)
	checkFloat("gust", rec.WindGust, 8.1)
	checkFloat("rain rate", rec.RainRate, 2.5)
	checkFloat("rain year", rec.RainYear, 477.7)
	checkFloat("rain counter", rec.RainCounter, 1234.5)
	checkInt("uv index", rec.UVIndex, 4)
	checkFloat("extra temp ch3", rec.ExtraTemp[2], 15.0)
	checkInt("extra humidity ch3", rec.ExtraHumidity[2], 61)
	checkFloat("lightning distance", rec.LightningDistance, 12)
	checkInt("lightning strikes", rec.LightningStrikes, 7)
}

func TestDecodeUserTempFirmwareWidths(t *testing.T) {
	// Pre-1.6.0: two-byte values back to back
	oldPayload := buildPayload(
		[]byte{itemUserTempBase, 0x00, 0xFA},     // ch1: 25.0
		[]byte{itemUserTempBase + 1, 0xFF, 0xCE}, // ch2: -5.0
	)
	d := &LiveDecoder{Firmware: Version{1, 5, 9}}
	rec, warns := d.DecodePayload(oldPayload)
	if len(warns) != 0 {
		t.Fatalf("old layout warnings: %v", warns)
	}
	if rec.UserTemp[0] == nil || *rec.UserTemp[0] != 25.0 {
		t.Errorf("old layout ch1 = %v, want 25.0", rec.UserTemp[0])
	}
	if rec.UserTemp[1] == nil || *rec.UserTemp[1] != -5.0 {
		t.Errorf("old layout ch2 = %v, want -5.0", rec.UserTemp[1])
	}

	// 1.6.0 and later: a trailing battery byte follows each value.  The
	// same byte stream decoded with the old width would misalign.
	newPayload := buildPayload(
		[]byte{itemUserTempBase, 0x00, 0xFA, 0x04},
		[]byte{itemUserTempBase + 1, 0xFF, 0xCE, 0x05},
	)
	d = &LiveDecoder{Firmware: Version{1, 6, 0}}
	rec, warns = d.DecodePayload(newPayload)
	if len(warns) != 0 {
		t.Fatalf("new layout warnings: %v", warns)
	}
	if rec.UserTemp[0] == nil || *rec.UserTemp[0] != 25.0 {
		t.Errorf("new layout ch1 = %v, want 25.0", rec.UserTemp[0])
	}
	if rec.UserTemp[1] == nil || *rec.UserTemp[1] != -5.0 {
		t.Errorf("new layout ch2 = %v, want -5.0", rec.UserTemp[1])
	}
}

func TestDecodeSoilChannelArithmetic(t *testing.T) {
	payload := buildPayload(
		[]byte{itemSoilBase, 0x00, 0x78},     // soil temp ch1: 12.0
		[]byte{itemSoilBase + 1, 45},         // soil moisture ch1
		[]byte{itemSoilBase + 6, 0x00, 0x5A}, // soil temp ch4: 9.0
		[]byte{itemSoilBase + 7, 52},         // soil moisture ch4
	)
	d := &LiveDecoder{}
	rec, warns := d.DecodePayload(payload)
	if len(warns) != 0 {
		t.Fatalf("warnings: %v", warns)
	}

	if rec.SoilTemp[0] == nil || *rec.SoilTemp[0] != 12.0 {
		t.Errorf("soil temp ch1 = %v, want 12.0", rec.SoilTemp[0])
	}
	if rec.SoilMoisture[0] == nil || *rec.SoilMoisture[0] != 45 {
		t.Errorf("soil moisture ch1 = %v, want 45", rec.SoilMoisture[0])
	}
	if rec.SoilTemp[3] == nil || *rec.SoilTemp[3] != 9.0 {
		t.Errorf("soil temp ch4 = %v, want 9.0", rec.SoilTemp[3])
	}
	if rec.SoilMoisture[3] == nil || *rec.SoilMoisture[3] != 52 {
		t.Errorf("soil moisture ch4 = %v, want 52", rec.SoilMoisture[3])
	}
}

func TestDecodeSentinels(t *testing.T) {
	payload := buildPayload(
		[]byte{itemOutdoorHumi, 110},                         // impossible humidity
		[]byte{itemLightningDist, 0xFF},                      // no strike yet
		[]byte{itemLightningTime, 0xFF, 0xFF, 0xFF, 0xFF},    // never
		[]byte{itemOutdoorTemp, 0x00, 0xC8},                  // a real value after the sentinels
	)
	d := &LiveDecoder{}
	rec, warns := d.DecodePayload(payload)
	if len(warns) != 0 {
		t.Fatalf("warnings: %v", warns)
	}

	if rec.Humidity != nil {
		t.Errorf("impossible humidity passed through: %v", *rec.Humidity)
	}
	if rec.LightningDistance != nil {
		t.Errorf("lightning distance sentinel passed through: %v", *rec.LightningDistance)
	}
	if rec.LightningTime != nil {
		t.Errorf("lightning time sentinel passed through: %v", *rec.LightningTime)
	}
	if rec.Temperature == nil || *rec.Temperature != 20.0 {
		t.Errorf("value after sentinels lost: %v", rec.Temperature)
	}
}

func TestDecodeUnknownTagAbandonsRemainder(t *testing.T) {
	payload := buildPayload(
		[]byte{itemOutdoorTemp, 0x00, 0xC8}, // 20.0, decoded
		[]byte{0xF0},                        // unknown tag
		[]byte{itemOutdoorHumi, 50},         // never reached
	)
	d := &LiveDecoder{}
	rec, warns := d.DecodePayload(payload)

	if rec.Temperature == nil || *rec.Temperature != 20.0 {
		t.Errorf("field before unknown tag lost: %v", rec.Temperature)
	}
	if rec.Humidity != nil {
		t.Error("field after unknown tag decoded from abandoned bytes")
	}
	if len(warns) != 1 || warns[0].Tag != 0xF0 {
		t.Errorf("warnings = %v, want one for tag 0xF0", warns)
	}
}

func TestDecodeTruncatedValue(t *testing.T) {
	payload := buildPayload(
		[]byte{itemOutdoorTemp, 0x00, 0xC8},
		[]byte{itemRelPressure, 0x27}, // one byte short
	)
	d := &LiveDecoder{}
	rec, warns := d.DecodePayload(payload)

	if rec.Temperature == nil {
		t.Error("field before truncation lost")
	}
	if rec.PressureRel != nil {
		t.Error("truncated value decoded")
	}
	if len(warns) != 1 {
		t.Errorf("warnings = %v, want one truncation warning", warns)
	}
}

func TestDecodePiezoRainGating(t *testing.T) {
	payload := buildPayload(
		[]byte{itemRainRate, 0x00, 0x0A},               // tipper 1.0 mm/h
		[]byte{itemPiezoRate, 0x00, 0x28},              // piezo 4.0 mm/h
		[]byte{itemRainYear, 0x00, 0x00, 0x03, 0xE8},   // tipper 100.0 mm
		[]byte{itemPiezoYear, 0x00, 0x00, 0x07, 0xD0},  // piezo 200.0 mm
	)

	tipper := &LiveDecoder{}
	rec, _ := tipper.DecodePayload(payload)
	if rec.RainRate == nil || *rec.RainRate != 1.0 {
		t.Errorf("tipper rain rate = %v, want 1.0", rec.RainRate)
	}
	if rec.RainYear == nil || *rec.RainYear != 100.0 {
		t.Errorf("tipper rain year = %v, want 100.0", rec.RainYear)
	}

	piezo := &LiveDecoder{PiezoPrimary: true}
	rec, _ = piezo.DecodePayload(payload)
	if rec.RainRate == nil || *rec.RainRate != 4.0 {
		t.Errorf("piezo rain rate = %v, want 4.0", rec.RainRate)
	}
	if rec.RainYear == nil || *rec.RainYear != 200.0 {
		t.Errorf("piezo rain year = %v, want 200.0", rec.RainYear)
	}
}

func TestDecodeLightningTime(t *testing.T) {
	when := time.Date(2026, 7, 15, 18, 30, 0, 0, time.UTC)
	secs := uint32(when.Unix())
	payload := buildPayload(
		[]byte{itemLightningTime, byte(secs >> 24), byte(secs >> 16), byte(secs >> 8), byte(secs)},
	)
	d := &LiveDecoder{}
	rec, _ := d.DecodePayload(payload)
	if rec.LightningTime == nil || !rec.LightningTime.Equal(when) {
		t.Errorf("lightning time = %v, want %v", rec.LightningTime, when)
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		banner  string
		want    Version
		wantErr bool
	}{
		{"GW1000B_V1.6.8", Version{1, 6, 8}, false},
		{"GW1100A_V2.0.4", Version{2, 0, 4}, false},
		{"V1.5", Version{1, 5, 0}, false},
		{"garbage", Version{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.banner, func(t *testing.T) {
			got, err := ParseVersion(tt.banner)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("version = %v, want %v", got, tt.want)
			}
		})
	}
}
