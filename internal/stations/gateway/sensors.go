package gateway

import (
	"encoding/binary"
	"fmt"
)

// LegacyBattery is the decoded form of the 16-byte all-sensor battery tag
// carried inline in older live-data payloads.  Trailing bytes of the field
// are reserved and ignored.
type LegacyBattery struct {
	WH40Low bool // rain
	WH26Low bool // outdoor temp/hum
	WH25Low bool // indoor temp/hum/pressure
	WH24Low bool // integrated outdoor array

	WH31Low [8]bool // extra temp/hum channels
	WH51Low [8]bool // soil moisture channels

	WH57Level int // lightning, 0-5 scale

	WH68Volts float64 // solar/wind array
	WH80Volts float64 // ultrasonic anemometer array
}

func decodeLegacyBattery(b []byte) *LegacyBattery {
	lb := &LegacyBattery{
		WH40Low:   b[0]&0x10 != 0,
		WH26Low:   b[0]&0x20 != 0,
		WH25Low:   b[0]&0x40 != 0,
		WH24Low:   b[0]&0x80 != 0,
		WH57Level: int(b[3]),
		WH68Volts: float64(b[4]) * 0.02,
		WH80Volts: float64(b[5]) * 0.02,
	}
	for ch := 0; ch < 8; ch++ {
		lb.WH31Low[ch] = b[1]&(1<<ch) != 0
		lb.WH51Low[ch] = b[2]&(1<<ch) != 0
	}
	return lb
}

// batteryStyle selects how a sensor family reports battery state in the
// sensor ID list, and therefore how "low" is decided.
type batteryStyle int

const (
	battFlag   batteryStyle = iota // single bit: 1 means low
	battLevel                      // 0-5 integer scale: <=1 means low
	battVolt02                     // raw * 0.02 volts: below 1.2 V means low
	battVolt10                     // raw / 10 volts: below 1.2 V means low
)

const lowVoltageThreshold = 1.2

type sensorKind struct {
	name  string
	style batteryStyle
}

// sensorKinds is the fixed lookup table keyed by the sensor type byte in
// the sensor ID list.
var sensorKinds = map[byte]sensorKind{
	0x00: {"wh65", battFlag},
	0x01: {"wh68", battVolt02},
	0x02: {"wh80", battVolt02},
	0x03: {"wh40", battVolt10},
	0x04: {"wh25", battFlag},
	0x05: {"wh26", battFlag},
}

func init() {
	for ch := byte(0); ch < 8; ch++ {
		sensorKinds[0x06+ch] = sensorKind{fmt.Sprintf("wh31_ch%d", ch+1), battFlag}
		sensorKinds[0x0E+ch] = sensorKind{fmt.Sprintf("wh51_ch%d", ch+1), battVolt10}
	}
	for ch := byte(0); ch < 4; ch++ {
		sensorKinds[0x16+ch] = sensorKind{fmt.Sprintf("wh41_ch%d", ch+1), battLevel}
	}
	sensorKinds[0x1A] = sensorKind{"wh57", battLevel}
	for ch := byte(0); ch < 8; ch++ {
		sensorKinds[0x1B+ch] = sensorKind{fmt.Sprintf("wh55_ch%d", ch+1), battLevel}
		sensorKinds[0x23+ch] = sensorKind{fmt.Sprintf("wn34_ch%d", ch+1), battVolt02}
	}
	sensorKinds[0x2B] = sensorKind{"wh45", battLevel}
	for ch := byte(0); ch < 8; ch++ {
		sensorKinds[0x2C+ch] = sensorKind{fmt.Sprintf("wn35_ch%d", ch+1), battVolt02}
	}
	sensorKinds[0x34] = sensorKind{"wh90", battVolt02}
}

// Sensor ID sentinels: a slot that is still searching for a sensor or has
// been disabled carries no usable battery or signal data.
const (
	sensorIDRegistering = 0xFFFFFFFE
	sensorIDDisabled    = 0xFFFFFFFF
)

// SensorStatus is one registered sensor from the sensor ID list.
type SensorStatus struct {
	Type       byte
	Name       string
	ID         uint32
	BatteryRaw byte
	BatteryLow bool
	Signal     int
}

// sensorIDStride is the fixed record size in the sensor ID list:
// 1 type + 4 id + 1 battery + 1 signal.
const sensorIDStride = 7

// DecodeSensorIDList parses a sensor ID list payload into per-sensor
// status entries.  Unregistered and disabled slots are skipped; an unknown
// sensor type byte is kept with a synthesized name and the flag style, so
// new hardware degrades gracefully.
func DecodeSensorIDList(payload []byte) ([]SensorStatus, error) {
	if len(payload)%sensorIDStride != 0 {
		return nil, fmt.Errorf("sensor ID list length %d not a multiple of %d", len(payload), sensorIDStride)
	}

	var out []SensorStatus
	for i := 0; i < len(payload); i += sensorIDStride {
		rec := payload[i : i+sensorIDStride]
		id := binary.BigEndian.Uint32(rec[1:5])
		if id == sensorIDRegistering || id == sensorIDDisabled {
			continue
		}

		kind, ok := sensorKinds[rec[0]]
		if !ok {
			kind = sensorKind{fmt.Sprintf("type_0x%02X", rec[0]), battFlag}
		}

		out = append(out, SensorStatus{
			Type:       rec[0],
			Name:       kind.name,
			ID:         id,
			BatteryRaw: rec[5],
			BatteryLow: batteryLow(kind.style, rec[5]),
			Signal:     int(rec[6]),
		})
	}
	return out, nil
}

func batteryLow(style batteryStyle, raw byte) bool {
	switch style {
	case battFlag:
		return raw == 1
	case battLevel:
		return raw <= 1
	case battVolt02:
		return float64(raw)*0.02 < lowVoltageThreshold
	case battVolt10:
		return float64(raw)/10 < lowVoltageThreshold
	default:
		return false
	}
}
