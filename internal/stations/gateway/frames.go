// Package gateway implements the local gateway station driver: the binary
// live-data protocol decoder, the sensor ID list parser, and the TCP
// polling loop that feeds decoded records to the aggregation engine.
package gateway

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/chrissnell/gwstationd/internal/types"
)

// Protocol commands.
const (
	CmdLiveData     = 0x27
	CmdReadSensorID = 0x3C
	CmdReadFirmware = 0x50
)

// Live-data payload tags.  Widths and meanings are a wire-format contract.
const (
	itemIndoorTemp    = 0x01
	itemOutdoorTemp   = 0x02
	itemDewPoint      = 0x03
	itemWindChill     = 0x04
	itemHeatIndex     = 0x05
	itemIndoorHumi    = 0x06
	itemOutdoorHumi   = 0x07
	itemAbsPressure   = 0x08
	itemRelPressure   = 0x09
	itemWindDir       = 0x0A
	itemWindSpeed     = 0x0B
	itemWindGust      = 0x0C
	itemRainEvent     = 0x0D
	itemRainRate      = 0x0E
	itemRainHour      = 0x0F
	itemRainDay       = 0x10
	itemRainWeek      = 0x11
	itemRainMonth     = 0x12
	itemRainYear      = 0x13
	itemRainTotals    = 0x14
	itemLight         = 0x15
	itemUV            = 0x16
	itemUVI           = 0x17
	itemDateTime      = 0x18
	itemDayMaxWind    = 0x19
	itemTempChBase    = 0x1A // 0x1A-0x21, channels 1-8
	itemHumiChBase    = 0x22 // 0x22-0x29, channels 1-8
	itemPM25Ch1       = 0x2A
	itemSoilBase      = 0x2B // 0x2B-0x4A, temp/moisture interleaved, 16 channels
	itemSoilEnd       = 0x4A
	itemLegacyBattery = 0x4C
	itemPM25AvgBase   = 0x4D // 0x4D-0x50, 24h averages, channels 1-4
	itemPM25Ch2Base   = 0x51 // 0x51-0x53, channels 2-4
	itemLeafBase      = 0x58 // 0x58-0x5F, channels 1-8
	itemLightningDist = 0x60
	itemLightningTime = 0x61
	itemLightningNum  = 0x62
	itemUserTempBase  = 0x63 // 0x63-0x6A, channels 1-8, firmware-dependent width
	itemUserTempEnd   = 0x6A
	itemCO2Combo      = 0x70
	itemRainPriority  = 0x7A
	itemRadComp       = 0x7B
	itemPiezoRate     = 0x80
	itemPiezoEvent    = 0x81
	itemPiezoHour     = 0x82
	itemPiezoDay      = 0x83
	itemPiezoWeek     = 0x84
	itemPiezoMonth    = 0x85
	itemPiezoYear     = 0x86
	itemPiezoGains    = 0x87
	itemRainResetTime = 0x88
)

// Sentinels mapped to "absent" rather than passed through.
const (
	lightningDistNone = 0xFF
	lightningTimeNone = 0xFFFFFFFF
)

// luxToWattsPerM2 converts the light tag's lux reading to solar irradiance.
const luxToWattsPerM2 = 0.0079

// Frame is one parsed protocol frame:
//
//	[0xFF][0xFF][cmd][size: u16 BE][payload: size-4 bytes][checksum]
//
// The checksum is the sum of cmd, size, and payload bytes mod 256.  The
// parser exposes both checksums and leaves rejection to the caller.
type Frame struct {
	Cmd              byte
	Payload          []byte
	StoredChecksum   byte
	ComputedChecksum byte
}

// ChecksumOK reports whether the stored and computed checksums agree.
func (f *Frame) ChecksumOK() bool {
	return f.StoredChecksum == f.ComputedChecksum
}

// BuildFrame assembles a wire frame for a command and payload, with a
// correctly computed checksum.
func BuildFrame(cmd byte, payload []byte) []byte {
	size := len(payload) + 4
	buf := make([]byte, 0, 2+size)
	buf = append(buf, 0xFF, 0xFF, cmd)
	buf = binary.BigEndian.AppendUint16(buf, uint16(size))
	buf = append(buf, payload...)

	var sum byte
	for _, b := range buf[2:] {
		sum += b
	}
	return append(buf, sum)
}

// ParseFrame validates the header and size field and splits a raw buffer
// into its parts.  A buffer shorter than its own size field is an error.
func ParseFrame(buf []byte) (*Frame, error) {
	if len(buf) < 6 {
		return nil, fmt.Errorf("frame too short: %d bytes", len(buf))
	}
	if buf[0] != 0xFF || buf[1] != 0xFF {
		return nil, fmt.Errorf("bad frame header: %02x %02x", buf[0], buf[1])
	}
	size := int(binary.BigEndian.Uint16(buf[3:5]))
	if size < 4 {
		return nil, fmt.Errorf("frame size field %d below minimum", size)
	}
	if len(buf) < 2+size {
		return nil, fmt.Errorf("frame size field %d exceeds buffer of %d bytes", size, len(buf))
	}

	var sum byte
	for _, b := range buf[2 : 2+size-1] {
		sum += b
	}

	return &Frame{
		Cmd:              buf[2],
		Payload:          buf[5 : 2+size-1],
		StoredChecksum:   buf[2+size-1],
		ComputedChecksum: sum,
	}, nil
}

// DecodeWarning reports a non-fatal problem hit while scanning a payload.
type DecodeWarning struct {
	Offset int
	Tag    byte
	Reason string
}

func (w DecodeWarning) String() string {
	return fmt.Sprintf("offset %d tag 0x%02X: %s", w.Offset, w.Tag, w.Reason)
}

// LiveDecoder decodes live-data payloads.  Firmware selects the width of
// the user-temperature tags; PiezoPrimary selects which of the two rain
// sensor groups feeds the record's rain fields.
type LiveDecoder struct {
	Firmware     Version
	PiezoPrimary bool

	// Battery is set when the payload carries the legacy all-sensor
	// battery tag, for the caller to log.  Reset on each decode.
	Battery *LegacyBattery
}

// tagEntry gives the wire width and field setter for one payload tag.  A
// width of zero marks the firmware-dependent user-temperature tags.
type tagEntry struct {
	width int
	apply func(d *LiveDecoder, rec *types.InstantRecord, tag byte, data []byte)
}

func beU16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func beS16(b []byte) int16  { return int16(binary.BigEndian.Uint16(b)) }
func beU32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

// consume is the setter for tags carried on the wire but not mapped to a
// record field; the scan still advances by their width.
func consume(_ *LiveDecoder, _ *types.InstantRecord, _ byte, _ []byte) {}

var tagTable = map[byte]tagEntry{
	itemIndoorTemp: {2, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		r.IndoorTemperature = types.Float(float64(beS16(b)) / 10)
	}},
	itemOutdoorTemp: {2, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		r.Temperature = types.Float(float64(beS16(b)) / 10)
	}},
	itemDewPoint: {2, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		r.DewPoint = types.Float(float64(beS16(b)) / 10)
	}},
	itemWindChill: {2, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		r.WindChill = types.Float(float64(beS16(b)) / 10)
	}},
	itemHeatIndex: {2, consume},
	itemIndoorHumi: {1, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		if b[0] <= 100 {
			r.IndoorHumidity = types.Int(int(b[0]))
		}
	}},
	itemOutdoorHumi: {1, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		if b[0] <= 100 {
			r.Humidity = types.Int(int(b[0]))
		}
	}},
	itemAbsPressure: {2, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		r.PressureAbs = types.Float(float64(beU16(b)) / 10)
	}},
	itemRelPressure: {2, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		r.PressureRel = types.Float(float64(beU16(b)) / 10)
	}},
	itemWindDir: {2, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		r.WindBearing = types.Int(int(beU16(b)))
	}},
	itemWindSpeed: {2, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		r.WindSpeed = types.Float(float64(beU16(b)) / 10)
	}},
	itemWindGust: {2, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		r.WindGust = types.Float(float64(beU16(b)) / 10)
	}},
	itemRainEvent: {2, consume},
	itemRainRate: {2, func(d *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		if !d.PiezoPrimary {
			r.RainRate = types.Float(float64(beU16(b)) / 10)
		}
	}},
	itemRainHour:  {2, consume},
	itemRainDay:   {2, consume},
	itemRainWeek:  {2, consume},
	itemRainMonth: {4, consume},
	itemRainYear: {4, func(d *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		if !d.PiezoPrimary {
			r.RainYear = types.Float(float64(beU32(b)) / 10)
		}
	}},
	itemRainTotals: {4, func(d *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		if !d.PiezoPrimary {
			r.RainCounter = types.Float(float64(beU32(b)) / 10)
		}
	}},
	itemLight: {4, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		lux := float64(beU32(b)) / 10
		r.SolarRadiation = types.Float(lux * luxToWattsPerM2)
	}},
	itemUV: {2, consume},
	itemUVI: {1, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		r.UVIndex = types.Int(int(b[0]))
	}},
	itemDateTime:   {6, consume},
	itemDayMaxWind: {2, consume},

	itemPM25Ch1: {2, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		r.PM25[0] = types.Float(float64(beU16(b)) / 10)
	}},

	itemLegacyBattery: {16, func(d *LiveDecoder, _ *types.InstantRecord, _ byte, b []byte) {
		d.Battery = decodeLegacyBattery(b)
	}},

	itemLightningDist: {1, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		if b[0] != lightningDistNone {
			r.LightningDistance = types.Float(float64(b[0]))
		}
	}},
	itemLightningTime: {4, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		if v := beU32(b); v != lightningTimeNone {
			r.LightningTime = types.Time(time.Unix(int64(v), 0).UTC())
		}
	}},
	itemLightningNum: {4, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		r.LightningStrikes = types.Int(int(beU32(b)))
	}},

	itemCO2Combo: {16, func(_ *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		r.CO2Temp = types.Float(float64(beS16(b[0:2])) / 10)
		if b[2] <= 100 {
			r.CO2Hum = types.Int(int(b[2]))
		}
		r.CO2PM10 = types.Float(float64(beU16(b[3:5])) / 10)
		r.CO2PM25 = types.Float(float64(beU16(b[7:9])) / 10)
		r.CO2 = types.Int(int(beU16(b[11:13])))
		r.CO2Avg24h = types.Int(int(beU16(b[13:15])))
	}},

	itemRainPriority: {1, consume},
	itemRadComp:      {1, consume},

	itemPiezoRate: {2, func(d *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		if d.PiezoPrimary {
			r.RainRate = types.Float(float64(beU16(b)) / 10)
		}
	}},
	itemPiezoEvent: {2, consume},
	itemPiezoHour:  {2, consume},
	itemPiezoDay:   {4, consume},
	itemPiezoWeek:  {4, consume},
	itemPiezoMonth: {4, consume},
	itemPiezoYear: {4, func(d *LiveDecoder, r *types.InstantRecord, _ byte, b []byte) {
		if d.PiezoPrimary {
			r.RainYear = types.Float(float64(beU32(b)) / 10)
			r.RainCounter = types.Float(float64(beU32(b)) / 10)
		}
	}},
	itemPiezoGains:    {20, consume},
	itemRainResetTime: {3, consume},
}

func init() {
	// Channel-numbered tags: index computed from the tag offset rather
	// than repeating the entry per channel.
	for t := byte(itemTempChBase); t < itemTempChBase+types.ExtraChannels; t++ {
		tagTable[t] = tagEntry{2, func(_ *LiveDecoder, r *types.InstantRecord, tag byte, b []byte) {
			r.ExtraTemp[tag-itemTempChBase] = types.Float(float64(beS16(b)) / 10)
		}}
	}
	for t := byte(itemHumiChBase); t < itemHumiChBase+types.ExtraChannels; t++ {
		tagTable[t] = tagEntry{1, func(_ *LiveDecoder, r *types.InstantRecord, tag byte, b []byte) {
			if b[0] <= 100 {
				r.ExtraHumidity[tag-itemHumiChBase] = types.Int(int(b[0]))
			}
		}}
	}

	// Soil temperature and moisture interleave one tag space: even offsets
	// are temperature (2 bytes), odd are moisture (1 byte), and the channel
	// is (offset+2)/2 for both.
	for t := byte(itemSoilBase); t <= itemSoilEnd; t++ {
		off := t - itemSoilBase
		if off%2 == 0 {
			tagTable[t] = tagEntry{2, func(_ *LiveDecoder, r *types.InstantRecord, tag byte, b []byte) {
				ch := (int(tag-itemSoilBase) + 2) / 2
				r.SoilTemp[ch-1] = types.Float(float64(beS16(b)) / 10)
			}}
		} else {
			tagTable[t] = tagEntry{1, func(_ *LiveDecoder, r *types.InstantRecord, tag byte, b []byte) {
				ch := (int(tag-itemSoilBase) + 2) / 2
				if b[0] <= 100 {
					r.SoilMoisture[ch-1] = types.Int(int(b[0]))
				}
			}}
		}
	}

	for t := byte(itemPM25AvgBase); t < itemPM25AvgBase+types.PM25Channels; t++ {
		tagTable[t] = tagEntry{2, consume}
	}
	for t := byte(itemPM25Ch2Base); t < itemPM25Ch2Base+3; t++ {
		tagTable[t] = tagEntry{2, func(_ *LiveDecoder, r *types.InstantRecord, tag byte, b []byte) {
			r.PM25[tag-itemPM25Ch2Base+1] = types.Float(float64(beU16(b)) / 10)
		}}
	}
	for t := byte(itemLeafBase); t < itemLeafBase+types.LeafChannels; t++ {
		tagTable[t] = tagEntry{1, func(_ *LiveDecoder, r *types.InstantRecord, tag byte, b []byte) {
			if b[0] <= 100 {
				r.LeafWetness[tag-itemLeafBase] = types.Int(int(b[0]))
			}
		}}
	}

	// User-temperature tags: width 0 defers to the firmware version at
	// decode time (2 bytes before 1.6.0, 2 data + 1 battery after).
	for t := byte(itemUserTempBase); t <= itemUserTempEnd; t++ {
		tagTable[t] = tagEntry{0, func(_ *LiveDecoder, r *types.InstantRecord, tag byte, b []byte) {
			r.UserTemp[tag-itemUserTempBase] = types.Float(float64(beS16(b[0:2])) / 10)
		}}
	}
}

// userTempWidth returns the wire width of a user-temperature value for the
// decoder's firmware.
func (d *LiveDecoder) userTempWidth() int {
	if d.Firmware.AtLeast(1, 6, 0) {
		return 3
	}
	return 2
}

// DecodeBuffer parses and decodes a complete live-data frame.
func (d *LiveDecoder) DecodeBuffer(buf []byte) (*types.InstantRecord, []DecodeWarning, error) {
	frame, err := ParseFrame(buf)
	if err != nil {
		return nil, nil, err
	}
	rec, warns := d.DecodePayload(frame.Payload)
	return rec, warns, nil
}

// DecodePayload scans a live-data payload tag by tag.  An unknown tag or a
// truncated value abandons the remainder of the buffer with a warning; the
// fields decoded up to that point are kept.
func (d *LiveDecoder) DecodePayload(payload []byte) (*types.InstantRecord, []DecodeWarning) {
	d.Battery = nil
	rec := &types.InstantRecord{}
	var warns []DecodeWarning

	i := 0
	for i < len(payload) {
		tag := payload[i]
		entry, ok := tagTable[tag]
		if !ok {
			warns = append(warns, DecodeWarning{Offset: i, Tag: tag,
				Reason: "unknown tag, abandoning remainder of payload"})
			break
		}

		width := entry.width
		if width == 0 {
			width = d.userTempWidth()
		}
		if i+1+width > len(payload) {
			warns = append(warns, DecodeWarning{Offset: i, Tag: tag,
				Reason: fmt.Sprintf("value truncated: need %d bytes, have %d", width, len(payload)-i-1)})
			break
		}

		entry.apply(d, rec, tag, payload[i+1:i+1+width])
		i += 1 + width
	}

	return rec, warns
}
