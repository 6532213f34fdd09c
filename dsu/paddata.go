package dsu

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/Alia5/ds4dsu/device"
)

// Sensor scales of the DS4 raw counts carried by device.Report.
const (
	accelCountsPerG  = 8192
	gyroCountsPerDps = 16
)

// Button bits of the first mask byte.
const (
	Buttons1Share   uint8 = 1 << 0
	Buttons1L3      uint8 = 1 << 1
	Buttons1R3      uint8 = 1 << 2
	Buttons1Options uint8 = 1 << 3
	Buttons1Up      uint8 = 1 << 4
	Buttons1Right   uint8 = 1 << 5
	Buttons1Down    uint8 = 1 << 6
	Buttons1Left    uint8 = 1 << 7
)

// Button bits of the second mask byte. The face buttons are listed in their
// regular order; ReportOptions.RemapButtons mirrors bits 4..7.
const (
	Buttons2L2       uint8 = 1 << 0
	Buttons2R2       uint8 = 1 << 1
	Buttons2L1       uint8 = 1 << 2
	Buttons2R1       uint8 = 1 << 3
	Buttons2Triangle uint8 = 1 << 4
	Buttons2Circle   uint8 = 1 << 5
	Buttons2Cross    uint8 = 1 << 6
	Buttons2Square   uint8 = 1 << 7
)

// ReportOptions are the externally configured switches of the pad data encoding.
type ReportOptions struct {
	// RemapButtons swaps A-B and X-Y by reversing the face button bits.
	RemapButtons bool
	// SendTouch includes touchpad contacts; when false the touch bytes are zero.
	SendTouch bool
}

// BuildPadData encodes one report as the 80-byte payload of a data message.
//
//	0..10  slot info
//	11     active
//	12..15 sequence
//	16..17 button masks
//	18..19 PS, touchpad click
//	20..23 left x, left y, right x, right y
//	24..35 analog dpad, face buttons, R1, L1, R2, L2
//	36..47 two touches
//	48..55 motion timestamp (µs)
//	56..67 accelerometer x, y, z (g)
//	68..79 gyroscope pitch, yaw, roll (°/s)
//
// It only reads its arguments. Out-of-range sensor values are clamped.
func BuildPadData(info SlotInfo, seq uint32, r *device.Report, opts ReportOptions, now time.Time) []byte {
	b := info.appendTo(make([]byte, 0, PadDataSize))
	b = append(b, 0x01)
	b = binary.LittleEndian.AppendUint32(b, seq)

	b = append(b, buttons1(r), buttons2(r, opts.RemapButtons))
	b = append(b, analog(r.PS), analog(r.Touchpad))

	// DSU expects Y up.
	b = append(b, r.LeftX, 255-r.LeftY, r.RightX, 255-r.RightY)

	b = append(b, analog(r.DPadLeft), analog(r.DPadDown), analog(r.DPadRight), analog(r.DPadUp))
	b = append(b, analog(r.Square), analog(r.Cross), analog(r.Circle), analog(r.Triangle))
	b = append(b, analog(r.R1), analog(r.L1))
	b = append(b, r.R2Analog, r.L2Analog)

	if opts.SendTouch {
		for _, t := range r.Touches {
			b = append(b, boolByte(t.Active), t.ID)
			b = binary.LittleEndian.AppendUint16(b, t.X)
			b = binary.LittleEndian.AppendUint16(b, t.Y)
		}
	} else {
		b = append(b, make([]byte, padDataTouchSize)...)
	}

	b = binary.LittleEndian.AppendUint64(b, timestampMicros(now))

	// Fixed axis remap for the sensor mounting of the DS4.
	sensors := [...]float64{
		r.OrientationRoll / accelCountsPerG,
		-r.OrientationYaw / accelCountsPerG,
		-r.OrientationPitch / accelCountsPerG,
		r.MotionY / gyroCountsPerDps,
		-r.MotionX / gyroCountsPerDps,
		-r.MotionZ / gyroCountsPerDps,
	}
	for _, v := range sensors {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(clampFloat32(v)))
	}
	return b
}

func buttons1(r *device.Report) uint8 {
	var m uint8
	m |= flag(r.Share, Buttons1Share)
	m |= flag(r.L3, Buttons1L3)
	m |= flag(r.R3, Buttons1R3)
	m |= flag(r.Options, Buttons1Options)
	m |= flag(r.DPadUp, Buttons1Up)
	m |= flag(r.DPadRight, Buttons1Right)
	m |= flag(r.DPadDown, Buttons1Down)
	m |= flag(r.DPadLeft, Buttons1Left)
	return m
}

func buttons2(r *device.Report, remap bool) uint8 {
	var m uint8
	m |= flag(r.L2, Buttons2L2)
	m |= flag(r.R2, Buttons2R2)
	m |= flag(r.L1, Buttons2L1)
	m |= flag(r.R1, Buttons2R1)
	if !remap {
		m |= flag(r.Triangle, Buttons2Triangle)
		m |= flag(r.Circle, Buttons2Circle)
		m |= flag(r.Cross, Buttons2Cross)
		m |= flag(r.Square, Buttons2Square)
	} else {
		m |= flag(r.Triangle, Buttons2Square)
		m |= flag(r.Circle, Buttons2Cross)
		m |= flag(r.Cross, Buttons2Circle)
		m |= flag(r.Square, Buttons2Triangle)
	}
	return m
}

func flag(set bool, bit uint8) uint8 {
	if set {
		return bit
	}
	return 0
}

func analog(pressed bool) uint8 {
	if pressed {
		return 0xFF
	}
	return 0x00
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func timestampMicros(t time.Time) uint64 {
	us := t.UnixMicro()
	if us < 0 {
		return 0
	}
	return uint64(us)
}

func clampFloat32(v float64) float32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > math.MaxFloat32:
		return math.MaxFloat32
	case v < -math.MaxFloat32:
		return -math.MaxFloat32
	}
	return float32(v)
}

// PadData is a decoded data message payload.
type PadData struct {
	Info     SlotInfo
	Active   bool
	Sequence uint32

	Buttons1 uint8
	Buttons2 uint8
	PS       uint8
	Touchpad uint8

	LeftX, LeftY   uint8
	RightX, RightY uint8

	DPadLeft, DPadDown, DPadRight, DPadUp uint8
	Square, Cross, Circle, Triangle       uint8
	R1, L1                                uint8
	R2, L2                                uint8

	Touches [2]TouchData

	Timestamp uint64
	Accel     [3]float32
	Gyro      [3]float32
}

// TouchData is one touch record of a data message.
type TouchData struct {
	Active bool
	ID     uint8
	X, Y   uint16
}

// ParsePadData decodes the payload of a data message.
func ParsePadData(payload []byte) (PadData, error) {
	var p PadData
	if len(payload) < PadDataSize {
		return p, fmt.Errorf("%w: pad data: %w", ErrMalformedMessage, io.ErrUnexpectedEOF)
	}
	if err := p.Info.UnmarshalBinary(payload); err != nil {
		return p, err
	}
	p.Active = payload[11] != 0
	p.Sequence = binary.LittleEndian.Uint32(payload[12:16])
	p.Buttons1, p.Buttons2 = payload[16], payload[17]
	p.PS, p.Touchpad = payload[18], payload[19]
	p.LeftX, p.LeftY, p.RightX, p.RightY = payload[20], payload[21], payload[22], payload[23]
	p.DPadLeft, p.DPadDown, p.DPadRight, p.DPadUp = payload[24], payload[25], payload[26], payload[27]
	p.Square, p.Cross, p.Circle, p.Triangle = payload[28], payload[29], payload[30], payload[31]
	p.R1, p.L1 = payload[32], payload[33]
	p.R2, p.L2 = payload[34], payload[35]
	for i := range p.Touches {
		t := payload[padDataTouchOff+i*TouchSize:]
		p.Touches[i] = TouchData{
			Active: t[0] != 0,
			ID:     t[1],
			X:      binary.LittleEndian.Uint16(t[2:4]),
			Y:      binary.LittleEndian.Uint16(t[4:6]),
		}
	}
	p.Timestamp = binary.LittleEndian.Uint64(payload[48:56])
	for i := range 3 {
		p.Accel[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[56+i*4:]))
		p.Gyro[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[68+i*4:]))
	}
	return p, nil
}
