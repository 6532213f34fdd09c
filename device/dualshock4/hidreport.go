package dualshock4

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Alia5/ds4dsu/device"
)

// ErrUnsupportedReport is returned for HID reports that are not DS4 input reports.
var ErrUnsupportedReport = errors.New("unsupported hid report")

// ParseInputReport decodes a raw DS4 input report as read from hidraw. Both
// the USB (ID 0x01) and the Bluetooth (ID 0x11) variants are accepted.
func ParseInputReport(b []byte) (device.Report, error) {
	if len(b) == 0 {
		return device.Report{}, fmt.Errorf("%w: empty report", ErrUnsupportedReport)
	}

	var base int
	switch b[0] {
	case ReportIDInput:
		base = 0
	case ReportIDBluetoothInput:
		base = bluetoothReportOffset
	default:
		return device.Report{}, fmt.Errorf("%w: report id 0x%02x", ErrUnsupportedReport, b[0])
	}
	if len(b) < base+offTouch2+touchDataSize {
		return device.Report{}, fmt.Errorf("%w: %d bytes is too short", ErrUnsupportedReport, len(b))
	}
	p := b[base:]

	buttons := uint16(p[offButtons1]) | uint16(p[offButtons2])<<8
	up, right, down, left := decodeHat(p[offButtons1] & DPadMask)

	r := device.Report{
		LeftX:  p[offLeftX],
		LeftY:  p[offLeftY],
		RightX: p[offRightX],
		RightY: p[offRightY],

		DPadUp:    up,
		DPadRight: right,
		DPadDown:  down,
		DPadLeft:  left,

		Square:   buttons&ButtonSquare != 0,
		Cross:    buttons&ButtonCross != 0,
		Circle:   buttons&ButtonCircle != 0,
		Triangle: buttons&ButtonTriangle != 0,

		L1:      buttons&ButtonL1 != 0,
		R1:      buttons&ButtonR1 != 0,
		L2:      buttons&ButtonL2 != 0,
		R2:      buttons&ButtonR2 != 0,
		Share:   buttons&ButtonShare != 0,
		Options: buttons&ButtonOptions != 0,
		L3:      buttons&ButtonL3 != 0,
		R3:      buttons&ButtonR3 != 0,

		PS:       p[offButtons3]&ButtonPSUSB != 0,
		Touchpad: p[offButtons3]&ButtonTouchpadClickUSB != 0,

		L2Analog: p[offL2],
		R2Analog: p[offR2],

		MotionY: float64(int16At(p, offGyro)),
		MotionX: float64(int16At(p, offGyro+2)),
		MotionZ: float64(int16At(p, offGyro+4)),

		OrientationRoll:  -float64(int16At(p, offAccel)),
		OrientationYaw:   float64(int16At(p, offAccel+2)),
		OrientationPitch: float64(int16At(p, offAccel+4)),
	}
	r.Touches[0] = decodeTouch(p[offTouch1 : offTouch1+touchDataSize])
	r.Touches[1] = decodeTouch(p[offTouch2 : offTouch2+touchDataSize])
	return r, nil
}

func int16At(b []byte, off int) int16 {
	return int16(binary.LittleEndian.Uint16(b[off : off+2]))
}

func decodeHat(v uint8) (up, right, down, left bool) {
	switch v {
	case DPadUSBUp:
		return true, false, false, false
	case DPadUSBUpRight:
		return true, true, false, false
	case DPadUSBRight:
		return false, true, false, false
	case DPadUSBDownRight:
		return false, true, true, false
	case DPadUSBDown:
		return false, false, true, false
	case DPadUSBDownLeft:
		return false, false, true, true
	case DPadUSBLeft:
		return false, false, false, true
	case DPadUSBUpLeft:
		return true, false, false, true
	default:
		return false, false, false, false
	}
}

// decodeTouch reads one contact: a tracking byte (bit 7 set while lifted)
// followed by 12-bit x and y packed into three bytes.
func decodeTouch(b []byte) device.Touch {
	return device.Touch{
		Active: b[0]&TouchInactiveMask == 0,
		ID:     b[0] & TouchIDMask,
		X:      uint16(b[1]) | uint16(b[2]&0x0F)<<8,
		Y:      uint16(b[2])>>4 | uint16(b[3])<<4,
	}
}
