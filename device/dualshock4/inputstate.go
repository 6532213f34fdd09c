package dualshock4

import (
	"encoding/binary"
	"io"

	"github.com/Alia5/ds4dsu/device"
)

// InputState is the compact feed frame a producer streams for one controller.
//
// Sticks are signed offsets from centre with Y growing downwards, as on the
// controller itself. Gyro is in DS4 counts; accel in m/s² fixed point (see
// AccelCountsPerMS2).
//
// wire: stickLX:i8 stickLY:i8 stickRX:i8 stickRY:i8 buttons:u16 dpad:u8 triggerL2:u8 triggerR2:u8 touch1X:u16 touch1Y:u16 touch1Active:bool touch2X:u16 touch2Y:u16 touch2Active:bool gyroX:i16 gyroY:i16 gyroZ:i16 accelX:i16 accelY:i16 accelZ:i16
type InputState struct {
	LX, LY  int8
	RX, RY  int8
	Buttons uint16
	DPad    uint8
	L2, R2  uint8

	Touch1X, Touch1Y uint16
	Touch1Active     bool
	Touch2X, Touch2Y uint16
	Touch2Active     bool

	GyroX, GyroY, GyroZ    int16
	AccelX, AccelY, AccelZ int16
}

// NeutralInputState returns a resting controller: nothing pressed, gravity on -Z.
func NeutralInputState() InputState {
	x, y, z := DefaultAccelRaw()
	return InputState{AccelX: x, AccelY: y, AccelZ: z}
}

func (s *InputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, InputStateSize)
	b[0] = uint8(s.LX)
	b[1] = uint8(s.LY)
	b[2] = uint8(s.RX)
	b[3] = uint8(s.RY)
	binary.LittleEndian.PutUint16(b[4:6], s.Buttons)
	b[6] = s.DPad
	b[7] = s.L2
	b[8] = s.R2
	binary.LittleEndian.PutUint16(b[9:11], s.Touch1X)
	binary.LittleEndian.PutUint16(b[11:13], s.Touch1Y)
	if s.Touch1Active {
		b[13] = 1
	}
	binary.LittleEndian.PutUint16(b[14:16], s.Touch2X)
	binary.LittleEndian.PutUint16(b[16:18], s.Touch2Y)
	if s.Touch2Active {
		b[18] = 1
	}
	binary.LittleEndian.PutUint16(b[19:21], uint16(s.GyroX))
	binary.LittleEndian.PutUint16(b[21:23], uint16(s.GyroY))
	binary.LittleEndian.PutUint16(b[23:25], uint16(s.GyroZ))
	binary.LittleEndian.PutUint16(b[25:27], uint16(s.AccelX))
	binary.LittleEndian.PutUint16(b[27:29], uint16(s.AccelY))
	binary.LittleEndian.PutUint16(b[29:31], uint16(s.AccelZ))
	return b, nil
}

func (s *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < InputStateSize {
		return io.ErrUnexpectedEOF
	}
	s.LX = int8(data[0])
	s.LY = int8(data[1])
	s.RX = int8(data[2])
	s.RY = int8(data[3])
	s.Buttons = binary.LittleEndian.Uint16(data[4:6])
	s.DPad = data[6]
	s.L2 = data[7]
	s.R2 = data[8]
	s.Touch1X = binary.LittleEndian.Uint16(data[9:11])
	s.Touch1Y = binary.LittleEndian.Uint16(data[11:13])
	s.Touch1Active = data[13] != 0
	s.Touch2X = binary.LittleEndian.Uint16(data[14:16])
	s.Touch2Y = binary.LittleEndian.Uint16(data[16:18])
	s.Touch2Active = data[18] != 0
	s.GyroX = int16(binary.LittleEndian.Uint16(data[19:21]))
	s.GyroY = int16(binary.LittleEndian.Uint16(data[21:23]))
	s.GyroZ = int16(binary.LittleEndian.Uint16(data[23:25]))
	s.AccelX = int16(binary.LittleEndian.Uint16(data[25:27]))
	s.AccelY = int16(binary.LittleEndian.Uint16(data[27:29]))
	s.AccelZ = int16(binary.LittleEndian.Uint16(data[29:31]))
	return nil
}

// Report converts the frame into the snapshot consumed by the DSU server.
// Axes follow the HID report layout: GyroX/Y/Z sit where the HID report
// carries motion Y/X/Z, AccelX/Y/Z where it carries -roll/yaw/pitch.
func (s *InputState) Report() device.Report {
	r := device.Report{
		LeftX:  uint8(int16(s.LX) + 128),
		LeftY:  uint8(int16(s.LY) + 128),
		RightX: uint8(int16(s.RX) + 128),
		RightY: uint8(int16(s.RY) + 128),

		Square:   s.Buttons&ButtonSquare != 0,
		Cross:    s.Buttons&ButtonCross != 0,
		Circle:   s.Buttons&ButtonCircle != 0,
		Triangle: s.Buttons&ButtonTriangle != 0,
		L1:       s.Buttons&ButtonL1 != 0,
		R1:       s.Buttons&ButtonR1 != 0,
		L2:       s.Buttons&ButtonL2 != 0,
		R2:       s.Buttons&ButtonR2 != 0,
		Share:    s.Buttons&ButtonShare != 0,
		Options:  s.Buttons&ButtonOptions != 0,
		L3:       s.Buttons&ButtonL3 != 0,
		R3:       s.Buttons&ButtonR3 != 0,
		PS:       s.Buttons&ButtonPS != 0,
		Touchpad: s.Buttons&ButtonTouchpadClick != 0,

		DPadUp:    s.DPad&DPadUp != 0,
		DPadDown:  s.DPad&DPadDown != 0,
		DPadLeft:  s.DPad&DPadLeft != 0,
		DPadRight: s.DPad&DPadRight != 0,

		L2Analog: s.L2,
		R2Analog: s.R2,

		MotionY: float64(s.GyroX),
		MotionX: float64(s.GyroY),
		MotionZ: float64(s.GyroZ),

		OrientationRoll:  -AccelRawToDS4(s.AccelX),
		OrientationYaw:   AccelRawToDS4(s.AccelY),
		OrientationPitch: AccelRawToDS4(s.AccelZ),
	}
	r.Touches[0] = device.Touch{Active: s.Touch1Active, ID: 0, X: clampTouchX(s.Touch1X), Y: clampTouchY(s.Touch1Y)}
	r.Touches[1] = device.Touch{Active: s.Touch2Active, ID: 1, X: clampTouchX(s.Touch2X), Y: clampTouchY(s.Touch2Y)}
	return r
}
