package dualshock4

const (
	DefaultVID = 0x054C
	DefaultPID = 0x05C4
)

// HID input report IDs as read from hidraw.
const (
	ReportIDInput          = 0x01
	ReportIDBluetoothInput = 0x11
)

const (
	// InputReportSize is the size of a USB input report including its ID.
	InputReportSize = 64
	// BluetoothInputReportSize is the size of a Bluetooth input report including its ID.
	BluetoothInputReportSize = 78

	// Bluetooth reports carry two extra header bytes before the USB layout.
	bluetoothReportOffset = 2

	// InputStateSize is the size of one InputState feed frame.
	InputStateSize = 31
)

// InputState button bits. The low byte matches HID report byte 5 (face
// buttons in the high nibble), the high byte matches HID report byte 6.
const (
	ButtonSquare   uint16 = 0x0010
	ButtonCross    uint16 = 0x0020
	ButtonCircle   uint16 = 0x0040
	ButtonTriangle uint16 = 0x0080

	DPadMask uint8 = 0x0F
)

const (
	ButtonL1      uint16 = 0x0100
	ButtonR1      uint16 = 0x0200
	ButtonL2      uint16 = 0x0400
	ButtonR2      uint16 = 0x0800
	ButtonShare   uint16 = 0x1000
	ButtonOptions uint16 = 0x2000
	ButtonL3      uint16 = 0x4000
	ButtonR3      uint16 = 0x8000

	ButtonPS            uint16 = 0x0001
	ButtonTouchpadClick uint16 = 0x0002
)

const (
	ButtonPSUSB            uint8 = 0x01
	ButtonTouchpadClickUSB uint8 = 0x02
)

// HID hat switch values
const (
	DPadUSBUp        = 0x00
	DPadUSBUpRight   = 0x01
	DPadUSBRight     = 0x02
	DPadUSBDownRight = 0x03
	DPadUSBDown      = 0x04
	DPadUSBDownLeft  = 0x05
	DPadUSBLeft      = 0x06
	DPadUSBUpLeft    = 0x07
	DPadUSBNeutral   = 0x08
)

// InputState dpad bits
const (
	DPadUp    = 0x01
	DPadDown  = 0x02
	DPadLeft  = 0x04
	DPadRight = 0x08
)

// The DS4 reports gyro/accel as signed int16 counts.
//
// Gyro: GyroCountsPerDps counts per °/s, both in HID reports and feed frames.
// Accel: AccelCountsPerG counts per g in HID reports. Feed frames carry m/s²
// scaled by AccelCountsPerMS2 so producers need not know the sensor range.
const (
	// GyroCountsPerDps is the fixed-point scale factor for °/s.
	// resolution is 0.0625 °/s and range is about +-2048 °/s.
	GyroCountsPerDps = 16.0

	// AccelCountsPerG is the native DS4 accelerometer scale.
	AccelCountsPerG = 8192.0

	// AccelCountsPerMS2 is the fixed-point scale factor for m/s² in feed frames.
	// resolution is ~0.00195 m/s² and range is about +-64 m/s² (~+-6.5 g).
	AccelCountsPerMS2 = 512.0

	StandardGravityMS2 = 9.81
)

// Default accelerometer feed values for a controller lying flat on a table.
const (
	DefaultAccelXRaw int16 = 0
	DefaultAccelYRaw int16 = 0
	// -StandardGravityMS2 * AccelCountsPerMS2 = (-9.81 * 512) = -5023
	DefaultAccelZRaw int16 = -5023
)

const (
	TouchpadMinX uint16 = 0
	TouchpadMaxX uint16 = 1920
	TouchpadMinY uint16 = 0
	TouchpadMaxY uint16 = 942

	TouchInactiveMask uint8 = 0x80
	TouchIDMask       uint8 = 0x7F
)

// USB input report offsets (report ID at 0)
const (
	offLeftX      = 1
	offLeftY      = 2
	offRightX     = 3
	offRightY     = 4
	offButtons1   = 5
	offButtons2   = 6
	offButtons3   = 7
	offL2         = 8
	offR2         = 9
	offGyro       = 13
	offAccel      = 19
	offTouch1     = 35
	offTouch2     = 39
	touchDataSize = 4
)
