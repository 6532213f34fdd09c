package device

// Report is one immutable snapshot of a physical DualShock 4 style controller,
// produced once per poll cycle. Consumers only read it.
//
// Sticks use the controller's native convention: 0..255 with 128 centred and
// Y growing downwards. Motion values are raw sensor counts as the DS4 reports
// them: the accelerometer (Orientation*) at 8192 counts per g, the gyroscope
// (Motion*) at 16 counts per °/s.
type Report struct {
	Share    bool
	Options  bool
	PS       bool
	Touchpad bool

	L1, R1 bool
	L2, R2 bool
	L3, R3 bool

	Triangle bool
	Circle   bool
	Cross    bool
	Square   bool

	DPadUp    bool
	DPadRight bool
	DPadDown  bool
	DPadLeft  bool

	LeftX, LeftY   uint8
	RightX, RightY uint8

	L2Analog uint8
	R2Analog uint8

	Touches [2]Touch

	OrientationPitch float64
	OrientationYaw   float64
	OrientationRoll  float64

	MotionX float64
	MotionY float64
	MotionZ float64
}

// Touch is one touchpad contact.
type Touch struct {
	Active bool
	ID     uint8
	X, Y   uint16
}

// NeutralReport returns a report with centred sticks and nothing pressed.
func NeutralReport() Report {
	return Report{LeftX: 128, LeftY: 128, RightX: 128, RightY: 128}
}
