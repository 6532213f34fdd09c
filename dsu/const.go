package dsu

// Wire constants (little-endian)
const (
	ProtocolVersion uint16 = 1001

	// ServerMagic prefixes every frame sent by a server, ClientMagic every frame sent by a client.
	ServerMagic = "DSUS"
	ClientMagic = "DSUC"

	// ServerID is written into bytes 12..15 of every outgoing frame.
	ServerID uint32 = 0xFFFFFFFF

	// DefaultPort is the port emulators look for when no other is configured.
	DefaultPort = 26760
)

// Header field offsets
const (
	HeaderSize = 20

	offMagic    = 0
	offVersion  = 4
	offLength   = 6
	offCRC      = 8
	offServerID = 12
	offType     = 16

	// typeSize is counted by the length field in addition to the payload.
	typeSize = 4
)

// MessageType is the 4-byte type tag at offset 16.
type MessageType uint32

const (
	MessageVersion MessageType = 0x00100000
	MessagePorts   MessageType = 0x00100001
	MessageData    MessageType = 0x00100002
)

func (t MessageType) String() string {
	switch t {
	case MessageVersion:
		return "version"
	case MessagePorts:
		return "ports"
	case MessageData:
		return "data"
	default:
		return "unknown"
	}
}

// SlotState is the connection state byte of a slot.
type SlotState uint8

const (
	StateDisconnected SlotState = 0x00
	StateReserved     SlotState = 0x01
	StateConnected    SlotState = 0x02
)

func (s SlotState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateReserved:
		return "reserved"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Model is the device model / motion capability byte.
type Model uint8

const (
	ModelNone        Model = 0x00
	ModelPartialGyro Model = 0x01
	ModelFullGyro    Model = 0x02
)

// ConnectionType describes how the physical controller is attached.
type ConnectionType uint8

const (
	ConnectionNone      ConnectionType = 0x00
	ConnectionUSB       ConnectionType = 0x01
	ConnectionBluetooth ConnectionType = 0x02
)

func (c ConnectionType) String() string {
	switch c {
	case ConnectionUSB:
		return "usb"
	case ConnectionBluetooth:
		return "bluetooth"
	default:
		return "none"
	}
}

// BatteryStatus is the battery byte of a slot.
type BatteryStatus uint8

const (
	BatteryNone     BatteryStatus = 0x00
	BatteryDying    BatteryStatus = 0x01
	BatteryLow      BatteryStatus = 0x02
	BatteryMedium   BatteryStatus = 0x03
	BatteryHigh     BatteryStatus = 0x04
	BatteryFull     BatteryStatus = 0x05
	BatteryCharging BatteryStatus = 0xEE
	BatteryCharged  BatteryStatus = 0xEF
)

// RegistrationMode is the filter mode of a data request.
type RegistrationMode uint8

const (
	ModeAll  RegistrationMode = 0
	ModeSlot RegistrationMode = 1
	ModeMAC  RegistrationMode = 2
)

func (m RegistrationMode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeSlot:
		return "slot"
	case ModeMAC:
		return "mac"
	default:
		return "unknown"
	}
}

// Payload sizes
const (
	SlotInfoSize     = 11
	PortInfoSize     = SlotInfoSize + 1
	DataRequestSize  = 8
	TouchSize        = 6
	PadDataSize      = 80
	portsCountSize   = 4
	padDataTouchOff  = 36
	padDataTouchSize = 2 * TouchSize
)

// PlaceholderMAC is reported for slots without a controller.
var PlaceholderMAC = [6]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0xFF}
