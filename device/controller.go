// Package device describes physical controllers as seen by the DSU server:
// their identity and the report snapshots they produce.
package device

// Connection is the transport a physical controller is attached with.
type Connection uint8

const (
	ConnectionUnknown Connection = iota
	ConnectionUSB
	ConnectionBluetooth
)

func (c Connection) String() string {
	switch c {
	case ConnectionUSB:
		return "usb"
	case ConnectionBluetooth:
		return "bluetooth"
	default:
		return "unknown"
	}
}

// ParseConnection maps "usb" / "bluetooth" (or "bt") to a Connection.
func ParseConnection(s string) (Connection, bool) {
	switch s {
	case "usb":
		return ConnectionUSB, true
	case "bluetooth", "bt":
		return ConnectionBluetooth, true
	default:
		return ConnectionUnknown, false
	}
}

// Identity is what a controller reports about itself.
type Identity struct {
	// Address is the device address, "AA:BB:CC:DD:EE:FF".
	Address    string
	Connection Connection
}

// Controller is a handle to an attached physical controller. Handles are
// compared by identity, so implementations should be pointers.
type Controller interface {
	Identity() Identity
}
