package dsu

import (
	"fmt"
	"io"
)

// SlotInfo is the 11-byte slot description shared by port info and pad data
// messages.
//
//	0     slot index
//	1     state
//	2     model
//	3     connection type
//	4..9  MAC
//	10    battery
type SlotInfo struct {
	Slot       uint8
	State      SlotState
	Model      Model
	Connection ConnectionType
	MAC        [6]byte
	Battery    BatteryStatus
}

// EmptySlot returns the description of a slot without a controller.
func EmptySlot(slot uint8) SlotInfo {
	return SlotInfo{
		Slot:       slot,
		State:      StateDisconnected,
		Model:      ModelFullGyro,
		Connection: ConnectionNone,
		MAC:        PlaceholderMAC,
		Battery:    BatteryCharged,
	}
}

func (s SlotInfo) appendTo(b []byte) []byte {
	b = append(b, s.Slot, uint8(s.State), uint8(s.Model), uint8(s.Connection))
	b = append(b, s.MAC[:]...)
	return append(b, uint8(s.Battery))
}

func (s SlotInfo) MarshalBinary() ([]byte, error) {
	return s.appendTo(make([]byte, 0, SlotInfoSize)), nil
}

func (s *SlotInfo) UnmarshalBinary(data []byte) error {
	if len(data) < SlotInfoSize {
		return fmt.Errorf("%w: slot info: %w", ErrMalformedMessage, io.ErrUnexpectedEOF)
	}
	s.Slot = data[0]
	s.State = SlotState(data[1])
	s.Model = Model(data[2])
	s.Connection = ConnectionType(data[3])
	copy(s.MAC[:], data[4:10])
	s.Battery = BatteryStatus(data[10])
	return nil
}

// Connected reports whether a controller occupies the slot.
func (s SlotInfo) Connected() bool { return s.State == StateConnected }

// MACString renders the slot MAC as AA:BB:CC:DD:EE:FF.
func (s SlotInfo) MACString() string { return FormatMAC(s.MAC) }

// BuildPortInfo returns the payload of a ports response: the slot info
// followed by one reserved zero byte.
func BuildPortInfo(info SlotInfo) []byte {
	return append(info.appendTo(make([]byte, 0, PortInfoSize)), 0x00)
}

// ParsePortInfo decodes the payload of a ports response.
func ParsePortInfo(payload []byte) (SlotInfo, error) {
	var info SlotInfo
	if len(payload) < PortInfoSize {
		return info, fmt.Errorf("%w: port info: %w", ErrMalformedMessage, io.ErrUnexpectedEOF)
	}
	err := info.UnmarshalBinary(payload)
	return info, err
}
