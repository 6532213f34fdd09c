package dsu

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
)

// Request is one decoded inbound message. The concrete type is one of
// VersionRequest, PortsRequest, DataRequest or UnknownRequest.
type Request interface {
	MessageType() MessageType
}

// VersionRequest asks for the protocol version.
type VersionRequest struct{}

// PortsRequest asks for the port info of the listed slots.
type PortsRequest struct {
	Slots []uint8
}

// DataRequest subscribes the sender to pad data matching a filter.
type DataRequest struct {
	Mode RegistrationMode
	Slot uint8
	MAC  [6]byte
}

// UnknownRequest carries a type tag this package does not understand.
type UnknownRequest struct {
	Type MessageType
}

func (VersionRequest) MessageType() MessageType   { return MessageVersion }
func (PortsRequest) MessageType() MessageType     { return MessagePorts }
func (DataRequest) MessageType() MessageType      { return MessageData }
func (r UnknownRequest) MessageType() MessageType { return r.Type }

// ParseRequest decodes a whole inbound frame. Unknown type tags are returned
// as UnknownRequest without an error so the caller decides how to react.
func ParseRequest(frame []byte) (Request, error) {
	t, payload, err := DecodeHeader(frame)
	if err != nil {
		return nil, err
	}
	switch t {
	case MessageVersion:
		return VersionRequest{}, nil
	case MessagePorts:
		var r PortsRequest
		if err := r.UnmarshalBinary(payload); err != nil {
			return nil, err
		}
		return r, nil
	case MessageData:
		var r DataRequest
		if err := r.UnmarshalBinary(payload); err != nil {
			return nil, err
		}
		return r, nil
	default:
		return UnknownRequest{Type: t}, nil
	}
}

// MarshalBinary encodes the request payload: a little-endian int32 count
// followed by one byte per slot.
func (r PortsRequest) MarshalBinary() ([]byte, error) {
	b := make([]byte, portsCountSize, portsCountSize+len(r.Slots))
	binary.LittleEndian.PutUint32(b, uint32(len(r.Slots)))
	return append(b, r.Slots...), nil
}

func (r *PortsRequest) UnmarshalBinary(data []byte) error {
	if len(data) < portsCountSize {
		return fmt.Errorf("%w: ports request: %w", ErrMalformedMessage, io.ErrUnexpectedEOF)
	}
	count := int32(binary.LittleEndian.Uint32(data[:portsCountSize]))
	if count < 0 {
		return fmt.Errorf("%w: ports request: negative count %d", ErrMalformedMessage, count)
	}
	if int64(len(data)-portsCountSize) < int64(count) {
		return fmt.Errorf("%w: ports request: count %d exceeds %d slot bytes", ErrMalformedMessage, count, len(data)-portsCountSize)
	}
	r.Slots = append([]uint8(nil), data[portsCountSize:portsCountSize+int(count)]...)
	return nil
}

func (r DataRequest) MarshalBinary() ([]byte, error) {
	b := make([]byte, DataRequestSize)
	b[0] = uint8(r.Mode)
	b[1] = r.Slot
	copy(b[2:], r.MAC[:])
	return b, nil
}

func (r *DataRequest) UnmarshalBinary(data []byte) error {
	if len(data) != DataRequestSize {
		return fmt.Errorf("%w: data request: want %d bytes, got %d", ErrMalformedMessage, DataRequestSize, len(data))
	}
	mode := RegistrationMode(data[0])
	if mode > ModeMAC {
		return fmt.Errorf("%w: data request: unknown mode %d", ErrMalformedMessage, mode)
	}
	r.Mode = mode
	r.Slot = data[1]
	copy(r.MAC[:], data[2:8])
	return nil
}

// String describes the filter the way it is logged: all, slot=N or mac=AA:BB:...
func (r DataRequest) String() string {
	switch r.Mode {
	case ModeAll:
		return "all"
	case ModeSlot:
		return fmt.Sprintf("slot=%d", r.Slot)
	case ModeMAC:
		return "mac=" + FormatMAC(r.MAC)
	default:
		return "unknown"
	}
}

// FormatMAC renders a MAC as upper-case colon separated hex.
func FormatMAC(mac [6]byte) string {
	return strings.ToUpper(net.HardwareAddr(mac[:]).String())
}

// ParseMAC parses a 6-byte hardware address in any form net.ParseMAC accepts.
func ParseMAC(s string) ([6]byte, error) {
	var out [6]byte
	hw, err := net.ParseMAC(strings.TrimSpace(s))
	if err != nil {
		return out, err
	}
	if len(hw) != len(out) {
		return out, fmt.Errorf("invalid MAC %q: want 6 bytes, got %d", s, len(hw))
	}
	copy(out[:], hw)
	return out, nil
}
