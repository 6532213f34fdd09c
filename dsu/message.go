// Package dsu implements the DSU ("Cemuhook") UDP wire protocol used by
// emulators to receive controller buttons, sticks, touch and motion data.
//
// Every frame starts with a 20-byte little-endian header:
//
//	0..3   magic ("DSUS" from servers, "DSUC" from clients)
//	4..5   protocol version (1001)
//	6..7   payload length + 4
//	8..11  CRC32 (IEEE) of the whole frame with this field zeroed
//	12..15 sender ID
//	16..19 message type
//
// followed by the type specific payload.
package dsu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
)

var (
	// ErrMalformedMessage is returned for frames or payloads that are too short,
	// carry an unknown magic, or otherwise cannot be decoded.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrUnknownMessageType is returned for frames whose type tag is not
	// version, ports or data.
	ErrUnknownMessageType = errors.New("unknown message type")
)

// Builder assembles a single frame. Segments are appended in order and
// Finalize writes the length and checksum fields; nothing else touches them.
type Builder struct {
	buf []byte
}

// NewBuilder starts a server frame of the given type.
func NewBuilder(t MessageType) *Builder {
	return newBuilder(ServerMagic, ServerID, t)
}

// NewClientBuilder starts a client frame of the given type.
func NewClientBuilder(t MessageType, clientID uint32) *Builder {
	return newBuilder(ClientMagic, clientID, t)
}

func newBuilder(magic string, id uint32, t MessageType) *Builder {
	b := &Builder{buf: make([]byte, HeaderSize, HeaderSize+PadDataSize)}
	copy(b.buf[offMagic:offVersion], magic)
	binary.LittleEndian.PutUint16(b.buf[offVersion:offLength], ProtocolVersion)
	binary.LittleEndian.PutUint32(b.buf[offServerID:offType], id)
	binary.LittleEndian.PutUint32(b.buf[offType:HeaderSize], uint32(t))
	return b
}

// Byte appends a single byte.
func (b *Builder) Byte(v uint8) *Builder {
	b.buf = append(b.buf, v)
	return b
}

// Bytes appends raw bytes.
func (b *Builder) Bytes(p []byte) *Builder {
	b.buf = append(b.buf, p...)
	return b
}

// Uint32 appends a little-endian uint32.
func (b *Builder) Uint32(v uint32) *Builder {
	b.buf = binary.LittleEndian.AppendUint32(b.buf, v)
	return b
}

// Uint64 appends a little-endian uint64.
func (b *Builder) Uint64(v uint64) *Builder {
	b.buf = binary.LittleEndian.AppendUint64(b.buf, v)
	return b
}

// Float32 appends a little-endian IEEE-754 float.
func (b *Builder) Float32(v float32) *Builder {
	b.buf = binary.LittleEndian.AppendUint32(b.buf, math.Float32bits(v))
	return b
}

// Finalize writes the length field and the checksum and returns the frame.
// The builder must not be used afterwards.
func (b *Builder) Finalize() []byte {
	frame := b.buf
	b.buf = nil
	binary.LittleEndian.PutUint16(frame[offLength:offCRC], uint16(len(frame)-HeaderSize+typeSize))
	binary.LittleEndian.PutUint32(frame[offCRC:offServerID], Checksum(frame))
	return frame
}

// Encode frames payload as a server message of type t.
func Encode(t MessageType, payload []byte) []byte {
	return NewBuilder(t).Bytes(payload).Finalize()
}

// Checksum computes the CRC32 of frame as if its checksum field were zero.
// frame itself is not modified.
func Checksum(frame []byte) uint32 {
	if len(frame) < HeaderSize {
		return crc32.ChecksumIEEE(frame)
	}
	var zero [4]byte
	crc := crc32.Update(0, crc32.IEEETable, frame[:offCRC])
	crc = crc32.Update(crc, crc32.IEEETable, zero[:])
	return crc32.Update(crc, crc32.IEEETable, frame[offServerID:])
}

// VerifyChecksum reports whether the embedded checksum of frame matches its contents.
func VerifyChecksum(frame []byte) bool {
	if len(frame) < HeaderSize {
		return false
	}
	return binary.LittleEndian.Uint32(frame[offCRC:offServerID]) == Checksum(frame)
}

// Header is the decoded fixed part of a frame.
type Header struct {
	Magic    string
	Version  uint16
	Length   uint16
	CRC      uint32
	SenderID uint32
	Type     MessageType
}

// ParseHeader decodes the fixed header. Only the size and magic are checked;
// the checksum is not validated.
func ParseHeader(frame []byte) (Header, error) {
	if len(frame) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrMalformedMessage, len(frame))
	}
	magic := string(frame[offMagic:offVersion])
	if magic != ClientMagic && magic != ServerMagic {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrMalformedMessage, magic)
	}
	return Header{
		Magic:    magic,
		Version:  binary.LittleEndian.Uint16(frame[offVersion:offLength]),
		Length:   binary.LittleEndian.Uint16(frame[offLength:offCRC]),
		CRC:      binary.LittleEndian.Uint32(frame[offCRC:offServerID]),
		SenderID: binary.LittleEndian.Uint32(frame[offServerID:offType]),
		Type:     MessageType(binary.LittleEndian.Uint32(frame[offType:HeaderSize])),
	}, nil
}

// DecodeHeader returns the message type and the payload following the header.
// The returned payload aliases frame.
func DecodeHeader(frame []byte) (MessageType, []byte, error) {
	h, err := ParseHeader(frame)
	if err != nil {
		return 0, nil, err
	}
	return h.Type, frame[HeaderSize:], nil
}
