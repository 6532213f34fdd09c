package apiclient

import (
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/Alia5/ds4dsu/apitypes"
	"github.com/Alia5/ds4dsu/device"
)

// ErrStreamClosed is returned by writes on a closed stream.
var ErrStreamClosed = errors.New("stream closed")

// FeedStream is an open report stream for one attached slot.
type FeedStream struct {
	conn net.Conn
	Slot uint8

	mu     sync.Mutex
	closed bool
}

// OpenStream connects to the report stream of an attached slot. It returns
// the server's problem+json error if the slot has no controller or already
// has a stream.
func (c *Client) OpenStream(ctx context.Context, slot uint8) (*FeedStream, error) {
	if c.transport.mock != nil {
		return nil, fmt.Errorf("stream connections not supported with mock transport")
	}
	conn, err := c.transport.dial(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := fmt.Fprintf(conn, "slots/%d/stream\x00", slot); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}

	if c.transport.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(c.transport.cfg.ReadTimeout))
	}
	line, err := readAck(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if line != "" {
		conn.Close()
		var problem apitypes.ApiError
		if err := json.Unmarshal([]byte(line), &problem); err == nil && problem.Status != 0 {
			return nil, &problem
		}
		return nil, fmt.Errorf("unexpected stream response: %q", line)
	}
	_ = conn.SetReadDeadline(time.Time{})

	return &FeedStream{conn: conn, Slot: slot}, nil
}

// readAck reads one line byte by byte so no stream bytes are consumed.
func readAck(conn net.Conn) (string, error) {
	var sb strings.Builder
	var b [1]byte
	for {
		if _, err := conn.Read(b[:]); err != nil {
			return "", fmt.Errorf("read stream ack: %w", err)
		}
		if b[0] == '\n' {
			return sb.String(), nil
		}
		sb.WriteByte(b[0])
	}
}

// AttachAndConnect attaches a controller to slot and immediately opens its stream.
func (c *Client) AttachAndConnect(ctx context.Context, slot uint8, id device.Identity, format string) (*FeedStream, *apitypes.Slot, error) {
	resp, err := c.AttachCtx(ctx, slot, id, format)
	if err != nil {
		return nil, nil, err
	}
	stream, err := c.OpenStream(ctx, slot)
	if err != nil {
		return nil, resp, err
	}
	return stream, resp, nil
}

// Write sends raw frames to the stream.
func (s *FeedStream) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStreamClosed
	}
	return s.conn.Write(data)
}

// WriteBinary marshals and sends one frame, such as a dualshock4.InputState.
func (s *FeedStream) WriteBinary(v encoding.BinaryMarshaler) error {
	data, err := v.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = s.Write(data)
	return err
}

// SetWriteDeadline sets the write deadline for the underlying connection.
func (s *FeedStream) SetWriteDeadline(t time.Time) error {
	return s.conn.SetWriteDeadline(t)
}

// Close ends the stream. The controller stays attached until the server's
// connect timeout runs out or Detach is called.
func (s *FeedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
