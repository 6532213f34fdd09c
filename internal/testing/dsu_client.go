package testing

import (
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/Alia5/ds4dsu/dsu"
)

// DSUClient is a minimal DSU peer for end-to-end tests.
type DSUClient struct {
	t    *testing.T
	conn *net.UDPConn
}

// DialDSU opens a UDP socket connected to the server at addr. The socket is
// closed when the test ends.
func DialDSU(t *testing.T, addr net.Addr) *DSUClient {
	t.Helper()
	raddr, err := net.ResolveUDPAddr("udp", addr.String())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &DSUClient{t: t, conn: conn}
}

// LocalAddr returns the client's own address as seen by the server.
func (c *DSUClient) LocalAddr() *net.UDPAddr { return c.conn.LocalAddr().(*net.UDPAddr) }

// SendRaw writes one datagram.
func (c *DSUClient) SendRaw(b []byte) {
	c.t.Helper()
	if _, err := c.conn.Write(b); err != nil {
		c.t.Fatalf("send failed: %v", err)
	}
}

// Send frames payload as a client message and writes it.
func (c *DSUClient) Send(t dsu.MessageType, payload []byte) {
	c.t.Helper()
	c.SendRaw(dsu.NewClientBuilder(t, 1).Bytes(payload).Finalize())
}

// RequestPorts sends a ports request for the given slots.
func (c *DSUClient) RequestPorts(slots ...uint8) {
	c.t.Helper()
	b, _ := dsu.PortsRequest{Slots: slots}.MarshalBinary()
	c.Send(dsu.MessagePorts, b)
}

// Subscribe sends a data request.
func (c *DSUClient) Subscribe(req dsu.DataRequest) {
	c.t.Helper()
	b, _ := req.MarshalBinary()
	c.Send(dsu.MessageData, b)
}

// Read waits up to timeout for one datagram. It returns nil on timeout.
func (c *DSUClient) Read(timeout time.Duration) []byte {
	c.t.Helper()
	buf := make([]byte, 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	n, err := c.conn.Read(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil
		}
		c.t.Fatalf("read failed: %v", err)
	}
	return buf[:n]
}
