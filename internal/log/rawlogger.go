package log

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// RawLogger dumps datagrams as they cross the socket.
type RawLogger interface {
	// Log records one datagram. in is true for client->server traffic.
	Log(in bool, peer string, data []byte)
}

type rawLogger struct {
	w   io.Writer
	mu  sync.Mutex
	now func() time.Time
}

// NewRaw creates a RawLogger writing to w. A nil w discards everything.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w, now: time.Now}
}

// Log writes one line: time, direction, peer, length and a space separated hex dump.
func (r *rawLogger) Log(in bool, peer string, data []byte) {
	if r.w == nil || len(data) == 0 {
		return
	}

	dir := "S->C"
	if in {
		dir = "C->S"
	}

	const hexdigits = "0123456789abcdef"
	hex := make([]byte, 0, len(data)*3)
	for i, b := range data {
		if i > 0 {
			hex = append(hex, ' ')
		}
		hex = append(hex, hexdigits[b>>4], hexdigits[b&0x0f])
	}

	line := fmt.Sprintf("%s %s %s %d bytes: %s\n",
		r.now().Format("2006/01/02 15:04:05.000"),
		dir,
		peer,
		len(data),
		hex)

	r.mu.Lock()
	_, _ = io.WriteString(r.w, line)
	r.mu.Unlock()
}
