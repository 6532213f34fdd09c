package dsu

import "time"

// ServerConfig represents the DSU UDP server configuration.
type ServerConfig struct {
	Addr          string        `help:"DSU UDP listen address" default:"127.0.0.1:26760" env:"DS4DSU_UDP_ADDR"`
	RemapButtons  bool          `help:"Swap the face buttons (A-B, X-Y) in the button mask" default:"false" env:"DS4DSU_UDP_REMAP_BUTTONS"`
	NoTouch       bool          `help:"Send zeroed touchpad data" default:"false" env:"DS4DSU_UDP_NO_TOUCH"`
	ClientTimeout time.Duration `help:"Drop clients that did not renew their data request within this interval" default:"5s" env:"DS4DSU_UDP_CLIENT_TIMEOUT"`
	Slots         int           `help:"Number of controller slots (1-256)" default:"4" env:"DS4DSU_UDP_SLOTS"`
	ReuseAddr     bool          `help:"Set SO_REUSEADDR on the UDP socket" default:"false" env:"DS4DSU_UDP_REUSE_ADDR"`
}

// DefaultClientTimeout is what DSU clients expect: they renew every second or so.
const DefaultClientTimeout = 5 * time.Second

// DefaultSlots is the slot count every DSU client asks about.
const DefaultSlots = 4

func (c *ServerConfig) clientTimeout() time.Duration {
	if c.ClientTimeout <= 0 {
		return DefaultClientTimeout
	}
	return c.ClientTimeout
}

func (c *ServerConfig) slots() int {
	switch {
	case c.Slots <= 0:
		return DefaultSlots
	case c.Slots > 256:
		return 256
	}
	return c.Slots
}
