package api

import "time"

// ServerConfig represents the feed API configuration of the server subcommand.
type ServerConfig struct {
	Addr                        string        `help:"Feed API listen address" default:"127.0.0.1:26761" env:"DS4DSU_API_ADDR"`
	DeviceHandlerConnectTimeout time.Duration `help:"How long an attached controller waits for a report stream before it is detached" default:"5s" env:"DS4DSU_API_DEVICE_HANDLER_TIMEOUT"`
	RequireAuth                 bool          `help:"Require the password handshake from loopback clients as well" env:"DS4DSU_API_REQUIRE_AUTH"`
	ConnectionTimeout           time.Duration `kong:"-"`
	Password                    string        `kong:"-"`
}
