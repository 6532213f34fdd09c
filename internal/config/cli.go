// Package config defines the ds4dsu command line.
package config

import (
	"github.com/alecthomas/kong"

	"github.com/Alia5/ds4dsu/internal/cmd"
	"github.com/Alia5/ds4dsu/internal/log"
)

// CLI is the root of the kong command tree. Flags override environment
// variables, which override config files.
type CLI struct {
	ConfigFile string           `name:"config" help:"Path to a JSON, YAML or TOML configuration file" type:"path" env:"DS4DSU_CONFIG"`
	Version    kong.VersionFlag `help:"Print the version and exit"`
	Log        log.Config       `embed:"" prefix:"log."`

	Server    cmd.Server        `cmd:"" help:"Run the DSU server and the controller feed API"`
	Probe     cmd.Probe         `cmd:"" help:"Query a running DSU server like an emulator would"`
	Config    cmd.ConfigCommand `cmd:"" help:"Configuration file helpers"`
	Install   cmd.Install       `cmd:"" help:"Install ds4dsu as a systemd service"`
	Uninstall cmd.Uninstall     `cmd:"" help:"Remove the ds4dsu systemd service"`
}
