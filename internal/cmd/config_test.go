package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	toml "github.com/pelletier/go-toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"
)

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"Addr":                        "addr",
		"ClientTimeout":               "client_timeout",
		"DeviceHandlerConnectTimeout": "device_handler_connect_timeout",
		"APIAddr":                     "api_addr",
		"RawFile":                     "raw_file",
		"ReuseAddr":                   "reuse_addr",
	}
	for in, want := range cases {
		assert.Equal(t, want, snakeCase(in), in)
	}
}

func TestConfigInitServer(t *testing.T) {
	type testCase struct {
		format    string
		unmarshal func([]byte, any) error
	}
	cases := []testCase{
		{format: "json", unmarshal: json.Unmarshal},
		{format: "yaml", unmarshal: yaml.Unmarshal},
		{format: "toml", unmarshal: toml.Unmarshal},
	}
	for _, tc := range cases {
		t.Run(tc.format, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "server."+tc.format)
			c := &ConfigInit{Command: "server", Format: tc.format, Output: dest}
			require.NoError(t, c.Run())

			data, err := os.ReadFile(dest)
			require.NoError(t, err)
			var root map[string]any
			require.NoError(t, tc.unmarshal(data, &root))

			udp, ok := root["udp"].(map[string]any)
			require.True(t, ok, "udp section missing: %v", root)
			assert.Equal(t, "127.0.0.1:26760", udp["addr"])
			assert.Equal(t, "5s", udp["client_timeout"])
			assert.Contains(t, udp, "remap_buttons")
			assert.Contains(t, udp, "no_touch")

			apiSection, ok := root["api"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "127.0.0.1:26761", apiSection["addr"])
			assert.NotContains(t, apiSection, "password")
			assert.NotContains(t, apiSection, "connection_timeout")

			logSection, ok := root["log"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "info", logSection["level"])

			assert.Equal(t, "30s", root["connection_timeout"])
		})
	}
}

func TestConfigInitProbe(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "probe.json")
	require.NoError(t, (&ConfigInit{Command: "probe", Format: "json", Output: dest}).Run())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	var root map[string]any
	require.NoError(t, json.Unmarshal(data, &root))
	assert.Equal(t, "127.0.0.1:26760", root["addr"])
	assert.Equal(t, float64(4), root["slots"])
	assert.Equal(t, false, root["watch"])
}

func TestConfigInitDestination(t *testing.T) {
	t.Run("refuses to overwrite", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "server.json")
		require.NoError(t, os.WriteFile(dest, []byte("{}"), 0o644))

		err := (&ConfigInit{Command: "server", Format: "json", Output: dest}).Run()
		assert.ErrorContains(t, err, "--force")

		require.NoError(t, (&ConfigInit{Command: "server", Format: "json", Output: dest, Force: true}).Run())
		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Contains(t, string(data), "udp")
	})

	t.Run("global", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", dir)

		require.NoError(t, (&ConfigInit{Command: "server", Format: "yml", Global: true}).Run())
		assert.FileExists(t, filepath.Join(dir, "ds4dsu", "server.yaml"))
	})

	t.Run("unknown command", func(t *testing.T) {
		err := (&ConfigInit{Command: "proxy", Format: "json", Output: filepath.Join(t.TempDir(), "x.json")}).Run()
		assert.Error(t, err)
	})

	t.Run("unknown format", func(t *testing.T) {
		err := (&ConfigInit{Command: "server", Format: "ini"}).Run()
		assert.ErrorContains(t, err, "unsupported format")
	})
}

func TestSystemdUnitContent(t *testing.T) {
	unit := systemdUnitContent("/usr/local/bin/ds4dsu", []string{"--udp.addr=0.0.0.0:26760", "--udp.no-touch"})
	assert.Contains(t, unit, `ExecStart="/usr/local/bin/ds4dsu" server "--udp.addr=0.0.0.0:26760" "--udp.no-touch"`)
	assert.Contains(t, unit, "WorkingDirectory=/usr/local/bin\n")
	assert.Contains(t, unit, "WantedBy=multi-user.target")

	bare := systemdUnitContent("/opt/ds4dsu", nil)
	assert.Contains(t, bare, "ExecStart=\"/opt/ds4dsu\" server\n")
}
