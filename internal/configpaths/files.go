// Package configpaths locates ds4dsu configuration files.
package configpaths

import (
	"errors"
	"os"
	"path/filepath"
)

const (
	appName   = "ds4dsu"
	systemDir = "/etc/ds4dsu"
)

// baseNames are the file names probed in every config directory.
var baseNames = []string{appName, "config", "server", "probe"}

// DefaultConfigDir returns $XDG_CONFIG_HOME/ds4dsu, falling back to ~/.config/ds4dsu.
func DefaultConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", appName), nil
	}
	return "", errors.New("neither XDG_CONFIG_HOME nor HOME is set")
}

// DefaultConfigPath returns the default config file path for the given format using base name "config".
func DefaultConfigPath(format string) (string, error) {
	return DefaultNamedConfigPath("config", format)
}

// DefaultNamedConfigPath returns the default config file path for the given format and base name (e.g., "server").
func DefaultNamedConfigPath(baseName, format string) (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, baseName+"."+Extension(format)), nil
}

// Extension maps a format name to its file extension. Unknown formats are JSON.
func Extension(format string) string {
	switch format {
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	default:
		return "json"
	}
}

// EnsureDir ensures the directory for a given file path exists.
func EnsureDir(filePath string) error {
	return os.MkdirAll(filepath.Dir(filePath), 0o755)
}

// ConfigCandidatePaths builds candidate paths for config files per format,
// in priority order: userPath, working directory, user config dir, /etc/ds4dsu.
// userPath is routed to the loader matching its extension.
func ConfigCandidatePaths(userPath string) (jsonPaths, yamlPaths, tomlPaths []string) {
	if userPath != "" {
		switch filepath.Ext(userPath) {
		case ".yaml", ".yml":
			yamlPaths = append(yamlPaths, userPath)
		case ".toml":
			tomlPaths = append(tomlPaths, userPath)
		default:
			jsonPaths = append(jsonPaths, userPath)
		}
	}

	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if dir, err := DefaultConfigDir(); err == nil {
		dirs = append(dirs, dir)
	}
	dirs = append(dirs, systemDir)

	for _, dir := range dirs {
		for _, base := range baseNames {
			p := filepath.Join(dir, base)
			jsonPaths = append(jsonPaths, p+".json")
			yamlPaths = append(yamlPaths, p+".yaml", p+".yml")
			tomlPaths = append(tomlPaths, p+".toml")
		}
	}
	return
}
