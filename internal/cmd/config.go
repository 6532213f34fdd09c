package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/Alia5/ds4dsu/internal/configpaths"
	"github.com/Alia5/ds4dsu/internal/log"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Generate a configuration template"`
}

// ConfigInit scaffolds a configuration file for a specific command.
type ConfigInit struct {
	Command string `arg:"" name:"command" help:"Command to generate config for" enum:"server,probe"`
	Format  string `help:"Output format" enum:"json,yaml,toml" default:"json"`
	Output  string `help:"Destination file path (defaults to <command>.<ext> in the current directory)"`
	Global  bool   `help:"Write to the user config directory instead of the current directory"`
	Force   bool   `help:"Overwrite if the file already exists"`
}

// Run generates a configuration template by reflecting the command structs and their tags.
func (c *ConfigInit) Run() error {
	format := normalizeFormat(c.Format)
	if format == "" {
		return fmt.Errorf("unsupported format: %s", c.Format)
	}

	root, err := templateFor(c.Command)
	if err != nil {
		return err
	}

	dest, err := c.destination(format)
	if err != nil {
		return err
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return errors.New("destination exists; use --force to overwrite")
		}
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}

	data, err := marshalTemplate(format, root)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func (c *ConfigInit) destination(format string) (string, error) {
	switch {
	case c.Output != "":
		return c.Output, nil
	case c.Global:
		return configpaths.DefaultNamedConfigPath(c.Command, format)
	default:
		return c.Command + "." + configpaths.Extension(format), nil
	}
}

func templateFor(command string) (map[string]any, error) {
	var root map[string]any
	switch command {
	case "server":
		root = buildMapFromStruct(reflect.TypeOf(Server{}))
	case "probe":
		root = buildMapFromStruct(reflect.TypeOf(Probe{}))
	default:
		return nil, errors.New("unknown command; expected 'server' or 'probe'")
	}
	root["log"] = buildMapFromStruct(reflect.TypeOf(log.Config{}))
	return root, nil
}

func marshalTemplate(format string, root map[string]any) ([]byte, error) {
	switch format {
	case "json":
		return json.MarshalIndent(root, "", "  ")
	case "yaml":
		return yaml.Marshal(root)
	case "toml":
		return toml.Marshal(root)
	}
	return nil, fmt.Errorf("unsupported format: %s", format)
}

func normalizeFormat(f string) string {
	switch strings.ToLower(f) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	default:
		return ""
	}
}

// snakeCase turns a Go field name into the key kong's resolvers look up:
// "ClientTimeout" -> "client_timeout", "APIAddr" -> "api_addr".
func snakeCase(s string) string {
	r := []rune(s)
	var b strings.Builder
	for i, c := range r {
		if unicode.IsUpper(c) {
			prevLower := i > 0 && unicode.IsLower(r[i-1])
			nextLower := i+1 < len(r) && unicode.IsLower(r[i+1])
			if i > 0 && (prevLower || (nextLower && unicode.IsUpper(r[i-1]))) {
				b.WriteByte('_')
			}
			c = unicode.ToLower(c)
		}
		b.WriteRune(c)
	}
	return b.String()
}

func buildMapFromStruct(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := map[string]any{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("kong") == "-" {
			continue
		}
		if _, ok := f.Tag.Lookup("arg"); ok {
			continue
		}

		if _, ok := f.Tag.Lookup("embed"); ok {
			name := strings.TrimSuffix(f.Tag.Get("prefix"), ".")
			sub := buildMapFromStruct(f.Type)
			if name != "" {
				out[name] = sub
			} else {
				for k, v := range sub {
					out[k] = v
				}
			}
			continue
		}

		key := snakeCase(f.Name)
		if name := f.Tag.Get("name"); name != "" {
			key = strings.ReplaceAll(name, "-", "_")
		}
		if val := defaultValueForField(f.Type, f.Tag.Get("default")); val != nil {
			out[key] = val
		}
	}
	return out
}

func defaultValueForField(t reflect.Type, def string) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "time" && t.Name() == "Duration" {
		if def != "" {
			return def
		}
		return "0s"
	}
	switch t.Kind() {
	case reflect.String:
		return def
	case reflect.Bool:
		b, err := strconv.ParseBool(def)
		if err != nil {
			return false
		}
		return b
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(def, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(def, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(def, 64)
		if err != nil {
			return 0
		}
		return f
	case reflect.Struct:
		return buildMapFromStruct(t)
	default:
		return nil
	}
}
