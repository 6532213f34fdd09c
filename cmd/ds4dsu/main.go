package main

import (
	"os"
	"strings"

	"github.com/Alia5/ds4dsu/internal/config"
	"github.com/Alia5/ds4dsu/internal/configpaths"
	"github.com/Alia5/ds4dsu/internal/log"
	"github.com/Alia5/ds4dsu/internal/version"

	_ "github.com/Alia5/ds4dsu/internal/registry" // Register feed formats

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"
)

func main() {
	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(userCfg)

	var cli config.CLI
	ctx := kong.Parse(&cli,
		kong.Name("ds4dsu"),
		kong.Description("DualShock 4 motion and input over the DSU (cemuhook) protocol"),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		// Load configuration from JSON/YAML/TOML in priority order; flags/env override config values.
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	logger, rawLogger, closers, err := log.Setup(cli.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	ctx.Bind(logger)
	ctx.BindTo(rawLogger, (*log.RawLogger)(nil))

	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}

func findUserConfig(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "--config=") {
			return a[len("--config="):]
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("DS4DSU_CONFIG")
}
