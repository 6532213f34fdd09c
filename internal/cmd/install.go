package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	serviceName = "ds4dsu.service"
	servicePath = "/etc/systemd/system/ds4dsu.service"
)

// Install registers ds4dsu as a systemd service running the server command.
type Install struct {
	ServerArgs []string `arg:"" optional:"" name:"args" help:"Extra arguments passed to 'ds4dsu server' in the unit"`
}

// Run is called by Kong when the install command is executed.
func (i *Install) Run(logger *slog.Logger) error {
	exePath, err := currentExecutable()
	if err != nil {
		return err
	}

	unit := systemdUnitContent(exePath, i.ServerArgs)
	if err := os.WriteFile(servicePath, []byte(unit), 0o644); err != nil {
		return err
	}

	steps := [][]string{
		{"daemon-reload"},
		{"enable", serviceName},
		{"restart", serviceName},
	}
	for _, args := range steps {
		if err := runSystemctl(args...); err != nil {
			return err
		}
	}

	logger.Info("ds4dsu systemd service installed", "path", servicePath, "exe", exePath)
	return nil
}

// Uninstall stops and removes the systemd service.
type Uninstall struct{}

// Run is called by Kong when the uninstall command is executed.
func (u *Uninstall) Run(logger *slog.Logger) error {
	var errs []error

	if err := runSystemctl("stop", serviceName); err != nil {
		errs = append(errs, err)
	}
	if err := runSystemctl("disable", serviceName); err != nil {
		errs = append(errs, err)
	}
	if err := os.Remove(servicePath); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	if err := runSystemctl("daemon-reload"); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logger.Info("ds4dsu systemd service removed", "path", servicePath)
	return nil
}

func systemdUnitContent(exePath string, args []string) string {
	execStart := fmt.Sprintf("%q server", exePath)
	for _, a := range args {
		execStart += " " + fmt.Sprintf("%q", a)
	}
	return fmt.Sprintf(`[Unit]
Description=ds4dsu DSU server
After=network-online.target bluetooth.target
Wants=network-online.target

[Service]
Type=simple
ExecStart=%s
WorkingDirectory=%s
Restart=on-failure

[Install]
WantedBy=multi-user.target
`, execStart, filepath.Dir(exePath))
}

func currentExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}

func runSystemctl(args ...string) error {
	cmd := exec.Command("systemctl", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s failed: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return nil
}
