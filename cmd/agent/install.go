package main

import (
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
)

//go:embed uptimesquirrel-agent.service
var systemdUnit []byte

//go:embed agent.example.yaml
var defaultConfig []byte

const systemdUnitPath = "/etc/systemd/system/uptimesquirrel-agent.service"

// installServiceCmd installs and enables the systemd unit.
var installServiceCmd = &cobra.Command{
	Use:   "install-service",
	Short: "Install and enable the systemd service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		if runtime.GOOS != "linux" {
			return fmt.Errorf("install-service is only supported on linux")
		}
		if os.Geteuid() != 0 {
			return fmt.Errorf("install-service must run as root")
		}

		if err := writeDefaultConfig(cmd); err != nil {
			return err
		}

		if err := os.WriteFile(systemdUnitPath, systemdUnit, 0o644); err != nil {
			return fmt.Errorf("write unit file: %w", err)
		}

		ctx := cmd.Context()
		steps := [][]string{
			{"systemctl", "daemon-reload"},
			{"systemctl", "enable", "uptimesquirrel-agent"},
			{"systemctl", "restart", "uptimesquirrel-agent"},
		}
		for _, step := range steps {
			out, err := exec.CommandContext(ctx, step[0], step[1:]...).CombinedOutput()
			if err != nil {
				return fmt.Errorf("%s: %w: %s", step[0], err, out)
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Service installed and started")
		fmt.Fprintln(cmd.OutOrStdout(), "Check status with: systemctl status uptimesquirrel-agent")
		return nil
	},
}

// writeDefaultConfig creates the configuration file from the embedded
// template. An existing file is left untouched.
func writeDefaultConfig(cmd *cobra.Command) error {
	if _, err := os.Stat(cfgPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	// 0600: the file will hold the agent key.
	if err := os.WriteFile(cfgPath, defaultConfig, 0o600); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s; set api.key before starting the service\n", cfgPath)
	return nil
}

func init() {
	rootCmd.AddCommand(installServiceCmd)
}
