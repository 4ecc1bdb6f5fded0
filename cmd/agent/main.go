// Command agent is the UptimeSquirrel monitoring agent. It collects host
// metrics, checks services, optionally polls SNMP devices, and reports to
// the UptimeSquirrel control plane.
package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/config"
)

var (
	cfgPath string
	verbose bool
)

// errMissingAgentKey stops reporting commands before any network traffic.
// The key is issued when the agent is created in the web UI.
var errMissingAgentKey = errors.New("no agent key configured: set api.key in " + config.DefaultConfigPath)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "uptimesquirrel-agent",
	Short: "UptimeSquirrel monitoring agent",
	Long: `The UptimeSquirrel agent collects system metrics (CPU, memory, disk,
network, services, temperatures), evaluates alert thresholds, and reports
to the UptimeSquirrel control plane. SNMP network devices can be polled
alongside the host.`,
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultConfigPath, "path to the agent configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
