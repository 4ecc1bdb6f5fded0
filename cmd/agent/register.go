package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/agent"
)

// registerCmd announces this host to the control plane. It needs the agent
// key from the configuration file.
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register this host with the control plane",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		ctx := cmd.Context()
		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}

		if rt.cfg.API.Key == "" {
			return fmt.Errorf("no API key configured; set api.key in %s", cfgPath)
		}

		var diskPaths []string
		if dc := rt.diskStore.Get(); dc != nil {
			for mount := range dc.Disks {
				diskPaths = append(diskPaths, mount)
			}
			sort.Strings(diskPaths)
		}

		reg := agent.BuildRegistration(ctx, rt.agent.Hostname(), rt.cfg.Services, diskPaths)
		result, err := rt.client.Register(ctx, reg)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Registered: %s\n", result.Message)
		if result.AgentID != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Agent ID: %s\n", result.AgentID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
}
